// Package jsonrpc defines the JSON-RPC 2.0 envelope types used by the MCP
// transport. It mirrors the request/response shape the teacher's
// internal/types package used for OpenAI-compatible errors, generalized to
// the JSON-RPC 2.0 convention instead of REST error bodies.
package jsonrpc

import "encoding/json"

// Request is an inbound JSON-RPC 2.0 frame. ID is left as json.RawMessage
// so it can be echoed back verbatim (number, string, or null) without
// losing its original representation.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id, per the JSON-RPC
// 2.0 spec: notifications never produce a response body.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is the outbound JSON-RPC 2.0 frame: exactly one of Result or
// Error is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success builds a successful Response, echoing the request id.
func Success(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// Fail builds an error Response, echoing the request id.
func Fail(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

// RetryAfterData is the data payload attached to a -32003 rate-limit error.
type RetryAfterData struct {
	RetryAfter int `json:"retry_after"`
}

// PaymentRequiredData is the data payload attached to a -32002 error.
type PaymentRequiredData struct {
	PaymentAddress string `json:"payment_address"`
	ChainID        int    `json:"chain_id"`
	Price          string `json:"price"`
	Credits        int    `json:"credits"`
}

// Meta is attached to every successful tool result.
type Meta struct {
	TraceID   string `json:"trace_id"`
	Timestamp string `json:"timestamp"`
	LatencyMs int64  `json:"latency_ms"`
	Cached    bool   `json:"cached"`
}
