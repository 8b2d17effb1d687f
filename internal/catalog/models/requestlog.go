package models

import "time"

// RequestLog is an append-only record of one tool call.
type RequestLog struct {
	ID         string    `json:"id"`
	TraceID    string    `json:"trace_id"`
	APIKey     string    `json:"api_key,omitempty"`
	ToolName   string    `json:"tool_name"`
	LatencyMs  int64     `json:"latency_ms"`
	Status     string    `json:"status"` // "success" | "error"
	ErrorCode  int       `json:"error_code,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	RequestSize int      `json:"request_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// LogFilter filters RequestLog queries (admin/observability use).
type LogFilter struct {
	ToolName  string
	Status    string
	Limit     int
	Offset    int
}
