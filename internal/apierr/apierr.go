// Package apierr defines the typed error taxonomy shared by every layer of
// the gateway. Adapters and infra fail with an *Error carrying a Kind and a
// cause; the MCP dispatcher and the gateway translate a Kind into a
// JSON-RPC code and an HTTP status through one table (see Lookup).
package apierr

import "fmt"

// Kind identifies the class of failure. The zero value is never produced by
// Wrap/New — callers must pick a Kind.
type Kind string

const (
	KindMalformed           Kind = "malformed"            // invalid JSON / malformed frame
	KindNotFound            Kind = "not_found"             // unknown method/tool
	KindInvalidParams       Kind = "invalid_params"         // schema violation, missing api key
	KindPaymentRequired     Kind = "payment_required"       // zero credits, pro-only tool
	KindRateLimited         Kind = "rate_limited"           // rate limit exceeded
	KindUpstream            Kind = "upstream"               // upstream RPC error
	KindUnavailable         Kind = "unavailable"            // deadline, dependency down
	KindInternal            Kind = "internal"               // internal error
)

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error

	// RetryAfterSecs is populated for KindRateLimited only.
	RetryAfterSecs int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a Kind and message to an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// RateLimited builds the rate-limit error with its Retry-After value.
func RateLimited(msg string, retryAfterSecs int) *Error {
	return &Error{Kind: KindRateLimited, Msg: msg, RetryAfterSecs: retryAfterSecs}
}

// As extracts an *Error from a generic error chain, if present.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// codeStatus maps a Kind to its JSON-RPC error code and HTTP status, per
// the error handling design table.
type codeStatus struct {
	Code   int
	Status int
}

var lookup = map[Kind]codeStatus{
	KindMalformed:       {-32600, 400},
	KindNotFound:        {-32601, 404},
	KindInvalidParams:   {-32602, 400},
	KindPaymentRequired: {-32002, 402},
	KindRateLimited:     {-32003, 429},
	KindUpstream:        {-32500, 500},
	KindUnavailable:     {-32501, 503},
	KindInternal:        {-32000, 500},
}

// Lookup returns the JSON-RPC code and HTTP status for a Kind. Unknown
// kinds map to KindInternal's mapping, never to a zero value.
func Lookup(k Kind) (code int, status int) {
	if cs, ok := lookup[k]; ok {
		return cs.Code, cs.Status
	}
	cs := lookup[KindInternal]
	return cs.Code, cs.Status
}
