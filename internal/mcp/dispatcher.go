// Package mcp implements the MCP dispatcher (C8): it decodes JSON-RPC 2.0
// frames, validates tools/list and tools/call, routes by tool name, and
// shapes every successful result with a trailing meta block. It turns a
// bubbled *apierr.Error into its JSON-RPC code via apierr.Lookup; the
// gateway derives the HTTP status from the same table.
package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/jsonrpc"
	"github.com/crolens/crolens-api/internal/registry"
	"github.com/crolens/crolens-api/internal/rpcclient"
	"github.com/crolens/crolens-api/internal/tools"
)

// Dispatcher routes JSON-RPC 2.0 frames against the domain tool surface.
type Dispatcher struct {
	tools *tools.Registry
	deps  *tools.Deps
}

// New builds a Dispatcher over the given tool registry and shared
// dependencies. The gateway constructs one Dispatcher at startup and
// reuses it for every request.
func New(reg *tools.Registry, deps *tools.Deps) *Dispatcher {
	return &Dispatcher{tools: reg, deps: deps}
}

// Outcome is everything the gateway needs to finish handling a request
// after the dispatcher runs: the JSON-RPC response body, the tool name
// (for billing/logging), and the error Kind of a failed call (the zero
// Kind on success).
type Outcome struct {
	Response *jsonrpc.Response
	ToolName string
	Kind     apierr.Kind
	Success  bool
}

// Handle decodes and routes one JSON-RPC frame. traceID is threaded into
// every tool's meta block.
func (d *Dispatcher) Handle(ctx context.Context, traceID string, req *jsonrpc.Request) *Outcome {
	switch req.Method {
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, traceID, req)
	default:
		return errOutcome(req.ID, "", apierr.New(apierr.KindNotFound, "method not found: "+req.Method))
	}
}

func (d *Dispatcher) handleToolsList(req *jsonrpc.Request) *Outcome {
	type listed struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"inputSchema"`
	}
	out := make([]listed, 0, len(registry.Specs))
	for _, s := range registry.Specs {
		out = append(out, listed{Name: s.Name, Description: s.Description, InputSchema: s.InputSchema})
	}
	return &Outcome{
		Response: jsonrpc.Success(req.ID, map[string]any{"tools": out}),
		Success:  true,
	}
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, traceID string, req *jsonrpc.Request) *Outcome {
	var params callParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil || params.Name == "" {
		return errOutcome(req.ID, "", apierr.New(apierr.KindInvalidParams, "Invalid tools/call params"))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	tool, ok := d.tools.Get(params.Name)
	if !ok {
		return errOutcome(req.ID, params.Name, apierr.New(apierr.KindNotFound, "unknown tool: "+params.Name))
	}

	start := time.Now()
	callCtx := rpcclient.WithCacheTracking(ctx)
	result, err := tool.Call(callCtx, d.deps, params.Arguments)
	if err != nil {
		return errOutcome(req.ID, params.Name, err)
	}

	shaped, ok := result.(map[string]any)
	if !ok {
		shaped = map[string]any{"value": result}
	}
	shaped["meta"] = tools.NewMeta(traceID, start, rpcclient.CacheHit(callCtx))

	return &Outcome{
		Response: jsonrpc.Success(req.ID, shaped),
		ToolName: params.Name,
		Success:  true,
	}
}

// errOutcome maps any error to a JSON-RPC error Response plus the Kind the
// gateway needs to pick an HTTP status and decide whether to bill.
func errOutcome(id json.RawMessage, toolName string, err error) *Outcome {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.KindInternal, "unhandled error", err)
	}
	code, _ := apierr.Lookup(apiErr.Kind)

	var data any
	if apiErr.Kind == apierr.KindRateLimited {
		data = jsonrpc.RetryAfterData{RetryAfter: apiErr.RetryAfterSecs}
	}

	return &Outcome{
		Response: jsonrpc.Fail(id, code, apiErr.Msg, data),
		ToolName: toolName,
		Kind:     apiErr.Kind,
		Success:  false,
	}
}
