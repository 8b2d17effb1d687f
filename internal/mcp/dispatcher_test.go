package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/jsonrpc"
	"github.com/crolens/crolens-api/internal/registry"
	"github.com/crolens/crolens-api/internal/tools"
)

// echoTool returns its arguments verbatim, for asserting shaping.
type echoTool struct{}

func (echoTool) Name() string { return "echo" }

func (echoTool) Call(ctx context.Context, deps *tools.Deps, args map[string]any) (any, error) {
	return map[string]any{"echoed": args}, nil
}

// failTool always fails with a fixed Kind.
type failTool struct{ kind apierr.Kind }

func (t failTool) Name() string { return "fail" }

func (t failTool) Call(ctx context.Context, deps *tools.Deps, args map[string]any) (any, error) {
	return nil, apierr.New(t.kind, "boom")
}

func newTestDispatcher() *Dispatcher {
	reg := tools.NewRegistry(echoTool{}, failTool{kind: apierr.KindUpstream})
	return New(reg, &tools.Deps{})
}

func rawID(n int) json.RawMessage { return json.RawMessage([]byte{byte('0' + n)}) }

func TestDispatcher_ToolsList(t *testing.T) {
	d := newTestDispatcher()
	out := d.Handle(context.Background(), "trace-1", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/list"})
	if !out.Success {
		t.Fatalf("expected success, got error %v", out.Response.Error)
	}
	body, err := json.Marshal(out.Response.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var parsed struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(parsed.Tools) != len(registry.Specs) {
		t.Fatalf("expected tools/list to serve the full C12 registry (%d entries), got %d", len(registry.Specs), len(parsed.Tools))
	}
	if parsed.Tools[0].Name != registry.Specs[0].Name {
		t.Errorf("expected first tool %q, got %q", registry.Specs[0].Name, parsed.Tools[0].Name)
	}
}

func TestDispatcher_ToolsCallSuccess(t *testing.T) {
	d := newTestDispatcher()
	params, _ := json.Marshal(map[string]any{"name": "echo", "arguments": map[string]any{"x": "y"}})
	out := d.Handle(context.Background(), "trace-2", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(2), Method: "tools/call", Params: params})

	if !out.Success {
		t.Fatalf("expected success, got error %v", out.Response.Error)
	}
	if out.ToolName != "echo" {
		t.Errorf("expected tool name 'echo', got %q", out.ToolName)
	}
	result, ok := out.Response.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", out.Response.Result)
	}
	meta, ok := result["meta"].(tools.Meta)
	if !ok {
		t.Fatalf("expected a meta block, got %T", result["meta"])
	}
	if meta.TraceID != "trace-2" {
		t.Errorf("expected trace id 'trace-2', got %q", meta.TraceID)
	}
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	d := newTestDispatcher()
	out := d.Handle(context.Background(), "trace-3", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(3), Method: "bogus"})
	if out.Success {
		t.Fatal("expected failure for unknown method")
	}
	if out.Response.Error.Code != -32601 {
		t.Errorf("expected code -32601, got %d", out.Response.Error.Code)
	}
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := newTestDispatcher()
	params, _ := json.Marshal(map[string]any{"name": "does_not_exist", "arguments": map[string]any{}})
	out := d.Handle(context.Background(), "trace-4", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(4), Method: "tools/call", Params: params})
	if out.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if out.Response.Error.Code != -32601 {
		t.Errorf("expected code -32601, got %d", out.Response.Error.Code)
	}
	if out.Kind != apierr.KindNotFound {
		t.Errorf("expected KindNotFound, got %q", out.Kind)
	}
}

func TestDispatcher_InvalidCallParams(t *testing.T) {
	d := newTestDispatcher()
	out := d.Handle(context.Background(), "trace-5", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(5), Method: "tools/call", Params: json.RawMessage(`{"arguments":{}}`)})
	if out.Success {
		t.Fatal("expected failure when name is missing")
	}
	if out.Response.Error.Code != -32602 {
		t.Errorf("expected code -32602, got %d", out.Response.Error.Code)
	}
}

func TestDispatcher_ToolErrorKindPropagates(t *testing.T) {
	d := newTestDispatcher()
	params, _ := json.Marshal(map[string]any{"name": "fail", "arguments": map[string]any{}})
	out := d.Handle(context.Background(), "trace-6", &jsonrpc.Request{JSONRPC: "2.0", ID: rawID(6), Method: "tools/call", Params: params})
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Kind != apierr.KindUpstream {
		t.Errorf("expected KindUpstream, got %q", out.Kind)
	}
	if out.Response.Error.Code != -32500 {
		t.Errorf("expected code -32500, got %d", out.Response.Error.Code)
	}
}
