package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crolens/crolens-api/internal/catalog"
	catalogsqlite "github.com/crolens/crolens-api/internal/catalog/sqlite"
)

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	store, err := catalogsqlite.New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResolveCronosIDTool_NoResolverConfigured(t *testing.T) {
	deps := &Deps{Store: newTestStore(t)}
	tool := ResolveCronosIDTool{}

	out, err := tool.Call(context.Background(), deps, map[string]any{"input": "alice.cro"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected a map result, got %T", out)
	}
	if result["resolved_address"] != nil || result["resolved_name"] != nil {
		t.Errorf("expected nil resolution with no resolver contract seeded, got %+v", result)
	}
	if result["input"] != "alice.cro" {
		t.Errorf("expected input echoed back, got %+v", result)
	}
}

func TestResolveCronosIDTool_NeitherNameNorAddress(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertContract(&catalog.Contract{
		Address: "0x0000000000000000000000000000000000dEaD",
		Name:    "Cronos ID Resolver",
	}); err != nil {
		t.Fatalf("seed resolver contract: %v", err)
	}
	deps := &Deps{Store: store}
	tool := ResolveCronosIDTool{}

	out, err := tool.Call(context.Background(), deps, map[string]any{"input": "not-a-name-or-address"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(map[string]any)
	if result["resolved_address"] != nil || result["resolved_name"] != nil {
		t.Errorf("expected no resolution for an input that's neither a .cro name nor an address, got %+v", result)
	}
}

func TestResolveCronosIDTool_MissingInput(t *testing.T) {
	deps := &Deps{Store: newTestStore(t)}
	tool := ResolveCronosIDTool{}

	if _, err := tool.Call(context.Background(), deps, map[string]any{}); err == nil {
		t.Fatal("expected an error when input is missing")
	}
}
