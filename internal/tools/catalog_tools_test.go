package tools

import (
	"context"
	"testing"

	"github.com/crolens/crolens-api/internal/catalog"
)

func TestListSupportedTokensTool(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertToken(&catalog.Token{
		Address: "0x0000000000000000000000000000000000dEaD",
		Symbol:  "WCRO", Decimals: 18, IsAnchor: true,
	}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	deps := &Deps{Store: store}

	out, err := ListSupportedTokensTool{}.Call(context.Background(), deps, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(map[string]any)
	if result["count"] != 1 {
		t.Errorf("expected count 1, got %+v", result)
	}
}

func TestProtocolStatsTool(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertProtocol(&catalog.Protocol{
		Slug: "vvs", Name: "VVS Finance", AdapterType: catalog.AdapterUniswapV2AMM,
	}); err != nil {
		t.Fatalf("seed protocol: %v", err)
	}
	deps := &Deps{Store: store}

	out, err := ProtocolStatsTool{}.Call(context.Background(), deps, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(map[string]any)
	if result["protocol_count"] != 1 {
		t.Errorf("expected protocol_count 1, got %+v", result)
	}
	if result["pool_count"] != 0 || result["market_count"] != 0 || result["token_count"] != 0 {
		t.Errorf("expected zero counts for unseeded tables, got %+v", result)
	}
}

func TestSearchContractTool(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertContract(&catalog.Contract{
		Address: "0x0000000000000000000000000000000000dEaD",
		Name:    "VVS Router",
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	deps := &Deps{Store: store}

	out, err := SearchContractTool{}.Call(context.Background(), deps, map[string]any{"query": "VVS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(map[string]any)
	results, ok := result["results"].([]*catalog.Contract)
	if !ok || len(results) != 1 {
		t.Fatalf("expected one matching contract, got %+v", result)
	}
}

func TestSearchContractTool_MissingQuery(t *testing.T) {
	deps := &Deps{Store: newTestStore(t)}
	if _, err := (SearchContractTool{}).Call(context.Background(), deps, map[string]any{}); err == nil {
		t.Fatal("expected error when query is missing")
	}
}
