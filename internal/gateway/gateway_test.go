package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/crolens/crolens-api/internal/catalog"
	catalogsqlite "github.com/crolens/crolens-api/internal/catalog/sqlite"
	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/jsonrpc"
	"github.com/crolens/crolens-api/internal/kv"
	"github.com/crolens/crolens-api/internal/mcp"
	"github.com/crolens/crolens-api/internal/rpcclient"
	"github.com/crolens/crolens-api/internal/tools"
)

// echoTool mirrors internal/mcp's test tool: it returns its arguments
// verbatim so the gateway's shaping and billing can be asserted without
// pulling in a full domain tool and its on-chain dependencies.
type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) Call(ctx context.Context, deps *tools.Deps, args map[string]any) (any, error) {
	return map[string]any{"echoed": args}, nil
}

// rpcStub is a minimal JSON-RPC upstream for the health check and the
// x402 verify state machine's tx/receipt lookups.
type rpcStub struct {
	txFound      bool
	receiptFound bool
	receiptOK    bool
	to           string
	from         string
	valueHex     string
}

func (s *rpcStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var result any
		switch req.Method {
		case "eth_blockNumber":
			result = "0x10"
		case "eth_getTransactionByHash":
			if !s.txFound {
				result = nil
			} else {
				result = map[string]string{"from": s.from, "to": s.to, "value": s.valueHex}
			}
		case "eth_getTransactionReceipt":
			if !s.receiptFound {
				result = nil
			} else {
				status := "0x0"
				if s.receiptOK {
					status = "0x1"
				}
				result = map[string]string{"status": status}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}
}

func newTestGateway(t *testing.T, cfgOverride func(*config.Config), stub *rpcStub) (*Gateway, catalog.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalogsqlite.New(dbPath)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cache, err := kv.New()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(cache.Close)

	if stub == nil {
		stub = &rpcStub{}
	}
	upstream := httptest.NewServer(stub.handler())
	t.Cleanup(upstream.Close)

	rpc := rpcclient.New(rpcclient.Options{URL: upstream.URL, Timeout: 2 * time.Second, MaxRetries: 0, CacheTTL: 0})

	cfg := config.Load()
	cfg.DefaultFreeCredits = 3
	cfg.RateLimitJSONRPCPerMin = 1000
	cfg.RateLimitFreeTierPerHour = 1000
	cfg.RateLimitQuotePerMin = 1000
	cfg.RateLimitVerifyPerMin = 1000
	cfg.X402PaymentAddress = "0x000000000000000000000000000000000000bEEF"
	cfg.X402TopupCredits = 100
	cfg.X402PricePerCreditWei = "1"
	if cfgOverride != nil {
		cfgOverride(cfg)
	}

	reg := tools.NewRegistry(echoTool{})
	dispatcher := mcp.New(reg, &tools.Deps{RPC: rpc})

	return New(cfg, store, cache, rpc, dispatcher, nil), store
}

func doJSONRPC(t *testing.T, h http.Handler, apiKey, method string, params any) (*httptest.ResponseRecorder, jsonrpc.Response) {
	t.Helper()
	var rawParams json.RawMessage
	if params != nil {
		rawParams, _ = json.Marshal(params)
	}
	body, _ := json.Marshal(jsonrpc.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: method, Params: rawParams})
	req := httptest.NewRequest(http.MethodPost, "/", newReaderFrom(body))
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp jsonrpc.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func newReaderFrom(b []byte) *bytesReader { return &bytesReader{b: b} }

// bytesReader is a trivial io.Reader wrapper, used instead of
// bytes.NewReader to keep this file's import list minimal and obvious.
type bytesReader struct {
	b   []byte
	pos int
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("EOF")
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func TestGateway_MissingAPIKeyOnToolsCall(t *testing.T) {
	gw, _ := newTestGateway(t, nil, nil)
	rec, resp := doJSONRPC(t, gw.Router(), "", "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{}})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestGateway_AutoProvisionAndBilling(t *testing.T) {
	gw, store := newTestGateway(t, nil, nil)
	key := "cl_sk_" + "0123456789012345678901234567890123456789"

	rec, resp := doJSONRPC(t, gw.Router(), key, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{"a": 1}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %+v", rec.Code, resp.Error)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	got, err := store.GetAPIKey(key)
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if got.Credits != 2 {
		t.Errorf("expected credits to drop from 3 to 2 after one billed call, got %d", got.Credits)
	}
}

func TestGateway_PaymentRequiredAtZeroCredits(t *testing.T) {
	gw, store := newTestGateway(t, func(c *config.Config) { c.DefaultFreeCredits = 0 }, nil)
	key := "cl_sk_" + "1111111111111111111111111111111111111111"

	// First call auto-provisions the key with zero credits.
	rec, resp := doJSONRPC(t, gw.Router(), key, "tools/call", map[string]any{"name": "get_account_summary", "arguments": map[string]any{}})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %+v", rec.Code, resp)
	}
	if resp.Error == nil || resp.Error.Code != -32002 {
		t.Fatalf("expected -32002, got %+v", resp.Error)
	}

	got, err := store.GetAPIKey(key)
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if got.Credits != 0 {
		t.Errorf("expected credits to remain 0, got %d", got.Credits)
	}
}

func TestGateway_RateLimitReturns429(t *testing.T) {
	gw, _ := newTestGateway(t, func(c *config.Config) { c.RateLimitJSONRPCPerMin = 1 }, nil)
	key := "cl_sk_" + "2222222222222222222222222222222222222222"

	rec1, _ := doJSONRPC(t, gw.Router(), key, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{}})
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first call to succeed, got %d", rec1.Code)
	}

	rec2, resp2 := doJSONRPC(t, gw.Router(), key, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{}})
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec2.Code)
	}
	if resp2.Error == nil || resp2.Error.Code != -32003 {
		t.Fatalf("expected -32003, got %+v", resp2.Error)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header on 429")
	}
}

func TestGateway_X402QuoteAndStatus(t *testing.T) {
	gw, _ := newTestGateway(t, nil, nil)
	h := gw.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x402/quote", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var quote map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &quote)
	if quote["payment_address"] == "" {
		t.Error("expected a configured payment address in the quote")
	}

	key := "cl_sk_" + "3333333333333333333333333333333333333333"
	req := httptest.NewRequest(http.MethodGet, "/x402/status", nil)
	req.Header.Set("x-api-key", key)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
}

func TestGateway_X402Verify_PendingThenCreditedThenDuplicate(t *testing.T) {
	stub := &rpcStub{}
	gw, store := newTestGateway(t, nil, stub)
	h := gw.Router()
	key := "cl_sk_" + "4444444444444444444444444444444444444444"
	txHash := "0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000000"

	verify := func() *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"tx_hash": txHash})
		req := httptest.NewRequest(http.MethodPost, "/x402/verify", newReaderFrom(body))
		req.Header.Set("x-api-key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// tx not found yet: pending.
	rec := verify()
	var status map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status["status"] != "pending" {
		t.Fatalf("expected pending, got %+v", status)
	}

	// tx is mined and pays the full quoted amount.
	stub.txFound = true
	stub.receiptFound = true
	stub.receiptOK = true
	stub.to = gw.cfg.X402PaymentAddress
	stub.from = "0x00000000000000000000000000000000001234"
	stub.valueHex = "0x64" // 100 wei, matches 100 credits * 1 wei/credit

	rec = verify()
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status["status"] != "credited" {
		t.Fatalf("expected credited, got %+v", status)
	}

	got, err := store.GetAPIKey(key)
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if got.Tier != catalog.TierPro {
		t.Errorf("expected tier promoted to pro, got %q", got.Tier)
	}

	rec = verify()
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status["status"] != "already_credited" {
		t.Fatalf("expected already_credited on replay, got %+v", status)
	}
	if fmt.Sprintf("%v", status["credits_added"]) != "0" {
		t.Errorf("expected credits_added 0 on replay, got %v", status["credits_added"])
	}
}

func TestGateway_Health(t *testing.T) {
	gw, _ := newTestGateway(t, nil, nil)
	rec := httptest.NewRecorder()
	gw.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGateway_NonPostRootReturns405(t *testing.T) {
	gw, _ := newTestGateway(t, nil, nil)
	rec := httptest.NewRecorder()
	gw.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
