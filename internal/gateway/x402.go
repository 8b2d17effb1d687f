package gateway

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/chainutil"
	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/tools"
)

// handleX402Quote serves GET /x402/quote. No authentication: the quote is
// the same for every caller, and a caller without a key yet needs it to
// know where to send funds before one is auto-provisioned.
func (g *Gateway) handleX402Quote(w http.ResponseWriter, r *http.Request) {
	v := g.limiter.allow(quoteIPKey(clientIP(r)), g.cfg.RateLimitQuotePerMin, time.Minute)
	if !v.Allowed {
		w.Header().Set("Retry-After", itoa(v.RetryAfterSecs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded", "retry_after": v.RetryAfterSecs})
		return
	}

	amountWei := "0"
	if price, ok := new(big.Int).SetString(g.cfg.X402PricePerCreditWei, 10); ok {
		amountWei = new(big.Int).Mul(price, big.NewInt(int64(g.cfg.X402TopupCredits))).String()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":             config.ChainID,
		"payment_address":      g.cfg.X402PaymentAddress,
		"credits":              g.cfg.X402TopupCredits,
		"amount_wei":           amountWei,
		"price_per_credit_wei": g.cfg.X402PricePerCreditWei,
		"meta":                 tools.NewMeta(TraceID(r.Context()), time.Now(), false),
	})
}

// handleX402Status serves GET /x402/status.
func (g *Gateway) handleX402Status(w http.ResponseWriter, r *http.Request) {
	key, ok := g.apiKeyForX402(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"api_key": key.Key,
		"tier":    key.Tier,
		"credits": key.Credits,
		"meta":    tools.NewMeta(TraceID(r.Context()), time.Now(), false),
	})
}

type verifyRequest struct {
	TxHash string `json:"tx_hash"`
}

// handleX402Verify serves POST /x402/verify: the credit-granting state
// machine from spec §4.1. The uniqueness constraint InsertPayment enforces
// on tx_hash is the sole atomicity boundary — concurrent verify calls for
// the same hash can both reach the insert, but only one observes
// PaymentInserted.
func (g *Gateway) handleX402Verify(w http.ResponseWriter, r *http.Request) {
	v := g.limiter.allow(verifyIPKey(clientIP(r)), g.cfg.RateLimitVerifyPerMin, time.Minute)
	if !v.Allowed {
		w.Header().Set("Retry-After", itoa(v.RetryAfterSecs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded", "retry_after": v.RetryAfterSecs})
		return
	}

	key, ok := g.apiKeyForX402(w, r)
	if !ok {
		return
	}
	if !g.cfg.TopupEnabled() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top-up is not configured"})
		return
	}

	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !chainutil.IsTxHash(body.TxHash) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tx_hash must be a 0x-prefixed 64-hex-digit transaction hash"})
		return
	}

	tx, err := g.fetchTx(r.Context(), body.TxHash)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream unavailable"})
		return
	}
	if tx == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
		return
	}

	receipt, err := g.fetchReceipt(r.Context(), body.TxHash)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream unavailable"})
		return
	}
	if receipt == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
		return
	}
	if receipt.Status != "0x1" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "failed", "error": "Transaction failed"})
		return
	}
	if !strings.EqualFold(tx.To, g.cfg.X402PaymentAddress) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "rejected", "error": "Transaction recipient mismatch"})
		return
	}

	pricePerCredit, ok1 := new(big.Int).SetString(g.cfg.X402PricePerCreditWei, 10)
	valueWei, ok2 := new(big.Int).SetString(strings.TrimPrefix(tx.Value, "0x"), 16)
	if !ok1 || !ok2 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to evaluate payment amount"})
		return
	}
	quoteWei := new(big.Int).Mul(pricePerCredit, big.NewInt(int64(g.cfg.X402TopupCredits)))
	if valueWei.Cmp(quoteWei) < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "rejected", "error": "Payment amount too low"})
		return
	}

	outcome, err := g.store.InsertPayment(&catalog.Payment{
		TxHash:         body.TxHash,
		APIKey:         key.Key,
		FromAddress:    tx.From,
		ToAddress:      tx.To,
		ValueWei:       valueWei.String(),
		CreditsGranted: g.cfg.X402TopupCredits,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to record payment"})
		return
	}

	if outcome == catalog.PaymentDuplicate {
		fresh, err := g.store.GetAPIKey(key.Key)
		credits := key.Credits
		if err == nil {
			credits = fresh.Credits
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "already_credited", "credits_added": 0, "credits": credits})
		return
	}

	newCredits, err := g.store.CreditPayment(key.Key, g.cfg.X402TopupCredits)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to credit payment"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "credited", "credits_added": g.cfg.X402TopupCredits, "credits": newCredits, "tier": catalog.TierPro})
}

// apiKeyForX402 resolves x-api-key for the /x402 routes, writing the
// response directly on failure so callers can just return.
func (g *Gateway) apiKeyForX402(w http.ResponseWriter, r *http.Request) (*catalog.APIKey, bool) {
	raw := r.Header.Get("x-api-key")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing x-api-key"})
		return nil, false
	}
	key, err := g.store.GetOrCreateAPIKey(raw, g.cfg.DefaultFreeCredits)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to resolve API key"})
		return nil, false
	}
	return key, true
}

// minimalTx and minimalReceipt carry only the fields the verify state
// machine inspects, independent of the fuller shapes internal/tools
// decodes for decode_transaction/get_transaction_status.
type minimalTx struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type minimalReceipt struct {
	Status string `json:"status"`
}

func (g *Gateway) fetchTx(ctx context.Context, hash string) (*minimalTx, error) {
	raw, _, err := g.rpc.Call(ctx, "eth_getTransactionByHash", []any{hash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var tx minimalTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getTransactionByHash", err)
	}
	return &tx, nil
}

func (g *Gateway) fetchReceipt(ctx context.Context, hash string) (*minimalReceipt, error) {
	raw, _, err := g.rpc.Call(ctx, "eth_getTransactionReceipt", []any{hash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var rcpt minimalReceipt
	if err := json.Unmarshal(raw, &rcpt); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getTransactionReceipt", err)
	}
	return &rcpt, nil
}
