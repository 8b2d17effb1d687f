package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/jsonrpc"
)

// handleJSONRPC serves POST / : the MCP transport. It applies, in order,
// the per-IP JSON-RPC rate limit, frame parsing, API-key resolution
// (tools/call only), the quota/tier gate, dispatch to C8, and billing.
func (g *Gateway) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	v := g.limiter.allow(jsonrpcIPKey(ip), g.cfg.RateLimitJSONRPCPerMin, windowSecs(g.cfg.RateLimitJSONRPCWindowSecs))
	if !v.Allowed {
		g.writeRateLimited(w, nil, v.RetryAfterSecs)
		return
	}

	var req jsonrpc.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		g.writeJSONRPCError(w, nil, apierr.New(apierr.KindMalformed, "invalid JSON"))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		g.writeJSONRPCError(w, req.ID, apierr.New(apierr.KindMalformed, "malformed JSON-RPC frame"))
		return
	}

	var key *catalog.APIKey
	if req.Method == "tools/call" {
		var err error
		key, err = g.resolveAPIKeyHeader(r)
		if err != nil {
			g.writeJSONRPCError(w, req.ID, err)
			return
		}

		if key.Tier != catalog.TierPro {
			v := g.limiter.allow(freeTierKeyKey(key.Key), g.cfg.RateLimitFreeTierPerHour, time.Hour)
			if !v.Allowed {
				g.writeRateLimited(w, req.ID, v.RetryAfterSecs)
				return
			}
		}

		if blocked := g.quotaBlocked(req, key); blocked {
			writeJSON(w, http.StatusPaymentRequired, jsonrpc.Fail(req.ID, -32002, "payment required", g.paymentRequiredData(key)))
			return
		}
	}

	traceID := TraceID(r.Context())
	outcome := g.dispatcher.Handle(r.Context(), traceID, &req)

	if outcome.Success && key != nil {
		g.bill(key, outcome.ToolName)
	}

	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	if !outcome.Success {
		_, status = apierr.Lookup(outcome.Kind)
	}
	writeJSON(w, status, outcome.Response)
}

// quotaBlocked implements spec §4.1 step 5: a pro-only tool or a
// zero-credit caller is rejected before C8 ever runs.
func (g *Gateway) quotaBlocked(req jsonrpc.Request, key *catalog.APIKey) bool {
	var params struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(req.Params, &params)
	spec, ok := g.toolsBySpec[params.Name]
	if !ok {
		return false // unknown tool: let C8 report -32601
	}
	if spec.ProOnly && key.Tier != catalog.TierPro {
		return true
	}
	return key.Credits <= 0 && !spec.FreeIncluded
}

// paymentRequiredData builds the top-up quote attached to a -32002 error.
func (g *Gateway) paymentRequiredData(key *catalog.APIKey) jsonrpc.PaymentRequiredData {
	return jsonrpc.PaymentRequiredData{
		PaymentAddress: g.cfg.X402PaymentAddress,
		ChainID:        config.ChainID,
		Price:          g.cfg.X402PricePerCreditWei,
		Credits:        key.Credits,
	}
}

// bill decrements one credit on a successful, billable tool call (spec
// §4.1 step 7). FreeIncluded tools are never billed. The CAS is retried
// once against a fresh read if it loses the race, matching the teacher's
// treatment of compare-and-set losses as a retry, not a failure, for a
// best-effort background mutation.
func (g *Gateway) bill(key *catalog.APIKey, toolName string) {
	spec, ok := g.toolsBySpec[toolName]
	if ok && spec.FreeIncluded {
		return
	}
	ok2, err := g.store.DebitCredit(key.Key, key.Credits)
	if err != nil || ok2 {
		return
	}
	fresh, err := g.store.GetAPIKey(key.Key)
	if err != nil || fresh.Credits <= 0 {
		return
	}
	_, _ = g.store.DebitCredit(key.Key, fresh.Credits)
}

func windowSecs(secs int) time.Duration { return time.Duration(secs) * time.Second }

func (g *Gateway) writeJSONRPCError(w http.ResponseWriter, id json.RawMessage, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.KindInternal, "unhandled error", err)
	}
	code, status := apierr.Lookup(apiErr.Kind)
	writeJSON(w, status, jsonrpc.Fail(id, code, apiErr.Msg, nil))
}

func (g *Gateway) writeRateLimited(w http.ResponseWriter, id json.RawMessage, retryAfterSecs int) {
	w.Header().Set("Retry-After", itoa(retryAfterSecs))
	writeJSON(w, http.StatusTooManyRequests, jsonrpc.Fail(id, -32003, "rate limit exceeded", jsonrpc.RetryAfterData{RetryAfter: retryAfterSecs}))
}
