package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/crolens/crolens-api/internal/tools"
	"github.com/crolens/crolens-api/internal/version"
)

type checkResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// handleHealth probes the catalog store, the KV cache, and the upstream
// RPC with short timeouts, per spec §4.8. DB failure is unhealthy; any
// other failure with DB ok is degraded.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	db := g.checkDB()
	kvCheck := g.checkKV()
	rpc := g.checkRPC(r.Context())

	status := "ok"
	httpStatus := http.StatusOK
	if db.Status != "ok" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else if kvCheck.Status != "ok" || rpc.Status != "ok" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"version": version.Version,
		"checks": map[string]checkResult{
			"db":  db,
			"kv":  kvCheck,
			"rpc": rpc,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gateway) checkDB() checkResult {
	start := time.Now()
	if err := g.store.Ping(); err != nil {
		return checkResult{Status: "fail", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return checkResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}

func (g *Gateway) checkKV() checkResult {
	start := time.Now()
	probeKey := "health:probe"
	g.cache.Set(probeKey, []byte("1"), time.Second)
	g.cache.Wait()
	if _, ok := g.cache.Get(probeKey); !ok {
		return checkResult{Status: "fail", LatencyMs: time.Since(start).Milliseconds(), Error: "write-read probe failed"}
	}
	return checkResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}

func (g *Gateway) checkRPC(ctx context.Context) checkResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, _, err := g.rpc.Call(ctx, "eth_blockNumber", []any{}); err != nil {
		return checkResult{Status: "fail", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return checkResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}

// handleStats serves GET /stats.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	protocols, err := g.store.ListProtocols()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to list protocols"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"protocols_supported": len(protocols),
		"meta":                tools.NewMeta(TraceID(r.Context()), time.Now(), false),
	})
}
