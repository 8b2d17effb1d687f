// Package gateway implements C9: CORS, security headers, API-key
// resolution and auto-provisioning, per-key quota, per-IP and per-key
// rate limiting, billing, and the x402 payment-verification state
// machine. It wraps the MCP dispatcher (C8) the way the teacher's
// internal/app.NewRouter wraps its proxy handlers with auth and
// rate-limit middleware, generalized from bearer-token proxy auth to a
// credit-metered quota gate in front of a JSON-RPC surface.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/kv"
	"github.com/crolens/crolens-api/internal/mcp"
	"github.com/crolens/crolens-api/internal/registry"
	"github.com/crolens/crolens-api/internal/rpcclient"
)

// Gateway bundles everything the HTTP surface needs to serve requests.
type Gateway struct {
	cfg         *config.Config
	store       catalog.Store
	cache       *kv.Cache
	rpc         *rpcclient.Client
	dispatcher  *mcp.Dispatcher
	logger      *slog.Logger
	limiter     *limiter
	toolsBySpec map[string]registry.Spec
}

// New builds a Gateway. dispatcher, store, and rpc must be non-nil; logger
// may be nil, in which case slog.Default() is used.
func New(cfg *config.Config, store catalog.Store, cache *kv.Cache, rpc *rpcclient.Client, dispatcher *mcp.Dispatcher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	specs := make(map[string]registry.Spec, len(registry.Specs))
	for _, s := range registry.Specs {
		specs[s.Name] = s
	}
	return &Gateway{
		cfg:         cfg,
		store:       store,
		cache:       cache,
		rpc:         rpc,
		dispatcher:  dispatcher,
		logger:      logger,
		limiter:     newLimiter(cache),
		toolsBySpec: specs,
	}
}

// Router builds the full HTTP handler: routes wrapped in the middleware
// chain applied to every request (outer to inner: security headers,
// request id, logging, CORS). Security headers sit outermost so they're
// attached to every response, including CORS rejections and OPTIONS
// preflights that return before reaching the mux.
func (g *Gateway) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /", g.handleJSONRPC)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /stats", g.handleStats)
	mux.HandleFunc("GET /x402/quote", g.handleX402Quote)
	mux.HandleFunc("GET /x402/status", g.handleX402Status)
	mux.HandleFunc("POST /x402/verify", g.handleX402Verify)

	var h http.Handler = mux
	h = g.cors(h)
	h = requestLogger(g.logger)(h)
	h = requestID(h)
	h = securityHeaders(h)
	return h
}
