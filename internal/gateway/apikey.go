package gateway

import (
	"net/http"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
)

// resolveAPIKeyHeader extracts x-api-key and auto-provisions a free row on
// first sighting of a syntactically valid key (spec §4.1 step 4). Missing
// or malformed headers surface as invalid-params so the JSON-RPC path and
// the x402 routes can each wrap the message the way their transport
// expects.
func (g *Gateway) resolveAPIKeyHeader(r *http.Request) (*catalog.APIKey, error) {
	raw := r.Header.Get("x-api-key")
	if raw == "" {
		return nil, apierr.New(apierr.KindInvalidParams, "Missing API key header")
	}
	if !catalog.LooksLikeAPIKey(raw) {
		return nil, apierr.New(apierr.KindInvalidParams, "malformed API key")
	}
	key, err := g.store.GetOrCreateAPIKey(raw, g.cfg.DefaultFreeCredits)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "resolve API key", err)
	}
	if !key.IsActive {
		return nil, apierr.New(apierr.KindInvalidParams, "API key is inactive")
	}
	return key, nil
}
