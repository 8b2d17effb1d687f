package price

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/kv"
)

// anchorFetchConcurrency bounds how many anchor tokens are re-priced at
// once, so a long list of anchors doesn't open one HTTP request per token
// simultaneously against the upstream price feed.
const anchorFetchConcurrency = 4

// AnchorFetcher retrieves the current USD price of an anchor token from
// whatever upstream price feed the deployment is configured with
// (the catalog's external_price_id column names the feed's own
// symbol/id for that token). The fetcher is the only piece of this
// system that talks to an off-chain price API; everything downstream
// only ever reads KV.
type AnchorFetcher interface {
	FetchUSD(ctx context.Context, externalPriceID string) (decimal.Decimal, error)
}

// Refresher is C11: the only background component in this system. It
// owns all price:anchor:* KV writes, on a fixed interval, independent of
// request traffic.
type Refresher struct {
	store    catalog.Store
	cache    *kv.Cache
	fetcher  AnchorFetcher
	interval time.Duration
	ttl      time.Duration
	log      *slog.Logger
}

// NewRefresher builds a Refresher. interval controls how often anchor
// tokens are re-priced; ttl is the KV entry lifetime written alongside
// each refresh (normally a small multiple of interval so a missed tick
// doesn't immediately blank the cache).
func NewRefresher(store catalog.Store, cache *kv.Cache, fetcher AnchorFetcher, interval, ttl time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{store: store, cache: cache, fetcher: fetcher, interval: interval, ttl: ttl, log: log}
}

// Run blocks, refreshing anchor prices on each tick until ctx is
// cancelled. cmd/api calls it in its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	r.refreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	anchors, err := r.store.ListAnchorTokens()
	if err != nil {
		r.log.Error("list anchor tokens", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(anchorFetchConcurrency)

	for _, t := range anchors {
		t := t
		if t.ExternalPriceID == "" {
			r.log.Warn("anchor token missing external_price_id, skipping", "token", t.Address)
			continue
		}

		g.Go(func() error {
			price, err := r.fetcher.FetchUSD(gctx, t.ExternalPriceID)
			if err != nil {
				r.log.Error("fetch anchor price", "token", t.Symbol, "error", err)
				return nil
			}

			raw, err := encodeDecimal(price)
			if err != nil {
				r.log.Error("encode anchor price", "token", t.Symbol, "error", err)
				return nil
			}
			r.cache.Set(anchorKey(normalize(t.Address)), raw, r.ttl)
			r.log.Debug("refreshed anchor price", "token", t.Symbol, "price_usd", price.String())
			return nil
		})
	}
	_ = g.Wait()
}
