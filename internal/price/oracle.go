// Package price implements the two-tier price oracle (C4) and its
// scheduled anchor refresher (C11).
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/kv"
	"github.com/crolens/crolens-api/internal/multicall"
)

// getReservesSelector is the 4-byte selector for UniswapV2Pair.getReserves().
const getReservesSelector = "0x0902f1ac"

// Oracle answers price_usd lookups by anchor price (scheduled, non-blocking)
// or derived price (computed on read from the deepest anchor-paired pool).
type Oracle struct {
	cache      *kv.Cache
	store      catalog.Store
	aggregator *multicall.Aggregator
	derivedTTL time.Duration
}

// New constructs an Oracle.
func New(cache *kv.Cache, store catalog.Store, aggregator *multicall.Aggregator, derivedTTL time.Duration) *Oracle {
	return &Oracle{cache: cache, store: store, aggregator: aggregator, derivedTTL: derivedTTL}
}

func anchorKey(token string) string  { return "price:anchor:" + token }
func derivedKey(token string) string { return "price:derived:" + token }

// GetUSD returns the USD price of token, or nil if neither tier yields a
// value — per spec §4.4, downstream tools surface price_usd: null rather
// than treating a miss as an error.
func (o *Oracle) GetUSD(ctx context.Context, token common.Address) (*decimal.Decimal, error) {
	addr := token.Hex()

	if raw, ok := o.cache.Get(anchorKey(addr)); ok {
		if d, err := decodeDecimal(raw); err == nil {
			return &d, nil
		}
	}

	if raw, ok := o.cache.Get(derivedKey(addr)); ok {
		if d, err := decodeDecimal(raw); err == nil {
			return &d, nil
		}
	}

	d, err := o.deriveFromPool(ctx, token)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}

	if raw, err := encodeDecimal(*d); err == nil {
		o.cache.Set(derivedKey(addr), raw, o.derivedTTL)
	}
	return d, nil
}

// deriveFromPool prices token off the reserves of its deepest anchor-paired
// pool, multiplied by that anchor's own USD price.
func (o *Oracle) deriveFromPool(ctx context.Context, token common.Address) (*decimal.Decimal, error) {
	pools, err := o.store.PoolsForToken(token.Hex())
	if err != nil {
		return nil, fmt.Errorf("list pools for token: %w", err)
	}
	if len(pools) == 0 {
		return nil, nil
	}

	anchors, err := o.store.ListAnchorTokens()
	if err != nil {
		return nil, fmt.Errorf("list anchor tokens: %w", err)
	}
	anchorSet := make(map[string]*catalog.Token, len(anchors))
	for _, t := range anchors {
		anchorSet[normalize(t.Address)] = t
	}

	type candidate struct {
		pool       *catalog.DexPool
		anchor     *catalog.Token
		tokenIsT0  bool
	}
	var candidates []candidate
	for _, p := range pools {
		if a, ok := anchorSet[normalize(p.Token0)]; ok && normalize(p.Token1) == normalize(token.Hex()) {
			candidates = append(candidates, candidate{pool: p, anchor: a, tokenIsT0: false})
		} else if a, ok := anchorSet[normalize(p.Token1)]; ok && normalize(p.Token0) == normalize(token.Hex()) {
			candidates = append(candidates, candidate{pool: p, anchor: a, tokenIsT0: true})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *decimal.Decimal
	var bestDepth decimal.Decimal
	for _, c := range candidates {
		r0, r1, err := o.getReserves(ctx, common.HexToAddress(c.pool.Address))
		if err != nil {
			continue
		}

		anchorPriceRaw, ok := o.cache.Get(anchorKey(normalize(c.anchor.Address)))
		if !ok {
			continue
		}
		anchorPrice, err := decodeDecimal(anchorPriceRaw)
		if err != nil {
			continue
		}

		var tokenReserve, anchorReserve decimal.Decimal
		tokenDecimals, anchorDecimals := 18, c.anchor.Decimals
		if tok, err := o.store.GetToken(token.Hex()); err == nil {
			tokenDecimals = tok.Decimals
		}

		if c.tokenIsT0 {
			tokenReserve = scaleDown(r0, tokenDecimals)
			anchorReserve = scaleDown(r1, anchorDecimals)
		} else {
			tokenReserve = scaleDown(r1, tokenDecimals)
			anchorReserve = scaleDown(r0, anchorDecimals)
		}

		if tokenReserve.IsZero() {
			continue
		}
		price := anchorReserve.Mul(anchorPrice).Div(tokenReserve)
		depth := anchorReserve

		if best == nil || depth.GreaterThan(bestDepth) {
			best = &price
			bestDepth = depth
		}
	}
	return best, nil
}

func (o *Oracle) getReserves(ctx context.Context, pool common.Address) (r0, r1 string, err error) {
	calls := []multicall.Call{{Target: pool, CallData: common.FromHex(getReservesSelector), AllowFailure: true}}
	results, err := o.aggregator.Aggregate(ctx, calls)
	if err != nil {
		return "", "", err
	}
	if len(results) != 1 || !results[0].Success || len(results[0].ReturnData) < 64 {
		return "", "", fmt.Errorf("getReserves failed for pool %s", pool.Hex())
	}
	data := results[0].ReturnData
	return "0x" + common.Bytes2Hex(data[0:32]), "0x" + common.Bytes2Hex(data[32:64]), nil
}

func scaleDown(hexAmount string, decimals int) decimal.Decimal {
	raw := new(big.Int).SetBytes(common.FromHex(hexAmount))
	return decimal.NewFromBigInt(raw, 0).Shift(int32(-decimals))
}

func normalize(addr string) string { return common.HexToAddress(addr).Hex() }

func encodeDecimal(d decimal.Decimal) ([]byte, error) { return json.Marshal(d.String()) }

func decodeDecimal(raw []byte) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}
