package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/adapter/lending"
	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
)

// TokenInfoTool implements get_token_info.
type TokenInfoTool struct{}

func (TokenInfoTool) Name() string { return "get_token_info" }

func (TokenInfoTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}
	token, err := deps.Store.GetToken(addrStr)
	if err != nil {
		return nil, apierr.New(apierr.KindNotFound, "token not tracked")
	}

	price, _ := deps.Price.GetUSD(ctx, common.HexToAddress(token.Address))

	return map[string]any{
		"address":       token.Address,
		"symbol":        token.Symbol,
		"decimals":      token.Decimals,
		"is_stablecoin": token.IsStablecoin,
		"is_anchor":     token.IsAnchor,
		"price_usd":     price,
	}, nil
}

// PoolInfoTool implements get_pool_info.
type PoolInfoTool struct{}

func (PoolInfoTool) Name() string { return "get_pool_info" }

func (PoolInfoTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}

	pool, err := findPool(deps, addrStr)
	if err != nil {
		return nil, err
	}
	proto, err := deps.Store.GetProtocol(pool.ProtocolSlug)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "get protocol", err)
	}
	a, err := deps.Adapters.Resolve(proto.AdapterType)
	if err != nil || a.AMM == nil {
		return nil, apierr.New(apierr.KindInternal, "pool's protocol has no amm adapter")
	}

	poolAddr := common.HexToAddress(pool.Address)
	r0, r1, err := a.AMM.Reserves(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	supply, err := a.AMM.TotalSupply(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	price0, _ := deps.Price.GetUSD(ctx, common.HexToAddress(pool.Token0))
	price1, _ := deps.Price.GetUSD(ctx, common.HexToAddress(pool.Token1))

	valueUSD := decimal.Zero
	if price0 != nil && price1 != nil {
		valueUSD = a.AMM.LPValueUSD(r0, r1, *price0, *price1)
	}

	return map[string]any{
		"address":        pool.Address,
		"protocol":        pool.ProtocolSlug,
		"token0":          pool.Token0,
		"token1":          pool.Token1,
		"reserve0":        r0.String(),
		"reserve1":        r1.String(),
		"total_supply":    supply.String(),
		"total_value_usd": valueUSD,
	}, nil
}

func findPool(deps *Deps, addr string) (*catalog.DexPool, error) {
	pools, err := deps.Store.ListPools()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list pools", err)
	}
	for _, p := range pools {
		if strings.EqualFold(p.Address, addr) {
			return p, nil
		}
	}
	return nil, apierr.New(apierr.KindNotFound, "pool not tracked")
}

// TokenPriceTool implements get_token_price.
type TokenPriceTool struct{}

func (TokenPriceTool) Name() string { return "get_token_price" }

func (TokenPriceTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}
	price, err := deps.Price.GetUSD(ctx, common.HexToAddress(addrStr))
	if err != nil {
		return nil, err
	}
	return map[string]any{"address": addrStr, "price_usd": price}, nil
}

// TokenPricesTool implements get_token_prices.
type TokenPricesTool struct{}

func (TokenPricesTool) Name() string { return "get_token_prices" }

func (TokenPricesTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrs, err := AddressListArg(args, "addresses", 1, 20)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]*decimal.Decimal, len(addrs))
	for _, a := range addrs {
		p, err := deps.Price.GetUSD(ctx, common.HexToAddress(a))
		if err != nil {
			prices[a] = nil
			continue
		}
		prices[a] = p
	}
	return map[string]any{"prices": prices}, nil
}

// ListSupportedTokensTool implements list_supported_tokens.
type ListSupportedTokensTool struct{}

func (ListSupportedTokensTool) Name() string { return "list_supported_tokens" }

func (ListSupportedTokensTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	tokens, err := deps.Store.ListTokens()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list tokens", err)
	}
	return map[string]any{"tokens": tokens, "count": len(tokens)}, nil
}

// SearchContractTool implements search_contract.
type SearchContractTool struct{}

func (SearchContractTool) Name() string { return "search_contract" }

func (SearchContractTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	query, err := StringArg(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := OptionalRangeIntArg(args, "limit", 1, 50, 10)
	if err != nil {
		return nil, err
	}
	results, err := deps.Store.SearchContracts(query, limit)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "search contracts", err)
	}
	return map[string]any{"results": results}, nil
}

// VVSFarmsTool implements get_vvs_farms.
type VVSFarmsTool struct{}

func (VVSFarmsTool) Name() string { return "get_vvs_farms" }

func (VVSFarmsTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	var out []map[string]any
	for _, proto := range mustListProtocols(deps) {
		if proto.AdapterType != catalog.AdapterUniswapV2AMM {
			continue
		}
		a, err := deps.Adapters.Resolve(proto.AdapterType)
		if err != nil || a.AMM == nil {
			continue
		}
		pools, err := deps.Store.ListPoolsForProtocol(proto.Slug)
		if err != nil {
			continue
		}
		for _, p := range pools {
			poolAddr := common.HexToAddress(p.Address)
			r0, r1, err := a.AMM.Reserves(ctx, poolAddr)
			if err != nil {
				continue
			}
			price0, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token0))
			price1, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token1))
			liquidityUSD := decimal.Zero
			if price0 != nil && price1 != nil {
				liquidityUSD = a.AMM.LPValueUSD(r0, r1, *price0, *price1)
			}
			entry := map[string]any{
				"pool":          p.Address,
				"protocol":      proto.Slug,
				"token0":        p.Token0,
				"token1":        p.Token1,
				"reserve0":      r0.String(),
				"reserve1":      r1.String(),
				"liquidity_usd": liquidityUSD,
				"farmed":        p.FarmPoolIndex != nil,
			}
			if p.FarmPoolIndex != nil {
				entry["farm_pool_index"] = *p.FarmPoolIndex
			}
			out = append(out, entry)
		}
	}
	return map[string]any{"farms": out}, nil
}

// TectonicMarketsTool implements get_tectonic_markets.
type TectonicMarketsTool struct{}

func (TectonicMarketsTool) Name() string { return "get_tectonic_markets" }

func (TectonicMarketsTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	var out []map[string]any
	for _, proto := range mustListProtocols(deps) {
		if proto.AdapterType != catalog.AdapterCompoundV2Lend {
			continue
		}
		a, err := deps.Adapters.Resolve(proto.AdapterType)
		if err != nil || a.Lending == nil {
			continue
		}
		markets, err := deps.Store.ListMarketsForProtocol(proto.Slug)
		if err != nil {
			continue
		}
		for _, m := range markets {
			marketAddr := common.HexToAddress(m.Address)
			supplyRate, borrowRate, err := a.Lending.Rates(ctx, marketAddr)
			if err != nil {
				continue
			}
			out = append(out, map[string]any{
				"market":           m.Address,
				"protocol":         proto.Slug,
				"underlying":       m.Underlying,
				"supply_apy":       lending.RatePerBlockToAPY(supplyRate).StringFixed(4),
				"borrow_apy":       lending.RatePerBlockToAPY(borrowRate).StringFixed(4),
			})
		}
	}
	return map[string]any{"markets": out}, nil
}

// CROOverviewTool implements get_cro_overview.
type CROOverviewTool struct{}

func (CROOverviewTool) Name() string { return "get_cro_overview" }

func (CROOverviewTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	gasPrice, err := fetchGasPrice(ctx, deps)
	if err != nil {
		return nil, err
	}

	raw, _, err := deps.RPC.Call(ctx, "eth_blockNumber", []any{})
	var blockNumber uint64
	if err == nil {
		var hexBlock string
		if json.Unmarshal(raw, &hexBlock) == nil {
			blockNumber, _ = hexutil.DecodeUint64(hexBlock)
		}
	}

	var anchorPrice *decimal.Decimal
	tokens, err := deps.Store.ListAnchorTokens()
	if err == nil {
		for _, t := range tokens {
			if strings.EqualFold(t.Symbol, "WCRO") || strings.EqualFold(t.Symbol, "CRO") {
				anchorPrice, _ = deps.Price.GetUSD(ctx, common.HexToAddress(t.Address))
				break
			}
		}
	}

	return map[string]any{
		"chain_id":      deps.ChainID,
		"gas_price_wei": gasPrice.String(),
		"latest_block":  blockNumber,
		"price_usd":     anchorPrice,
	}, nil
}

// ProtocolStatsTool implements get_protocol_stats.
type ProtocolStatsTool struct{}

func (ProtocolStatsTool) Name() string { return "get_protocol_stats" }

func (ProtocolStatsTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	protocols, err := deps.Store.ListProtocols()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list protocols", err)
	}
	pools, err := deps.Store.ListPools()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list pools", err)
	}
	markets, err := deps.Store.ListMarkets()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list markets", err)
	}
	tokens, err := deps.Store.ListTokens()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list tokens", err)
	}

	return map[string]any{
		"protocol_count": len(protocols),
		"pool_count":     len(pools),
		"market_count":   len(markets),
		"token_count":    len(tokens),
	}, nil
}

// HealthAlertsTool implements get_health_alerts.
type HealthAlertsTool struct{}

func (HealthAlertsTool) Name() string { return "get_health_alerts" }

func (HealthAlertsTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	var alerts []map[string]any

	for _, proto := range mustListProtocols(deps) {
		switch proto.AdapterType {
		case catalog.AdapterUniswapV2AMM:
			a, err := deps.Adapters.Resolve(proto.AdapterType)
			if err != nil || a.AMM == nil {
				continue
			}
			pools, err := deps.Store.ListPoolsForProtocol(proto.Slug)
			if err != nil {
				continue
			}
			for _, p := range pools {
				r0, r1, err := a.AMM.Reserves(ctx, common.HexToAddress(p.Address))
				if err != nil {
					alerts = append(alerts, map[string]any{
						"severity": "warning", "protocol": proto.Slug, "target": p.Address,
						"message": "reserves read failed",
					})
					continue
				}
				if r0.IsZero() || r1.IsZero() {
					alerts = append(alerts, map[string]any{
						"severity": "critical", "protocol": proto.Slug, "target": p.Address,
						"message": "pool has zero liquidity",
					})
				}
			}
		case catalog.AdapterCompoundV2Lend:
			markets, err := deps.Store.ListMarketsForProtocol(proto.Slug)
			if err != nil {
				continue
			}
			for _, m := range markets {
				price, err := deps.Price.GetUSD(ctx, common.HexToAddress(m.Underlying))
				if err != nil || price == nil {
					alerts = append(alerts, map[string]any{
						"severity": "warning", "protocol": proto.Slug, "target": m.Address,
						"message": "price feed stalled for underlying " + m.Underlying,
					})
				}
			}
		}
	}

	return map[string]any{"alerts": alerts, "count": len(alerts)}, nil
}
