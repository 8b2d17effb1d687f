package tools

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/catalog"
)

// DefiPositionsTool implements get_defi_positions.
type DefiPositionsTool struct{}

func (DefiPositionsTool) Name() string { return "get_defi_positions" }

type ammPosition struct {
	Pool          string          `json:"pool"`
	Protocol      string          `json:"protocol"`
	LPBalance     string          `json:"lp_balance"`
	ShareOfPool   string          `json:"share_of_pool"`
	ValueUSD      decimal.Decimal `json:"value_usd"`
	PendingReward string          `json:"pending_reward,omitempty"`
}

type lendingPosition struct {
	Market     string          `json:"market"`
	Protocol   string          `json:"protocol"`
	Underlying string          `json:"underlying"`
	SupplyUSD  decimal.Decimal `json:"supply_usd,omitempty"`
	BorrowUSD  decimal.Decimal `json:"borrow_usd,omitempty"`
}

func (DefiPositionsTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}
	simple := OptionalBoolArg(args, "simple_mode", false)
	addr := common.HexToAddress(addrStr)

	ammPositions, liquidityTotal, pendingRewardsTotal := defiAMMPositions(ctx, deps, addr)
	supplies, borrows, supplyTotal, borrowTotal := defiLendingPositions(ctx, deps, addr)
	healthFactor := tectonicHealthFactor(deps, supplyTotal, borrowTotal)

	result := map[string]any{
		"address": addr.Hex(),
		"vvs": map[string]any{
			"total_liquidity_usd":       liquidityTotal.StringFixed(2),
			"total_pending_rewards_usd": pendingRewardsTotal.StringFixed(2),
			"positions":                 ammPositions,
		},
		"tectonic": map[string]any{
			"total_supply_usd": supplyTotal.StringFixed(2),
			"total_borrow_usd": borrowTotal.StringFixed(2),
			"net_value_usd":    supplyTotal.Sub(borrowTotal).StringFixed(2),
			"health_factor":    healthFactor,
			"supplies":         supplies,
			"borrows":          borrows,
		},
	}

	if simple {
		return map[string]any{
			"text": fmt.Sprintf("Account %s holds $%s in VVS liquidity and a Tectonic net position of $%s (health factor %s).",
				addr.Hex(), liquidityTotal.StringFixed(2), supplyTotal.Sub(borrowTotal).StringFixed(2), healthFactor),
		}, nil
	}
	return result, nil
}

// tectonicHealthFactor computes the "∞"-sentinel health factor string
// shared by get_defi_positions and get_liquidation_risk.
func tectonicHealthFactor(deps *Deps, supplyTotal, borrowTotal decimal.Decimal) string {
	if borrowTotal.IsZero() {
		return "∞"
	}
	for _, proto := range mustListProtocols(deps) {
		if proto.AdapterType != catalog.AdapterCompoundV2Lend {
			continue
		}
		a, err := deps.Adapters.Resolve(proto.AdapterType)
		if err != nil || a.Lending == nil {
			continue
		}
		hf := a.Lending.HealthFactor(supplyTotal, borrowTotal)
		return hf.StringFixed(2)
	}
	return "∞"
}

func mustListProtocols(deps *Deps) []*catalog.Protocol {
	protocols, err := deps.Store.ListProtocols()
	if err != nil {
		return nil
	}
	return protocols
}

// defiAMMPositions returns a user's VVS-style LP positions, total USD
// liquidity value, and total USD value of pending farm rewards across
// every farmed pool.
func defiAMMPositions(ctx context.Context, deps *Deps, addr common.Address) ([]ammPosition, decimal.Decimal, decimal.Decimal) {
	var positions []ammPosition
	liquidityTotal := decimal.Zero
	pendingRewardsTotal := decimal.Zero

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
			lpBalance, err := lpBalanceOf(ctx, deps, poolAddr, addr)
			if err != nil || lpBalance.IsZero() {
				continue
			}
			supply, err := a.AMM.TotalSupply(ctx, poolAddr)
			if err != nil || supply.IsZero() {
				continue
			}
			r0, r1, err := a.AMM.Reserves(ctx, poolAddr)
			if err != nil {
				continue
			}
			price0, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token0))
			price1, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token1))
			if price0 == nil || price1 == nil {
				continue
			}
			share := lpBalance.Div(supply)
			valueUSD := a.AMM.LPValueUSD(r0, r1, *price0, *price1).Mul(share)
			liquidityTotal = liquidityTotal.Add(valueUSD)

			pos := ammPosition{
				Pool:        p.Address,
				Protocol:    proto.Slug,
				LPBalance:   lpBalance.String(),
				ShareOfPool: share.StringFixed(8),
				ValueUSD:    valueUSD,
			}

			poolIndex := -1
			if p.FarmPoolIndex != nil {
				poolIndex = *p.FarmPoolIndex
			}
			if farm, ok, err := a.AMM.FarmPosition(ctx, poolAddr, addr, poolIndex); err == nil && ok {
				pos.PendingReward = farm.PendingReward.String()
				if rewardPrice, err := deps.Price.GetUSD(ctx, farm.RewardToken); err == nil && rewardPrice != nil {
					pendingRewardsTotal = pendingRewardsTotal.Add(farm.PendingReward.Mul(*rewardPrice))
				}
			}
			positions = append(positions, pos)
		}
	}
	return positions, liquidityTotal, pendingRewardsTotal
}

func defiLendingPositions(ctx context.Context, deps *Deps, addr common.Address) ([]lendingPosition, []lendingPosition, decimal.Decimal, decimal.Decimal) {
	var supplies, borrows []lendingPosition
	supplyTotal, borrowTotal := decimal.Zero, decimal.Zero

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
			supply, err1 := a.Lending.SupplyBalance(ctx, marketAddr, addr)
			borrow, err2 := a.Lending.BorrowBalance(ctx, marketAddr, addr)
			if err1 != nil || err2 != nil {
				continue
			}
			if supply.IsZero() && borrow.IsZero() {
				continue
			}
			price, err := deps.Price.GetUSD(ctx, common.HexToAddress(m.Underlying))
			if err != nil || price == nil {
				continue
			}
			if !supply.IsZero() {
				supplyUSD := supply.Mul(*price)
				supplyTotal = supplyTotal.Add(supplyUSD)
				supplies = append(supplies, lendingPosition{
					Market:     m.Address,
					Protocol:   proto.Slug,
					Underlying: m.Underlying,
					SupplyUSD:  supplyUSD,
				})
			}
			if !borrow.IsZero() {
				borrowUSD := borrow.Mul(*price)
				borrowTotal = borrowTotal.Add(borrowUSD)
				borrows = append(borrows, lendingPosition{
					Market:     m.Address,
					Protocol:   proto.Slug,
					Underlying: m.Underlying,
					BorrowUSD:  borrowUSD,
				})
			}
		}
	}
	return supplies, borrows, supplyTotal, borrowTotal
}
