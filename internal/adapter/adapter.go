// Package adapter defines the tagged-variant protocol adapter interfaces
// (C6), selected at runtime by a protocol's adapter_type column, the same
// shape as the teacher's provider.Provider registry keyed by provider
// identifier — generalized from LLM providers to DeFi protocol variants.
package adapter

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AMM is the UniswapV2-style adapter surface.
type AMM interface {
	// FindPool resolves a pair's pool address from its two token
	// addresses, or returns ok=false if no pool is tracked for that pair.
	FindPool(ctx context.Context, tokenA, tokenB common.Address) (pool common.Address, ok bool, err error)

	// Reserves returns the pool's two token reserves in token base units.
	Reserves(ctx context.Context, pool common.Address) (reserve0, reserve1 decimal.Decimal, err error)

	// TotalSupply returns the pool's LP token total supply.
	TotalSupply(ctx context.Context, pool common.Address) (decimal.Decimal, error)

	// Quote computes a router-style output amount for an exact-input swap
	// across one pool, applying the protocol's constant-product formula.
	Quote(ctx context.Context, pool common.Address, amountIn decimal.Decimal, tokenInIsToken0 bool) (amountOut decimal.Decimal, err error)

	// LPValueUSD values liq given reserves and per-token USD prices.
	LPValueUSD(reserve0, reserve1, price0USD, price1USD decimal.Decimal) decimal.Decimal

	// FarmPosition returns a MasterChef-style farm position for a user in
	// a given pool's farm. poolIndex is the pool's pid in the farm
	// contract (catalog DexPool.FarmPoolIndex); a negative poolIndex
	// means the pool isn't farmed and FarmPosition reports ok=false
	// without making a call.
	FarmPosition(ctx context.Context, pool, user common.Address, poolIndex int) (position FarmPosition, ok bool, err error)

	// BuildSwapCalldata constructs the calldata for an exact-input swap
	// through the protocol's router, applying slippageBps to derive
	// amountOutMin.
	BuildSwapCalldata(ctx context.Context, tokenIn, tokenOut, recipient common.Address, amountIn decimal.Decimal, slippageBps int) ([]byte, error)

	// RouterAddress returns the router contract BuildSwapCalldata's
	// calldata must be sent to, and that a swap's approval step must
	// grant allowance to.
	RouterAddress() common.Address
}

// FarmPosition is one user's stake in a MasterChef-style farm.
type FarmPosition struct {
	StakedLP      decimal.Decimal
	PendingReward decimal.Decimal
	RewardToken   common.Address
}

// Lending is the CompoundV2-style adapter surface.
type Lending interface {
	// SupplyBalance returns a user's underlying-denominated supply
	// balance in a market (balanceOfUnderlying).
	SupplyBalance(ctx context.Context, market, user common.Address) (decimal.Decimal, error)

	// BorrowBalance returns a user's underlying-denominated borrow
	// balance in a market (borrowBalanceStored).
	BorrowBalance(ctx context.Context, market, user common.Address) (decimal.Decimal, error)

	// Rates returns the per-block supply and borrow interest rates for a market.
	Rates(ctx context.Context, market common.Address) (supplyRatePerBlock, borrowRatePerBlock decimal.Decimal, err error)

	// AccountLiquidity returns a user's overall (liquidity, shortfall) via
	// the protocol's comptroller, in USD.
	AccountLiquidity(ctx context.Context, comptroller, user common.Address) (liquidityUSD, shortfallUSD decimal.Decimal, err error)

	// HealthFactor derives the Compound-style collateral/borrow ratio.
	// When totalBorrowUSD is zero the sentinel health factor is reported
	// by the caller (spec §4.6: "∞"), not by this method.
	HealthFactor(totalCollateralUSD, totalBorrowUSD decimal.Decimal) decimal.Decimal
}

// Adapter bundles whichever of AMM/Lending a protocol supports; a given
// protocol's adapter_type determines which half is non-nil.
type Adapter struct {
	Type    string
	AMM     AMM
	Lending Lending
}
