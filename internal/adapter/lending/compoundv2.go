// Package lending implements the CompoundV2-style lending adapter
// variant, using the same multicall-driven cToken/comptroller reads the
// AMM adapter uses for pairs, generalized to the supply/borrow surface.
package lending

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/adapter"
	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/multicall"
)

const (
	selBalanceOfUnderlying   = "0x3af9e669" // balanceOfUnderlying(address)
	selBorrowBalanceStored   = "0x95dd9193" // borrowBalanceStored(address)
	selSupplyRatePerBlock    = "0xae9d70b0" // supplyRatePerBlock()
	selBorrowRatePerBlock    = "0xf8f9da28" // borrowRatePerBlock()
	selGetAccountLiquidity   = "0x5ec88c79" // getAccountLiquidity(address)
)

// blocksPerYear approximates chain id 25's ~5.5s block time.
const blocksPerYear = 5_700_000

// Adapter implements adapter.Lending against a CompoundV2-family deployment.
type Adapter struct {
	aggregator *multicall.Aggregator
	store      catalog.Store
}

// New builds a compoundv2 adapter.
func New(aggregator *multicall.Aggregator, store catalog.Store) *Adapter {
	return &Adapter{aggregator: aggregator, store: store}
}

// Interface constructs the adapter.Adapter bundle for registration.
func Interface(a *Adapter) *adapter.Adapter {
	return &adapter.Adapter{Type: catalog.AdapterCompoundV2Lend, Lending: a}
}

func (a *Adapter) SupplyBalance(ctx context.Context, market, user common.Address) (decimal.Decimal, error) {
	return a.readUnderlyingCall(ctx, market, selBalanceOfUnderlying, user)
}

func (a *Adapter) BorrowBalance(ctx context.Context, market, user common.Address) (decimal.Decimal, error) {
	return a.readUnderlyingCall(ctx, market, selBorrowBalanceStored, user)
}

func (a *Adapter) readUnderlyingCall(ctx context.Context, market common.Address, selector string, user common.Address) (decimal.Decimal, error) {
	calldata := append(common.FromHex(selector), common.LeftPadBytes(user.Bytes(), 32)...)
	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: market, CallData: calldata, AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return decimal.Decimal{}, apierr.New(apierr.KindUpstream, "lending market read failed")
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(results[0].ReturnData[0:32]), -18), nil
}

func (a *Adapter) Rates(ctx context.Context, market common.Address) (decimal.Decimal, decimal.Decimal, error) {
	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: market, CallData: common.FromHex(selSupplyRatePerBlock), AllowFailure: true},
		{Target: market, CallData: common.FromHex(selBorrowRatePerBlock), AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if !results[0].Success || !results[1].Success {
		return decimal.Decimal{}, decimal.Decimal{}, apierr.New(apierr.KindUpstream, "rate read failed")
	}
	supply := decimal.NewFromBigInt(new(big.Int).SetBytes(results[0].ReturnData[0:32]), -18)
	borrow := decimal.NewFromBigInt(new(big.Int).SetBytes(results[1].ReturnData[0:32]), -18)
	return supply, borrow, nil
}

// AccountLiquidity reports the comptroller's (liquidity, shortfall) pair,
// converted from its native 18-decimal USD-scaled units.
func (a *Adapter) AccountLiquidity(ctx context.Context, comptroller, user common.Address) (decimal.Decimal, decimal.Decimal, error) {
	calldata := append(common.FromHex(selGetAccountLiquidity), common.LeftPadBytes(user.Bytes(), 32)...)
	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: comptroller, CallData: calldata, AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 96 {
		return decimal.Decimal{}, decimal.Decimal{}, apierr.New(apierr.KindUpstream, "getAccountLiquidity failed")
	}
	// Returns (error uint256, liquidity uint256, shortfall uint256).
	data := results[0].ReturnData
	liquidity := decimal.NewFromBigInt(new(big.Int).SetBytes(data[32:64]), -18)
	shortfall := decimal.NewFromBigInt(new(big.Int).SetBytes(data[64:96]), -18)
	return liquidity, shortfall, nil
}

// HealthFactor is the Compound-style collateral/borrow ratio. Callers
// report the "∞" sentinel themselves when totalBorrowUSD is zero; this
// method only computes the finite case.
func (a *Adapter) HealthFactor(totalCollateralUSD, totalBorrowUSD decimal.Decimal) decimal.Decimal {
	if totalBorrowUSD.IsZero() {
		return decimal.Zero
	}
	return totalCollateralUSD.Div(totalBorrowUSD)
}

// RatePerBlockToAPY converts a per-block rate to an approximate annual
// percentage yield using chain id 25's block cadence. Linear
// annualization, matching what Compound-style front ends show, rather
// than compounding.
func RatePerBlockToAPY(ratePerBlock decimal.Decimal) decimal.Decimal {
	return ratePerBlock.Mul(decimal.NewFromInt(blocksPerYear))
}
