// Package amm implements the UniswapV2-style AMM adapter variant,
// grounded on the reserve math and calldata shape in
// other_examples/oaoivan-ScreenerCD's v2 connector, generalized from a
// live WebSocket feed into on-demand multicall reads and go-ethereum ABI
// calldata construction.
package amm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/adapter"
	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/multicall"
)

const (
	selGetReserves = "0x0902f1ac" // getReserves()
	selTotalSupply = "0x18160ddd" // totalSupply()
)

var routerABI = mustParseABI(`[
	{"name":"approve","type":"function","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"name":"swapExactTokensForTokens","type":"function","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable"}
]`)

// masterChefABI covers the two MasterChef reads get_defi_positions needs:
// a user's staked LP + reward debt, and their pending reward balance.
var masterChefABI = mustParseABI(`[
	{"name":"userInfo","type":"function","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"rewardDebt","type":"uint256"}],"stateMutability":"view"},
	{"name":"pendingVVS","type":"function","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("adapter/amm: invalid embedded abi: " + err.Error())
	}
	return parsed
}

// Adapter implements adapter.AMM against a UniswapV2-family deployment
// (pairs, router, optional MasterChef farm contract).
type Adapter struct {
	aggregator      *multicall.Aggregator
	store           catalog.Store
	routerAddr      common.Address
	masterChefAddr  common.Address
	rewardTokenAddr common.Address
}

// New builds a uniswapv2 adapter. rewardTokenAddr is the farm contract's
// reward token (e.g. VVS), used to value pending rewards in USD; it's
// only consulted when masterChefAddr is also set.
func New(aggregator *multicall.Aggregator, store catalog.Store, routerAddr, masterChefAddr, rewardTokenAddr common.Address) *Adapter {
	return &Adapter{
		aggregator: aggregator, store: store,
		routerAddr: routerAddr, masterChefAddr: masterChefAddr, rewardTokenAddr: rewardTokenAddr,
	}
}

// Interface constructs the adapter.Adapter bundle for registration.
func Interface(a *Adapter) *adapter.Adapter {
	return &adapter.Adapter{Type: catalog.AdapterUniswapV2AMM, AMM: a}
}

func (a *Adapter) FindPool(ctx context.Context, tokenA, tokenB common.Address) (common.Address, bool, error) {
	pools, err := a.store.PoolsForToken(tokenA.Hex())
	if err != nil {
		return common.Address{}, false, fmt.Errorf("pools for token: %w", err)
	}
	for _, p := range pools {
		t0, t1 := common.HexToAddress(p.Token0), common.HexToAddress(p.Token1)
		if (t0 == tokenA && t1 == tokenB) || (t0 == tokenB && t1 == tokenA) {
			return common.HexToAddress(p.Address), true, nil
		}
	}
	return common.Address{}, false, nil
}

func (a *Adapter) Reserves(ctx context.Context, pool common.Address) (decimal.Decimal, decimal.Decimal, error) {
	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: pool, CallData: common.FromHex(selGetReserves), AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 64 {
		return decimal.Decimal{}, decimal.Decimal{}, apierr.New(apierr.KindUpstream, "getReserves failed")
	}
	data := results[0].ReturnData
	r0 := decimal.NewFromBigInt(new(big.Int).SetBytes(data[0:32]), 0)
	r1 := decimal.NewFromBigInt(new(big.Int).SetBytes(data[32:64]), 0)
	return r0, r1, nil
}

func (a *Adapter) TotalSupply(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: pool, CallData: common.FromHex(selTotalSupply), AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return decimal.Decimal{}, apierr.New(apierr.KindUpstream, "totalSupply failed")
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(results[0].ReturnData[0:32]), 0), nil
}

// Quote applies the constant-product formula with the protocol's default
// 0.3% fee, matching UniswapV2Router02.getAmountOut.
func (a *Adapter) Quote(ctx context.Context, pool common.Address, amountIn decimal.Decimal, tokenInIsToken0 bool) (decimal.Decimal, error) {
	r0, r1, err := a.Reserves(ctx, pool)
	if err != nil {
		return decimal.Decimal{}, err
	}
	reserveIn, reserveOut := r0, r1
	if !tokenInIsToken0 {
		reserveIn, reserveOut = r1, r0
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return decimal.Decimal{}, apierr.New(apierr.KindInvalidParams, "pool has zero reserves")
	}

	feeBps := decimal.NewFromInt(9970) // 0.3% fee retained as 99.70%
	amountInWithFee := amountIn.Mul(feeBps)
	numerator := amountInWithFee.Mul(reserveOut)
	denominator := reserveIn.Mul(decimal.NewFromInt(10000)).Add(amountInWithFee)
	return numerator.Div(denominator), nil
}

func (a *Adapter) LPValueUSD(reserve0, reserve1, price0USD, price1USD decimal.Decimal) decimal.Decimal {
	return reserve0.Mul(price0USD).Add(reserve1.Mul(price1USD))
}

func (a *Adapter) RouterAddress() common.Address {
	return a.routerAddr
}

// FarmPosition reads a user's MasterChef userInfo (staked LP) and
// pendingVVS (pending reward) for the pool's farm pid, keyed by
// poolIndex rather than the pool address since that's what the farm
// contract indexes on.
func (a *Adapter) FarmPosition(ctx context.Context, pool, user common.Address, poolIndex int) (adapter.FarmPosition, bool, error) {
	if a.masterChefAddr == (common.Address{}) || poolIndex < 0 {
		return adapter.FarmPosition{}, false, nil
	}

	pid := big.NewInt(int64(poolIndex))
	userInfoData, err := masterChefABI.Pack("userInfo", pid, user)
	if err != nil {
		return adapter.FarmPosition{}, false, fmt.Errorf("pack userInfo: %w", err)
	}
	pendingData, err := masterChefABI.Pack("pendingVVS", pid, user)
	if err != nil {
		return adapter.FarmPosition{}, false, fmt.Errorf("pack pendingVVS: %w", err)
	}

	results, err := a.aggregator.Aggregate(ctx, []multicall.Call{
		{Target: a.masterChefAddr, CallData: userInfoData, AllowFailure: true},
		{Target: a.masterChefAddr, CallData: pendingData, AllowFailure: true},
	})
	if err != nil {
		return adapter.FarmPosition{}, false, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return adapter.FarmPosition{}, false, nil
	}

	staked := decimal.NewFromBigInt(new(big.Int).SetBytes(results[0].ReturnData[0:32]), -18)
	pending := decimal.Zero
	if results[1].Success && len(results[1].ReturnData) >= 32 {
		pending = decimal.NewFromBigInt(new(big.Int).SetBytes(results[1].ReturnData[0:32]), -18)
	}
	return adapter.FarmPosition{StakedLP: staked, PendingReward: pending, RewardToken: a.rewardTokenAddr}, true, nil
}

func (a *Adapter) BuildSwapCalldata(ctx context.Context, tokenIn, tokenOut, recipient common.Address, amountIn decimal.Decimal, slippageBps int) ([]byte, error) {
	pool, ok, err := a.FindPool(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, "no pool for token pair")
	}

	tokenInIsToken0 := true
	pools, err := a.store.PoolsForToken(tokenIn.Hex())
	if err != nil {
		return nil, fmt.Errorf("pools for token: %w", err)
	}
	for _, p := range pools {
		if common.HexToAddress(p.Address) == pool {
			tokenInIsToken0 = common.HexToAddress(p.Token0) == tokenIn
			break
		}
	}

	amountOut, err := a.Quote(ctx, pool, amountIn, tokenInIsToken0)
	if err != nil {
		return nil, err
	}
	slippage := decimal.NewFromInt(int64(10000 - slippageBps))
	amountOutMin := amountOut.Mul(slippage).Div(decimal.NewFromInt(10000))

	path := []common.Address{tokenIn, tokenOut}
	deadline := big.NewInt(time.Now().Add(20 * time.Minute).Unix())

	return routerABI.Pack("swapExactTokensForTokens",
		amountIn.BigInt(), amountOutMin.BigInt(), path, recipient, deadline)
}
