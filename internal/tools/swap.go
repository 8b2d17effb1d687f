package tools

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/adapter"
	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/multicall"
)

// SwapTxTool implements construct_swap_tx.
type SwapTxTool struct{}

func (SwapTxTool) Name() string { return "construct_swap_tx" }

func (SwapTxTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	from, err := AddressArg(args, "from")
	if err != nil {
		return nil, err
	}
	tokenIn, err := AddressArg(args, "token_in")
	if err != nil {
		return nil, err
	}
	tokenOut, err := AddressArg(args, "token_out")
	if err != nil {
		return nil, err
	}
	amountIn, err := DecimalArg(args, "amount_in")
	if err != nil {
		return nil, err
	}
	slippageBps, err := OptionalRangeIntArg(args, "slippage_bps", 0, 5000, 50)
	if err != nil {
		return nil, err
	}

	a, pool, tokenInIsToken0, err := deepestAMMRoute(ctx, deps, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	router := a.AMM.RouterAddress()

	estimatedOut, err := a.AMM.Quote(ctx, pool, amountIn, tokenInIsToken0)
	if err != nil {
		return nil, err
	}
	slippage := decimal.NewFromInt(int64(10000 - slippageBps))
	minimumOut := estimatedOut.Mul(slippage).Div(decimal.NewFromInt(10000))
	priceImpact := priceImpactBps(ctx, deps, a, pool, amountIn, tokenInIsToken0)

	var steps []map[string]any
	stepIndex := 0

	allowance, allowErr := readAllowance(ctx, deps, common.HexToAddress(tokenIn), common.HexToAddress(from), router)
	if allowErr != nil || allowance.LessThan(amountIn) {
		approveData, packErr := erc20ApproveABI.Pack("approve", router, amountIn.BigInt())
		if packErr != nil {
			return nil, apierr.Wrap(apierr.KindInternal, "pack approve calldata", packErr)
		}
		steps = append(steps, map[string]any{
			"step_index":  stepIndex,
			"type":        "approval",
			"description": fmt.Sprintf("Approve the router to spend %s of the input token", amountIn.String()),
			"tx_data": map[string]any{
				"to":    tokenIn,
				"data":  "0x" + common.Bytes2Hex(approveData),
				"value": "0",
			},
			"status": "blocked",
		})
		stepIndex++
	}

	swapData, err := a.AMM.BuildSwapCalldata(ctx, common.HexToAddress(tokenIn), common.HexToAddress(tokenOut), common.HexToAddress(from), amountIn, slippageBps)
	if err != nil {
		return nil, err
	}
	swapStatus := "pending"
	if len(steps) > 0 {
		swapStatus = "blocked"
	}
	steps = append(steps, map[string]any{
		"step_index":  stepIndex,
		"type":        "swap",
		"description": fmt.Sprintf("Swap %s of the input token for at least %s of the output token", amountIn.String(), minimumOut.String()),
		"tx_data": map[string]any{
			"to":    router.Hex(),
			"data":  "0x" + common.Bytes2Hex(swapData),
			"value": "0",
		},
		"status": swapStatus,
	})

	simulationVerified := false
	if deps.Simulator != nil && deps.Simulator.Configured() {
		results, simErr := deps.Simulator.SimulateBundle(ctx, []SimulationCall{
			{From: from, To: router.Hex(), Data: "0x" + common.Bytes2Hex(swapData), Value: "0"},
		})
		if simErr == nil && len(results) == 1 && results[0].Success {
			simulationVerified = true
		}
	}

	return map[string]any{
		"operation_id":        uuid.NewString(),
		"estimated_out":       estimatedOut.String(),
		"minimum_out":         minimumOut.String(),
		"price_impact":        priceImpact.StringFixed(4),
		"simulation_verified": simulationVerified,
		"steps":               steps,
	}, nil
}

// deepestAMMRoute resolves the adapter, pool, and side backing the first
// uniswap_v2_amm protocol that tracks a pool for this pair. This
// deployment tracks one VVS-style router, so there is exactly one route
// to choose between.
func deepestAMMRoute(ctx context.Context, deps *Deps, tokenIn, tokenOut string) (*adapter.Adapter, common.Address, bool, error) {
	for _, proto := range mustListProtocols(deps) {
		if proto.AdapterType != catalog.AdapterUniswapV2AMM {
			continue
		}
		a, err := deps.Adapters.Resolve(proto.AdapterType)
		if err != nil || a.AMM == nil {
			continue
		}
		pool, ok, err := a.AMM.FindPool(ctx, common.HexToAddress(tokenIn), common.HexToAddress(tokenOut))
		if err != nil || !ok {
			continue
		}
		pools, err := deps.Store.PoolsForToken(tokenIn)
		if err != nil {
			continue
		}
		tokenInIsToken0 := true
		for _, p := range pools {
			if common.HexToAddress(p.Address) == pool {
				tokenInIsToken0 = common.HexToAddress(p.Token0) == common.HexToAddress(tokenIn)
				break
			}
		}
		return a, pool, tokenInIsToken0, nil
	}
	return nil, common.Address{}, false, apierr.New(apierr.KindUpstream, "no route")
}

// priceImpactBps compares the marginal price (a tiny quote) against the
// actual quote for amountIn, the standard way to estimate slippage against
// a constant-product pool. Each Quote reads the pool's reserves again.
func priceImpactBps(ctx context.Context, deps *Deps, a *adapter.Adapter, pool common.Address, amountIn decimal.Decimal, tokenInIsToken0 bool) decimal.Decimal {
	tiny := amountIn.Div(decimal.NewFromInt(10000))
	if tiny.IsZero() {
		return decimal.Zero
	}
	tinyOut, err := a.AMM.Quote(ctx, pool, tiny, tokenInIsToken0)
	if err != nil || tinyOut.IsZero() {
		return decimal.Zero
	}
	actualOut, err := a.AMM.Quote(ctx, pool, amountIn, tokenInIsToken0)
	if err != nil {
		return decimal.Zero
	}
	marginalRate := tinyOut.Div(tiny)
	actualRate := actualOut.Div(amountIn)
	if marginalRate.IsZero() {
		return decimal.Zero
	}
	impact := decimal.NewFromInt(1).Sub(actualRate.Div(marginalRate))
	return impact.Mul(decimal.NewFromInt(10000))
}

func readAllowance(ctx context.Context, deps *Deps, token, owner, spender common.Address) (decimal.Decimal, error) {
	calldata := append(common.FromHex(selAllowance),
		append(common.LeftPadBytes(owner.Bytes(), 32), common.LeftPadBytes(spender.Bytes(), 32)...)...)
	results, err := deps.Multicall.Aggregate(ctx, []multicall.Call{
		{Target: token, CallData: calldata, AllowFailure: true},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return decimal.Decimal{}, apierr.New(apierr.KindUpstream, "allowance read failed")
	}
	decimals := 18
	if t, err := deps.Store.GetToken(token.Hex()); err == nil {
		decimals = t.Decimals
	}
	return decimalFromWord(results[0].ReturnData, decimals), nil
}
