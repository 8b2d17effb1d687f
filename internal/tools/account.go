package tools

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/adapter"
	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/multicall"
)

const selBalanceOf = "0x70a08231" // balanceOf(address)

// AccountSummaryTool implements get_account_summary.
type AccountSummaryTool struct{}

func (AccountSummaryTool) Name() string { return "get_account_summary" }

type walletEntry struct {
	TokenAddress string          `json:"token_address"`
	Symbol       string          `json:"symbol"`
	Balance      string          `json:"balance"`
	ValueUSD     *decimal.Decimal `json:"value_usd"`
}

type defiSummary struct {
	TotalDefiValueUSD decimal.Decimal `json:"total_defi_value_usd"`
	VVSLiquidityUSD   decimal.Decimal `json:"vvs_liquidity_usd"`
	TectonicNetUSD    decimal.Decimal `json:"tectonic_net_usd"`
}

func (AccountSummaryTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}
	simple := OptionalBoolArg(args, "simple_mode", false)
	addr := common.HexToAddress(addrStr)

	tokens, err := deps.Store.ListTokens()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list tokens", err)
	}

	calls := make([]multicall.Call, 0, len(tokens))
	for _, t := range tokens {
		calldata := append(common.FromHex(selBalanceOf), common.LeftPadBytes(addr.Bytes(), 32)...)
		calls = append(calls, multicall.Call{Target: common.HexToAddress(t.Address), CallData: calldata, AllowFailure: true})
	}

	var results []multicall.Result
	if len(calls) > 0 {
		results, err = deps.Multicall.Aggregate(ctx, calls)
		if err != nil {
			return nil, err
		}
	}

	var wallet []walletEntry
	totalWalletUSD := decimal.Zero
	for i, t := range tokens {
		if i >= len(results) || !results[i].Success || len(results[i].ReturnData) < 32 {
			continue
		}
		balance := decimalFromWord(results[i].ReturnData, t.Decimals)
		if balance.IsZero() {
			continue
		}

		var valueUSD *decimal.Decimal
		if p, err := deps.Price.GetUSD(ctx, common.HexToAddress(t.Address)); err == nil && p != nil {
			v := balance.Mul(*p)
			valueUSD = &v
			totalWalletUSD = totalWalletUSD.Add(v)
		}
		wallet = append(wallet, walletEntry{
			TokenAddress: t.Address,
			Symbol:       t.Symbol,
			Balance:      balance.String(),
			ValueUSD:     valueUSD,
		})
	}

	defi := defiSummary{}
	defi.VVSLiquidityUSD = sumAMMLiquidity(ctx, deps, addr)
	defi.TectonicNetUSD = sumLendingNet(ctx, deps, addr)
	defi.TotalDefiValueUSD = defi.VVSLiquidityUSD.Add(defi.TectonicNetUSD)

	totalNetWorth := totalWalletUSD.Add(defi.TotalDefiValueUSD)

	result := map[string]any{
		"address":             addr.Hex(),
		"total_net_worth_usd": totalNetWorth,
		"wallet":              wallet,
		"defi_summary":        defi,
	}

	if simple {
		return map[string]any{
			"text": fmt.Sprintf("Account %s holds a total net worth of $%s across %d wallet tokens and DeFi positions.",
				addr.Hex(), totalNetWorth.StringFixed(2), len(wallet)),
		}, nil
	}
	return result, nil
}

// sumAMMLiquidity sums the USD value of LP positions the account holds
// across every uniswap_v2_amm-tagged pool the catalog tracks.
func sumAMMLiquidity(ctx context.Context, deps *Deps, addr common.Address) decimal.Decimal {
	total := decimal.Zero
	protocols, err := deps.Store.ListProtocols()
	if err != nil {
		return total
	}
	for _, proto := range protocols {
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
			total = total.Add(ammPositionValueUSD(ctx, deps, a, p, addr))
		}
	}
	return total
}

func ammPositionValueUSD(ctx context.Context, deps *Deps, a *adapter.Adapter, p *catalog.DexPool, addr common.Address) decimal.Decimal {
	lpBalance, err := lpBalanceOf(ctx, deps, common.HexToAddress(p.Address), addr)
	if err != nil || lpBalance.IsZero() {
		return decimal.Zero
	}
	supply, err := a.AMM.TotalSupply(ctx, common.HexToAddress(p.Address))
	if err != nil || supply.IsZero() {
		return decimal.Zero
	}
	r0, r1, err := a.AMM.Reserves(ctx, common.HexToAddress(p.Address))
	if err != nil {
		return decimal.Zero
	}
	price0, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token0))
	price1, _ := deps.Price.GetUSD(ctx, common.HexToAddress(p.Token1))
	if price0 == nil || price1 == nil {
		return decimal.Zero
	}
	poolValueUSD := a.AMM.LPValueUSD(r0, r1, *price0, *price1)
	share := lpBalance.Div(supply)
	return poolValueUSD.Mul(share)
}

func lpBalanceOf(ctx context.Context, deps *Deps, pool, user common.Address) (decimal.Decimal, error) {
	calldata := append(common.FromHex(selBalanceOf), common.LeftPadBytes(user.Bytes(), 32)...)
	results, err := deps.Multicall.Aggregate(ctx, []multicall.Call{{Target: pool, CallData: calldata, AllowFailure: true}})
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return decimal.Decimal{}, fmt.Errorf("lp balanceOf failed")
	}
	return decimalFromWord(results[0].ReturnData, 18), nil
}

// sumLendingNet sums (supply - borrow) USD across every
// compound_v2_lending-tagged market the catalog tracks.
func sumLendingNet(ctx context.Context, deps *Deps, addr common.Address) decimal.Decimal {
	total := decimal.Zero
	protocols, err := deps.Store.ListProtocols()
	if err != nil {
		return total
	}
	for _, proto := range protocols {
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
			supply, err1 := a.Lending.SupplyBalance(ctx, common.HexToAddress(m.Address), addr)
			borrow, err2 := a.Lending.BorrowBalance(ctx, common.HexToAddress(m.Address), addr)
			if err1 != nil || err2 != nil {
				continue
			}
			price, err := deps.Price.GetUSD(ctx, common.HexToAddress(m.Underlying))
			if err != nil || price == nil {
				continue
			}
			total = total.Add(supply.Mul(*price)).Sub(borrow.Mul(*price))
		}
	}
	return total
}

func decimalFromWord(word []byte, decimals int) decimal.Decimal {
	if len(word) < 32 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(word[0:32]), -int32(decimals))
}
