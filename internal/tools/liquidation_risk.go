package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/catalog"
)

// LiquidationRiskTool implements get_liquidation_risk: the account-level
// companion to get_defi_positions's protocol-level health factor,
// cross-checked against the comptroller's own getAccountLiquidity call.
type LiquidationRiskTool struct{}

func (LiquidationRiskTool) Name() string { return "get_liquidation_risk" }

func (LiquidationRiskTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	addrStr, err := AddressArg(args, "address")
	if err != nil {
		return nil, err
	}
	protocolSlug := OptionalStringArg(args, "protocol", "tectonic")
	simple := OptionalBoolArg(args, "simple_mode", false)
	addr := common.HexToAddress(addrStr)

	var proto *catalog.Protocol
	for _, p := range mustListProtocols(deps) {
		if p.AdapterType == catalog.AdapterCompoundV2Lend && p.Slug == protocolSlug {
			proto = p
			break
		}
	}
	if proto == nil {
		return nil, apierr.New(apierr.KindInvalidParams, "unsupported lending protocol: "+protocolSlug)
	}

	_, _, supplyTotal, borrowTotal := defiLendingPositions(ctx, deps, addr)
	healthFactor := tectonicHealthFactor(deps, supplyTotal, borrowTotal)
	riskLevel, warning := classifyLiquidationRisk(healthFactor)

	result := map[string]any{
		"address":       addr.Hex(),
		"protocol":      proto.Slug,
		"health_factor": healthFactor,
		"risk_level":    riskLevel,
	}
	if warning != "" {
		result["warning"] = warning
	}

	a, err := deps.Adapters.Resolve(proto.AdapterType)
	if err == nil && a.Lending != nil {
		if markets, err := deps.Store.ListMarketsForProtocol(proto.Slug); err == nil && len(markets) > 0 {
			comptroller := common.HexToAddress(markets[0].Comptroller)
			liquidity, shortfall, err := a.Lending.AccountLiquidity(ctx, comptroller, addr)
			if err == nil {
				result["account_liquidity_usd"] = liquidity.StringFixed(2)
				result["account_shortfall_usd"] = shortfall.StringFixed(2)
				if !shortfall.IsZero() {
					result["risk_level"] = "high"
					result["warning"] = "comptroller reports an existing shortfall"
				}
			}
		}
	}

	if simple {
		return map[string]any{
			"text": fmt.Sprintf("Liquidation risk: %s | Health factor: %s", result["risk_level"], healthFactor),
		}, nil
	}
	return result, nil
}

// classifyLiquidationRisk buckets a health factor string into a risk
// level and an optional warning.
func classifyLiquidationRisk(healthFactor string) (riskLevel, warning string) {
	if healthFactor == "∞" {
		return "low", ""
	}
	hf, err := strconv.ParseFloat(healthFactor, 64)
	if err != nil {
		return "unknown", "unable to parse health factor"
	}
	switch {
	case hf < 1.1:
		return "high", "health factor is below 1.1"
	case hf < 1.5:
		return "medium", "health factor is below 1.5"
	default:
		return "low", ""
	}
}
