package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
)

// SimulateTransactionTool implements simulate_transaction.
type SimulateTransactionTool struct{}

func (SimulateTransactionTool) Name() string { return "simulate_transaction" }

func (SimulateTransactionTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	from, err := AddressArg(args, "from")
	if err != nil {
		return nil, err
	}
	to, err := AddressArg(args, "to")
	if err != nil {
		return nil, err
	}
	data, err := HexDataArg(args, "data")
	if err != nil {
		return nil, err
	}
	value := OptionalStringArg(args, "value", "0")
	simple := OptionalBoolArg(args, "simple_mode", false)

	var result map[string]any
	if deps.Simulator != nil && deps.Simulator.Configured() {
		result, err = simulateViaSimulator(ctx, deps, from, to, data, value)
	} else {
		result, err = simulateViaEthCall(ctx, deps, from, to, data, value)
	}
	if err != nil {
		return nil, err
	}

	if simple {
		verdict := "would succeed"
		if !result["success"].(bool) {
			verdict = "would revert"
		}
		return map[string]any{
			"text": fmt.Sprintf("Simulating this call against %s: it %s.", to, verdict),
		}, nil
	}
	return result, nil
}

func simulateViaSimulator(ctx context.Context, deps *Deps, from, to, data, value string) (map[string]any, error) {
	results, err := deps.Simulator.SimulateBundle(ctx, []SimulationCall{{From: from, To: to, Data: data, Value: value}})
	if err != nil || len(results) != 1 {
		return simulateViaEthCall(ctx, deps, from, to, data, value)
	}
	r := results[0]
	return map[string]any{
		"success":               r.Success,
		"simulation_available":  true,
		"gas_estimated":         r.GasUsed,
		"state_changes":         r.StateChanges,
		"risk_assessment":       riskAssessment(r.Success, len(r.StateChanges)),
	}, nil
}

// simulateViaEthCall degrades to a best-effort eth_call + eth_estimateGas
// outcome, matching the third-party-simulator-absent fallback.
func simulateViaEthCall(ctx context.Context, deps *Deps, from, to, data, value string) (map[string]any, error) {
	callObj := map[string]string{"from": from, "to": to, "data": data, "value": weiToHex(value)}

	_, _, callErr := deps.RPC.Call(ctx, "eth_call", []any{callObj, "latest"})
	success := callErr == nil

	var gasEstimate uint64
	if success {
		gasRaw, _, gasErr := deps.RPC.Call(ctx, "eth_estimateGas", []any{callObj})
		if gasErr == nil {
			var hexGas string
			if json.Unmarshal(gasRaw, &hexGas) == nil {
				gasEstimate, _ = hexutil.DecodeUint64(hexGas)
			}
		}
	}

	errMsg := ""
	if callErr != nil {
		if apiErr, ok := apierr.As(callErr); ok {
			errMsg = apiErr.Msg
		} else {
			errMsg = callErr.Error()
		}
	}
	return map[string]any{
		"success":              success,
		"simulation_available": false,
		"gas_estimated":        gasEstimate,
		"state_changes":        []string{},
		"risk_assessment":      riskAssessment(success, 0),
		"error":                errMsg,
	}, nil
}

func weiToHex(decimalWei string) string {
	d, err := decimal.NewFromString(decimalWei)
	if err != nil || d.IsNegative() {
		return "0x0"
	}
	return hexutil.EncodeBig(d.BigInt())
}

func riskAssessment(success bool, stateChangeCount int) string {
	if !success {
		return "high: call reverts"
	}
	if stateChangeCount > 5 {
		return "moderate: touches many storage slots"
	}
	return "low"
}
