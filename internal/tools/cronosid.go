package tools

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/crolens/crolens-api/internal/multicall"
)

// ResolveCronosIDTool implements resolve_cronos_id.
type ResolveCronosIDTool struct{}

func (ResolveCronosIDTool) Name() string { return "resolve_cronos_id" }

var cronosIDResolverABI = mustParseResolverABI()

func mustParseResolverABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[
		{"name":"resolve","type":"function","inputs":[{"name":"name","type":"string"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
		{"name":"reverseLookup","type":"function","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"}
	]`))
	if err != nil {
		panic("tools: invalid embedded cronos id resolver abi: " + err.Error())
	}
	return parsed
}

func (ResolveCronosIDTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	input, err := StringArg(args, "input")
	if err != nil {
		return nil, err
	}
	input = strings.TrimSpace(input)

	resolver, ok := findResolverContract(deps)
	if !ok {
		return map[string]any{"input": input, "resolved_address": nil, "resolved_name": nil}, nil
	}

	if strings.HasSuffix(strings.ToLower(input), ".cro") {
		addr, ok := resolveForward(ctx, deps, resolver, input)
		if !ok {
			return map[string]any{"input": input, "resolved_address": nil, "resolved_name": nil}, nil
		}
		return map[string]any{"input": input, "resolved_address": addr, "resolved_name": nil}, nil
	}

	if common.IsHexAddress(input) {
		name, ok := resolveReverse(ctx, deps, resolver, common.HexToAddress(input))
		if !ok {
			return map[string]any{"input": input, "resolved_address": nil, "resolved_name": nil}, nil
		}
		return map[string]any{"input": input, "resolved_address": nil, "resolved_name": name}, nil
	}

	return map[string]any{"input": input, "resolved_address": nil, "resolved_name": nil}, nil
}

// findResolverContract looks up the catalog's registered Cronos ID
// resolver contract, if one has been seeded.
func findResolverContract(deps *Deps) (common.Address, bool) {
	contracts, err := deps.Store.ListContracts()
	if err != nil {
		return common.Address{}, false
	}
	for _, c := range contracts {
		if strings.Contains(strings.ToLower(c.Name), "cronos id") || strings.Contains(strings.ToLower(c.Name), "cns resolver") {
			return common.HexToAddress(c.Address), true
		}
	}
	return common.Address{}, false
}

func resolveForward(ctx context.Context, deps *Deps, resolver common.Address, name string) (string, bool) {
	data, err := cronosIDResolverABI.Pack("resolve", name)
	if err != nil {
		return "", false
	}
	results, err := deps.Multicall.Aggregate(ctx, []multicall.Call{{Target: resolver, CallData: data, AllowFailure: true}})
	if err != nil || !results[0].Success || len(results[0].ReturnData) < 32 {
		return "", false
	}
	addr := common.BytesToAddress(results[0].ReturnData[12:32])
	if addr == (common.Address{}) {
		return "", false
	}
	return addr.Hex(), true
}

func resolveReverse(ctx context.Context, deps *Deps, resolver, addr common.Address) (string, bool) {
	data, err := cronosIDResolverABI.Pack("reverseLookup", addr)
	if err != nil {
		return "", false
	}
	results, err := deps.Multicall.Aggregate(ctx, []multicall.Call{{Target: resolver, CallData: data, AllowFailure: true}})
	if err != nil || !results[0].Success {
		return "", false
	}
	values, err := cronosIDResolverABI.Unpack("reverseLookup", results[0].ReturnData)
	if err != nil || len(values) != 1 {
		return "", false
	}
	name, ok := values[0].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
