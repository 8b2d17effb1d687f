package tools

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/multicall"
)

const selAllowance = "0xdd62ed3e" // allowance(address,address)

var erc20ApproveABI = mustParseERC20ABI()

func mustParseERC20ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[
		{"name":"approve","type":"function","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}
	]`))
	if err != nil {
		panic("tools: invalid embedded erc20 abi: " + err.Error())
	}
	return parsed
}

// ApprovalStatusTool implements get_approval_status.
type ApprovalStatusTool struct{}

func (ApprovalStatusTool) Name() string { return "get_approval_status" }

func (ApprovalStatusTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	owner, err := AddressArg(args, "owner")
	if err != nil {
		return nil, err
	}
	token, err := AddressArg(args, "token")
	if err != nil {
		return nil, err
	}
	spender, err := AddressArg(args, "spender")
	if err != nil {
		return nil, err
	}

	calldata := append(common.FromHex(selAllowance),
		append(common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32),
			common.LeftPadBytes(common.HexToAddress(spender).Bytes(), 32)...)...)

	results, err := deps.Multicall.Aggregate(ctx, []multicall.Call{
		{Target: common.HexToAddress(token), CallData: calldata, AllowFailure: true},
	})
	if err != nil {
		return nil, err
	}
	if !results[0].Success || len(results[0].ReturnData) < 32 {
		return nil, apierr.New(apierr.KindUpstream, "allowance read failed")
	}

	decimals := 18
	if t, err := deps.Store.GetToken(token); err == nil {
		decimals = t.Decimals
	}
	allowance := decimalFromWord(results[0].ReturnData, decimals)

	return map[string]any{
		"owner":     owner,
		"token":     token,
		"spender":   spender,
		"allowance": allowance.String(),
		"unlimited": allowance.GreaterThan(decimal.New(1, 30)),
	}, nil
}

// RevokeApprovalTool implements construct_revoke_approval_tx.
type RevokeApprovalTool struct{}

func (RevokeApprovalTool) Name() string { return "construct_revoke_approval_tx" }

func (RevokeApprovalTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	owner, err := AddressArg(args, "owner")
	if err != nil {
		return nil, err
	}
	token, err := AddressArg(args, "token")
	if err != nil {
		return nil, err
	}
	spender, err := AddressArg(args, "spender")
	if err != nil {
		return nil, err
	}

	data, err := erc20ApproveABI.Pack("approve", common.HexToAddress(spender), decimal.Zero.BigInt())
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "pack approve(0) calldata", err)
	}

	return map[string]any{
		"steps": []map[string]any{
			{
				"from":  owner,
				"to":    token,
				"data":  "0x" + common.Bytes2Hex(data),
				"value": "0",
			},
		},
	}, nil
}
