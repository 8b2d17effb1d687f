package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
)

// GasPriceTool implements get_gas_price.
type GasPriceTool struct{}

func (GasPriceTool) Name() string { return "get_gas_price" }

func (GasPriceTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	wei, err := fetchGasPrice(ctx, deps)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"gas_price_wei":  wei.String(),
		"gas_price_gwei": decimal.NewFromBigInt(wei.BigInt(), -9).String(),
	}, nil
}

func fetchGasPrice(ctx context.Context, deps *Deps) (*decimal.Decimal, error) {
	raw, _, err := deps.RPC.Call(ctx, "eth_gasPrice", []any{})
	if err != nil {
		return nil, err
	}
	var hexPrice string
	if err := json.Unmarshal(raw, &hexPrice); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_gasPrice", err)
	}
	big, err := hexutil.DecodeBig(hexPrice)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "parse eth_gasPrice", err)
	}
	d := decimal.NewFromBigInt(big, 0)
	return &d, nil
}

// EstimateGasTool implements estimate_gas.
type EstimateGasTool struct{}

func (EstimateGasTool) Name() string { return "estimate_gas" }

func (EstimateGasTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
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

	valueWei, err := decimal.NewFromString(value)
	if err != nil {
		return nil, apierr.New(apierr.KindInvalidParams, "value must be a decimal string")
	}

	callObj := map[string]string{
		"from":  from,
		"to":    to,
		"data":  data,
		"value": hexutil.EncodeBig(valueWei.BigInt()),
	}
	raw, _, err := deps.RPC.Call(ctx, "eth_estimateGas", []any{callObj})
	if err != nil {
		return nil, err
	}
	var hexGas string
	if err := json.Unmarshal(raw, &hexGas); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_estimateGas", err)
	}
	gas, err := hexutil.DecodeUint64(hexGas)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "parse eth_estimateGas", err)
	}

	gasPriceWei, err := fetchGasPrice(ctx, deps)
	if err != nil {
		return nil, err
	}
	cost := decimal.NewFromInt(int64(gas)).Mul(*gasPriceWei)

	return map[string]any{
		"gas_estimate":           gas,
		"gas_price_wei":          gasPriceWei.String(),
		"estimated_cost_native":  decimal.NewFromBigInt(cost.BigInt(), -18).String(),
	}, nil
}

// BlockInfoTool implements get_block_info.
type BlockInfoTool struct{}

func (BlockInfoTool) Name() string { return "get_block_info" }

func (BlockInfoTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	tag := OptionalStringArg(args, "block", "latest")
	blockParam := tag
	if _, err := decimal.NewFromString(tag); err == nil && tag != "latest" && tag != "pending" && tag != "earliest" {
		n, err := decimal.NewFromString(tag)
		if err == nil {
			blockParam = hexutil.EncodeBig(n.BigInt())
		}
	}

	raw, _, err := deps.RPC.Call(ctx, "eth_getBlockByNumber", []any{blockParam, false})
	if err != nil {
		return nil, err
	}
	var block struct {
		Number       string   `json:"number"`
		Hash         string   `json:"hash"`
		ParentHash   string   `json:"parentHash"`
		Timestamp    string   `json:"timestamp"`
		GasUsed      string   `json:"gasUsed"`
		GasLimit     string   `json:"gasLimit"`
		Miner        string   `json:"miner"`
		Transactions []string `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getBlockByNumber", err)
	}
	if block.Hash == "" {
		return nil, apierr.New(apierr.KindNotFound, "block not found")
	}

	number, _ := hexutil.DecodeUint64(block.Number)
	timestamp, _ := hexutil.DecodeUint64(block.Timestamp)
	gasUsed, _ := hexutil.DecodeUint64(block.GasUsed)
	gasLimit, _ := hexutil.DecodeUint64(block.GasLimit)

	return map[string]any{
		"number":        number,
		"hash":           block.Hash,
		"parent_hash":    block.ParentHash,
		"timestamp":      timestamp,
		"gas_used":       gasUsed,
		"gas_limit":      gasLimit,
		"miner":          block.Miner,
		"tx_count":       len(block.Transactions),
	}, nil
}

// TransactionStatusTool implements get_transaction_status.
type TransactionStatusTool struct{}

func (TransactionStatusTool) Name() string { return "get_transaction_status" }

func (TransactionStatusTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	hash, err := TxHashArg(args, "tx_hash")
	if err != nil {
		return nil, err
	}

	tx, err := fetchTransaction(ctx, deps, hash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return map[string]any{"hash": hash, "status": "unknown"}, nil
	}

	receipt, err := fetchReceipt(ctx, deps, hash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return map[string]any{"hash": hash, "status": "pending"}, nil
	}

	status := "failed"
	if receipt.Status == "0x1" {
		status = "success"
	}
	gasUsed, _ := hexutil.DecodeUint64(receipt.GasUsed)
	blockNum, _ := hexutil.DecodeUint64(receipt.BlockNumber)

	return map[string]any{
		"hash":         hash,
		"status":       status,
		"block_number": blockNum,
		"gas_used":     gasUsed,
	}, nil
}

// rpcTransaction is the subset of eth_getTransactionByHash fields the
// domain tools need.
type rpcTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Input    string `json:"input"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type rpcReceipt struct {
	Status      string `json:"status"`
	GasUsed     string `json:"gasUsed"`
	BlockNumber string `json:"blockNumber"`
}

func fetchTransaction(ctx context.Context, deps *Deps, hash string) (*rpcTransaction, error) {
	raw, _, err := deps.RPC.Call(ctx, "eth_getTransactionByHash", []any{hash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var tx rpcTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getTransactionByHash", err)
	}
	return &tx, nil
}

func fetchReceipt(ctx context.Context, deps *Deps, hash string) (*rpcReceipt, error) {
	raw, _, err := deps.RPC.Call(ctx, "eth_getTransactionReceipt", []any{hash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var r rpcReceipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getTransactionReceipt", err)
	}
	return &r, nil
}

// DecodeTransactionTool implements decode_transaction.
type DecodeTransactionTool struct{}

func (DecodeTransactionTool) Name() string { return "decode_transaction" }

func (DecodeTransactionTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	hash, err := TxHashArg(args, "tx_hash")
	if err != nil {
		return nil, err
	}
	simple := OptionalBoolArg(args, "simple_mode", false)

	tx, err := fetchTransaction(ctx, deps, hash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, apierr.New(apierr.KindNotFound, "transaction not found")
	}
	receipt, err := fetchReceipt(ctx, deps, hash)
	if err != nil {
		return nil, err
	}

	status := "pending"
	gasUsed := uint64(0)
	if receipt != nil {
		gasUsed, _ = hexutil.DecodeUint64(receipt.GasUsed)
		if receipt.Status == "0x1" {
			status = "success"
		} else {
			status = "failed"
		}
	}

	var protocol *string
	if tx.To != "" {
		if c, err := deps.Store.GetContract(common.HexToAddress(tx.To).Hex()); err == nil {
			protocol = &c.ProtocolSlug
		}
	}

	methodName, params := decodeSelector(common.FromHex(tx.Input))
	action := "contract_call"
	if tx.Input == "" || tx.Input == "0x" {
		action = "native_transfer"
		methodName = ""
	}

	result := map[string]any{
		"hash":     hash,
		"from":     tx.From,
		"to":       tx.To,
		"action":   action,
		"protocol": protocol,
		"status":   status,
		"gas_used": gasUsed,
		"decoded": map[string]any{
			"method_name": methodName,
			"params":      params,
		},
	}

	if simple {
		label := methodName
		if label == "" {
			label = "a native transfer"
		}
		return map[string]any{
			"text": fmt.Sprintf("Transaction %s called %s and %s.", hash, label, statusPhrase(status)),
		}, nil
	}
	return result, nil
}

func statusPhrase(status string) string {
	switch status {
	case "success":
		return "completed successfully"
	case "failed":
		return "reverted"
	default:
		return "is still pending"
	}
}
