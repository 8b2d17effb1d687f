package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
)

// transferEventSignature is keccak256("Transfer(address,address,uint256)").
const transferEventSignature = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// whaleScanBlockWindow bounds how far back get_whale_activity scans, to
// keep eth_getLogs within a single RPC round trip.
const whaleScanBlockWindow = 2000

// WhaleActivityTool implements get_whale_activity.
type WhaleActivityTool struct{}

func (WhaleActivityTool) Name() string { return "get_whale_activity" }

type whaleTransfer struct {
	TxHash   string          `json:"tx_hash"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Amount   string          `json:"amount"`
	ValueUSD decimal.Decimal `json:"value_usd"`
	Block    uint64          `json:"block_number"`
}

func (WhaleActivityTool) Call(ctx context.Context, deps *Deps, args map[string]any) (any, error) {
	token, err := AddressArg(args, "token")
	if err != nil {
		return nil, err
	}
	minUSD := OptionalDecimalArg(args, "min_usd_value", decimal.NewFromInt(10000))
	limit, err := OptionalRangeIntArg(args, "limit", 1, 50, 20)
	if err != nil {
		return nil, err
	}

	latest, err := latestBlockNumber(ctx, deps)
	if err != nil {
		return nil, err
	}
	fromBlock := uint64(0)
	if latest > whaleScanBlockWindow {
		fromBlock = latest - whaleScanBlockWindow
	}

	logs, err := fetchTransferLogs(ctx, deps, token, fromBlock, latest)
	if err != nil {
		return nil, err
	}

	decimals := 18
	if t, err := deps.Store.GetToken(token); err == nil {
		decimals = t.Decimals
	}
	price, _ := deps.Price.GetUSD(ctx, common.HexToAddress(token))

	var whales []whaleTransfer
	for _, l := range logs {
		amount := decimalFromWord(common.FromHex(l.Data), decimals)
		var valueUSD decimal.Decimal
		if price != nil {
			valueUSD = amount.Mul(*price)
		}
		if valueUSD.LessThan(minUSD) {
			continue
		}
		blockNum, _ := hexutil.DecodeUint64(l.BlockNumber)
		whales = append(whales, whaleTransfer{
			TxHash:   l.TransactionHash,
			From:     topicToAddress(l.Topics[1]).Hex(),
			To:       topicToAddress(l.Topics[2]).Hex(),
			Amount:   amount.String(),
			ValueUSD: valueUSD,
			Block:    blockNum,
		})
	}

	sort.Slice(whales, func(i, j int) bool { return whales[i].ValueUSD.GreaterThan(whales[j].ValueUSD) })
	if len(whales) > limit {
		whales = whales[:limit]
	}

	return map[string]any{"token": token, "transfers": whales}, nil
}

func latestBlockNumber(ctx context.Context, deps *Deps) (uint64, error) {
	raw, _, err := deps.RPC.Call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, err
	}
	var hexBlock string
	if err := json.Unmarshal(raw, &hexBlock); err != nil {
		return 0, apierr.Wrap(apierr.KindUpstream, "decode eth_blockNumber", err)
	}
	return hexutil.DecodeUint64(hexBlock)
}

type rpcLog struct {
	TransactionHash string   `json:"transactionHash"`
	BlockNumber     string   `json:"blockNumber"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
}

func fetchTransferLogs(ctx context.Context, deps *Deps, token string, fromBlock, toBlock uint64) ([]rpcLog, error) {
	filter := map[string]any{
		"address":   token,
		"fromBlock": hexutil.EncodeUint64(fromBlock),
		"toBlock":   hexutil.EncodeUint64(toBlock),
		"topics":    []string{transferEventSignature},
	}
	raw, _, err := deps.RPC.Call(ctx, "eth_getLogs", []any{filter})
	if err != nil {
		return nil, err
	}
	var logs []rpcLog
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_getLogs", err)
	}
	valid := make([]rpcLog, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) == 3 {
			valid = append(valid, l)
		}
	}
	return valid, nil
}

func topicToAddress(topic string) common.Address {
	b := common.FromHex(topic)
	if len(b) < 20 {
		return common.Address{}
	}
	return common.BytesToAddress(b[len(b)-20:])
}
