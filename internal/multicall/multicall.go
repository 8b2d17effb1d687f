// Package multicall implements the aggregate3 batching aggregator (C3):
// many independent contract reads collapsed into one RPC round trip
// against the canonical Multicall3 contract, grounded on the ABI-encoding
// approach other_examples/oaoivan-ScreenerCD uses for Uniswap-family
// calldata, generalized from hand-packed selectors to go-ethereum's
// accounts/abi encoder.
package multicall

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/crolens/crolens-api/internal/apierr"
)

// Call is one read request: target contract and pre-encoded calldata.
type Call struct {
	Target       common.Address
	CallData     []byte
	AllowFailure bool
}

// Result is one sub-call's outcome, indices preserved from the input order.
type Result struct {
	Success    bool
	ReturnData []byte
}

// caller is the narrow RPC surface multicall needs; rpcclient.Client
// satisfies it.
type caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, bool, error)
}

// Aggregator batches Calls into one aggregate3 invocation against the
// configured Multicall3 contract.
type Aggregator struct {
	client  caller
	address common.Address
	abi     abi.ABI
}

const aggregate3ABI = `[{
	"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],
	"name":"aggregate3",
	"outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],
	"stateMutability":"view",
	"type":"function"
}]`

// New builds an Aggregator against the given Multicall3 deployment.
func New(client caller, multicallAddress common.Address) (*Aggregator, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregate3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse aggregate3 abi: %w", err)
	}
	return &Aggregator{client: client, address: multicallAddress, abi: parsed}, nil
}

type aggregate3Tuple struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type resultTuple struct {
	Success    bool
	ReturnData []byte
}

// Aggregate executes calls in one eth_call against the multicall
// contract and returns per-index results in the caller's order. A
// global RPC failure (the multicall contract itself reverting or the
// RPC round trip failing) returns a single error; per-sub-call failure
// is surfaced via Result.Success, never an error, as long as the
// corresponding Call set AllowFailure.
func (a *Aggregator) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	tuples := make([]aggregate3Tuple, len(calls))
	for i, c := range calls {
		tuples[i] = aggregate3Tuple{Target: c.Target, AllowFailure: c.AllowFailure, CallData: c.CallData}
	}

	packed, err := a.abi.Pack("aggregate3", tuples)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "pack aggregate3 calldata", err)
	}

	callObj := map[string]string{
		"to":   a.address.Hex(),
		"data": "0x" + common.Bytes2Hex(packed),
	}

	raw, _, err := a.client.Call(ctx, "eth_call", []any{callObj, "latest"})
	if err != nil {
		return nil, err
	}

	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "decode eth_call result", err)
	}
	returnBytes := common.FromHex(hexResult)

	var unpacked struct {
		ReturnData []resultTuple
	}
	if err := a.abi.UnpackIntoInterface(&unpacked, "aggregate3", returnBytes); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, "unpack aggregate3 result", err)
	}
	if len(unpacked.ReturnData) != len(calls) {
		return nil, apierr.New(apierr.KindUpstream, "aggregate3 returned wrong number of results")
	}

	results := make([]Result, len(unpacked.ReturnData))
	for i, t := range unpacked.ReturnData {
		results[i] = Result{Success: t.Success, ReturnData: t.ReturnData}
	}
	return results, nil
}
