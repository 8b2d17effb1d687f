package tools

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// knownMethod pairs a 4-byte selector with the name and argument types
// decode_transaction needs to structure calldata for the handful of
// method shapes this system's protocols actually call.
type knownMethod struct {
	name string
	args abi.Arguments
}

func mustArgs(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic("tools: invalid abi type " + t + ": " + err.Error())
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

var knownMethods = map[string]knownMethod{
	"0xa9059cbb": {"transfer", mustArgs("address", "uint256")},
	"0x095ea7b3": {"approve", mustArgs("address", "uint256")},
	"0x70a08231": {"balanceOf", mustArgs("address")},
	"0x38ed1739": {"swapExactTokensForTokens", mustArgs("uint256", "uint256", "address[]", "address", "uint256")},
	"0x3af9e669": {"balanceOfUnderlying", mustArgs("address")},
	"0x95dd9193": {"borrowBalanceStored", mustArgs("address")},
}

// decodeSelector returns the method name (looked up if known, else the
// raw 4-byte hex) and, when the selector is known, its decoded arguments
// keyed by position.
func decodeSelector(data []byte) (methodName string, params map[string]any) {
	if len(data) < 4 {
		return "", nil
	}
	selector := "0x" + common.Bytes2Hex(data[0:4])

	m, ok := knownMethods[selector]
	if !ok {
		return selector, nil
	}

	values, err := m.args.Unpack(data[4:])
	if err != nil {
		return m.name, nil
	}
	params = make(map[string]any, len(values))
	for i, v := range values {
		params[argLabel(i)] = stringifyArg(v)
	}
	return m.name, params
}

func argLabel(i int) string {
	labels := []string{"arg0", "arg1", "arg2", "arg3", "arg4"}
	if i < len(labels) {
		return labels[i]
	}
	return "arg" + string(rune('0'+i))
}

// stringifyArg renders decoded ABI values as JSON-safe strings, since
// big.Int and [20]byte addresses don't marshal the way a caller expects.
func stringifyArg(v any) any {
	switch t := v.(type) {
	case common.Address:
		return t.Hex()
	case []common.Address:
		out := make([]string, len(t))
		for i, a := range t {
			out[i] = a.Hex()
		}
		return out
	case interface{ String() string }:
		return t.String()
	default:
		return v
	}
}
