package tools

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func packCall(t *testing.T, selector string, types []string, values ...any) []byte {
	t.Helper()
	args := mustArgs(types...)
	packed, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack args: %v", err)
	}
	return append(common.FromHex(selector), packed...)
}

func TestDecodeSelector_KnownMethod(t *testing.T) {
	to := common.HexToAddress("0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23")
	data := packCall(t, "0xa9059cbb", []string{"address", "uint256"}, to, big.NewInt(100))

	name, params := decodeSelector(data)
	if name != "transfer" {
		t.Fatalf("expected transfer, got %q", name)
	}
	if params["arg0"] != to.Hex() {
		t.Errorf("expected arg0 to be the recipient address, got %+v", params["arg0"])
	}
	if params["arg1"] != "100" {
		t.Errorf("expected arg1 to stringify to 100, got %+v", params["arg1"])
	}
}

func TestDecodeSelector_UnknownMethod(t *testing.T) {
	name, params := decodeSelector(common.FromHex("0xdeadbeefaabbccdd"))
	if name != "0xdeadbeef" {
		t.Errorf("expected the raw selector to be returned for an unknown method, got %q", name)
	}
	if params != nil {
		t.Errorf("expected no decoded params for an unknown method, got %+v", params)
	}
}

func TestDecodeSelector_TooShort(t *testing.T) {
	name, params := decodeSelector([]byte{0x01, 0x02})
	if name != "" || params != nil {
		t.Errorf("expected empty result for calldata shorter than a selector, got (%q, %+v)", name, params)
	}
}

func TestArgLabel(t *testing.T) {
	if argLabel(0) != "arg0" || argLabel(4) != "arg4" {
		t.Error("expected known indices to use the precomputed labels")
	}
	if argLabel(5) != "arg5" {
		t.Errorf("expected argLabel(5) = arg5, got %q", argLabel(5))
	}
}

func TestStringifyArg(t *testing.T) {
	addr := common.HexToAddress("0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23")
	if got := stringifyArg(addr); got != addr.Hex() {
		t.Errorf("stringifyArg(address) = %v, want %v", got, addr.Hex())
	}
	addrs := []common.Address{addr}
	got := stringifyArg(addrs).([]string)
	if len(got) != 1 || got[0] != addr.Hex() {
		t.Errorf("stringifyArg([]address) = %v", got)
	}
	if got := stringifyArg(big.NewInt(42)); got != "42" {
		t.Errorf("stringifyArg(*big.Int) = %v, want 42", got)
	}
}
