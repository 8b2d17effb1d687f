package tools

import (
	"testing"

	"github.com/crolens/crolens-api/internal/apierr"
)

func expectInvalidParams(t *testing.T, err error) {
	t.Helper()
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindInvalidParams {
		t.Fatalf("expected KindInvalidParams, got %v", err)
	}
}

func TestStringArg(t *testing.T) {
	if _, err := StringArg(map[string]any{}, "x"); err == nil {
		t.Fatal("expected error for missing argument")
	} else {
		expectInvalidParams(t, err)
	}
	if _, err := StringArg(map[string]any{"x": 5}, "x"); err == nil {
		t.Fatal("expected error for non-string argument")
	}
	v, err := StringArg(map[string]any{"x": "hello"}, "x")
	if err != nil || v != "hello" {
		t.Fatalf("got (%q, %v), want (hello, nil)", v, err)
	}
}

func TestAddressArg(t *testing.T) {
	valid := "0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23"
	v, err := AddressArg(map[string]any{"addr": valid}, "addr")
	if err != nil || v != valid {
		t.Fatalf("got (%q, %v), want (%q, nil)", v, err, valid)
	}
	if _, err := AddressArg(map[string]any{"addr": "not-an-address"}, "addr"); err == nil {
		t.Fatal("expected error for malformed address")
	} else {
		expectInvalidParams(t, err)
	}
}

func TestTxHashArg(t *testing.T) {
	valid := "0x" + "ab00000000000000000000000000000000000000000000000000000000000000"
	valid = valid[:66]
	if _, err := TxHashArg(map[string]any{"h": valid}, "h"); err != nil {
		t.Fatalf("expected valid hash to pass, got %v", err)
	}
	if _, err := TxHashArg(map[string]any{"h": "0xshort"}, "h"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestHexDataArg(t *testing.T) {
	v, err := HexDataArg(map[string]any{}, "data")
	if err != nil || v != "0x" {
		t.Fatalf("expected absent data to default to 0x, got (%q, %v)", v, err)
	}
	if _, err := HexDataArg(map[string]any{"data": "deadbeef"}, "data"); err == nil {
		t.Fatal("expected error for missing 0x prefix")
	}
	v2, err := HexDataArg(map[string]any{"data": "0xdeadbeef"}, "data")
	if err != nil || v2 != "0xdeadbeef" {
		t.Fatalf("got (%q, %v)", v2, err)
	}
}

func TestAddressListArg(t *testing.T) {
	addrs := []any{
		"0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23",
		"0x000000000000000000000000000000000000dEaD",
	}
	v, err := AddressListArg(map[string]any{"list": addrs}, "list", 1, 5)
	if err != nil || len(v) != 2 {
		t.Fatalf("got (%v, %v)", v, err)
	}
	if _, err := AddressListArg(map[string]any{"list": addrs}, "list", 1, 1); err == nil {
		t.Fatal("expected error when list exceeds max entries")
	}
	if _, err := AddressListArg(map[string]any{"list": []any{"bad"}}, "list", 1, 5); err == nil {
		t.Fatal("expected error for malformed entry")
	}
}

func TestDecimalArg(t *testing.T) {
	d, err := DecimalArg(map[string]any{"amt": "123.456"}, "amt")
	if err != nil || d.String() != "123.456" {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if _, err := DecimalArg(map[string]any{"amt": "-1"}, "amt"); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, err := DecimalArg(map[string]any{"amt": "not-a-number"}, "amt"); err == nil {
		t.Fatal("expected error for malformed decimal")
	}
}

func TestRangeIntArg(t *testing.T) {
	n, err := RangeIntArg(map[string]any{"n": float64(5)}, "n", 1, 10)
	if err != nil || n != 5 {
		t.Fatalf("got (%d, %v)", n, err)
	}
	if _, err := RangeIntArg(map[string]any{"n": float64(50)}, "n", 1, 10); err == nil {
		t.Fatal("expected error for out-of-range value")
	}
}

func TestOptionalRangeIntArg(t *testing.T) {
	n, err := OptionalRangeIntArg(map[string]any{}, "n", 1, 10, 3)
	if err != nil || n != 3 {
		t.Fatalf("expected default when absent, got (%d, %v)", n, err)
	}
	if _, err := OptionalRangeIntArg(map[string]any{"n": float64(99)}, "n", 1, 10, 3); err == nil {
		t.Fatal("expected an out-of-range present value to still error")
	}
}
