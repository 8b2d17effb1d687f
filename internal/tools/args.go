package tools

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/chainutil"
)

// StringArg reads a required string argument.
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", apierr.New(apierr.KindInvalidParams, "missing required argument: "+name)
	}
	s, ok := v.(string)
	if !ok {
		return "", apierr.New(apierr.KindInvalidParams, name+" must be a string")
	}
	return s, nil
}

// OptionalStringArg reads an optional string argument, returning def if absent.
func OptionalStringArg(args map[string]any, name, def string) string {
	v, ok := args[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// OptionalBoolArg reads an optional bool argument, returning def if absent.
func OptionalBoolArg(args map[string]any, name string, def bool) bool {
	v, ok := args[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// OptionalIntArg reads an optional numeric argument (JSON numbers decode
// as float64), returning def if absent or malformed.
func OptionalIntArg(args map[string]any, name string, def int) int {
	v, ok := args[name]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}

// AddressArg reads and validates a required address-shaped string argument.
func AddressArg(args map[string]any, name string) (string, error) {
	s, err := StringArg(args, name)
	if err != nil {
		return "", err
	}
	if !chainutil.IsAddress(s) {
		return "", apierr.New(apierr.KindInvalidParams, "Invalid address: "+name+" must be a 0x-prefixed 40-hex-digit address")
	}
	return s, nil
}

// TxHashArg reads and validates a required transaction-hash argument.
func TxHashArg(args map[string]any, name string) (string, error) {
	s, err := StringArg(args, name)
	if err != nil {
		return "", err
	}
	if !chainutil.IsTxHash(s) {
		return "", apierr.New(apierr.KindInvalidParams, name+" must be a 0x-prefixed 64-hex-digit transaction hash")
	}
	return s, nil
}

// HexDataArg reads and validates a required calldata-shaped argument.
// An absent argument is treated as empty calldata ("0x"), matching a
// plain native transfer.
func HexDataArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "0x", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apierr.New(apierr.KindInvalidParams, name+" must be a string")
	}
	if !chainutil.IsHexData(s) {
		return "", apierr.New(apierr.KindInvalidParams, name+" must be 0x-prefixed hex data")
	}
	return s, nil
}

// AddressListArg reads a required array of address-shaped strings,
// bounded to [min, max] entries inclusive.
func AddressListArg(args map[string]any, name string, min, max int) ([]string, error) {
	v, ok := args[name]
	if !ok {
		return nil, apierr.New(apierr.KindInvalidParams, "missing required argument: "+name)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, apierr.New(apierr.KindInvalidParams, name+" must be an array")
	}
	if len(raw) < min || len(raw) > max {
		return nil, apierr.New(apierr.KindInvalidParams, name+" must contain between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+" entries")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || !chainutil.IsAddress(s) {
			return nil, apierr.New(apierr.KindInvalidParams, name+" entries must be 0x-prefixed 40-hex-digit addresses")
		}
		out = append(out, s)
	}
	return out, nil
}

// DecimalArg reads a required decimal-string argument (used for wei and
// token-base-unit amounts, which overflow float64 precision).
func DecimalArg(args map[string]any, name string) (decimal.Decimal, error) {
	s, err := StringArg(args, name)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apierr.New(apierr.KindInvalidParams, name+" must be a decimal string")
	}
	if d.IsNegative() {
		return decimal.Decimal{}, apierr.New(apierr.KindInvalidParams, name+" must not be negative")
	}
	return d, nil
}

// OptionalDecimalArg reads an optional decimal-string argument, returning
// def if absent.
func OptionalDecimalArg(args map[string]any, name string, def decimal.Decimal) decimal.Decimal {
	v, ok := args[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return def
	}
	return d
}

// RangeIntArg reads a required integer argument bounded to [min, max] inclusive.
func RangeIntArg(args map[string]any, name string, min, max int) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, apierr.New(apierr.KindInvalidParams, "missing required argument: "+name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, apierr.New(apierr.KindInvalidParams, name+" must be a number")
	}
	n := int(f)
	if n < min || n > max {
		return 0, apierr.New(apierr.KindInvalidParams, name+" must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return n, nil
}

// OptionalRangeIntArg reads an optional integer argument bounded to
// [min, max] inclusive, returning def if absent. An out-of-range value is
// still a schema violation.
func OptionalRangeIntArg(args map[string]any, name string, min, max, def int) (int, error) {
	if _, ok := args[name]; !ok {
		return def, nil
	}
	return RangeIntArg(args, name, min, max)
}
