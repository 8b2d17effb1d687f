package tools

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestDecimalFromWord(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 100 // 100 base units
	got := decimalFromWord(word, 2)
	if !got.Equal(decimal.NewFromFloat(1.00)) {
		t.Errorf("decimalFromWord() = %s, want 1", got.String())
	}
	if !decimalFromWord([]byte{1, 2, 3}, 18).IsZero() {
		t.Error("expected a short word to decode as zero")
	}
}

func TestTopicToAddress(t *testing.T) {
	addr := common.HexToAddress("0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23")
	topic := "0x" + "000000000000000000000000" + addr.Hex()[2:]
	got := topicToAddress(topic)
	if got != addr {
		t.Errorf("topicToAddress() = %s, want %s", got.Hex(), addr.Hex())
	}
	if topicToAddress("0x01").Hex() != (common.Address{}).Hex() {
		t.Error("expected an undersized topic to decode as the zero address")
	}
}

func TestOptionalDecimalArg(t *testing.T) {
	def := decimal.NewFromInt(10000)
	if got := OptionalDecimalArg(map[string]any{}, "x", def); !got.Equal(def) {
		t.Errorf("expected default when absent, got %s", got.String())
	}
	if got := OptionalDecimalArg(map[string]any{"x": "500"}, "x", def); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("got %s, want 500", got.String())
	}
	if got := OptionalDecimalArg(map[string]any{"x": "garbage"}, "x", def); !got.Equal(def) {
		t.Errorf("expected default on malformed input, got %s", got.String())
	}
}
