// Package chainutil holds small, dependency-light helpers for validating
// and canonicalizing EVM-shaped strings, shared by the domain tools'
// argument validation and the gateway's x402 handlers.
package chainutil

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	hexDataRe = regexp.MustCompile(`^0x[0-9a-fA-F]*$`)
)

// IsAddress reports whether s matches the canonical 20-byte hex address
// shape (the same pattern the tool registry's address schema declares).
func IsAddress(s string) bool { return addressRe.MatchString(s) }

// IsTxHash reports whether s matches the canonical 32-byte hex hash shape.
func IsTxHash(s string) bool { return txHashRe.MatchString(s) }

// IsHexData reports whether s is `0x` followed by an even-or-odd run of hex
// digits (calldata is not required to be byte-aligned as a string).
func IsHexData(s string) bool { return hexDataRe.MatchString(s) }

// Address parses a validated address string into common.Address. Callers
// must check IsAddress first; Address does not validate.
func Address(s string) common.Address {
	return common.HexToAddress(s)
}

// Hash parses a validated hash string into common.Hash.
func Hash(s string) common.Hash {
	return common.HexToHash(s)
}

// ChecksumAddress returns the EIP-55 mixed-case checksum form.
func ChecksumAddress(a common.Address) string {
	return a.Hex()
}

// EqualAddress compares two address-shaped strings case-insensitively,
// which is how EVM addresses are compared everywhere except display.
func EqualAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
