// Package catalog defines the durable relational store (C5) of
// protocols, contracts, tokens, pools, markets, API keys, payments, and
// request logs. Tool code never writes ApiKey/Payment state directly —
// only the gateway (C9) mutates them.
package catalog

import (
	"github.com/crolens/crolens-api/internal/catalog/models"
)

// Re-export model types for convenience, the way the teacher's storage
// package re-exports its models package.
type (
	APIKey        = models.APIKey
	Tier          = models.Tier
	Payment       = models.Payment
	Protocol      = models.Protocol
	Contract      = models.Contract
	Token         = models.Token
	DexPool       = models.DexPool
	LendingMarket = models.LendingMarket
	RequestLog    = models.RequestLog
	LogFilter     = models.LogFilter
)

// Re-export adapter type constants, same rationale as above.
const (
	AdapterUniswapV2AMM   = models.AdapterUniswapV2AMM
	AdapterCompoundV2Lend = models.AdapterCompoundV2Lend
)

// Re-export tier constants, same rationale as above.
const (
	TierFree = models.TierFree
	TierPro  = models.TierPro
)

// PaymentOutcome is the result of inserting a Payment row.
type PaymentOutcome int

const (
	PaymentInserted PaymentOutcome = iota
	PaymentDuplicate
)

// Store is the persistence interface backing C5. The sqlite package is the
// only implementation.
type Store interface {
	// API key lifecycle. GetOrCreateAPIKey auto-provisions a free-tier row
	// on first sighting, per spec §4.1 step 4, applying the lazy daily
	// quota reset described in SPEC_FULL.md's supplement before returning.
	GetOrCreateAPIKey(key string, defaultCredits int) (*APIKey, error)
	GetAPIKey(key string) (*APIKey, error)

	// DebitCredit performs the billing compare-and-set: decrements Credits
	// by 1 only if the stored row still has Credits == expectedCredits.
	// Returns false if the CAS lost the race (caller should re-read and
	// decide whether to retry or surface payment-required).
	DebitCredit(key string, expectedCredits int) (ok bool, err error)

	// CreditPayment increments Credits by `credits` and promotes the key
	// to TierPro. It is a separate statement from InsertPayment; the two
	// do not share a transaction.
	CreditPayment(key string, credits int) (newCredits int, err error)

	// InsertPayment inserts a Payment row. Returns PaymentDuplicate (not an
	// error) when tx_hash already exists — the idempotency boundary of the
	// x402 verify state machine.
	InsertPayment(p *Payment) (PaymentOutcome, error)
	GetPayment(txHash string) (*Payment, error)

	// Reference data, read-mostly.
	ListProtocols() ([]*Protocol, error)
	GetProtocol(slug string) (*Protocol, error)
	UpsertProtocol(p *Protocol) error

	ListTokens() ([]*Token, error)
	ListAnchorTokens() ([]*Token, error)
	GetToken(address string) (*Token, error)
	UpsertToken(t *Token) error

	ListContracts() ([]*Contract, error)
	GetContract(address string) (*Contract, error)
	SearchContracts(query string, limit int) ([]*Contract, error)
	UpsertContract(c *Contract) error

	ListPools() ([]*DexPool, error)
	ListPoolsForProtocol(protocolSlug string) ([]*DexPool, error)
	PoolsForToken(tokenAddr string) ([]*DexPool, error)
	UpsertPool(p *DexPool) error

	ListMarkets() ([]*LendingMarket, error)
	ListMarketsForProtocol(protocolSlug string) ([]*LendingMarket, error)
	UpsertMarket(m *LendingMarket) error

	// Request logging, append-only; the store applies no sampling.
	LogRequest(l *RequestLog) error
	GetRequestLogs(f LogFilter) ([]*RequestLog, error)

	// Admin password hash, stored in system_config and set by cmd/api's
	// first-run setup. No HTTP route checks it: the gateway serves no
	// admin routes, and the catalog is seeded from the TOML file.
	HasAdminPassword() (bool, error)
	GetAdminPasswordHash() (string, error)
	SetAdminPasswordHash(hash string) error

	// Health probe: a cheap round-trip the /health endpoint can time.
	Ping() error

	Close() error
}
