package models

import "time"

// Payment records one credited on-chain top-up transaction. The primary
// key is TxHash: the uniqueness constraint on it is the idempotency
// boundary of the x402 verify state machine (spec §4.1, §8 property 1).
type Payment struct {
	TxHash         string    `json:"tx_hash"`
	APIKey         string    `json:"api_key"`
	FromAddress    string    `json:"from_address"`
	ToAddress      string    `json:"to_address"`
	ValueWei       string    `json:"value_wei"`
	CreditsGranted int       `json:"credits_granted"`
	CreatedAt      time.Time `json:"created_at"`
}
