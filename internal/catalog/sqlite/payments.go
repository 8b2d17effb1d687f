package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/crolens/crolens-api/internal/catalog/models"
	"github.com/crolens/crolens-api/internal/catalog"
)

// InsertPayment inserts a payment row, relying on tx_hash's PRIMARY KEY
// constraint as the idempotency boundary: a second verify call for the
// same transaction hits a UNIQUE violation and is reported as
// PaymentDuplicate rather than an error, so the x402 verify handler can
// treat replays as already-settled instead of failing the request.
func (s *Storage) InsertPayment(p *models.Payment) (catalog.PaymentOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return catalog.PaymentInserted, ErrStorageClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO payments (tx_hash, api_key, from_address, to_address, value_wei, credits_granted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TxHash, p.APIKey, p.FromAddress, p.ToAddress, p.ValueWei, p.CreditsGranted, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.PaymentDuplicate, nil
		}
		return catalog.PaymentInserted, fmt.Errorf("insert payment: %w", err)
	}
	return catalog.PaymentInserted, nil
}

// GetPayment looks up a payment by its transaction hash.
func (s *Storage) GetPayment(txHash string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	row := s.db.QueryRow(`
		SELECT tx_hash, api_key, from_address, to_address, value_wei, credits_granted, created_at
		FROM payments WHERE tx_hash = ?`, txHash)

	p := &models.Payment{}
	if err := row.Scan(&p.TxHash, &p.APIKey, &p.FromAddress, &p.ToAddress, &p.ValueWei, &p.CreditsGranted, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

// isUniqueViolation matches modernc.org/sqlite's constraint error text,
// the same substring check the teacher uses for its duplicate-key paths.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
