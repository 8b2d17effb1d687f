package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crolens/crolens-api/internal/catalog/models"
)

const dailyResetInterval = 24 * time.Hour

// GetOrCreateAPIKey auto-provisions a free-tier row on first sighting and
// applies the lazy daily-quota reset before returning, per the gateway's
// read-time reset rule: a row whose daily_reset_at has passed is reset to
// daily_used=0 and its window advanced by 24h as part of the same read,
// rather than by a second background job.
func (s *Storage) GetOrCreateAPIKey(key string, defaultCredits int) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	k, err := s.getAPIKey(key)
	if err == nil {
		return s.applyLazyReset(k)
	}
	if err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	k = &models.APIKey{
		Key:          key,
		Tier:         models.TierFree,
		Credits:      defaultCredits,
		DailyUsed:    0,
		DailyResetAt: now.Add(dailyResetInterval),
		IsActive:     true,
		CreatedAt:    now,
	}

	_, err = s.db.Exec(`
		INSERT INTO api_keys (api_key, tier, credits, daily_used, daily_reset_at, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(api_key) DO NOTHING`,
		k.Key, string(k.Tier), k.Credits, k.DailyUsed, k.DailyResetAt, k.IsActive, k.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}

	// Another request may have won the race; re-read to get the canonical row.
	return s.getAPIKey(key)
}

// GetAPIKey looks up an existing key, applying the lazy daily reset.
func (s *Storage) GetAPIKey(key string) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStorageClosed
	}
	k, err := s.getAPIKey(key)
	if err != nil {
		return nil, err
	}
	return s.applyLazyReset(k)
}

func (s *Storage) getAPIKey(key string) (*models.APIKey, error) {
	row := s.db.QueryRow(`
		SELECT api_key, tier, credits, daily_used, daily_reset_at, is_active, created_at
		FROM api_keys WHERE api_key = ?`, key)

	k := &models.APIKey{}
	var tier string
	if err := row.Scan(&k.Key, &tier, &k.Credits, &k.DailyUsed, &k.DailyResetAt, &k.IsActive, &k.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	k.Tier = models.Tier(tier)
	return k, nil
}

// applyLazyReset resets daily_used if the window has elapsed, persisting
// the change before returning the refreshed row.
func (s *Storage) applyLazyReset(k *models.APIKey) (*models.APIKey, error) {
	now := time.Now().UTC()
	if now.Before(k.DailyResetAt) {
		return k, nil
	}

	newResetAt := k.DailyResetAt
	for !now.Before(newResetAt) {
		newResetAt = newResetAt.Add(dailyResetInterval)
	}

	_, err := s.db.Exec(`
		UPDATE api_keys SET daily_used = 0, daily_reset_at = ?
		WHERE api_key = ?`, newResetAt, k.Key)
	if err != nil {
		return nil, fmt.Errorf("reset daily quota: %w", err)
	}

	k.DailyUsed = 0
	k.DailyResetAt = newResetAt
	return k, nil
}

// DebitCredit performs the compare-and-set billing decrement. The same
// conditional UPDATE also increments daily_used, so daily_used counts
// successful debits; a lost compare-and-set changes neither column.
func (s *Storage) DebitCredit(key string, expectedCredits int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrStorageClosed
	}

	res, err := s.db.Exec(`
		UPDATE api_keys
		SET credits = credits - 1, daily_used = daily_used + 1
		WHERE api_key = ? AND credits = ?`, key, expectedCredits)
	if err != nil {
		return false, fmt.Errorf("debit credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// CreditPayment increments Credits and promotes the key to pro tier. The
// caller is expected to have already established InsertPayment's
// uniqueness guarantee for this tx_hash before calling.
func (s *Storage) CreditPayment(key string, credits int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStorageClosed
	}

	_, err := s.db.Exec(`
		UPDATE api_keys SET credits = credits + ?, tier = ?
		WHERE api_key = ?`, credits, string(models.TierPro), key)
	if err != nil {
		return 0, fmt.Errorf("credit payment: %w", err)
	}

	var newCredits int
	if err := s.db.QueryRow(`SELECT credits FROM api_keys WHERE api_key = ?`, key).Scan(&newCredits); err != nil {
		return 0, fmt.Errorf("read credited balance: %w", err)
	}
	return newCredits, nil
}
