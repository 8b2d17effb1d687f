package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/crolens/crolens-api/internal/catalog/models"
)

// -- protocols --------------------------------------------------------

func (s *Storage) ListProtocols() ([]*models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT slug, name, adapter_type FROM protocols ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}
	defer rows.Close()

	var out []*models.Protocol
	for rows.Next() {
		p := &models.Protocol{}
		if err := rows.Scan(&p.Slug, &p.Name, &p.AdapterType); err != nil {
			return nil, fmt.Errorf("scan protocol: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Storage) GetProtocol(slug string) (*models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := &models.Protocol{}
	err := s.db.QueryRow(`SELECT slug, name, adapter_type FROM protocols WHERE slug = ?`, slug).
		Scan(&p.Slug, &p.Name, &p.AdapterType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get protocol: %w", err)
	}
	return p, nil
}

func (s *Storage) UpsertProtocol(p *models.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO protocols (slug, name, adapter_type) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name, adapter_type = excluded.adapter_type`,
		p.Slug, p.Name, p.AdapterType)
	if err != nil {
		return fmt.Errorf("upsert protocol: %w", err)
	}
	return nil
}

// -- tokens -------------------------------------------------------------

func (s *Storage) ListTokens() ([]*models.Token, error) {
	return s.queryTokens(`SELECT address, symbol, decimals, is_stablecoin, is_anchor, external_price_id FROM tokens ORDER BY symbol`)
}

func (s *Storage) ListAnchorTokens() ([]*models.Token, error) {
	return s.queryTokens(`SELECT address, symbol, decimals, is_stablecoin, is_anchor, external_price_id FROM tokens WHERE is_anchor = 1 ORDER BY symbol`)
}

func (s *Storage) queryTokens(query string) ([]*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []*models.Token
	for rows.Next() {
		t := &models.Token{}
		var externalID sql.NullString
		if err := rows.Scan(&t.Address, &t.Symbol, &t.Decimals, &t.IsStablecoin, &t.IsAnchor, &externalID); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		t.ExternalPriceID = externalID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Storage) GetToken(address string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := &models.Token{}
	var externalID sql.NullString
	err := s.db.QueryRow(`
		SELECT address, symbol, decimals, is_stablecoin, is_anchor, external_price_id
		FROM tokens WHERE address = ?`, address).
		Scan(&t.Address, &t.Symbol, &t.Decimals, &t.IsStablecoin, &t.IsAnchor, &externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.ExternalPriceID = externalID.String
	return t, nil
}

func (s *Storage) UpsertToken(t *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO tokens (address, symbol, decimals, is_stablecoin, is_anchor, external_price_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			symbol = excluded.symbol, decimals = excluded.decimals,
			is_stablecoin = excluded.is_stablecoin, is_anchor = excluded.is_anchor,
			external_price_id = excluded.external_price_id`,
		t.Address, t.Symbol, t.Decimals, t.IsStablecoin, t.IsAnchor, t.ExternalPriceID)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// -- contracts ------------------------------------------------------------

func (s *Storage) ListContracts() ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT address, name, protocol_slug FROM contracts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func (s *Storage) GetContract(address string) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &models.Contract{}
	var protocolSlug sql.NullString
	err := s.db.QueryRow(`SELECT address, name, protocol_slug FROM contracts WHERE address = ?`, address).
		Scan(&c.Address, &c.Name, &protocolSlug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	c.ProtocolSlug = protocolSlug.String
	return c, nil
}

func (s *Storage) SearchContracts(query string, limit int) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT address, name, protocol_slug FROM contracts
		WHERE name LIKE ? OR address LIKE ?
		ORDER BY name LIMIT ?`, "%"+query+"%", "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func scanContracts(rows *sql.Rows) ([]*models.Contract, error) {
	var out []*models.Contract
	for rows.Next() {
		c := &models.Contract{}
		var protocolSlug sql.NullString
		if err := rows.Scan(&c.Address, &c.Name, &protocolSlug); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		c.ProtocolSlug = protocolSlug.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) UpsertContract(c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO contracts (address, name, protocol_slug) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET name = excluded.name, protocol_slug = excluded.protocol_slug`,
		c.Address, c.Name, c.ProtocolSlug)
	if err != nil {
		return fmt.Errorf("upsert contract: %w", err)
	}
	return nil
}

// -- dex pools --------------------------------------------------------------

func (s *Storage) ListPools() ([]*models.DexPool, error) {
	return s.queryPools(`SELECT address, protocol_slug, token0, token1, farm_pool_index FROM dex_pools ORDER BY address`)
}

func (s *Storage) ListPoolsForProtocol(protocolSlug string) ([]*models.DexPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT address, protocol_slug, token0, token1, farm_pool_index FROM dex_pools WHERE protocol_slug = ?`, protocolSlug)
	if err != nil {
		return nil, fmt.Errorf("list pools for protocol: %w", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

func (s *Storage) PoolsForToken(tokenAddr string) ([]*models.DexPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT address, protocol_slug, token0, token1, farm_pool_index FROM dex_pools WHERE token0 = ? OR token1 = ?`, tokenAddr, tokenAddr)
	if err != nil {
		return nil, fmt.Errorf("list pools for token: %w", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

func (s *Storage) queryPools(query string) ([]*models.DexPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()
	return scanPools(rows)
}

func scanPools(rows *sql.Rows) ([]*models.DexPool, error) {
	var out []*models.DexPool
	for rows.Next() {
		p := &models.DexPool{}
		var farmIdx sql.NullInt64
		if err := rows.Scan(&p.Address, &p.ProtocolSlug, &p.Token0, &p.Token1, &farmIdx); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		if farmIdx.Valid {
			idx := int(farmIdx.Int64)
			p.FarmPoolIndex = &idx
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Storage) UpsertPool(p *models.DexPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var farmIdx any
	if p.FarmPoolIndex != nil {
		farmIdx = *p.FarmPoolIndex
	}
	_, err := s.db.Exec(`
		INSERT INTO dex_pools (address, protocol_slug, token0, token1, farm_pool_index) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET protocol_slug = excluded.protocol_slug, token0 = excluded.token0, token1 = excluded.token1, farm_pool_index = excluded.farm_pool_index`,
		p.Address, p.ProtocolSlug, p.Token0, p.Token1, farmIdx)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

// -- lending markets --------------------------------------------------------

func (s *Storage) ListMarkets() ([]*models.LendingMarket, error) {
	return s.queryMarkets(`SELECT address, protocol_slug, underlying, comptroller FROM lending_markets ORDER BY address`)
}

func (s *Storage) ListMarketsForProtocol(protocolSlug string) ([]*models.LendingMarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT address, protocol_slug, underlying, comptroller FROM lending_markets WHERE protocol_slug = ?`, protocolSlug)
	if err != nil {
		return nil, fmt.Errorf("list markets for protocol: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func (s *Storage) queryMarkets(query string) ([]*models.LendingMarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func scanMarkets(rows *sql.Rows) ([]*models.LendingMarket, error) {
	var out []*models.LendingMarket
	for rows.Next() {
		m := &models.LendingMarket{}
		if err := rows.Scan(&m.Address, &m.ProtocolSlug, &m.Underlying, &m.Comptroller); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Storage) UpsertMarket(m *models.LendingMarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO lending_markets (address, protocol_slug, underlying, comptroller) VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET protocol_slug = excluded.protocol_slug, underlying = excluded.underlying, comptroller = excluded.comptroller`,
		m.Address, m.ProtocolSlug, m.Underlying, m.Comptroller)
	if err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}
	return nil
}
