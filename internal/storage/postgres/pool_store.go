package postgres

import (
	"context"
	"fmt"

	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
)

// PoolStore is a read-only view over subscribed_pools and token_metadata,
// tables this indexer never writes to; they are populated by an external
// loader.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore constructs a PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

func (s *PoolStore) GetPool(ctx context.Context, address string) (event.Pool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT pool_mint, dex, token_a_mint, token_b_mint, pool_name,
		        decimals_a, decimals_b, added_at
		 FROM subscribed_pools
		 WHERE pool_mint = $1`,
		address,
	)

	var p event.Pool
	err := row.Scan(&p.Address, &p.Dex, &p.TokenMintA, &p.TokenMintB, &p.Name,
		&p.DecimalsA, &p.DecimalsB, &p.AddedAt)
	if isNotFoundError(err) {
		return event.Pool{}, storage.ErrNotFound
	}
	if err != nil {
		return event.Pool{}, fmt.Errorf("get pool %s: %w", address, err)
	}
	return p, nil
}

func (s *PoolStore) ListPools(ctx context.Context, dex string) ([]event.Pool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pool_mint, dex, token_a_mint, token_b_mint, pool_name,
		        decimals_a, decimals_b, added_at
		 FROM subscribed_pools
		 WHERE dex = $1
		 ORDER BY pool_mint`,
		dex,
	)
	if err != nil {
		return nil, fmt.Errorf("list pools for %s: %w", dex, err)
	}
	defer rows.Close()

	var pools []event.Pool
	for rows.Next() {
		var p event.Pool
		if err := rows.Scan(&p.Address, &p.Dex, &p.TokenMintA, &p.TokenMintB, &p.Name,
			&p.DecimalsA, &p.DecimalsB, &p.AddedAt); err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// TokenMetadataStore is a read-only view over token_metadata.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore constructs a TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

func (s *TokenMetadataStore) GetTokenMetadata(ctx context.Context, mint string) (event.TokenMetadata, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT mint, name, symbol, decimals, updated_at
		 FROM token_metadata
		 WHERE mint = $1`,
		mint,
	)

	var m event.TokenMetadata
	err := row.Scan(&m.Mint, &m.Name, &m.Symbol, &m.Decimals, &m.UpdatedAt)
	if isNotFoundError(err) {
		return event.TokenMetadata{}, storage.ErrNotFound
	}
	if err != nil {
		return event.TokenMetadata{}, fmt.Errorf("get token metadata %s: %w", mint, err)
	}
	return m, nil
}
