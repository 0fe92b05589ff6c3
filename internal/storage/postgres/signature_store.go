package postgres

import (
	"context"
	"fmt"

	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
)

// SignatureStore is the Postgres-backed implementation of
// storage.SignatureStore, keyed on (dex, pool_address).
type SignatureStore struct {
	pool *Pool
}

// NewSignatureStore constructs a SignatureStore.
func NewSignatureStore(pool *Pool) *SignatureStore {
	return &SignatureStore{pool: pool}
}

func (s *SignatureStore) GetCursor(ctx context.Context, dex, pool string) (event.SignatureCursor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT pool_address, dex, signature, slot, last_updated
		 FROM last_signatures
		 WHERE dex = $1 AND pool_address = $2`,
		dex, pool,
	)

	var cursor event.SignatureCursor
	err := row.Scan(&cursor.PoolAddress, &cursor.Dex, &cursor.Signature, &cursor.Slot, &cursor.UpdatedAt)
	if isNotFoundError(err) {
		return event.SignatureCursor{}, storage.ErrNotFound
	}
	if err != nil {
		return event.SignatureCursor{}, fmt.Errorf("get cursor for %s/%s: %w", dex, pool, err)
	}
	return cursor, nil
}

// AdvanceCursor's WHERE clause on the DO UPDATE is the regression guard: a
// write carrying a slot older than the stored one leaves the row
// untouched instead of upserting over it; an equal slot still updates it.
func (s *SignatureStore) AdvanceCursor(ctx context.Context, dex, pool, signature string, slot int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO last_signatures (dex, pool_address, signature, slot, last_updated)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (dex, pool_address)
		 DO UPDATE SET signature = EXCLUDED.signature, slot = EXCLUDED.slot, last_updated = NOW()
		 WHERE last_signatures.slot <= EXCLUDED.slot`,
		dex, pool, signature, slot,
	)
	if err != nil {
		return fmt.Errorf("advance cursor for %s/%s: %w", dex, pool, err)
	}
	return nil
}
