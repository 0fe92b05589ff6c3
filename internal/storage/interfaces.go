// Package storage defines the repository interfaces the indexer writes
// through. Concrete implementations live in the postgres and memory
// subpackages.
package storage

import (
	"context"

	"orca-indexer/internal/event"
)

// SignatureStore tracks, per (dex, pool), the most recently persisted
// signature. Both backfill and the live buffer drain use it to resume work
// without reprocessing the same transaction twice.
type SignatureStore interface {
	// GetCursor returns the stored cursor for pool, or ErrNotFound if the
	// pool has never been advanced.
	GetCursor(ctx context.Context, dex, pool string) (event.SignatureCursor, error)

	// AdvanceCursor upserts the cursor for (dex, pool), keyed on (dex,
	// pool) in a single statement, never a read-modify-write, so
	// concurrent advances from different pools never contend. A write
	// whose slot is older than the stored cursor's is a no-op (a write
	// with the same slot still replaces the signature): the
	// live subscription and a backfill pass can both advance the same
	// pool concurrently, and the older of the two must not regress it.
	AdvanceCursor(ctx context.Context, dex, pool, signature string, slot int64) error
}

// EventRepository persists decoded events. Signature is the at-most-once
// key: inserting an event whose signature already exists returns
// ErrDuplicateKey and leaves the existing row untouched.
type EventRepository interface {
	// PutEvent writes a single parsed event.
	PutEvent(ctx context.Context, p event.Parsed) error

	// PutEvents writes a batch. Duplicates within the batch are skipped
	// individually; PutEvents only returns an error for a genuine write
	// failure, never for a duplicate. The int returned is the number of
	// rows actually inserted (excluding skipped duplicates).
	PutEvents(ctx context.Context, batch []event.Parsed) (inserted int, err error)
}

// PoolStore is a read-only lookup over externally populated pool metadata.
type PoolStore interface {
	GetPool(ctx context.Context, address string) (event.Pool, error)
	ListPools(ctx context.Context, dex string) ([]event.Pool, error)
}

// TokenMetadataStore is a read-only lookup over externally populated token
// metadata, used to enrich events for display rather than to decode them.
type TokenMetadataStore interface {
	GetTokenMetadata(ctx context.Context, mint string) (event.TokenMetadata, error)
}
