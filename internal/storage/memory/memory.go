// Package memory provides in-process implementations of the storage
// interfaces, used by component tests that do not need a real database.
package memory

import (
	"context"
	"sync"

	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
)

// SignatureStore is an in-memory storage.SignatureStore.
type SignatureStore struct {
	mu      sync.RWMutex
	cursors map[string]event.SignatureCursor
}

// NewSignatureStore constructs an empty SignatureStore.
func NewSignatureStore() *SignatureStore {
	return &SignatureStore{cursors: make(map[string]event.SignatureCursor)}
}

func (s *SignatureStore) GetCursor(ctx context.Context, dex, pool string) (event.SignatureCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cursors[key(dex, pool)]
	if !ok {
		return event.SignatureCursor{}, storage.ErrNotFound
	}
	return c, nil
}

// AdvanceCursor no-ops on a write whose slot is older than the stored
// cursor's, mirroring the Postgres implementation's regression guard.
func (s *SignatureStore) AdvanceCursor(ctx context.Context, dex, pool, signature string, slot int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(dex, pool)
	if existing, ok := s.cursors[k]; ok && slot < existing.Slot {
		return nil
	}
	s.cursors[k] = event.SignatureCursor{
		PoolAddress: pool,
		Dex:         dex,
		Signature:   signature,
		Slot:        slot,
	}
	return nil
}

func key(dex, pool string) string { return dex + "/" + pool }

// EventRepository is an in-memory storage.EventRepository, keyed on
// signature to enforce the same at-most-once contract as the Postgres
// implementation.
type EventRepository struct {
	mu     sync.Mutex
	nextID int64
	bySig  map[string]event.Parsed
}

// NewEventRepository constructs an empty EventRepository.
func NewEventRepository() *EventRepository {
	return &EventRepository{bySig: make(map[string]event.Parsed)}
}

func (r *EventRepository) PutEvent(ctx context.Context, p event.Parsed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(p)
}

func (r *EventRepository) putLocked(p event.Parsed) error {
	if _, exists := r.bySig[p.Base.Signature]; exists {
		return storage.ErrDuplicateKey
	}
	r.nextID++
	p.Base.ID = r.nextID
	r.bySig[p.Base.Signature] = p
	return nil
}

func (r *EventRepository) PutEvents(ctx context.Context, batch []event.Parsed) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, p := range batch {
		if err := r.putLocked(p); err != nil {
			if err == storage.ErrDuplicateKey {
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// Events returns every stored event, for test assertions.
func (r *EventRepository) Events() []event.Parsed {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Parsed, 0, len(r.bySig))
	for _, p := range r.bySig {
		out = append(out, p)
	}
	return out
}

// PoolStore is an in-memory storage.PoolStore, preloaded by tests via Put.
type PoolStore struct {
	mu    sync.RWMutex
	pools map[string]event.Pool
}

// NewPoolStore constructs an empty PoolStore.
func NewPoolStore() *PoolStore {
	return &PoolStore{pools: make(map[string]event.Pool)}
}

// Put registers a pool for lookup. Test-only setup helper.
func (s *PoolStore) Put(p event.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Address] = p
}

func (s *PoolStore) GetPool(ctx context.Context, address string) (event.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[address]
	if !ok {
		return event.Pool{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *PoolStore) ListPools(ctx context.Context, dex string) ([]event.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []event.Pool
	for _, p := range s.pools {
		if p.Dex == dex {
			out = append(out, p)
		}
	}
	return out, nil
}

// TokenMetadataStore is an in-memory storage.TokenMetadataStore.
type TokenMetadataStore struct {
	mu       sync.RWMutex
	metadata map[string]event.TokenMetadata
}

// NewTokenMetadataStore constructs an empty TokenMetadataStore.
func NewTokenMetadataStore() *TokenMetadataStore {
	return &TokenMetadataStore{metadata: make(map[string]event.TokenMetadata)}
}

// Put registers token metadata for lookup. Test-only setup helper.
func (s *TokenMetadataStore) Put(m event.TokenMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[m.Mint] = m
}

func (s *TokenMetadataStore) GetTokenMetadata(ctx context.Context, mint string) (event.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[mint]
	if !ok {
		return event.TokenMetadata{}, storage.ErrNotFound
	}
	return m, nil
}
