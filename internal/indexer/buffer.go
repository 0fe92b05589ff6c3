package indexer

import "sync"

// DefaultBufferCapacity bounds the live buffer accumulated while a pool is
// Backfilling. Past capacity, the oldest entry is evicted and its pool is
// marked for a secondary backfill pass rather than growing unboundedly.
const DefaultBufferCapacity = 10_000

type bufferKey struct {
	pool      string
	signature string
}

// Buffer holds log bundles arriving while backfill is still in progress,
// keyed by (pool, signature) so the drain step can skip anything backfill
// already persisted. It is single-writer (the live subscription) /
// single-reader (the drain task), per the concurrency model.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	order    []bufferKey // FIFO insertion order, oldest first
	entries  map[bufferKey]LogBundle
	overflow map[string]bool // pools that lost an entry to eviction
}

// NewBuffer constructs an empty Buffer bounded to capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{
		capacity: capacity,
		entries:  make(map[bufferKey]LogBundle),
		overflow: make(map[string]bool),
	}
}

// Push appends a bundle for pool. If the buffer is at capacity, the oldest
// entry is evicted and its pool recorded as needing a secondary backfill.
func (b *Buffer) Push(pool string, bundle LogBundle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := bufferKey{pool: pool, signature: bundle.Signature}
	if _, exists := b.entries[key]; exists {
		return
	}

	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.entries, oldest)
		b.overflow[oldest.pool] = true
	}

	b.order = append(b.order, key)
	b.entries[key] = bundle
}

// Drain removes and returns every buffered bundle in FIFO (chronological
// arrival) order, along with the set of pools that need a secondary
// backfill pass because an entry of theirs was evicted.
func (b *Buffer) Drain() ([]LogBundle, map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]LogBundle, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.entries[key])
	}

	needsRebackfill := b.overflow
	b.order = nil
	b.entries = make(map[bufferKey]LogBundle)
	b.overflow = make(map[string]bool)

	return out, needsRebackfill
}

// Len reports the current buffer occupancy.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
