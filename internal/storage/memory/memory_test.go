package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
)

func TestSignatureStore_AdvanceCursor_RegressionIsNoOp(t *testing.T) {
	s := NewSignatureStore()
	ctx := context.Background()

	require.NoError(t, s.AdvanceCursor(ctx, "orca", "pool1", "sig2", 200))
	require.NoError(t, s.AdvanceCursor(ctx, "orca", "pool1", "sig1", 100))

	cursor, err := s.GetCursor(ctx, "orca", "pool1")
	require.NoError(t, err)
	assert.Equal(t, "sig2", cursor.Signature, "an older-slot write must not regress the cursor")
	assert.Equal(t, int64(200), cursor.Slot)
}

func TestSignatureStore_AdvanceCursor_SameSlotStillAdvances(t *testing.T) {
	s := NewSignatureStore()
	ctx := context.Background()

	require.NoError(t, s.AdvanceCursor(ctx, "orca", "pool1", "sig1", 100))
	require.NoError(t, s.AdvanceCursor(ctx, "orca", "pool1", "sig2", 100))

	cursor, err := s.GetCursor(ctx, "orca", "pool1")
	require.NoError(t, err)
	assert.Equal(t, "sig2", cursor.Signature, "two signatures in the same slot must both persist in order")
}

func TestSignatureStore_GetCursor_NotFound(t *testing.T) {
	s := NewSignatureStore()
	_, err := s.GetCursor(context.Background(), "orca", "pool1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventRepository_PutEvents_SkipsDuplicatesWithinBatch(t *testing.T) {
	r := NewEventRepository()
	p := event.Parsed{
		Base: event.Base{
			Signature: "sig1",
			Pool:      "pool1",
			Kind:      event.KindTraded,
			Version:   1,
			Timestamp: time.Now(),
		},
		Traded: &event.TradedDetail{PreSqrtPrice: "1", PostSqrtPrice: "1"},
	}

	n, err := r.PutEvents(context.Background(), []event.Parsed{p, p})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, r.Events(), 1)
}
