package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
	storagepg "orca-indexer/internal/storage/postgres"
)

func tradedEvent(signature, pool string) event.Parsed {
	return event.Parsed{
		Base: event.Base{
			Signature: signature,
			Pool:      pool,
			Kind:      event.KindTraded,
			Version:   1,
			Timestamp: time.Now().UTC(),
		},
		Traded: &event.TradedDetail{
			AToB:          true,
			PreSqrtPrice:  "1234567890123456789012345678901234",
			PostSqrtPrice: "1234567890123456789012345678901235",
			InputAmount:   1_000_000,
			OutputAmount:  990_000,
			LPFee:         300,
			ProtocolFee:   30,
		},
	}
}

func TestEventRepository_PutEvent_RejectsDuplicateSignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := storagepg.NewEventRepository(pool)
	ctx := context.Background()

	ev := tradedEvent("sig-dup", "pool1")
	require.NoError(t, repo.PutEvent(ctx, ev))

	err := repo.PutEvent(ctx, ev)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEventRepository_PutEvents_SkipsDuplicatesWithinBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := storagepg.NewEventRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.PutEvent(ctx, tradedEvent("sig-existing", "pool1")))

	batch := []event.Parsed{
		tradedEvent("sig-existing", "pool1"), // already stored
		tradedEvent("sig-new-1", "pool1"),
		tradedEvent("sig-new-2", "pool1"),
	}

	inserted, err := repo.PutEvents(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestEventRepository_PutEvents_LiquidityDetail(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := storagepg.NewEventRepository(pool)
	ctx := context.Background()

	ev := event.Parsed{
		Base: event.Base{
			Signature: "sig-liquidity",
			Pool:      "pool1",
			Kind:      event.KindLiquidityIncreased,
			Version:   1,
			Timestamp: time.Now().UTC(),
		},
		Liquidity: &event.LiquidityDetail{
			Position:       "position1",
			TickLowerIndex: -1000,
			TickUpperIndex: 1000,
			Liquidity:      "340282366920938463463374607431768211455",
			TokenAAmount:   500,
			TokenBAmount:   600,
		},
	}

	inserted, err := repo.PutEvents(ctx, []event.Parsed{ev})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}
