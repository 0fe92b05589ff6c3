package indexer

import (
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orca-indexer/internal/solana"
	"orca-indexer/internal/solana/stub"
	"orca-indexer/internal/storage/memory"
)

func newTestCoordinator(t *testing.T, pool string) (*Coordinator, *memory.EventRepository, *memory.SignatureStore, *stub.RPCClient) {
	t.Helper()
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	rpc := stub.NewRPCClient()
	ws := stub.NewWSClient()
	ix := newEchoHandlerIndexer(pool, repo)
	base := newTestBase(repo, sigs)
	backfill := NewBackfillManager(rpc, sigs, log.New(log.Writer(), "", 0))
	opts := CoordinatorOptions{BufferCapacity: 10, ScheduledRebackfill: 0}
	c := NewCoordinator(ix, base, backfill, ws, log.New(log.Writer(), "", 0), opts)
	return c, repo, sigs, rpc
}

func TestCoordinator_Run_ReachesLiveThenStops(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t, "PoolA")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already-cancelled: Run executes its synchronous setup, then
	// observes ctx.Done() immediately instead of blocking forever.

	err := c.Run(ctx, []string{"PoolA"})
	require.NoError(t, err)
	assert.Equal(t, StateStopped, c.State())
}

func TestCoordinator_BufferLiveNotifications_BuffersWhileNotLive(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t, "PoolA")
	c.state = StateBackfilling

	notifications := make(chan solana.LogNotification, 1)
	notifications <- solana.LogNotification{Signature: "sig1"}
	close(notifications)

	c.bufferLiveNotifications(context.Background(), notifications, []string{"PoolA"})

	assert.Equal(t, 1, c.buffer.Len())
}

func TestCoordinator_BufferLiveNotifications_DiscardsErroredNotifications(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t, "PoolA")
	c.state = StateBackfilling

	notifications := make(chan solana.LogNotification, 1)
	notifications <- solana.LogNotification{Signature: "sig1", Err: "rpc error"}
	close(notifications)

	c.bufferLiveNotifications(context.Background(), notifications, []string{"PoolA"})

	assert.Equal(t, 0, c.buffer.Len())
}

func TestCoordinator_BufferLiveNotifications_ProcessesDirectlyWhenLive(t *testing.T) {
	c, repo, sigs, _ := newTestCoordinator(t, "PoolA")
	c.state = StateLive

	notifications := make(chan solana.LogNotification, 1)
	notifications <- solana.LogNotification{Signature: "sig1"}
	close(notifications)

	c.bufferLiveNotifications(context.Background(), notifications, []string{"PoolA"})

	assert.Equal(t, 0, c.buffer.Len())
	assert.Len(t, repo.Events(), 1)
	cursor, err := sigs.GetCursor(context.Background(), "orca", "PoolA")
	require.NoError(t, err)
	assert.Equal(t, "sig1", cursor.Signature)
}

func TestCoordinator_DrainBuffer_RunsSecondaryBackfillOnOverflow(t *testing.T) {
	c, repo, _, rpc := newTestCoordinator(t, "PoolA")
	c.buffer = NewBuffer(1)
	c.buffer.Push("PoolA", LogBundle{Signature: "sig1"})
	c.buffer.Push("PoolA", LogBundle{Signature: "sig2"}) // evicts sig1, marks PoolA for rebackfill

	rpc.AddSignatures("PoolA", nil) // secondary backfill finds nothing further

	require.NoError(t, c.drainBuffer(context.Background()))
	assert.Len(t, repo.Events(), 1, "only the surviving buffered entry should have been processed")
}
