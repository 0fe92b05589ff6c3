package indexer

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orca-indexer/internal/decoder"
	"orca-indexer/internal/event"
	"orca-indexer/internal/storage"
	"orca-indexer/internal/storage/memory"
)

// fakeIndexer returns a fixed decode result regardless of the bundle it is
// given, letting contract tests exercise ProcessLogBundle without a real
// on-chain payload.
type fakeIndexer struct {
	repo   storage.EventRepository
	parsed []event.Parsed
	issues []decoder.Issue
	pools  map[string]bool
}

func (f *fakeIndexer) DexName() string            { return "orca" }
func (f *fakeIndexer) ProgramIDs() []string        { return []string{orcaProgramID} }
func (f *fakeIndexer) PoolFilter() map[string]bool { return f.pools }
func (f *fakeIndexer) DecodeLogs(LogBundle) ([]event.Parsed, []decoder.Issue) {
	return f.parsed, f.issues
}
func (f *fakeIndexer) HandleEvent(ctx context.Context, p event.Parsed) error {
	return HandleEventDefault(ctx, f.repo, p)
}

func tradedParsed(pool, signature string) event.Parsed {
	return event.Parsed{
		Base: event.Base{
			Signature: signature,
			Pool:      pool,
			Kind:      event.KindTraded,
			Version:   1,
			Timestamp: time.Now(),
		},
		Traded: &event.TradedDetail{
			AToB:          true,
			PreSqrtPrice:  "1000",
			PostSqrtPrice: "1001",
			InputAmount:   100,
			OutputAmount:  99,
		},
	}
}

func newTestBase(repo storage.EventRepository, sigs storage.SignatureStore) *Base {
	return &Base{
		Dex:        "orca",
		Repository: repo,
		Signatures: sigs,
		Logger:     log.New(log.Writer(), "", 0),
	}
}

func TestProcessLogBundle_AdvancesCursorOnSuccess(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	pool := "PoolAddr1"
	ix := &fakeIndexer{repo: repo, parsed: []event.Parsed{tradedParsed(pool, "sig1")}}
	base := newTestBase(repo, sigs)

	err := ProcessLogBundle(context.Background(), ix, base, LogBundle{Signature: "sig1"})
	require.NoError(t, err)

	cursor, err := sigs.GetCursor(context.Background(), "orca", pool)
	require.NoError(t, err)
	assert.Equal(t, "sig1", cursor.Signature)
	assert.Len(t, repo.Events(), 1)
}

func TestProcessLogBundle_DuplicateSignatureIsNotAnError(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	pool := "PoolAddr1"
	base := newTestBase(repo, sigs)
	ctx := context.Background()

	ix := &fakeIndexer{repo: repo, parsed: []event.Parsed{tradedParsed(pool, "sig1")}}
	require.NoError(t, ProcessLogBundle(ctx, ix, base, LogBundle{Signature: "sig1"}))
	require.NoError(t, ProcessLogBundle(ctx, ix, base, LogBundle{Signature: "sig1"}))

	assert.Len(t, repo.Events(), 1)
}

func TestProcessLogBundle_PoolFilterExcludesUnlistedPools(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	ix := &fakeIndexer{
		repo:   repo,
		parsed: []event.Parsed{tradedParsed("UnlistedPool", "sig1")},
		pools:  map[string]bool{"ListedPool": true},
	}
	base := newTestBase(repo, sigs)

	require.NoError(t, ProcessLogBundle(context.Background(), ix, base, LogBundle{Signature: "sig1"}))
	assert.Empty(t, repo.Events())
}

// alwaysFailingRepository simulates a repository that never recovers,
// exercising the retry-budget-then-Fatal path.
type alwaysFailingRepository struct {
	attempts int
}

func (r *alwaysFailingRepository) PutEvent(ctx context.Context, p event.Parsed) error {
	r.attempts++
	return fmt.Errorf("connection refused")
}

func (r *alwaysFailingRepository) PutEvents(ctx context.Context, batch []event.Parsed) (int, error) {
	return 0, fmt.Errorf("connection refused")
}

func TestProcessLogBundle_RetriesExhaustedIsRepositoryError(t *testing.T) {
	orig := repositoryRetryBaseDelay
	repositoryRetryBaseDelay = time.Millisecond
	defer func() { repositoryRetryBaseDelay = orig }()

	repo := &alwaysFailingRepository{}
	sigs := memory.NewSignatureStore()
	pool := "PoolAddr1"
	ix := &fakeIndexer{repo: repo, parsed: []event.Parsed{tradedParsed(pool, "sig1")}}
	base := newTestBase(repo, sigs)

	err := ProcessLogBundle(context.Background(), ix, base, LogBundle{Signature: "sig1"})
	require.Error(t, err)
	assert.True(t, EventRepositoryHealthCheck(err), "an exhausted-retry write should be classified Fatal")
	assert.Equal(t, repositoryMaxAttempts, repo.attempts)

	_, err = sigs.GetCursor(context.Background(), "orca", pool)
	assert.ErrorIs(t, err, storage.ErrNotFound, "the cursor must not advance when the write never persisted")
}

func TestProcessLogBundle_NoEventsIsANoOp(t *testing.T) {
	repo := memory.NewEventRepository()
	sigs := memory.NewSignatureStore()
	ix := &fakeIndexer{repo: repo, issues: []decoder.Issue{{Signature: "sig1", Reason: "malformed"}}}
	base := newTestBase(repo, sigs)

	require.NoError(t, ProcessLogBundle(context.Background(), ix, base, LogBundle{Signature: "sig1"}))
	assert.Empty(t, repo.Events())
}
