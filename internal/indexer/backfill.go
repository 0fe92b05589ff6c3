package indexer

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"orca-indexer/internal/observability"
	"orca-indexer/internal/solana"
	"orca-indexer/internal/storage"
)

// BackfillOptions configures one pool's backfill pass.
type BackfillOptions struct {
	PageSize         int // default 100
	MaxPages         int // 0 = unbounded
	FetchConcurrency int // default 10
}

// DefaultBackfillOptions returns the default backfill tuning.
func DefaultBackfillOptions() BackfillOptions {
	return BackfillOptions{PageSize: 100, MaxPages: 0, FetchConcurrency: 10}
}

// BackfillManager walks historical signatures for a pool, fetches the
// corresponding transactions with bounded concurrency, and feeds them
// through the same ProcessLogBundle path the live subscription uses.
type BackfillManager struct {
	RPC        solana.RPCClient
	Signatures storage.SignatureStore
	Logger     *log.Logger
	Options    BackfillOptions
}

// NewBackfillManager constructs a BackfillManager with default options.
func NewBackfillManager(rpc solana.RPCClient, sigs storage.SignatureStore, logger *log.Logger) *BackfillManager {
	if logger == nil {
		logger = log.Default()
	}
	return &BackfillManager{RPC: rpc, Signatures: sigs, Logger: logger, Options: DefaultBackfillOptions()}
}

// Run reads the cursor, pages backwards through signature history until
// the cursor (or the page limit) is reached, fetches each transaction
// with bounded concurrency, feeds it through ix via ProcessLogBundle, and
// advances the cursor across the longest contiguous prefix of signatures
// that persisted cleanly.
func (m *BackfillManager) Run(ctx context.Context, ix Indexer, base *Base, pool string) error {
	lastSeen := ""
	cursor, err := m.Signatures.GetCursor(ctx, base.Dex, pool)
	if err == nil {
		lastSeen = cursor.Signature
	} else if err != storage.ErrNotFound {
		return fmt.Errorf("read cursor for %s: %w", pool, err)
	}

	sigInfos, err := m.fetchSignaturePage(ctx, pool, lastSeen)
	if err != nil {
		return err
	}
	if len(sigInfos) == 0 {
		return nil
	}

	// sigInfos arrives newest-first; reverse to chronological order
	// before fetching and persisting.
	for i, j := 0, len(sigInfos)-1; i < j; i, j = i+1, j-1 {
		sigInfos[i], sigInfos[j] = sigInfos[j], sigInfos[i]
	}

	bundles := make([]*LogBundle, len(sigInfos))
	concurrency := m.Options.FetchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBackfillOptions().FetchConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for idx, info := range sigInfos {
		idx, info := idx, info
		g.Go(func() error {
			observability.DefaultMetrics.BackfillInFlight.Inc()
			defer observability.DefaultMetrics.BackfillInFlight.Dec()

			tx, err := m.RPC.GetTransaction(gctx, info.Signature)
			if err != nil {
				// A permanent failure on one signature does not fail the
				// group: it is skipped, and the cursor simply will not
				// advance past it.
				m.Logger.Printf("kind=TransientRpc pool=%s signature=%s err=%v", pool, info.Signature, err)
				return nil
			}
			bundle := logBundleFromTransaction(info.Signature, tx)
			bundles[idx] = &bundle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch transactions for %s: %w", pool, err)
	}

	observability.RecordBackfillPage(base.Dex, pool)

	return m.persistContiguousPrefix(ctx, ix, base, pool, bundles)
}

func (m *BackfillManager) fetchSignaturePage(ctx context.Context, pool, until string) ([]solana.SignatureInfo, error) {
	pageSize := m.Options.PageSize
	if pageSize <= 0 {
		pageSize = DefaultBackfillOptions().PageSize
	}

	var all []solana.SignatureInfo
	before := ""
	pages := 0
	for {
		opts := &solana.SignaturesOpts{Before: before, Until: until, Limit: pageSize}
		page, err := m.RPC.GetSignaturesForAddress(ctx, pool, opts)
		if err != nil {
			return nil, fmt.Errorf("get signatures for %s: %w", pool, err)
		}
		all = append(all, page...)
		pages++

		if len(page) < pageSize {
			break
		}
		if m.Options.MaxPages > 0 && pages >= m.Options.MaxPages {
			break
		}
		before = page[len(page)-1].Signature
	}
	return all, nil
}

// persistContiguousPrefix feeds each fetched bundle through
// ProcessLogBundle in order and advances the cursor only across the
// leading run of signatures that persisted without error — a gap anywhere
// in the middle stops cursor advancement at that point.
func (m *BackfillManager) persistContiguousPrefix(ctx context.Context, ix Indexer, base *Base, pool string, bundles []*LogBundle) error {
	for _, b := range bundles {
		if b == nil {
			// A fetch failure breaks the contiguous prefix here.
			return nil
		}
		if err := ProcessLogBundle(ctx, ix, base, *b); err != nil {
			m.Logger.Printf("kind=RepositoryError pool=%s signature=%s err=%v", pool, b.Signature, err)
			if EventRepositoryHealthCheck(err) {
				return err
			}
			return nil
		}
	}
	return nil
}
