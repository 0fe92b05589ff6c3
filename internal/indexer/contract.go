// Package indexer implements the per-DEX indexer contract (L4), the
// bounded live buffer and state machine it shares with the coordinator
// (L7), and the backfill manager (L5) that walks historical signatures.
package indexer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"orca-indexer/internal/decoder"
	"orca-indexer/internal/event"
	"orca-indexer/internal/observability"
	"orca-indexer/internal/solana"
	"orca-indexer/internal/storage"
)

// LogBundle is the ordered sequence of log lines emitted by one
// transaction, whichever source produced it — the live subscription or a
// fetched historical transaction.
type LogBundle struct {
	Signature string
	Slot      int64
	Logs      []string
	Timestamp time.Time
}

// Indexer is the capability set a DEX implementation exposes. Shared
// default behaviors (ProcessLogBundle below) are built on top of it; the
// coordinator dispatches through this interface rather than a concrete
// type, so adding a second DEX never touches the coordinator.
type Indexer interface {
	DexName() string
	ProgramIDs() []string
	PoolFilter() map[string]bool
	DecodeLogs(bundle LogBundle) ([]event.Parsed, []decoder.Issue)
	HandleEvent(ctx context.Context, p event.Parsed) error
}

// Base wires the repository and signature store shared by every DEX
// implementation's ProcessLogBundle. DEX-specific indexers embed Base and
// supply the Indexer methods above it.
type Base struct {
	Dex        string
	Repository storage.EventRepository
	Signatures storage.SignatureStore
	Logger     *log.Logger
}

// ProcessLogBundle is the shared default: decode, persist each event, then
// advance the cursor once per distinct signature, but only after every
// event carried by that signature has been durably persisted. A
// DuplicateSignature result is treated as success per the repository's
// idempotency contract.
func ProcessLogBundle(ctx context.Context, ix Indexer, base *Base, bundle LogBundle) error {
	parsed, issues := ix.DecodeLogs(bundle)
	for _, issue := range issues {
		base.Logger.Printf("kind=DecodeMismatch pool=%s signature=%s reason=%q",
			ix.DexName(), issue.Signature, issue.Reason)
		observability.RecordDecodeIssue(classifyDecodeIssue(issue.Reason))
	}

	if len(parsed) == 0 {
		return nil
	}

	pools := ix.PoolFilter()
	okPools := make(map[string]bool)
	failedPools := make(map[string]bool)
	var handleErr error

	for _, p := range parsed {
		observability.RecordDecoded(string(p.Base.Kind))

		if len(pools) > 0 && !pools[p.Base.Pool] {
			continue
		}

		if err := ix.HandleEvent(ctx, p); err != nil {
			failedPools[p.Base.Pool] = true
			if handleErr == nil {
				handleErr = err
			}
			base.Logger.Printf("kind=RepositoryError pool=%s signature=%s err=%v",
				p.Base.Pool, p.Base.Signature, err)
			continue
		}
		okPools[p.Base.Pool] = true
	}

	// A single transaction's bundle can carry events for more than one
	// pool; each pool's cursor only advances once every event it
	// contributed from this signature has persisted.
	var firstErr error
	for pool := range okPools {
		if failedPools[pool] {
			if firstErr == nil {
				firstErr = fmt.Errorf("not all events for signature %s/%s persisted", pool, bundle.Signature)
			}
			continue
		}
		if err := base.Signatures.AdvanceCursor(ctx, base.Dex, pool, bundle.Signature, bundle.Slot); err != nil {
			return fmt.Errorf("advance cursor for %s after signature %s: %w", pool, bundle.Signature, err)
		}
		observability.RecordCursorAdvance(base.Dex, pool)
	}
	if firstErr == nil && handleErr != nil {
		firstErr = fmt.Errorf("events for signature %s did not persist: %w", bundle.Signature, handleErr)
	}
	return firstErr
}

// classifyDecodeIssue maps a free-form Issue.Reason to a small, stable
// metric label so the DecodeMismatch/SchemaDrift counters don't fragment
// into one series per signature or byte count.
func classifyDecodeIssue(reason string) string {
	switch {
	case strings.Contains(reason, "malformed base64"):
		return "malformed_base64"
	case strings.Contains(reason, "too short"):
		return "payload_too_short"
	case strings.Contains(reason, "unknown discriminator"):
		return "unknown_discriminator"
	case strings.Contains(reason, "exceeds int64 range"):
		return "amount_overflow"
	default:
		return "decode_error"
	}
}

// repositoryMaxAttempts and repositoryRetryBaseDelay bound how long a
// single event's write is retried before ProcessLogBundle's caller sees a
// RepositoryError, mirroring the exponential backoff shape used for RPC
// transaction fetches. Both are vars, not consts, so tests can shrink the
// delay instead of waiting out a real backoff.
var (
	repositoryMaxAttempts    = 3
	repositoryRetryBaseDelay = 500 * time.Millisecond
)

// retryPutEvent writes p through repo with bounded exponential backoff. A
// duplicate signature is success on the first attempt, never retried.
func retryPutEvent(ctx context.Context, repo storage.EventRepository, p event.Parsed) error {
	var err error
	for attempt := 0; attempt < repositoryMaxAttempts; attempt++ {
		err = repo.PutEvent(ctx, p)
		if err == nil || err == storage.ErrDuplicateKey {
			return err
		}
		if attempt == repositoryMaxAttempts-1 {
			break
		}
		delay := repositoryRetryBaseDelay * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// HandleEventDefault writes a decoded event through the repository with a
// bounded retry budget, treating a duplicate signature as success per the
// DuplicateSignature error kind: the repository already holds an
// equivalent row, so the caller's obligation is discharged. An error
// surfacing past the retry budget is a RepositoryError; EventRepositoryHealthCheck
// classifies it as the Fatal condition for the coordinator to escalate on.
func HandleEventDefault(ctx context.Context, repo storage.EventRepository, p event.Parsed) error {
	err := retryPutEvent(ctx, repo, p)
	if err == storage.ErrDuplicateKey {
		observability.RecordDuplicateSkipped()
		return nil
	}
	if err != nil {
		return err
	}
	observability.RecordStored(string(p.Base.Kind))
	return nil
}

// logBundleFromTransaction synthesizes a LogBundle equivalent to what the
// live subscription would have delivered, for use by the backfill manager
// feeding fetched transactions through the same ProcessLogBundle path.
func logBundleFromTransaction(sig string, tx *solana.Transaction) LogBundle {
	var logs []string
	var slot int64
	ts := time.Now()
	if tx != nil {
		slot = tx.Slot
		if tx.BlockTime > 0 {
			ts = time.Unix(tx.BlockTime, 0)
		}
		if tx.Meta != nil {
			logs = tx.Meta.LogMessages
		}
	}
	return LogBundle{Signature: sig, Slot: slot, Logs: logs, Timestamp: ts}
}
