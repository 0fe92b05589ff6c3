package indexer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"orca-indexer/internal/observability"
	"orca-indexer/internal/solana"
	"orca-indexer/internal/storage"
)

// State is one node of the coordinator's state machine.
type State string

const (
	StateCreated     State = "Created"
	StateBackfilling State = "Backfilling"
	StateDraining    State = "Draining"
	StateLive        State = "Live"
	StateStopped     State = "Stopped"
	StateFailed      State = "Failed"
)

var allStates = []string{
	string(StateCreated), string(StateBackfilling), string(StateDraining),
	string(StateLive), string(StateStopped), string(StateFailed),
}

// CoordinatorOptions configures one Coordinator run.
type CoordinatorOptions struct {
	BufferCapacity      int
	ScheduledRebackfill time.Duration // 0 disables periodic re-runs
}

// DefaultCoordinatorOptions returns a 10,000-entry live buffer and a
// 5-minute scheduled re-backfill to close subscription gaps.
func DefaultCoordinatorOptions() CoordinatorOptions {
	return CoordinatorOptions{BufferCapacity: DefaultBufferCapacity, ScheduledRebackfill: 5 * time.Minute}
}

// Coordinator drives one DEX indexer through Created → Backfilling →
// Draining → Live → Stopped/Failed.
type Coordinator struct {
	Indexer  Indexer
	Base     *Base
	Backfill *BackfillManager
	WS       solana.WSClient
	Logger   *log.Logger
	Options  CoordinatorOptions

	buffer  *Buffer
	stateMu sync.Mutex
	state   State
	fatal   chan error
}

// NewCoordinator constructs a Coordinator in the Created state.
func NewCoordinator(ix Indexer, base *Base, backfill *BackfillManager, ws solana.WSClient, logger *log.Logger, opts CoordinatorOptions) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		Indexer:  ix,
		Base:     base,
		Backfill: backfill,
		WS:       ws,
		Logger:   logger,
		Options:  opts,
		buffer:   NewBuffer(opts.BufferCapacity),
		state:    StateCreated,
		fatal:    make(chan error, 1),
	}
}

// State reports the coordinator's current state. Safe to call concurrently
// with Run, which drives the state machine from its own goroutine while
// bufferLiveNotifications reads it from another.
func (c *Coordinator) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Coordinator) setState(pool string, s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	observability.SetCoordinatorState(c.Base.Dex, pool, string(s), allStates)
}

// Run executes the full startup sequence for the given pools and blocks
// until ctx is cancelled (graceful shutdown, Stopped) or a fatal condition
// occurs (Failed, non-nil return).
func (c *Coordinator) Run(ctx context.Context, pools []string) error {
	notifications, err := c.openSubscription(ctx)
	if err != nil {
		c.setState("", StateFailed)
		return fmt.Errorf("open subscription: %w", err)
	}
	defer c.WS.Close()

	c.setState("", StateBackfilling)

	go c.bufferLiveNotifications(ctx, notifications, pools)

	if err := c.runBackfill(ctx, pools); err != nil {
		c.setState("", StateFailed)
		return fmt.Errorf("backfill: %w", err)
	}

	c.setState("", StateDraining)
	if err := c.drainBuffer(ctx); err != nil {
		c.setState("", StateFailed)
		return fmt.Errorf("drain buffer: %w", err)
	}

	c.setState("", StateLive)
	c.runScheduledRebackfill(ctx, pools)

	select {
	case <-ctx.Done():
		c.setState("", StateStopped)
		return nil
	case err := <-c.fatal:
		c.setState("", StateFailed)
		return fmt.Errorf("repository unavailable beyond its retry budget: %w", err)
	}
}

func (c *Coordinator) openSubscription(ctx context.Context) (<-chan solana.LogNotification, error) {
	return c.WS.SubscribeLogs(ctx, solana.LogsFilter{Mentions: c.Indexer.ProgramIDs()})
}

// bufferLiveNotifications routes every notification that arrives while
// Backfilling or Draining into the bounded buffer; once Live, bundles are
// processed directly instead of buffered. Decoding happens here too (it is
// CPU-bound, not a suspension point, and idempotent to repeat at drain
// time) purely to learn which pool(s) the bundle belongs to for buffer
// keying; ProcessLogBundle decodes again when the bundle is actually
// dispatched.
func (c *Coordinator) bufferLiveNotifications(ctx context.Context, notifications <-chan solana.LogNotification, pools []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n.Err != nil {
				continue // failed transactions are discarded
			}
			bundle := LogBundle{Signature: n.Signature, Slot: n.Slot, Logs: n.Logs, Timestamp: time.Now()}

			if c.State() == StateLive {
				if err := ProcessLogBundle(ctx, c.Indexer, c.Base, bundle); err != nil {
					c.Logger.Printf("kind=RepositoryError signature=%s err=%v", bundle.Signature, err)
					if EventRepositoryHealthCheck(err) {
						select {
						case c.fatal <- err:
						default:
						}
					}
				}
				continue
			}

			parsed, _ := c.Indexer.DecodeLogs(bundle)
			if len(parsed) == 0 {
				continue
			}
			seen := make(map[string]bool)
			for _, p := range parsed {
				if seen[p.Base.Pool] {
					continue
				}
				seen[p.Base.Pool] = true
				c.buffer.Push(p.Base.Pool, bundle)
				observability.SetBufferOccupancy(c.Base.Dex, p.Base.Pool, c.buffer.Len())
			}
		}
	}
}

func (c *Coordinator) runBackfill(ctx context.Context, pools []string) error {
	for _, pool := range pools {
		if err := c.Backfill.Run(ctx, c.Indexer, c.Base, pool); err != nil {
			return fmt.Errorf("backfill pool %s: %w", pool, err)
		}
	}
	return nil
}

func (c *Coordinator) drainBuffer(ctx context.Context) error {
	bundles, needsRebackfill := c.buffer.Drain()
	for _, b := range bundles {
		if err := ProcessLogBundle(ctx, c.Indexer, c.Base, b); err != nil {
			c.Logger.Printf("kind=RepositoryError pool=%s signature=%s err=%v", c.Base.Dex, b.Signature, err)
			if EventRepositoryHealthCheck(err) {
				return err
			}
		}
	}
	for pool := range needsRebackfill {
		observability.RecordBufferOverflow(c.Base.Dex, pool)
		c.Logger.Printf("kind=BufferOverflow pool=%s msg=%q", pool, "buffer evicted entries, scheduling secondary backfill")
		if err := c.Backfill.Run(ctx, c.Indexer, c.Base, pool); err != nil {
			return fmt.Errorf("secondary backfill for %s: %w", pool, err)
		}
	}
	return nil
}

func (c *Coordinator) runScheduledRebackfill(ctx context.Context, pools []string) {
	if c.Options.ScheduledRebackfill <= 0 {
		return
	}
	ticker := time.NewTicker(c.Options.ScheduledRebackfill)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, pool := range pools {
					if err := c.Backfill.Run(ctx, c.Indexer, c.Base, pool); err != nil {
						c.Logger.Printf("kind=TransientRpc pool=%s msg=%q err=%v", pool, "scheduled rebackfill failed", err)
					}
				}
			}
		}
	}()
}

// EventRepositoryHealthCheck reports whether err reflects the Fatal
// condition: a repository repeatedly unavailable beyond its own retry
// budget. Coordinator.Run surfaces such an error as a non-nil return,
// which the caller maps to State Failed and a non-zero exit.
func EventRepositoryHealthCheck(err error) bool {
	return err != nil && err != storage.ErrDuplicateKey
}
