package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"orca-indexer/internal/event"
	"orca-indexer/internal/observability"
	"orca-indexer/internal/storage"
)

// EventRepository is the Postgres-backed implementation of
// storage.EventRepository, writing one orca_whirlpool_events row per event
// plus a detail row in the table selected by event.Kind.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) PutEvent(ctx context.Context, p event.Parsed) error {
	start := time.Now()
	err := r.putEvent(ctx, p)
	observability.RecordDBQuery("put_event", time.Since(start).Seconds(), metricsErr(err))
	return err
}

func (r *EventRepository) putEvent(ctx context.Context, p event.Parsed) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEvent(ctx, tx, p); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// metricsErr suppresses ErrDuplicateKey for RecordDBQuery's error-rate
// counter: a duplicate signature is the repository's idempotency contract
// working as intended, not a query failure.
func metricsErr(err error) error {
	if err == storage.ErrDuplicateKey {
		return nil
	}
	return err
}

// PutEvents writes a batch via pgx's pipelined batch API. Base rows are
// sent as one batch so Postgres pipelines them over a single round trip;
// a base row whose signature already exists is skipped by ON CONFLICT DO
// NOTHING (it returns no id), and only the events that actually inserted
// get a second batch of detail rows. Each batch runs as one implicit
// transaction, so any other failure aborts the whole batch it occurs in.
// Unlike PutEvent, the base and detail rows are written by two separate
// batches, not by one transaction.
func (r *EventRepository) PutEvents(ctx context.Context, batch []event.Parsed) (int, error) {
	start := time.Now()
	n, err := r.putEvents(ctx, batch)
	observability.RecordDBQuery("put_events", time.Since(start).Seconds(), err)
	return n, err
}

func (r *EventRepository) putEvents(ctx context.Context, batch []event.Parsed) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	baseBatch := &pgx.Batch{}
	for _, p := range batch {
		baseBatch.Queue(
			`INSERT INTO orca_whirlpool_events (signature, whirlpool, event_type, version, timestamp)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (signature) DO NOTHING
			 RETURNING id`,
			p.Base.Signature, p.Base.Pool, string(p.Base.Kind), p.Base.Version, p.Base.Timestamp,
		)
	}

	baseResults := r.pool.SendBatch(ctx, baseBatch)
	defer baseResults.Close()

	type inserted struct {
		id int64
		p  event.Parsed
	}
	var toDetail []inserted

	for _, p := range batch {
		var id int64
		err := baseResults.QueryRow().Scan(&id)
		switch {
		case err == nil:
			toDetail = append(toDetail, inserted{id: id, p: p})
		case isNotFoundError(err), isDuplicateKeyError(err):
			continue
		default:
			return len(toDetail), fmt.Errorf("insert event base %s: %w", p.Base.Signature, err)
		}
	}
	if err := baseResults.Close(); err != nil {
		return len(toDetail), fmt.Errorf("close base batch: %w", err)
	}

	if len(toDetail) == 0 {
		return 0, nil
	}

	detailBatch := &pgx.Batch{}
	for _, ins := range toDetail {
		if err := queueDetail(detailBatch, ins.id, ins.p); err != nil {
			return len(toDetail), err
		}
	}

	detailResults := r.pool.SendBatch(ctx, detailBatch)
	defer detailResults.Close()
	for range toDetail {
		if _, err := detailResults.Exec(); err != nil {
			return len(toDetail), fmt.Errorf("insert event detail: %w", err)
		}
	}
	if err := detailResults.Close(); err != nil {
		return len(toDetail), fmt.Errorf("close detail batch: %w", err)
	}

	return len(toDetail), nil
}

func queueDetail(b *pgx.Batch, eventID int64, p event.Parsed) error {
	switch p.Base.Kind {
	case event.KindTraded:
		d := p.Traded
		if d == nil {
			return fmt.Errorf("traded event %s missing detail payload", p.Base.Signature)
		}
		b.Queue(
			`INSERT INTO orca_whirlpool_traded
			 (event_id, a_to_b, pre_sqrt_price, post_sqrt_price, input_amount,
			  output_amount, input_transfer_fee, output_transfer_fee, lp_fee, protocol_fee)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			eventID, d.AToB, d.PreSqrtPrice, d.PostSqrtPrice, d.InputAmount,
			d.OutputAmount, d.InputTransferFee, d.OutputTransferFee, d.LPFee, d.ProtocolFee,
		)
	case event.KindLiquidityIncreased, event.KindLiquidityDecreased:
		d := p.Liquidity
		if d == nil {
			return fmt.Errorf("liquidity event %s missing detail payload", p.Base.Signature)
		}
		table := "orca_whirlpool_liquidity_increased"
		if p.Base.Kind == event.KindLiquidityDecreased {
			table = "orca_whirlpool_liquidity_decreased"
		}
		b.Queue(
			fmt.Sprintf(
				`INSERT INTO %s
				 (event_id, position, tick_lower_index, tick_upper_index, liquidity,
				  token_a_amount, token_b_amount, token_a_transfer_fee, token_b_transfer_fee)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table),
			eventID, d.Position, d.TickLowerIndex, d.TickUpperIndex, d.Liquidity,
			d.TokenAAmount, d.TokenBAmount, d.TokenATransferFee, d.TokenBTransferFee,
		)
	default:
		return fmt.Errorf("unknown event kind %q", p.Base.Kind)
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, p event.Parsed) error {
	var eventID int64
	row := tx.QueryRow(ctx,
		`INSERT INTO orca_whirlpool_events (signature, whirlpool, event_type, version, timestamp)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.Base.Signature, p.Base.Pool, string(p.Base.Kind), p.Base.Version, p.Base.Timestamp,
	)
	if err := row.Scan(&eventID); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event base: %w", err)
	}

	switch p.Base.Kind {
	case event.KindTraded:
		return insertTraded(ctx, tx, eventID, p.Traded)
	case event.KindLiquidityIncreased:
		return insertLiquidity(ctx, tx, "orca_whirlpool_liquidity_increased", eventID, p.Liquidity)
	case event.KindLiquidityDecreased:
		return insertLiquidity(ctx, tx, "orca_whirlpool_liquidity_decreased", eventID, p.Liquidity)
	default:
		return fmt.Errorf("unknown event kind %q", p.Base.Kind)
	}
}

func insertTraded(ctx context.Context, tx pgx.Tx, eventID int64, d *event.TradedDetail) error {
	if d == nil {
		return fmt.Errorf("traded event missing detail payload")
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO orca_whirlpool_traded
		 (event_id, a_to_b, pre_sqrt_price, post_sqrt_price, input_amount,
		  output_amount, input_transfer_fee, output_transfer_fee, lp_fee, protocol_fee)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		eventID, d.AToB, d.PreSqrtPrice, d.PostSqrtPrice, d.InputAmount,
		d.OutputAmount, d.InputTransferFee, d.OutputTransferFee, d.LPFee, d.ProtocolFee,
	)
	if err != nil {
		return fmt.Errorf("insert traded detail: %w", err)
	}
	return nil
}

func insertLiquidity(ctx context.Context, tx pgx.Tx, table string, eventID int64, d *event.LiquidityDetail) error {
	if d == nil {
		return fmt.Errorf("liquidity event missing detail payload")
	}
	_, err := tx.Exec(ctx,
		fmt.Sprintf(
			`INSERT INTO %s
			 (event_id, position, tick_lower_index, tick_upper_index, liquidity,
			  token_a_amount, token_b_amount, token_a_transfer_fee, token_b_transfer_fee)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table),
		eventID, d.Position, d.TickLowerIndex, d.TickUpperIndex, d.Liquidity,
		d.TokenAAmount, d.TokenBAmount, d.TokenATransferFee, d.TokenBTransferFee,
	)
	if err != nil {
		return fmt.Errorf("insert liquidity detail into %s: %w", table, err)
	}
	return nil
}
