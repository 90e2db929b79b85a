package writequeue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/repository"
)

const (
	writeAttempts  = 3
	retryBaseDelay = time.Second
	retryMaxDelay  = 4 * time.Second
)

// ErrQueueClosed is returned by Enqueue after Stop has been called.
var ErrQueueClosed = errors.New("write queue closed")

// ReferenceWrite pairs a freshly captured reference snapshot with the
// bookmaker slug it was scraped from.
type ReferenceWrite struct {
	Bookmaker string
	Snapshot  *models.OddsSnapshot
}

// SnapshotRef identifies an already stored snapshot whose odds were
// re-observed unchanged. CapturedAt routes the update to the right
// partition; Bookmaker labels the confirmation metric.
type SnapshotRef struct {
	ID         uuid.UUID
	CapturedAt time.Time
	Bookmaker  string
}

// WriteBatch carries one scrape batch's worth of persistence work.
// Everything lands in a single transaction so a partially written
// batch never becomes visible to readers.
type WriteBatch struct {
	ScrapeRunID uuid.UUID
	BatchIndex  int

	// ConfirmedAt is the cycle start instant stamped onto
	// last_confirmed_at for every snapshot the batch touches.
	ConfirmedAt time.Time

	ChangedReference  []ReferenceWrite
	ChangedCompetitor []*models.CompetitorOddsSnapshot

	UnchangedReference  []SnapshotRef
	UnchangedCompetitor []SnapshotRef

	AvailabilityUpdates           []models.AvailabilityUpdate
	CompetitorAvailabilityUpdates []models.AvailabilityUpdate

	RiskAlerts []*models.RiskAlert
}

// IsEmpty reports whether the batch carries no work at all.
func (b *WriteBatch) IsEmpty() bool {
	return len(b.ChangedReference) == 0 &&
		len(b.ChangedCompetitor) == 0 &&
		len(b.UnchangedReference) == 0 &&
		len(b.UnchangedCompetitor) == 0 &&
		len(b.AvailabilityUpdates) == 0 &&
		len(b.CompetitorAvailabilityUpdates) == 0 &&
		len(b.RiskAlerts) == 0
}

// txRunner abstracts database.DB so tests can run batches through fake
// repositories without a live pool.
type txRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// Queue serializes all odds persistence through a single writer
// goroutine. Scraping goroutines hand finished batches over and move
// on; when the buffer fills, Enqueue blocks so scraping slows to match
// write throughput instead of dropping captured odds.
type Queue struct {
	db        txRunner
	snapshots repository.SnapshotRepository
	alerts    repository.RiskAlertRepository
	log       *logrus.Entry

	batches chan *WriteBatch
	quit    chan struct{}
	done    chan struct{}

	baseDelay time.Duration
	maxDelay  time.Duration

	stopOnce sync.Once
}

// New builds a queue with the given buffer depth. A depth below one
// falls back to the settings default.
func New(db txRunner, snapshots repository.SnapshotRepository, alerts repository.RiskAlertRepository, depth int, baseLogger *logrus.Logger) *Queue {
	if depth < 1 {
		depth = models.DefaultSettings().WriteQueueDepth
	}
	return &Queue{
		db:        db,
		snapshots: snapshots,
		alerts:    alerts,
		log:       baseLogger.WithField("component", "writequeue"),
		batches:   make(chan *WriteBatch, depth),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		baseDelay: retryBaseDelay,
		maxDelay:  retryMaxDelay,
	}
}

// Start launches the writer goroutine. Batches are applied strictly in
// enqueue order; the queue never reorders or coalesces work.
func (q *Queue) Start(ctx context.Context) {
	go q.run(ctx)
}

// Enqueue hands a batch to the writer, blocking while the buffer is
// full. It returns ErrQueueClosed once Stop has been called and the
// context error if ctx expires first.
func (q *Queue) Enqueue(ctx context.Context, batch *WriteBatch) error {
	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}
	select {
	case q.batches <- batch:
		metrics.RecordWriteBatchEnqueued()
		metrics.UpdateWriteQueueDepth(float64(len(q.batches)))
		return nil
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and blocks until already accepted batches are
// written or ctx expires. Producers must stop enqueueing before Stop
// is called. Safe to call more than once.
func (q *Queue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() { close(q.quit) })
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case batch := <-q.batches:
			q.process(ctx, batch)
			metrics.UpdateWriteQueueDepth(float64(len(q.batches)))
		case <-q.quit:
			q.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain flushes batches accepted before Stop through the same retry
// path as normal processing.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case batch := <-q.batches:
			q.process(ctx, batch)
		default:
			metrics.UpdateWriteQueueDepth(0)
			return
		}
	}
}

// process applies one batch, retrying transient failures with
// exponential backoff. Integrity violations are not retried: replaying
// the transaction would hit the same conflicting rows, so the batch is
// dropped and scraping carries on. A dropped batch is never
// re-enqueued.
func (q *Queue) process(ctx context.Context, batch *WriteBatch) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = q.maxDelay

	for attempt := 1; ; attempt++ {
		err := q.writeBatch(ctx, batch)
		if err == nil {
			q.log.WithFields(logrus.Fields{
				"scrape_run_id": batch.ScrapeRunID,
				"batch_index":   batch.BatchIndex,
				"attempt":       attempt,
			}).Debug("write batch committed")
			return
		}

		if isIntegrityError(err) {
			q.log.WithFields(logrus.Fields{
				"scrape_run_id": batch.ScrapeRunID,
				"batch_index":   batch.BatchIndex,
				"error":         err.Error(),
			}).Warn("integrity violation, dropping write batch")
			metrics.RecordWriteBatchDropped()
			return
		}

		if attempt >= writeAttempts {
			q.logDropped(batch, err)
			metrics.RecordWriteBatchDropped()
			return
		}

		metrics.RecordWriteBatchRetry()
		q.log.WithFields(logrus.Fields{
			"scrape_run_id": batch.ScrapeRunID,
			"batch_index":   batch.BatchIndex,
			"attempt":       attempt,
			"error":         err.Error(),
		}).Warn("write batch failed, retrying")

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = q.maxDelay
		}
		select {
		case <-ctx.Done():
			q.logDropped(batch, ctx.Err())
			metrics.RecordWriteBatchDropped()
			return
		case <-time.After(sleep):
		}
	}
}

// writeBatch runs the batch inside one transaction: new snapshots
// first, then confirmations, availability stamps, and alerts.
func (q *Queue) writeBatch(ctx context.Context, batch *WriteBatch) error {
	err := q.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, w := range batch.ChangedReference {
			if err := q.snapshots.InsertWithTx(ctx, tx, w.Snapshot); err != nil {
				return err
			}
		}
		for _, s := range batch.ChangedCompetitor {
			if err := q.snapshots.InsertCompetitorWithTx(ctx, tx, s); err != nil {
				return err
			}
		}
		for _, ref := range batch.UnchangedReference {
			if err := q.snapshots.ConfirmWithTx(ctx, tx, ref.ID, ref.CapturedAt, batch.ConfirmedAt); err != nil {
				return err
			}
		}
		for _, ref := range batch.UnchangedCompetitor {
			if err := q.snapshots.ConfirmCompetitorWithTx(ctx, tx, ref.ID, ref.CapturedAt, batch.ConfirmedAt); err != nil {
				return err
			}
		}
		for _, u := range batch.AvailabilityUpdates {
			if err := q.snapshots.MarkUnavailableWithTx(ctx, tx, u); err != nil {
				return err
			}
		}
		for _, u := range batch.CompetitorAvailabilityUpdates {
			if err := q.snapshots.MarkCompetitorUnavailableWithTx(ctx, tx, u); err != nil {
				return err
			}
		}
		if len(batch.RiskAlerts) > 0 {
			if err := q.alerts.InsertBatchWithTx(ctx, tx, batch.RiskAlerts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, w := range batch.ChangedReference {
		metrics.RecordSnapshotInserted(w.Bookmaker)
	}
	for _, s := range batch.ChangedCompetitor {
		metrics.RecordSnapshotInserted(s.Source)
	}
	for _, ref := range batch.UnchangedReference {
		metrics.RecordSnapshotConfirmed(ref.Bookmaker)
	}
	for _, ref := range batch.UnchangedCompetitor {
		metrics.RecordSnapshotConfirmed(ref.Bookmaker)
	}
	return nil
}

func (q *Queue) logDropped(batch *WriteBatch, err error) {
	q.log.WithFields(logrus.Fields{
		"scrape_run_id":        batch.ScrapeRunID,
		"batch_index":          batch.BatchIndex,
		"changed_reference":    len(batch.ChangedReference),
		"changed_competitor":   len(batch.ChangedCompetitor),
		"unchanged_reference":  len(batch.UnchangedReference),
		"unchanged_competitor": len(batch.UnchangedCompetitor),
		"availability_updates": len(batch.AvailabilityUpdates) + len(batch.CompetitorAvailabilityUpdates),
		"risk_alerts":          len(batch.RiskAlerts),
		"error":                err.Error(),
	}).Error("write batch dropped after exhausting retries")
}

// SQLSTATE class 23 covers integrity constraint violations.
func isIntegrityError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
