package writequeue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oddswatch/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// opLog records repository calls across fakes so tests can assert the
// order work is applied inside a batch.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

type fakeDB struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(ctx, nil)
}

func (f *fakeDB) transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSnapshotRepo struct {
	log *opLog

	mu                    sync.Mutex
	insertAttempts        int
	failInserts           int
	failErr               error
	inserted              []*models.OddsSnapshot
	insertedCompetitor    []*models.CompetitorOddsSnapshot
	confirmed             []uuid.UUID
	confirmedAt           []time.Time
	confirmedCompetitor   []uuid.UUID
	unavailable           []models.AvailabilityUpdate
	unavailableCompetitor []models.AvailabilityUpdate
}

func (f *fakeSnapshotRepo) InsertWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.OddsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertAttempts++
	if f.failInserts > 0 {
		f.failInserts--
		return f.failErr
	}
	f.log.add("insert_reference")
	f.inserted = append(f.inserted, snapshot)
	return nil
}

func (f *fakeSnapshotRepo) InsertCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.CompetitorOddsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("insert_competitor")
	f.insertedCompetitor = append(f.insertedCompetitor, snapshot)
	return nil
}

func (f *fakeSnapshotRepo) ConfirmWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("confirm_reference")
	f.confirmed = append(f.confirmed, snapshotID)
	f.confirmedAt = append(f.confirmedAt, confirmedAt)
	return nil
}

func (f *fakeSnapshotRepo) ConfirmCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("confirm_competitor")
	f.confirmedCompetitor = append(f.confirmedCompetitor, snapshotID)
	return nil
}

func (f *fakeSnapshotRepo) MarkUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("mark_unavailable")
	f.unavailable = append(f.unavailable, update)
	return nil
}

func (f *fakeSnapshotRepo) MarkCompetitorUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("mark_competitor_unavailable")
	f.unavailableCompetitor = append(f.unavailableCompetitor, update)
	return nil
}

func (f *fakeSnapshotRepo) LoadLatest(ctx context.Context, since time.Time) ([]*models.OddsSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshotRepo) LoadLatestCompetitor(ctx context.Context, since time.Time) ([]*models.CompetitorOddsSnapshot, error) {
	return nil, nil
}

type fakeAlertRepo struct {
	log *opLog

	mu      sync.Mutex
	batches [][]*models.RiskAlert
}

func (f *fakeAlertRepo) InsertBatchWithTx(ctx context.Context, tx pgx.Tx, alerts []*models.RiskAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("insert_alerts")
	f.batches = append(f.batches, alerts)
	return nil
}

func (f *fakeAlertRepo) SweepPast(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAlertRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.RiskAlert, error) {
	return nil, nil
}

type queueFixture struct {
	q      *Queue
	db     *fakeDB
	snaps  *fakeSnapshotRepo
	alerts *fakeAlertRepo
	ops    *opLog
}

func newFixture(depth int) *queueFixture {
	ops := &opLog{}
	db := &fakeDB{}
	snaps := &fakeSnapshotRepo{log: ops}
	alerts := &fakeAlertRepo{log: ops}
	q := New(db, snaps, alerts, depth, testLogger())
	q.baseDelay = time.Millisecond
	q.maxDelay = 4 * time.Millisecond
	return &queueFixture{q: q, db: db, snaps: snaps, alerts: alerts, ops: ops}
}

func fullBatch(confirmedAt time.Time) *WriteBatch {
	captured := confirmedAt.Add(-5 * time.Minute)
	return &WriteBatch{
		ScrapeRunID: uuid.New(),
		BatchIndex:  0,
		ConfirmedAt: confirmedAt,
		ChangedReference: []ReferenceWrite{{
			Bookmaker: "betprime",
			Snapshot:  &models.OddsSnapshot{ID: uuid.New(), EventID: uuid.New(), CapturedAt: confirmedAt},
		}},
		ChangedCompetitor: []*models.CompetitorOddsSnapshot{{
			ID:                uuid.New(),
			CompetitorEventID: uuid.New(),
			Source:            "stakeone",
			CapturedAt:        confirmedAt,
		}},
		UnchangedReference:  []SnapshotRef{{ID: uuid.New(), CapturedAt: captured, Bookmaker: "betprime"}},
		UnchangedCompetitor: []SnapshotRef{{ID: uuid.New(), CapturedAt: captured, Bookmaker: "spinbet"}},
		AvailabilityUpdates: []models.AvailabilityUpdate{{
			SnapshotID: uuid.New(), CapturedAt: captured, MarketID: "TOTALS", UnavailableAt: confirmedAt,
		}},
		CompetitorAvailabilityUpdates: []models.AvailabilityUpdate{{
			SnapshotID: uuid.New(), CapturedAt: captured, MarketID: "BTTS", UnavailableAt: confirmedAt,
		}},
		RiskAlerts: []*models.RiskAlert{{ID: uuid.New(), EventID: uuid.New()}},
	}
}

func simpleBatch(bookmaker string) *WriteBatch {
	return &WriteBatch{
		ScrapeRunID: uuid.New(),
		ConfirmedAt: time.Now().UTC(),
		ChangedReference: []ReferenceWrite{{
			Bookmaker: bookmaker,
			Snapshot:  &models.OddsSnapshot{ID: uuid.New(), EventID: uuid.New(), CapturedAt: time.Now().UTC()},
		}},
	}
}

func TestBatchIsEmpty(t *testing.T) {
	assert.True(t, (&WriteBatch{ScrapeRunID: uuid.New()}).IsEmpty())
	assert.False(t, fullBatch(time.Now().UTC()).IsEmpty())
	assert.False(t, (&WriteBatch{UnchangedReference: []SnapshotRef{{ID: uuid.New()}}}).IsEmpty())
}

func TestProcessAppliesBatchInOrder(t *testing.T) {
	fx := newFixture(4)
	confirmedAt := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	batch := fullBatch(confirmedAt)

	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Enqueue(context.Background(), batch))
	require.NoError(t, fx.q.Stop(context.Background()))

	assert.Equal(t, 1, fx.db.transactions())
	assert.Equal(t, []string{
		"insert_reference",
		"insert_competitor",
		"confirm_reference",
		"confirm_competitor",
		"mark_unavailable",
		"mark_competitor_unavailable",
		"insert_alerts",
	}, fx.ops.ops)

	require.Len(t, fx.snaps.inserted, 1)
	assert.Same(t, batch.ChangedReference[0].Snapshot, fx.snaps.inserted[0])
	require.Len(t, fx.snaps.insertedCompetitor, 1)
	assert.Same(t, batch.ChangedCompetitor[0], fx.snaps.insertedCompetitor[0])

	require.Len(t, fx.snaps.confirmed, 1)
	assert.Equal(t, batch.UnchangedReference[0].ID, fx.snaps.confirmed[0])
	assert.Equal(t, confirmedAt, fx.snaps.confirmedAt[0])
	require.Len(t, fx.snaps.confirmedCompetitor, 1)
	assert.Equal(t, batch.UnchangedCompetitor[0].ID, fx.snaps.confirmedCompetitor[0])

	require.Len(t, fx.snaps.unavailable, 1)
	assert.Equal(t, "TOTALS", fx.snaps.unavailable[0].MarketID)
	require.Len(t, fx.snaps.unavailableCompetitor, 1)
	assert.Equal(t, "BTTS", fx.snaps.unavailableCompetitor[0].MarketID)

	require.Len(t, fx.alerts.batches, 1)
	assert.Equal(t, batch.RiskAlerts, fx.alerts.batches[0])
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	fx := newFixture(4)
	fx.snaps.failInserts = 1
	fx.snaps.failErr = errors.New("connection reset by peer")

	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Enqueue(context.Background(), simpleBatch("betprime")))
	require.NoError(t, fx.q.Stop(context.Background()))

	assert.Equal(t, 2, fx.db.transactions())
	assert.Equal(t, 2, fx.snaps.insertAttempts)
	assert.Len(t, fx.snaps.inserted, 1)
}

func TestProcessDropsAfterRetriesExhausted(t *testing.T) {
	fx := newFixture(4)
	fx.snaps.failInserts = writeAttempts
	fx.snaps.failErr = errors.New("connection reset by peer")

	good := simpleBatch("stakeone")
	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Enqueue(context.Background(), simpleBatch("betprime")))
	require.NoError(t, fx.q.Enqueue(context.Background(), good))
	require.NoError(t, fx.q.Stop(context.Background()))

	assert.Equal(t, writeAttempts+1, fx.db.transactions())
	require.Len(t, fx.snaps.inserted, 1)
	assert.Same(t, good.ChangedReference[0].Snapshot, fx.snaps.inserted[0])
}

func TestProcessDropsIntegrityViolationWithoutRetry(t *testing.T) {
	fx := newFixture(4)
	fx.snaps.failInserts = 1
	fx.snaps.failErr = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	good := simpleBatch("stakeone")
	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Enqueue(context.Background(), simpleBatch("betprime")))
	require.NoError(t, fx.q.Enqueue(context.Background(), good))
	require.NoError(t, fx.q.Stop(context.Background()))

	assert.Equal(t, 2, fx.db.transactions())
	require.Len(t, fx.snaps.inserted, 1)
	assert.Same(t, good.ChangedReference[0].Snapshot, fx.snaps.inserted[0])
}

func TestStopDrainsAcceptedBatches(t *testing.T) {
	fx := newFixture(4)
	for i := 0; i < 3; i++ {
		require.NoError(t, fx.q.Enqueue(context.Background(), simpleBatch("betprime")))
	}

	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Stop(context.Background()))

	assert.Equal(t, 3, fx.db.transactions())
	assert.Len(t, fx.snaps.inserted, 3)
}

func TestEnqueueAfterStopRefused(t *testing.T) {
	fx := newFixture(4)
	fx.q.Start(context.Background())
	require.NoError(t, fx.q.Stop(context.Background()))
	require.NoError(t, fx.q.Stop(context.Background()))

	err := fx.q.Enqueue(context.Background(), simpleBatch("betprime"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueBlocksUntilContextExpires(t *testing.T) {
	fx := newFixture(1)
	require.NoError(t, fx.q.Enqueue(context.Background(), simpleBatch("betprime")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fx.q.Enqueue(ctx, simpleBatch("betprime"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsIntegrityError(t *testing.T) {
	assert.True(t, isIntegrityError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isIntegrityError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isIntegrityError(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isIntegrityError(errors.New("connection reset by peer")))
	assert.False(t, isIntegrityError(nil))
}
