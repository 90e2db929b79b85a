package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/models"
)

// SportRepository defines the interface for sport taxonomy access
type SportRepository interface {
	Upsert(ctx context.Context, sport *models.Sport) error
	GetBySlug(ctx context.Context, slug string) (*models.Sport, error)
}

// TournamentRepository defines the interface for tournament data access
type TournamentRepository interface {
	Upsert(ctx context.Context, tournament *models.Tournament) error
	GetByCanonicalID(ctx context.Context, sportID uuid.UUID, canonicalID string) (*models.Tournament, error)
	UpsertCompetitor(ctx context.Context, ct *models.CompetitorTournament) error
	GetCompetitorByExternalID(ctx context.Context, source, externalID string) (*models.CompetitorTournament, error)
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	Upsert(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetByCanonicalID(ctx context.Context, canonicalID string) (*models.Event, error)
	GetUpcoming(ctx context.Context, within time.Duration) ([]*models.Event, error)
	UpsertCompetitor(ctx context.Context, ce *models.CompetitorEvent) error
	GetCompetitorByExternalID(ctx context.Context, source, externalID string) (*models.CompetitorEvent, error)
	GetCompetitorByID(ctx context.Context, id uuid.UUID) (*models.CompetitorEvent, error)
	GetCompetitorsByEventID(ctx context.Context, eventID uuid.UUID) ([]*models.CompetitorEvent, error)
}

// BookmakerRepository defines the interface for bookmaker data access
type BookmakerRepository interface {
	Upsert(ctx context.Context, bookmaker *models.Bookmaker) error
	GetBySlug(ctx context.Context, slug string) (*models.Bookmaker, error)
	List(ctx context.Context) ([]*models.Bookmaker, error)
	UpsertEventBookmaker(ctx context.Context, eb *models.EventBookmaker) error
	GetEventBookmakers(ctx context.Context, eventID uuid.UUID) ([]*models.EventBookmaker, error)
}

// MappingRepository defines the interface for market mapping overrides and
// unmapped market discovery
type MappingRepository interface {
	GetActiveOverrides(ctx context.Context) ([]*models.MarketMapping, error)
	UpsertOverride(ctx context.Context, mapping *models.MarketMapping) error
	RecordUnmapped(ctx context.Context, log *models.UnmappedMarketLog) error
	ListUnmapped(ctx context.Context, status models.UnmappedStatus, limit int) ([]*models.UnmappedMarketLog, error)
}

// SnapshotRepository defines the interface for odds snapshot persistence.
// Insert and confirm run inside the writer transaction; loads serve cache
// warmup on the coordinator session.
type SnapshotRepository interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.OddsSnapshot) error
	InsertCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.CompetitorOddsSnapshot) error
	ConfirmWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error
	ConfirmCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error
	MarkUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error
	MarkCompetitorUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error
	LoadLatest(ctx context.Context, since time.Time) ([]*models.OddsSnapshot, error)
	LoadLatestCompetitor(ctx context.Context, since time.Time) ([]*models.CompetitorOddsSnapshot, error)
}

// ScrapeRunRepository defines the interface for scrape run bookkeeping
type ScrapeRunRepository interface {
	Create(ctx context.Context, run *models.ScrapeRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus, errorMessage *string) error
	Touch(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, run *models.ScrapeRun) error
	GetStale(ctx context.Context, lastActivityBefore time.Time) ([]*models.ScrapeRun, error)
	RecoverOrphaned(ctx context.Context, message string) (int64, error)
	InsertEventStatus(ctx context.Context, status *models.EventScrapeStatus) error
}

// RiskAlertRepository defines the interface for risk alert persistence
type RiskAlertRepository interface {
	InsertBatchWithTx(ctx context.Context, tx pgx.Tx, alerts []*models.RiskAlert) error
	SweepPast(ctx context.Context, now time.Time) (int64, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.RiskAlert, error)
}

// SettingsRepository defines the interface for the single-row runtime settings
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}
