package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

const errScanRun = "failed to scan scrape run: %w"

// PostgresScrapeRunRepository implements ScrapeRunRepository for PostgreSQL
type PostgresScrapeRunRepository struct {
	db *database.DB
}

// NewPostgresScrapeRunRepository creates a new scrape run repository
func NewPostgresScrapeRunRepository(db *database.DB) ScrapeRunRepository {
	return &PostgresScrapeRunRepository{db: db}
}

// Create inserts a new scrape run
func (r *PostgresScrapeRunRepository) Create(ctx context.Context, run *models.ScrapeRun) error {
	timingsJSON, err := json.Marshal(run.PlatformTimings)
	if err != nil {
		return fmt.Errorf("failed to marshal platform timings: %w", err)
	}

	query := `
		INSERT INTO scrape_runs (id, status, triggered_by, started_at, last_activity_at, events_scraped, events_failed, error_message, platform_timings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		run.ID, run.Status, run.TriggeredBy, run.StartedAt, run.LastActivityAt,
		run.EventsScraped, run.EventsFailed, run.ErrorMessage, timingsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create scrape run: %w", err)
	}

	return nil
}

// GetByID retrieves a scrape run by ID
func (r *PostgresScrapeRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	query := `
		SELECT id, status, triggered_by, started_at, completed_at, last_activity_at, events_scraped, events_failed, error_message, platform_timings, created_at, updated_at
		FROM scrape_runs WHERE id = $1
	`

	run, err := scanRunRow(r.db.GetPool().QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape run: %w", err)
	}

	return run, nil
}

// UpdateStatus moves the run to a new status and bumps activity
func (r *PostgresScrapeRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus, errorMessage *string) error {
	query := `
		UPDATE scrape_runs SET
			status = $2, error_message = COALESCE($3, error_message), last_activity_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update scrape run status: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Touch bumps last_activity_at so the watchdog sees the run as alive
func (r *PostgresScrapeRunRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE scrape_runs SET last_activity_at = NOW(), updated_at = NOW() WHERE id = $1`

	commandTag, err := r.db.GetPool().Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch scrape run: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Complete finalizes the run with its terminal status, counters and timings
func (r *PostgresScrapeRunRepository) Complete(ctx context.Context, run *models.ScrapeRun) error {
	timingsJSON, err := json.Marshal(run.PlatformTimings)
	if err != nil {
		return fmt.Errorf("failed to marshal platform timings: %w", err)
	}

	query := `
		UPDATE scrape_runs SET
			status = $2, completed_at = $3, last_activity_at = NOW(),
			events_scraped = $4, events_failed = $5, error_message = $6,
			platform_timings = $7, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		run.ID, run.Status, run.CompletedAt, run.EventsScraped, run.EventsFailed,
		run.ErrorMessage, timingsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to complete scrape run: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// GetStale retrieves non-terminal runs without activity since the cutoff
func (r *PostgresScrapeRunRepository) GetStale(ctx context.Context, lastActivityBefore time.Time) ([]*models.ScrapeRun, error) {
	query := `
		SELECT id, status, triggered_by, started_at, completed_at, last_activity_at, events_scraped, events_failed, error_message, platform_timings, created_at, updated_at
		FROM scrape_runs
		WHERE status IN ('pending', 'running') AND last_activity_at < $1
		ORDER BY started_at ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, lastActivityBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale scrape runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScrapeRun
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanRun, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RecoverOrphaned marks every non-terminal run failed. Called once at startup
// so runs orphaned by a crash do not stay running forever.
func (r *PostgresScrapeRunRepository) RecoverOrphaned(ctx context.Context, message string) (int64, error) {
	query := `
		UPDATE scrape_runs SET
			status = 'failed', error_message = $1, completed_at = NOW(), last_activity_at = NOW(), updated_at = NOW()
		WHERE status IN ('pending', 'running')
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, message)
	if err != nil {
		return 0, fmt.Errorf("failed to recover orphaned scrape runs: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

// InsertEventStatus records the per-event outcome of one run
func (r *PostgresScrapeRunRepository) InsertEventStatus(ctx context.Context, status *models.EventScrapeStatus) error {
	errorsJSON, err := json.Marshal(status.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal event errors: %w", err)
	}

	query := `
		INSERT INTO event_scrape_statuses (id, scrape_run_id, event_id, platforms_attempted, platforms_succeeded, platforms_failed, duration_ms, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		status.ID, status.ScrapeRunID, status.EventID,
		status.PlatformsAttempted, status.PlatformsSucceeded, status.PlatformsFailed,
		status.DurationMS, errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event scrape status: %w", err)
	}

	return nil
}

// scanRunRow reads one scrape run row from either a Row or Rows source
func scanRunRow(row pgx.Row) (*models.ScrapeRun, error) {
	run := &models.ScrapeRun{}
	var timingsJSON []byte

	err := row.Scan(
		&run.ID, &run.Status, &run.TriggeredBy, &run.StartedAt, &run.CompletedAt,
		&run.LastActivityAt, &run.EventsScraped, &run.EventsFailed, &run.ErrorMessage,
		&timingsJSON, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(timingsJSON) > 0 {
		if err := json.Unmarshal(timingsJSON, &run.PlatformTimings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal platform timings: %w", err)
		}
	}

	return run, nil
}
