package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

const errScanEvent = "failed to scan event: %w"

// PostgresEventRepository implements EventRepository for PostgreSQL
type PostgresEventRepository struct {
	db *database.DB
}

// NewPostgresEventRepository creates a new event repository
func NewPostgresEventRepository(db *database.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

// Upsert inserts a canonical event or refreshes its metadata, keyed by
// canonical_id. Kickoff corrections from re-discovery flow through here.
func (r *PostgresEventRepository) Upsert(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, tournament_id, name, home_team, away_team, canonical_id, kickoff)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (canonical_id) DO UPDATE SET
			name = EXCLUDED.name,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			kickoff = EXCLUDED.kickoff,
			updated_at = NOW()
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		event.ID, event.TournamentID, event.Name, event.HomeTeam, event.AwayTeam,
		event.CanonicalID, event.Kickoff,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, tournament_id, name, home_team, away_team, canonical_id, kickoff, created_at, updated_at
		FROM events WHERE id = $1
	`

	event := &models.Event{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&event.ID, &event.TournamentID, &event.Name, &event.HomeTeam, &event.AwayTeam,
		&event.CanonicalID, &event.Kickoff, &event.CreatedAt, &event.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// GetByCanonicalID retrieves an event by its cross-bookmaker identifier
func (r *PostgresEventRepository) GetByCanonicalID(ctx context.Context, canonicalID string) (*models.Event, error) {
	query := `
		SELECT id, tournament_id, name, home_team, away_team, canonical_id, kickoff, created_at, updated_at
		FROM events WHERE canonical_id = $1
	`

	event := &models.Event{}
	err := r.db.GetPool().QueryRow(ctx, query, canonicalID).Scan(
		&event.ID, &event.TournamentID, &event.Name, &event.HomeTeam, &event.AwayTeam,
		&event.CanonicalID, &event.Kickoff, &event.CreatedAt, &event.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by canonical id: %w", err)
	}

	return event, nil
}

// GetUpcoming retrieves events kicking off within the given window, soonest first
func (r *PostgresEventRepository) GetUpcoming(ctx context.Context, within time.Duration) ([]*models.Event, error) {
	query := `
		SELECT id, tournament_id, name, home_team, away_team, canonical_id, kickoff, created_at, updated_at
		FROM events
		WHERE kickoff > NOW() AND kickoff <= NOW() + $1
		ORDER BY kickoff ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, within)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		err := rows.Scan(
			&event.ID, &event.TournamentID, &event.Name, &event.HomeTeam, &event.AwayTeam,
			&event.CanonicalID, &event.Kickoff, &event.CreatedAt, &event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanEvent, err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// UpsertCompetitor inserts a bookmaker-native event row or refreshes it, keyed
// by (source, external_event_id). The canonical link is only ever widened.
func (r *PostgresEventRepository) UpsertCompetitor(ctx context.Context, ce *models.CompetitorEvent) error {
	query := `
		INSERT INTO competitor_events (id, source, external_event_id, competitor_tournament_id, event_id, home_team, away_team, kickoff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source, external_event_id) DO UPDATE SET
			competitor_tournament_id = COALESCE(EXCLUDED.competitor_tournament_id, competitor_events.competitor_tournament_id),
			event_id = COALESCE(EXCLUDED.event_id, competitor_events.event_id),
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			kickoff = EXCLUDED.kickoff,
			updated_at = NOW()
		RETURNING id, event_id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		ce.ID, ce.Source, ce.ExternalEventID, ce.CompetitorTournamentID, ce.EventID,
		ce.HomeTeam, ce.AwayTeam, ce.Kickoff,
	).Scan(&ce.ID, &ce.EventID)
	if err != nil {
		return fmt.Errorf("failed to upsert competitor event: %w", err)
	}

	return nil
}

// GetCompetitorByExternalID retrieves a competitor event by its native ID
func (r *PostgresEventRepository) GetCompetitorByExternalID(ctx context.Context, source, externalID string) (*models.CompetitorEvent, error) {
	query := `
		SELECT id, source, external_event_id, competitor_tournament_id, event_id, home_team, away_team, kickoff, created_at, updated_at
		FROM competitor_events WHERE source = $1 AND external_event_id = $2
	`

	ce := &models.CompetitorEvent{}
	err := r.db.GetPool().QueryRow(ctx, query, source, externalID).Scan(
		&ce.ID, &ce.Source, &ce.ExternalEventID, &ce.CompetitorTournamentID, &ce.EventID,
		&ce.HomeTeam, &ce.AwayTeam, &ce.Kickoff, &ce.CreatedAt, &ce.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor event: %w", err)
	}

	return ce, nil
}

// GetCompetitorByID retrieves a competitor event by its row ID
func (r *PostgresEventRepository) GetCompetitorByID(ctx context.Context, id uuid.UUID) (*models.CompetitorEvent, error) {
	query := `
		SELECT id, source, external_event_id, competitor_tournament_id, event_id, home_team, away_team, kickoff, created_at, updated_at
		FROM competitor_events WHERE id = $1
	`

	ce := &models.CompetitorEvent{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&ce.ID, &ce.Source, &ce.ExternalEventID, &ce.CompetitorTournamentID, &ce.EventID,
		&ce.HomeTeam, &ce.AwayTeam, &ce.Kickoff, &ce.CreatedAt, &ce.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor event by id: %w", err)
	}

	return ce, nil
}

// GetCompetitorsByEventID retrieves all competitor rows linked to a canonical event
func (r *PostgresEventRepository) GetCompetitorsByEventID(ctx context.Context, eventID uuid.UUID) ([]*models.CompetitorEvent, error) {
	query := `
		SELECT id, source, external_event_id, competitor_tournament_id, event_id, home_team, away_team, kickoff, created_at, updated_at
		FROM competitor_events WHERE event_id = $1
		ORDER BY source ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitor events: %w", err)
	}
	defer rows.Close()

	var result []*models.CompetitorEvent
	for rows.Next() {
		ce := &models.CompetitorEvent{}
		err := rows.Scan(
			&ce.ID, &ce.Source, &ce.ExternalEventID, &ce.CompetitorTournamentID, &ce.EventID,
			&ce.HomeTeam, &ce.AwayTeam, &ce.Kickoff, &ce.CreatedAt, &ce.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competitor event: %w", err)
		}
		result = append(result, ce)
	}

	return result, rows.Err()
}
