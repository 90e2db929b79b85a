package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

// PostgresTournamentRepository implements TournamentRepository for PostgreSQL
type PostgresTournamentRepository struct {
	db *database.DB
}

// NewPostgresTournamentRepository creates a new tournament repository
func NewPostgresTournamentRepository(db *database.DB) TournamentRepository {
	return &PostgresTournamentRepository{db: db}
}

// Upsert inserts a canonical tournament or refreshes its metadata, keyed by
// (sport_id, canonical_id). The stored ID is written back into the model.
func (r *PostgresTournamentRepository) Upsert(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, sport_id, name, country, canonical_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sport_id, canonical_id) DO UPDATE SET
			name = EXCLUDED.name, country = EXCLUDED.country, updated_at = NOW()
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		tournament.ID, tournament.SportID, tournament.Name, tournament.Country, tournament.CanonicalID,
	).Scan(&tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament: %w", err)
	}

	return nil
}

// GetByCanonicalID retrieves a canonical tournament by its cross-bookmaker ID
func (r *PostgresTournamentRepository) GetByCanonicalID(ctx context.Context, sportID uuid.UUID, canonicalID string) (*models.Tournament, error) {
	query := `
		SELECT id, sport_id, name, country, canonical_id, created_at, updated_at
		FROM tournaments WHERE sport_id = $1 AND canonical_id = $2
	`

	tournament := &models.Tournament{}
	err := r.db.GetPool().QueryRow(ctx, query, sportID, canonicalID).Scan(
		&tournament.ID, &tournament.SportID, &tournament.Name, &tournament.Country,
		&tournament.CanonicalID, &tournament.CreatedAt, &tournament.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	return tournament, nil
}

// UpsertCompetitor inserts a bookmaker-native tournament row or refreshes it,
// keyed by (source, external_id). The canonical link is only ever widened,
// never cleared by a scrape.
func (r *PostgresTournamentRepository) UpsertCompetitor(ctx context.Context, ct *models.CompetitorTournament) error {
	query := `
		INSERT INTO competitor_tournaments (id, source, external_id, name, raw_country, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			raw_country = EXCLUDED.raw_country,
			tournament_id = COALESCE(EXCLUDED.tournament_id, competitor_tournaments.tournament_id),
			updated_at = NOW()
		RETURNING id, tournament_id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		ct.ID, ct.Source, ct.ExternalID, ct.Name, ct.RawCountry, ct.TournamentID,
	).Scan(&ct.ID, &ct.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to upsert competitor tournament: %w", err)
	}

	return nil
}

// GetCompetitorByExternalID retrieves a competitor tournament by its native ID
func (r *PostgresTournamentRepository) GetCompetitorByExternalID(ctx context.Context, source, externalID string) (*models.CompetitorTournament, error) {
	query := `
		SELECT id, source, external_id, name, raw_country, tournament_id, created_at, updated_at
		FROM competitor_tournaments WHERE source = $1 AND external_id = $2
	`

	ct := &models.CompetitorTournament{}
	err := r.db.GetPool().QueryRow(ctx, query, source, externalID).Scan(
		&ct.ID, &ct.Source, &ct.ExternalID, &ct.Name, &ct.RawCountry,
		&ct.TournamentID, &ct.CreatedAt, &ct.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor tournament: %w", err)
	}

	return ct, nil
}
