package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

// PostgresBookmakerRepository implements BookmakerRepository for PostgreSQL
type PostgresBookmakerRepository struct {
	db *database.DB
}

// NewPostgresBookmakerRepository creates a new bookmaker repository
func NewPostgresBookmakerRepository(db *database.DB) BookmakerRepository {
	return &PostgresBookmakerRepository{db: db}
}

// Upsert inserts a bookmaker or refreshes its name and active flag, keyed by
// slug. The stored ID is written back into the model.
func (r *PostgresBookmakerRepository) Upsert(ctx context.Context, bookmaker *models.Bookmaker) error {
	query := `
		INSERT INTO bookmakers (id, name, slug, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		bookmaker.ID, bookmaker.Name, bookmaker.Slug, bookmaker.IsActive,
	).Scan(&bookmaker.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmaker: %w", err)
	}

	return nil
}

// GetBySlug retrieves a bookmaker by its slug
func (r *PostgresBookmakerRepository) GetBySlug(ctx context.Context, slug string) (*models.Bookmaker, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM bookmakers WHERE slug = $1
	`

	bookmaker := &models.Bookmaker{}
	err := r.db.GetPool().QueryRow(ctx, query, slug).Scan(
		&bookmaker.ID, &bookmaker.Name, &bookmaker.Slug, &bookmaker.IsActive,
		&bookmaker.CreatedAt, &bookmaker.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmaker: %w", err)
	}

	return bookmaker, nil
}

// List retrieves all bookmakers, reference first
func (r *PostgresBookmakerRepository) List(ctx context.Context) ([]*models.Bookmaker, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM bookmakers
		ORDER BY (slug = $1) DESC, slug ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, models.ReferenceBookmaker)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmakers: %w", err)
	}
	defer rows.Close()

	var bookmakers []*models.Bookmaker
	for rows.Next() {
		bookmaker := &models.Bookmaker{}
		err := rows.Scan(
			&bookmaker.ID, &bookmaker.Name, &bookmaker.Slug, &bookmaker.IsActive,
			&bookmaker.CreatedAt, &bookmaker.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmaker: %w", err)
		}
		bookmakers = append(bookmakers, bookmaker)
	}

	return bookmakers, rows.Err()
}

// UpsertEventBookmaker links an event to a bookmaker with its native event ID,
// keyed by (event_id, bookmaker_id)
func (r *PostgresBookmakerRepository) UpsertEventBookmaker(ctx context.Context, eb *models.EventBookmaker) error {
	query := `
		INSERT INTO event_bookmakers (id, event_id, bookmaker_id, external_event_id, event_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, bookmaker_id) DO UPDATE SET
			external_event_id = EXCLUDED.external_event_id,
			event_url = COALESCE(EXCLUDED.event_url, event_bookmakers.event_url),
			updated_at = NOW()
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query,
		eb.ID, eb.EventID, eb.BookmakerID, eb.ExternalEventID, eb.EventURL,
	).Scan(&eb.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert event bookmaker: %w", err)
	}

	return nil
}

// GetEventBookmakers retrieves all bookmaker links for an event
func (r *PostgresBookmakerRepository) GetEventBookmakers(ctx context.Context, eventID uuid.UUID) ([]*models.EventBookmaker, error) {
	query := `
		SELECT id, event_id, bookmaker_id, external_event_id, event_url, created_at, updated_at
		FROM event_bookmakers WHERE event_id = $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event bookmakers: %w", err)
	}
	defer rows.Close()

	var links []*models.EventBookmaker
	for rows.Next() {
		eb := &models.EventBookmaker{}
		err := rows.Scan(
			&eb.ID, &eb.EventID, &eb.BookmakerID, &eb.ExternalEventID, &eb.EventURL,
			&eb.CreatedAt, &eb.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event bookmaker: %w", err)
		}
		links = append(links, eb)
	}

	return links, rows.Err()
}
