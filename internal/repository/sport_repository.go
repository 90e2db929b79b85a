package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

// PostgresSportRepository implements SportRepository for PostgreSQL
type PostgresSportRepository struct {
	db *database.DB
}

// NewPostgresSportRepository creates a new sport repository
func NewPostgresSportRepository(db *database.DB) SportRepository {
	return &PostgresSportRepository{db: db}
}

// Upsert inserts a sport or refreshes its name, keyed by slug. The stored ID
// is written back into the model.
func (r *PostgresSportRepository) Upsert(ctx context.Context, sport *models.Sport) error {
	query := `
		INSERT INTO sports (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id
	`

	err := r.db.GetPool().QueryRow(ctx, query, sport.ID, sport.Name, sport.Slug).Scan(&sport.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert sport: %w", err)
	}

	return nil
}

// GetBySlug retrieves a sport by its slug
func (r *PostgresSportRepository) GetBySlug(ctx context.Context, slug string) (*models.Sport, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM sports WHERE slug = $1
	`

	sport := &models.Sport{}
	err := r.db.GetPool().QueryRow(ctx, query, slug).Scan(
		&sport.ID, &sport.Name, &sport.Slug, &sport.CreatedAt, &sport.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sport: %w", err)
	}

	return sport, nil
}
