package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

// PostgresMappingRepository implements MappingRepository for PostgreSQL
type PostgresMappingRepository struct {
	db *database.DB
}

// NewPostgresMappingRepository creates a new mapping repository
func NewPostgresMappingRepository(db *database.DB) MappingRepository {
	return &PostgresMappingRepository{db: db}
}

// GetActiveOverrides retrieves all active DB mapping overrides with their
// outcome rows attached
func (r *PostgresMappingRepository) GetActiveOverrides(ctx context.Context) ([]*models.MarketMapping, error) {
	query := `
		SELECT id, canonical_market_id, name, betprime_market_id, stakeone_market_id, spinbet_key_prefix, is_active, created_at, updated_at
		FROM market_mappings WHERE is_active = TRUE
		ORDER BY canonical_market_id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query market mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.MarketMapping
	byID := make(map[uuid.UUID]*models.MarketMapping)
	for rows.Next() {
		m := &models.MarketMapping{}
		err := rows.Scan(
			&m.ID, &m.CanonicalMarketID, &m.Name, &m.BetPrimeMarketID,
			&m.StakeOneMarketID, &m.SpinBetKeyPrefix, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market mapping: %w", err)
		}
		mappings = append(mappings, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(mappings) == 0 {
		return mappings, nil
	}

	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)
	}

	outcomeQuery := `
		SELECT id, mapping_id, canonical_name, betprime_name, stakeone_name, spinbet_suffix, position
		FROM outcome_mappings WHERE mapping_id = ANY($1)
		ORDER BY mapping_id, position ASC
	`

	outcomeRows, err := r.db.GetPool().Query(ctx, outcomeQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome mappings: %w", err)
	}
	defer outcomeRows.Close()

	for outcomeRows.Next() {
		o := models.OutcomeMapping{}
		err := outcomeRows.Scan(
			&o.ID, &o.MappingID, &o.CanonicalName, &o.BetPrimeName,
			&o.StakeOneName, &o.SpinBetSuffix, &o.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome mapping: %w", err)
		}
		if m, ok := byID[o.MappingID]; ok {
			m.Outcomes = append(m.Outcomes, o)
		}
	}

	return mappings, outcomeRows.Err()
}

// UpsertOverride inserts or replaces a mapping override and its outcomes,
// keyed by canonical_market_id. Outcome rows are replaced wholesale.
func (r *PostgresMappingRepository) UpsertOverride(ctx context.Context, mapping *models.MarketMapping) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO market_mappings (id, canonical_market_id, name, betprime_market_id, stakeone_market_id, spinbet_key_prefix, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (canonical_market_id) DO UPDATE SET
				name = EXCLUDED.name,
				betprime_market_id = EXCLUDED.betprime_market_id,
				stakeone_market_id = EXCLUDED.stakeone_market_id,
				spinbet_key_prefix = EXCLUDED.spinbet_key_prefix,
				is_active = EXCLUDED.is_active,
				updated_at = NOW()
			RETURNING id
		`

		err := tx.QueryRow(ctx, query,
			mapping.ID, mapping.CanonicalMarketID, mapping.Name, mapping.BetPrimeMarketID,
			mapping.StakeOneMarketID, mapping.SpinBetKeyPrefix, mapping.IsActive,
		).Scan(&mapping.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert market mapping: %w", err)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM outcome_mappings WHERE mapping_id = $1", mapping.ID); err != nil {
			return fmt.Errorf("failed to clear outcome mappings: %w", err)
		}

		for i := range mapping.Outcomes {
			o := &mapping.Outcomes[i]
			if o.ID == uuid.Nil {
				o.ID = uuid.New()
			}
			o.MappingID = mapping.ID
			_, err := tx.Exec(ctx,
				`INSERT INTO outcome_mappings (id, mapping_id, canonical_name, betprime_name, stakeone_name, spinbet_suffix, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				o.ID, o.MappingID, o.CanonicalName, o.BetPrimeName, o.StakeOneName, o.SpinBetSuffix, o.Position,
			)
			if err != nil {
				return fmt.Errorf("failed to insert outcome mapping: %w", err)
			}
		}

		return nil
	})
}

// RecordUnmapped upserts an unmapped market discovery row keyed by
// (source, external_market_id). Repeats only grow the occurrence count and
// advance last_seen_at; the updated row state is written back into the model.
func (r *PostgresMappingRepository) RecordUnmapped(ctx context.Context, log *models.UnmappedMarketLog) error {
	sampleJSON, err := json.Marshal(log.SampleOutcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal sample outcomes: %w", err)
	}

	query := `
		INSERT INTO unmapped_market_logs (id, source, external_market_id, market_name, sample_outcomes, occurrence_count, status, first_seen_run_id, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, 1, 'new', $6, NOW(), NOW())
		ON CONFLICT (source, external_market_id) DO UPDATE SET
			occurrence_count = unmapped_market_logs.occurrence_count + 1,
			market_name = EXCLUDED.market_name,
			last_seen_at = NOW()
		RETURNING id, occurrence_count, status, first_seen_run_id, first_seen_at, last_seen_at
	`

	err = r.db.GetPool().QueryRow(ctx, query,
		log.ID, log.Source, log.ExternalMarketID, log.MarketName, sampleJSON, log.FirstSeenRunID,
	).Scan(&log.ID, &log.OccurrenceCount, &log.Status, &log.FirstSeenRunID, &log.FirstSeenAt, &log.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to record unmapped market: %w", err)
	}

	return nil
}

// ListUnmapped retrieves unmapped market rows by status, most recent first
func (r *PostgresMappingRepository) ListUnmapped(ctx context.Context, status models.UnmappedStatus, limit int) ([]*models.UnmappedMarketLog, error) {
	query := `
		SELECT id, source, external_market_id, market_name, sample_outcomes, occurrence_count, status, first_seen_run_id, first_seen_at, last_seen_at
		FROM unmapped_market_logs
		WHERE status = $1
		ORDER BY last_seen_at DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmapped markets: %w", err)
	}
	defer rows.Close()

	var logs []*models.UnmappedMarketLog
	for rows.Next() {
		l := &models.UnmappedMarketLog{}
		var sampleJSON []byte
		err := rows.Scan(
			&l.ID, &l.Source, &l.ExternalMarketID, &l.MarketName, &sampleJSON,
			&l.OccurrenceCount, &l.Status, &l.FirstSeenRunID, &l.FirstSeenAt, &l.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unmapped market: %w", err)
		}
		if len(sampleJSON) > 0 {
			if err := json.Unmarshal(sampleJSON, &l.SampleOutcomes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sample outcomes: %w", err)
			}
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
