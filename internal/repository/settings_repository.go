package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

// PostgresSettingsRepository implements SettingsRepository for PostgreSQL.
// Settings live in a single row with id = 1.
type PostgresSettingsRepository struct {
	db *database.DB
}

// NewPostgresSettingsRepository creates a new settings repository
func NewPostgresSettingsRepository(db *database.DB) SettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// Get retrieves the settings row, normalized. Returns ErrSettingsMissing when
// no row has been stored yet.
func (r *PostgresSettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `
		SELECT id, scrape_interval_minutes, enabled_platforms, odds_retention_days, match_retention_days,
		       cleanup_frequency_hours, concurrency_limits, spinbet_delay_ms, batch_size, max_concurrent_events,
		       write_queue_depth, risk_warning_percent, risk_elevated_percent, risk_critical_percent,
		       watchdog_stale_minutes, batch_timeout_seconds, updated_at
		FROM scraper_settings WHERE id = 1
	`

	settings := &models.Settings{}
	var limitsJSON []byte
	err := r.db.GetPool().QueryRow(ctx, query).Scan(
		&settings.ID, &settings.ScrapeIntervalMinutes, &settings.EnabledPlatforms,
		&settings.OddsRetentionDays, &settings.MatchRetentionDays, &settings.CleanupFrequencyHours,
		&limitsJSON, &settings.SpinBetDelayMS, &settings.BatchSize, &settings.MaxConcurrentEvents,
		&settings.WriteQueueDepth, &settings.RiskWarningPercent, &settings.RiskElevatedPercent,
		&settings.RiskCriticalPercent, &settings.WatchdogStaleMinutes, &settings.BatchTimeoutSeconds,
		&settings.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrSettingsMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if len(limitsJSON) > 0 {
		if err := json.Unmarshal(limitsJSON, &settings.ConcurrencyLimits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal concurrency limits: %w", err)
		}
	}

	settings.Normalize()
	return settings, nil
}

// Upsert writes the single settings row
func (r *PostgresSettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	limitsJSON, err := json.Marshal(settings.ConcurrencyLimits)
	if err != nil {
		return fmt.Errorf("failed to marshal concurrency limits: %w", err)
	}

	query := `
		INSERT INTO scraper_settings (
			id, scrape_interval_minutes, enabled_platforms, odds_retention_days, match_retention_days,
			cleanup_frequency_hours, concurrency_limits, spinbet_delay_ms, batch_size, max_concurrent_events,
			write_queue_depth, risk_warning_percent, risk_elevated_percent, risk_critical_percent,
			watchdog_stale_minutes, batch_timeout_seconds, updated_at
		)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (id) DO UPDATE SET
			scrape_interval_minutes = EXCLUDED.scrape_interval_minutes,
			enabled_platforms = EXCLUDED.enabled_platforms,
			odds_retention_days = EXCLUDED.odds_retention_days,
			match_retention_days = EXCLUDED.match_retention_days,
			cleanup_frequency_hours = EXCLUDED.cleanup_frequency_hours,
			concurrency_limits = EXCLUDED.concurrency_limits,
			spinbet_delay_ms = EXCLUDED.spinbet_delay_ms,
			batch_size = EXCLUDED.batch_size,
			max_concurrent_events = EXCLUDED.max_concurrent_events,
			write_queue_depth = EXCLUDED.write_queue_depth,
			risk_warning_percent = EXCLUDED.risk_warning_percent,
			risk_elevated_percent = EXCLUDED.risk_elevated_percent,
			risk_critical_percent = EXCLUDED.risk_critical_percent,
			watchdog_stale_minutes = EXCLUDED.watchdog_stale_minutes,
			batch_timeout_seconds = EXCLUDED.batch_timeout_seconds,
			updated_at = NOW()
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		settings.ScrapeIntervalMinutes, settings.EnabledPlatforms, settings.OddsRetentionDays,
		settings.MatchRetentionDays, settings.CleanupFrequencyHours, limitsJSON,
		settings.SpinBetDelayMS, settings.BatchSize, settings.MaxConcurrentEvents,
		settings.WriteQueueDepth, settings.RiskWarningPercent, settings.RiskElevatedPercent,
		settings.RiskCriticalPercent, settings.WatchdogStaleMinutes, settings.BatchTimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}
