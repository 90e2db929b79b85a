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

var riskAlertColumns = []string{
	"id", "event_id", "bookmaker_slug", "market_id", "market_name", "line",
	"outcome_name", "alert_type", "severity", "change_percent", "old_value",
	"new_value", "competitor_direction", "event_kickoff", "status", "detected_at",
}

// PostgresRiskAlertRepository implements RiskAlertRepository for PostgreSQL
type PostgresRiskAlertRepository struct {
	db *database.DB
}

// NewPostgresRiskAlertRepository creates a new risk alert repository
func NewPostgresRiskAlertRepository(db *database.DB) RiskAlertRepository {
	return &PostgresRiskAlertRepository{db: db}
}

// InsertBatchWithTx inserts alerts inside the writer transaction via COPY
func (r *PostgresRiskAlertRepository) InsertBatchWithTx(ctx context.Context, tx pgx.Tx, alerts []*models.RiskAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	copyFromSource := make([][]interface{}, len(alerts))
	for i, a := range alerts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		copyFromSource[i] = []interface{}{
			a.ID, a.EventID, a.BookmakerSlug, a.MarketID, a.MarketName, a.Line,
			a.OutcomeName, a.AlertType, a.Severity, a.ChangePercent, a.OldValue,
			a.NewValue, a.CompetitorDirection, a.EventKickoff, a.Status, a.DetectedAt,
		}
	}

	count, err := tx.CopyFrom(ctx, pgx.Identifier{"risk_alerts"}, riskAlertColumns, pgx.CopyFromRows(copyFromSource))
	if err != nil {
		return fmt.Errorf("failed to batch insert risk alerts: %w", err)
	}
	if count != int64(len(alerts)) {
		return fmt.Errorf("inserted %d alerts, expected %d", count, len(alerts))
	}

	return nil
}

// SweepPast flips every live alert whose event has kicked off to past
func (r *PostgresRiskAlertRepository) SweepPast(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE risk_alerts SET status = 'past'
		WHERE status != 'past' AND event_kickoff <= $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep past alerts: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

// ListByEvent retrieves all alerts for an event, newest first
func (r *PostgresRiskAlertRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.RiskAlert, error) {
	query := `
		SELECT id, event_id, bookmaker_slug, market_id, market_name, line, outcome_name, alert_type, severity, change_percent, old_value, new_value, competitor_direction, event_kickoff, status, detected_at, acknowledged_at
		FROM risk_alerts WHERE event_id = $1
		ORDER BY detected_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.RiskAlert
	for rows.Next() {
		a := &models.RiskAlert{}
		err := rows.Scan(
			&a.ID, &a.EventID, &a.BookmakerSlug, &a.MarketID, &a.MarketName, &a.Line,
			&a.OutcomeName, &a.AlertType, &a.Severity, &a.ChangePercent, &a.OldValue,
			&a.NewValue, &a.CompetitorDirection, &a.EventKickoff, &a.Status, &a.DetectedAt,
			&a.AcknowledgedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
