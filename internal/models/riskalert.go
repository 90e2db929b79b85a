package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies what the risk detector saw
type AlertType string

const (
	AlertPriceChange           AlertType = "price_change"
	AlertDirectionDisagreement AlertType = "direction_disagreement"
	AlertAvailability          AlertType = "availability"
)

// AlertSeverity grades how strong the signal is
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityElevated AlertSeverity = "elevated"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the operator workflow state of an alert. Past alerts are
// immutable; the sweep flips alerts to past once the event kicks off.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "new"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusPast         AlertStatus = "past"
)

// Availability direction annotations carried on availability alerts
const (
	DirectionSuspended = "suspended"
	DirectionReturned  = "returned"
)

// RiskAlert is one detected risk signal on a market or outcome.
// CompetitorDirection carries "<source>:<up|down>" for direction
// disagreements and "suspended"/"returned" for availability alerts.
type RiskAlert struct {
	ID                  uuid.UUID     `db:"id" json:"id" validate:"required,uuid4"`
	EventID             uuid.UUID     `db:"event_id" json:"event_id" validate:"required,uuid4"`
	BookmakerSlug       string        `db:"bookmaker_slug" json:"bookmaker_slug" validate:"required"`
	MarketID            string        `db:"market_id" json:"market_id" validate:"required"`
	MarketName          string        `db:"market_name" json:"market_name"`
	Line                *float64      `db:"line" json:"line"`
	OutcomeName         *string       `db:"outcome_name" json:"outcome_name"`
	AlertType           AlertType     `db:"alert_type" json:"alert_type" validate:"required"`
	Severity            AlertSeverity `db:"severity" json:"severity" validate:"required"`
	ChangePercent       float64       `db:"change_percent" json:"change_percent"`
	OldValue            *float64      `db:"old_value" json:"old_value"`
	NewValue            *float64      `db:"new_value" json:"new_value"`
	CompetitorDirection *string       `db:"competitor_direction" json:"competitor_direction"`
	EventKickoff        time.Time     `db:"event_kickoff" json:"event_kickoff"`
	Status              AlertStatus   `db:"status" json:"status"`
	DetectedAt          time.Time     `db:"detected_at" json:"detected_at"`
	AcknowledgedAt      *time.Time    `db:"acknowledged_at" json:"acknowledged_at"`
}

// IsPastDue checks whether the alert should flip to past at the given instant
func (a *RiskAlert) IsPastDue(now time.Time) bool {
	return a.Status != AlertStatusPast && !now.Before(a.EventKickoff)
}
