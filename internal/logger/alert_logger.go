// Package logger provides risk alert logging.
package logger

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertLogger provides dedicated logging for emitted risk alerts.
type AlertLogger struct {
	*logrus.Entry
}

// NewAlertLogger creates a new alert logger.
func NewAlertLogger(baseLogger *logrus.Logger) *AlertLogger {
	return &AlertLogger{
		Entry: baseLogger.WithField("component", "risk"),
	}
}

// LogPriceChange logs a significant price movement alert.
func (al *AlertLogger) LogPriceChange(eventID uuid.UUID, bookmaker, marketID, outcome string, oldOdds, newOdds, changePercent float64, severity string) {
	al.WithFields(logrus.Fields{
		"event_id":       eventID.String(),
		"bookmaker":      bookmaker,
		"market_id":      marketID,
		"outcome":        outcome,
		"old_odds":       oldOdds,
		"new_odds":       newOdds,
		"change_percent": changePercent,
		"severity":       severity,
	}).Warn("Price change alert")
}

// LogDirectionDisagreement logs a reference move contradicted by a competitor.
func (al *AlertLogger) LogDirectionDisagreement(eventID uuid.UUID, marketID, outcome, referenceDirection, competitorDirection string) {
	al.WithFields(logrus.Fields{
		"event_id":             eventID.String(),
		"market_id":            marketID,
		"outcome":              outcome,
		"reference_direction":  referenceDirection,
		"competitor_direction": competitorDirection,
	}).Warn("Direction disagreement alert")
}

// LogAvailabilityChange logs a market suspension or return.
func (al *AlertLogger) LogAvailabilityChange(eventID uuid.UUID, bookmaker, marketID, direction string) {
	al.WithFields(logrus.Fields{
		"event_id":  eventID.String(),
		"bookmaker": bookmaker,
		"market_id": marketID,
		"direction": direction,
	}).Info("Market availability changed")
}

// LogAlertsSweptPast logs the periodic sweep of alerts past kickoff.
func (al *AlertLogger) LogAlertsSweptPast(count int64) {
	al.WithFields(logrus.Fields{
		"count": count,
	}).Info("Alerts swept to past")
}
