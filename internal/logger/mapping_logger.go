// Package logger provides market mapping logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// MappingLogger provides dedicated logging for the market mapping layer.
type MappingLogger struct {
	*logrus.Entry
}

// NewMappingLogger creates a new mapping logger.
func NewMappingLogger(baseLogger *logrus.Logger) *MappingLogger {
	return &MappingLogger{
		Entry: baseLogger.WithField("component", "mapping"),
	}
}

// LogUnmappedMarket logs a market with no canonical mapping.
func (ml *MappingLogger) LogUnmappedMarket(source, externalMarketID, marketName string, occurrenceCount int) {
	ml.WithFields(logrus.Fields{
		"source":             source,
		"external_market_id": externalMarketID,
		"market_name":        marketName,
		"occurrence_count":   occurrenceCount,
	}).Warn("Unmapped market recorded")
}

// LogMappingFailure logs a market that failed to map for a structural reason.
func (ml *MappingLogger) LogMappingFailure(source, externalMarketID, reason string, err error) {
	ml.WithFields(logrus.Fields{
		"source":             source,
		"external_market_id": externalMarketID,
		"reason":             reason,
		"error":              err.Error(),
	}).Warn("Market mapping failed")
}

// LogMappingsLoaded logs a rebuild of the merged mapping view.
func (ml *MappingLogger) LogMappingsLoaded(compiled, overrides, merged int) {
	ml.WithFields(logrus.Fields{
		"compiled_mappings": compiled,
		"db_overrides":      overrides,
		"merged_mappings":   merged,
	}).Info("Market mappings loaded")
}
