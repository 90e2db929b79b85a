package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestCycleLoggerRunStarted(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	runID := uuid.New()
	cycleLogger.LogRunStarted(runID, "scheduled")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, runID.String(), logEntry["run_id"])
	assert.Equal(t, "scheduled", logEntry["trigger"])
	assert.Equal(t, "coordinator", logEntry["component"])
}

func TestCycleLoggerDiscoveryComplete(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	runID := uuid.New()
	cycleLogger.LogDiscoveryComplete(runID, 42, map[string]int{"bp": 40, "s1": 38, "s2": 35}, 1250)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(42), logEntry["total_events"])
	assert.Equal(t, float64(1250), logEntry["duration_ms"])
}

func TestCycleLoggerBatchComplete(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	cycleLogger.LogBatchComplete(uuid.New(), 3, 9, 1, 4800)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(3), logEntry["batch_index"])
	assert.Equal(t, float64(9), logEntry["succeeded"])
	assert.Equal(t, float64(1), logEntry["failed"])
}

func TestCycleLoggerEventScrapeFailed(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	runID := uuid.New()
	eventID := uuid.New()
	cycleLogger.LogEventScrapeFailed(runID, eventID, map[string]string{
		"bp": "network_error",
		"s1": "api_error",
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, eventID.String(), logEntry["event_id"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestCycleLoggerRunCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	cycleLogger.LogRunCompleted(uuid.New(), "partial", 38, 4, 92000)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "partial", logEntry["status"])
	assert.Equal(t, float64(38), logEntry["events_scraped"])
}

func TestCycleLoggerStaleRunDetected(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	lastActivity := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	cycleLogger.LogStaleRunDetected(uuid.New(), lastActivity)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(lastActivity.Unix()), logEntry["last_activity"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestMappingLoggerUnmappedMarket(t *testing.T) {
	log, buf := setupTestLogger()
	mappingLogger := NewMappingLogger(log)

	mappingLogger.LogUnmappedMarket("s2", "S_CORNERS_TOTAL", "Total Corners", 7)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "s2", logEntry["source"])
	assert.Equal(t, "S_CORNERS_TOTAL", logEntry["external_market_id"])
	assert.Equal(t, float64(7), logEntry["occurrence_count"])
	assert.Equal(t, "mapping", logEntry["component"])
}

func TestMappingLoggerMappingsLoaded(t *testing.T) {
	log, buf := setupTestLogger()
	mappingLogger := NewMappingLogger(log)

	mappingLogger.LogMappingsLoaded(9, 2, 10)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(9), logEntry["compiled_mappings"])
	assert.Equal(t, float64(2), logEntry["db_overrides"])
	assert.Equal(t, float64(10), logEntry["merged_mappings"])
}

func TestAlertLoggerPriceChange(t *testing.T) {
	log, buf := setupTestLogger()
	alertLogger := NewAlertLogger(log)

	eventID := uuid.New()
	alertLogger.LogPriceChange(eventID, "bp", "1X2", "home", 2.0, 2.2, 10.0, "elevated")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, eventID.String(), logEntry["event_id"])
	assert.Equal(t, float64(10.0), logEntry["change_percent"])
	assert.Equal(t, "elevated", logEntry["severity"])
	assert.Equal(t, "risk", logEntry["component"])
}

func TestAlertLoggerDirectionDisagreement(t *testing.T) {
	log, buf := setupTestLogger()
	alertLogger := NewAlertLogger(log)

	alertLogger.LogDirectionDisagreement(uuid.New(), "1X2", "home", "down", "s1:up")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "down", logEntry["reference_direction"])
	assert.Equal(t, "s1:up", logEntry["competitor_direction"])
}

func TestAlertLoggerAvailabilityChange(t *testing.T) {
	log, buf := setupTestLogger()
	alertLogger := NewAlertLogger(log)

	alertLogger.LogAvailabilityChange(uuid.New(), "s1", "BTTS", "suspended")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "suspended", logEntry["direction"])
	assert.Equal(t, "info", logEntry["level"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	cycleLogger := NewCycleLogger(log)

	cycleLogger.LogRunStarted(uuid.New(), "manual")

	// Verify output is valid JSON
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}

func TestNewLoggerLevelFallback(t *testing.T) {
	log := NewLogger("not-a-level", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log = NewLogger("debug", "development")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewLoggerProductionFormatter(t *testing.T) {
	log := NewLogger("info", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	log = NewLogger("info", "development")
	_, ok = log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
