package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/models"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeScheduler struct {
	running bool
	next    time.Time
}

func (f *fakeScheduler) IsRunning() bool      { return f.running }
func (f *fakeScheduler) NextCycle() time.Time { return f.next }

func newTestServer(t *testing.T, db DatabasePinger, sched SchedulerStatus, registry *broadcast.Registry) (*Server, *httptest.Server) {
	t.Helper()

	base := logrus.New()
	base.SetOutput(io.Discard)

	server := NewServer(Config{
		ServiceName: "oddswatch",
		Version:     "test",
		Commit:      "deadbeef",
		Logger:      base,
		DB:          db,
		Scheduler:   sched,
		Registry:    registry,
	})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return server, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealthReportsComponents(t *testing.T) {
	sched := &fakeScheduler{running: true, next: time.Now().UTC().Add(5 * time.Minute)}
	_, ts := newTestServer(t, &fakePinger{}, sched, broadcast.NewRegistry())

	var response HealthResponse
	code := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "oddswatch", response.Service)
	assert.Equal(t, "ok", response.Checks["database"])
	assert.Equal(t, "ok", response.Checks["scheduler"])
	assert.NotEmpty(t, response.NextCycle)
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	sched := &fakeScheduler{running: true}
	_, ts := newTestServer(t, &fakePinger{err: errors.New("connection refused")}, sched, broadcast.NewRegistry())

	var response HealthResponse
	code := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", response.Status)
	assert.Contains(t, response.Checks["database"], "connection refused")
}

func TestHealthDegradedWhenSchedulerStopped(t *testing.T) {
	_, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: false}, broadcast.NewRegistry())

	var response HealthResponse
	code := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "stopped", response.Checks["scheduler"])
	assert.Empty(t, response.NextCycle)
}

func TestReadyLifecycle(t *testing.T) {
	server, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: true}, broadcast.NewRegistry())

	var response ReadyResponse
	code := getJSON(t, ts.URL+"/ready", &response)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", response.Checks["service"])

	server.SetReady(true)

	code = getJSON(t, ts.URL+"/ready", &response)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "ok", response.Checks["database"])
}

func TestLiveAlwaysOK(t *testing.T) {
	_, ts := newTestServer(t, &fakePinger{err: errors.New("down")}, &fakeScheduler{}, broadcast.NewRegistry())

	var response HealthResponse
	code := getJSON(t, ts.URL+"/live", &response)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", response.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: true}, broadcast.NewRegistry())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "oddswatch_cycle_running")
}

func dialProgress(t *testing.T, ts *httptest.Server, runID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/runs/" + runID + "/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readProgressEvent(t *testing.T, conn *websocket.Conn) *models.ProgressEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.ProgressEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return &event
}

func TestRunProgressStreamsUntilRunEnds(t *testing.T) {
	registry := broadcast.NewRegistry()
	runID := uuid.New()
	broadcaster := registry.Register(runID)

	// published before the subscriber connects, delivered as replay
	broadcaster.Publish(&models.ProgressEvent{
		EventType:   models.ProgressCycleStart,
		ScrapeRunID: runID,
		Timestamp:   time.Now().UTC(),
		TriggeredBy: models.TriggerManual,
	})

	_, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: true}, registry)
	conn := dialProgress(t, ts, runID.String())

	first := readProgressEvent(t, conn)
	assert.Equal(t, models.ProgressCycleStart, first.EventType)
	assert.Equal(t, runID, first.ScrapeRunID)
	assert.Equal(t, models.TriggerManual, first.TriggeredBy)

	broadcaster.Publish(&models.ProgressEvent{
		EventType:   models.ProgressCycleComplete,
		ScrapeRunID: runID,
		Timestamp:   time.Now().UTC(),
		Status:      string(models.RunStatusCompleted),
	})

	second := readProgressEvent(t, conn)
	assert.Equal(t, models.ProgressCycleComplete, second.EventType)
	assert.Equal(t, string(models.RunStatusCompleted), second.Status)

	registry.Release(runID)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestRunProgressUnknownRunIs404(t *testing.T) {
	_, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: true}, broadcast.NewRegistry())

	resp, err := http.Get(ts.URL + "/ws/runs/" + uuid.NewString() + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunProgressRejectsMalformedID(t *testing.T) {
	_, ts := newTestServer(t, &fakePinger{}, &fakeScheduler{running: true}, broadcast.NewRegistry())

	resp, err := http.Get(ts.URL + "/ws/runs/not-a-uuid/progress")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
