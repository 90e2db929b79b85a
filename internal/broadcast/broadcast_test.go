package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oddswatch/internal/models"
)

func progressEvent(runID uuid.UUID, seq int) *models.ProgressEvent {
	return &models.ProgressEvent{
		EventType:   models.ProgressEventScraped,
		ScrapeRunID: runID,
		Timestamp:   time.Now().UTC(),
		TotalEvents: seq,
	}
}

// receive pulls one event without letting a broken broadcaster hang
// the test.
func receive(t *testing.T, ch <-chan *models.ProgressEvent) (*models.ProgressEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
		return nil, false
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	runID := uuid.New()
	b := NewBroadcaster(runID)
	assert.Equal(t, runID, b.RunID())

	first := b.Subscribe()
	second := b.Subscribe()

	for seq := 1; seq <= 3; seq++ {
		b.Publish(progressEvent(runID, seq))
	}

	for _, ch := range []<-chan *models.ProgressEvent{first, second} {
		for seq := 1; seq <= 3; seq++ {
			ev, ok := receive(t, ch)
			require.True(t, ok)
			require.NotNil(t, ev)
			assert.Equal(t, seq, ev.TotalEvents)
		}
	}
}

func TestSubscribeReplaysLatestEvent(t *testing.T) {
	runID := uuid.New()
	b := NewBroadcaster(runID)

	b.Publish(progressEvent(runID, 1))
	b.Publish(progressEvent(runID, 2))

	ch := b.Subscribe()
	ev, _ := receive(t, ch)
	require.NotNil(t, ev)
	assert.Equal(t, 2, ev.TotalEvents)

	b.Publish(progressEvent(runID, 3))
	ev, _ = receive(t, ch)
	require.NotNil(t, ev)
	assert.Equal(t, 3, ev.TotalEvents)
}

func TestCloseSendsNilSentinel(t *testing.T) {
	runID := uuid.New()
	b := NewBroadcaster(runID)
	ch := b.Subscribe()

	b.Publish(progressEvent(runID, 1))
	b.Close()
	b.Close()
	b.Publish(progressEvent(runID, 2))

	ev, ok := receive(t, ch)
	require.True(t, ok)
	require.NotNil(t, ev)
	assert.Equal(t, 1, ev.TotalEvents)

	ev, ok = receive(t, ch)
	require.True(t, ok)
	assert.Nil(t, ev)

	_, ok = receive(t, ch)
	assert.False(t, ok)
}

func TestSubscribeAfterClose(t *testing.T) {
	runID := uuid.New()
	b := NewBroadcaster(runID)
	b.Publish(progressEvent(runID, 7))
	b.Close()

	ch := b.Subscribe()

	ev, ok := receive(t, ch)
	require.True(t, ok)
	require.NotNil(t, ev)
	assert.Equal(t, 7, ev.TotalEvents)

	ev, ok = receive(t, ch)
	require.True(t, ok)
	assert.Nil(t, ev)

	_, ok = receive(t, ch)
	assert.False(t, ok)
}

func TestSlowSubscriberLosesOldestEvents(t *testing.T) {
	runID := uuid.New()
	b := NewBroadcaster(runID)
	ch := b.Subscribe()

	total := subscriberBuffer + 3
	for seq := 1; seq <= total; seq++ {
		b.Publish(progressEvent(runID, seq))
	}

	var received []int
	for len(ch) > 0 {
		ev, _ := receive(t, ch)
		require.NotNil(t, ev)
		received = append(received, ev.TotalEvents)
	}

	require.Len(t, received, subscriberBuffer)
	assert.Equal(t, 4, received[0])
	assert.Equal(t, total, received[len(received)-1])
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	runID := uuid.New()

	b := reg.Register(runID)
	require.NotNil(t, b)
	assert.Same(t, b, reg.Register(runID))
	assert.Same(t, b, reg.Get(runID))
	assert.Equal(t, 1, reg.Count())

	ch := b.Subscribe()
	reg.Release(runID)

	ev, ok := receive(t, ch)
	require.True(t, ok)
	assert.Nil(t, ev)

	assert.Nil(t, reg.Get(runID))
	assert.Equal(t, 0, reg.Count())

	reg.Release(uuid.New())
}

func TestWatchSeesNewRegistrations(t *testing.T) {
	reg := NewRegistry()
	watch := reg.Watch()

	first := uuid.New()
	second := uuid.New()
	reg.Register(first)
	reg.Register(first) // re-registration is silent
	reg.Register(second)

	assert.Equal(t, first, <-watch)
	assert.Equal(t, second, <-watch)
	select {
	case id := <-watch:
		t.Fatalf("unexpected watch notification %s", id)
	default:
	}
}
