package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yourusername/oddswatch/internal/models"
)

// subscriberBuffer bounds each subscriber's queue. A consumer that
// falls further behind loses its oldest events, never its newest.
const subscriberBuffer = 16

// Broadcaster fans progress events from one scrape run out to any
// number of subscribers. The coordinator publishes; transport handlers
// subscribe.
type Broadcaster struct {
	runID uuid.UUID

	mu          sync.Mutex
	subscribers []chan *models.ProgressEvent
	latest      *models.ProgressEvent
	closed      bool
}

// NewBroadcaster creates a broadcaster for one run.
func NewBroadcaster(runID uuid.UUID) *Broadcaster {
	return &Broadcaster{runID: runID}
}

// RunID returns the scrape run this broadcaster belongs to.
func (b *Broadcaster) RunID() uuid.UUID {
	return b.runID
}

// Publish delivers an event to every subscriber without blocking the
// publisher. When a subscriber's queue is full its oldest queued event
// is discarded to make room. Publishing after Close is a no-op.
func (b *Broadcaster) Publish(event *models.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = event
	for _, ch := range b.subscribers {
		send(ch, event)
	}
}

// Subscribe registers a new subscriber. The returned channel first
// replays the most recent event (if any) so a late subscriber can
// catch up, then follows live updates. A nil event marks the end of
// the run, after which the channel is closed. Subscribing to an
// already closed broadcaster yields the replay and the sentinel
// immediately.
func (b *Broadcaster) Subscribe() <-chan *models.ProgressEvent {
	ch := make(chan *models.ProgressEvent, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil {
		ch <- b.latest
	}
	if b.closed {
		ch <- nil
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close marks the run finished and signals every subscriber with a nil
// sentinel. Safe to call more than once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		send(ch, nil)
		close(ch)
	}
	b.subscribers = nil
}

// send enqueues without blocking, dropping the subscriber's oldest
// queued event when the buffer is full. Only the goroutine holding
// b.mu sends on subscriber channels, so the retry always terminates.
func send(ch chan *models.ProgressEvent, event *models.ProgressEvent) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
