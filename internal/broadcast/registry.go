package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the broadcaster of every in-flight run so transport
// handlers can attach by run ID.
type Registry struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]*Broadcaster
	watchers []chan uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[uuid.UUID]*Broadcaster)}
}

// Register creates and tracks a broadcaster for the run. Registering
// the same run again returns the existing broadcaster.
func (r *Registry) Register(runID uuid.UUID) *Broadcaster {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.runs[runID]; ok {
		return b
	}
	b := NewBroadcaster(runID)
	r.runs[runID] = b
	for _, w := range r.watchers {
		select {
		case w <- runID:
		default:
		}
	}
	return b
}

// Watch returns a channel that receives the ID of every run registered
// after the call, so a consumer that did not start the run can attach
// to its broadcaster. A watcher that is not being read may miss IDs.
func (r *Registry) Watch() <-chan uuid.UUID {
	ch := make(chan uuid.UUID, 4)
	r.mu.Lock()
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()
	return ch
}

// Get returns the broadcaster for a run, or nil when the run is
// unknown or already released.
func (r *Registry) Get(runID uuid.UUID) *Broadcaster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs[runID]
}

// Release closes the run's broadcaster and forgets it. Releasing an
// unknown run is a no-op.
func (r *Registry) Release(runID uuid.UUID) {
	r.mu.Lock()
	b, ok := r.runs[runID]
	delete(r.runs, runID)
	r.mu.Unlock()
	if ok {
		b.Close()
	}
}

// Count returns the number of tracked runs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
