package coordinator

import (
	"sort"
	"time"

	"github.com/yourusername/oddswatch/internal/models"
)

// eventCandidate is one event discovered this cycle, merged across every
// platform that listed it. platforms maps bookmaker slug to that book's
// native event ID.
type eventCandidate struct {
	canonicalID string
	kickoff     time.Time
	refKickoff  bool
	platforms   map[string]string
}

func (e *eventCandidate) hasReference() bool {
	_, ok := e.platforms[models.ReferenceBookmaker]
	return ok
}

// urgency buckets candidates by time to kickoff: inside 30 minutes is
// the most urgent, inside two hours next, everything beyond that last.
func urgency(kickoff, now time.Time) int {
	switch {
	case kickoff.Before(now.Add(30 * time.Minute)):
		return 0
	case kickoff.Before(now.Add(2 * time.Hour)):
		return 1
	default:
		return 2
	}
}

// buildQueue orders candidates for scraping: urgency bucket, then earlier
// kickoff, then broader platform coverage, then presence of the reference
// book, with canonical ID as the deterministic tiebreak.
func buildQueue(candidates []*eventCandidate, now time.Time) []*eventCandidate {
	queue := make([]*eventCandidate, len(candidates))
	copy(queue, candidates)
	sort.Slice(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		ua, ub := urgency(a.kickoff, now), urgency(b.kickoff, now)
		if ua != ub {
			return ua < ub
		}
		if !a.kickoff.Equal(b.kickoff) {
			return a.kickoff.Before(b.kickoff)
		}
		if len(a.platforms) != len(b.platforms) {
			return len(a.platforms) > len(b.platforms)
		}
		if a.hasReference() != b.hasReference() {
			return a.hasReference()
		}
		return a.canonicalID < b.canonicalID
	})
	return queue
}

// splitBatches chunks the queue into batches of at most size, preserving
// queue order
func splitBatches(queue []*eventCandidate, size int) [][]*eventCandidate {
	if size < 1 {
		size = 1
	}
	var batches [][]*eventCandidate
	for start := 0; start < len(queue); start += size {
		end := start + size
		if end > len(queue) {
			end = len(queue)
		}
		batches = append(batches, queue[start:end])
	}
	return batches
}
