package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/oddswatch/internal/models"
)

func candidate(canonicalID string, kickoff time.Time, platforms ...string) *eventCandidate {
	c := &eventCandidate{
		canonicalID: canonicalID,
		kickoff:     kickoff,
		platforms:   make(map[string]string, len(platforms)),
	}
	for _, p := range platforms {
		c.platforms[p] = p + "-" + canonicalID
	}
	return c
}

func queueIDs(queue []*eventCandidate) []string {
	ids := make([]string, 0, len(queue))
	for _, c := range queue {
		ids = append(ids, c.canonicalID)
	}
	return ids
}

func TestUrgencyBuckets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, urgency(now.Add(-10*time.Minute), now), "already kicked off stays most urgent")
	assert.Equal(t, 0, urgency(now.Add(5*time.Minute), now))
	assert.Equal(t, 0, urgency(now.Add(29*time.Minute), now))
	assert.Equal(t, 1, urgency(now.Add(30*time.Minute), now), "boundary belongs to the next bucket")
	assert.Equal(t, 1, urgency(now.Add(90*time.Minute), now))
	assert.Equal(t, 2, urgency(now.Add(2*time.Hour), now))
	assert.Equal(t, 2, urgency(now.Add(26*time.Hour), now))
}

func TestBuildQueueOrdersByUrgencyThenKickoff(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	late := candidate("late", now.Add(5*time.Hour), models.BookmakerBetPrime, models.BookmakerStakeOne, models.BookmakerSpinBet)
	soon := candidate("soon", now.Add(10*time.Minute), models.BookmakerStakeOne)
	mid := candidate("mid", now.Add(90*time.Minute), models.BookmakerBetPrime)

	queue := buildQueue([]*eventCandidate{late, soon, mid}, now)
	assert.Equal(t, []string{"soon", "mid", "late"}, queueIDs(queue))
}

func TestBuildQueueBreaksTiesByCoverageThenReference(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	kickoff := now.Add(3 * time.Hour)

	full := candidate("d-full", kickoff, models.BookmakerBetPrime, models.BookmakerStakeOne, models.BookmakerSpinBet)
	withRef := candidate("c-ref", kickoff, models.BookmakerBetPrime, models.BookmakerStakeOne)
	noRef := candidate("b-noref", kickoff, models.BookmakerStakeOne, models.BookmakerSpinBet)
	single := candidate("a-single", kickoff, models.BookmakerStakeOne)

	queue := buildQueue([]*eventCandidate{single, noRef, withRef, full}, now)
	assert.Equal(t, []string{"d-full", "c-ref", "b-noref", "a-single"}, queueIDs(queue))
}

func TestBuildQueueTiebreaksOnCanonicalID(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	kickoff := now.Add(3 * time.Hour)

	b := candidate("2025-03-01-b", kickoff, models.BookmakerBetPrime)
	a := candidate("2025-03-01-a", kickoff, models.BookmakerBetPrime)

	queue := buildQueue([]*eventCandidate{b, a}, now)
	assert.Equal(t, []string{"2025-03-01-a", "2025-03-01-b"}, queueIDs(queue))
}

func TestBuildQueueDoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	input := []*eventCandidate{
		candidate("z", now.Add(5*time.Hour), models.BookmakerBetPrime),
		candidate("a", now.Add(10*time.Minute), models.BookmakerBetPrime),
	}

	buildQueue(input, now)
	assert.Equal(t, []string{"z", "a"}, queueIDs(input))
}

func TestSplitBatches(t *testing.T) {
	now := time.Now()
	queue := make([]*eventCandidate, 0, 7)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		queue = append(queue, candidate(id, now, models.BookmakerBetPrime))
	}

	batches := splitBatches(queue, 3)
	assert.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, queueIDs(batches[0]))
	assert.Equal(t, []string{"d", "e", "f"}, queueIDs(batches[1]))
	assert.Equal(t, []string{"g"}, queueIDs(batches[2]))
}

func TestSplitBatchesEmptyQueue(t *testing.T) {
	assert.Nil(t, splitBatches(nil, 10))
}

func TestSplitBatchesClampsBatchSize(t *testing.T) {
	queue := []*eventCandidate{
		candidate("a", time.Now(), models.BookmakerBetPrime),
		candidate("b", time.Now(), models.BookmakerBetPrime),
	}

	batches := splitBatches(queue, 0)
	assert.Len(t, batches, 2)
}

func TestTerminalStatus(t *testing.T) {
	assert.Equal(t, models.RunStatusCompleted, terminalStatus(&models.ScrapeRun{EventsScraped: 5, EventsFailed: 0}))
	assert.Equal(t, models.RunStatusCompleted, terminalStatus(&models.ScrapeRun{}), "empty cycle completes")
	assert.Equal(t, models.RunStatusPartial, terminalStatus(&models.ScrapeRun{EventsScraped: 3, EventsFailed: 2}))
	assert.Equal(t, models.RunStatusFailed, terminalStatus(&models.ScrapeRun{EventsScraped: 0, EventsFailed: 4}))
}
