package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

// discoveryOutcome is the merged result of the discovery phase
type discoveryOutcome struct {
	candidates  []*eventCandidate
	perPlatform map[string]int
	timings     map[string]int64
	durationMS  int64
}

// discover asks every enabled adapter for its upcoming events in parallel
// and merges the answers into one candidate per canonical event. A failing
// platform costs its coverage, not the cycle; discovery errors out only
// when every platform fails.
func (c *Coordinator) discover(ctx context.Context, settings *models.Settings) (*discoveryOutcome, error) {
	start := time.Now()
	timeout := time.Duration(settings.BatchTimeoutSeconds) * time.Second

	type adapterResult struct {
		slug   string
		events []bookie.DiscoveredEvent
		ms     int64
		err    error
	}

	var (
		mu      sync.Mutex
		results []adapterResult
		wg      conc.WaitGroup
	)
	for _, slug := range models.AllBookmakers() {
		adapter, ok := c.adapters[slug]
		if !ok || !settings.PlatformEnabled(slug) {
			continue
		}
		wg.Go(func() {
			t0 := time.Now()
			dctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			events, err := adapter.DiscoverEvents(dctx)
			mu.Lock()
			results = append(results, adapterResult{
				slug:   slug,
				events: events,
				ms:     time.Since(t0).Milliseconds(),
				err:    err,
			})
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, fmt.Errorf("no platforms enabled for discovery")
	}

	outcome := &discoveryOutcome{
		perPlatform: make(map[string]int, len(results)),
		timings:     make(map[string]int64, len(results)),
	}
	merged := make(map[string]*eventCandidate)
	failed := 0
	for _, r := range results {
		outcome.timings[r.slug] = r.ms
		if r.err != nil {
			failed++
			c.log.WithFields(logrus.Fields{
				"platform": r.slug,
				"error":    r.err.Error(),
			}).Warn("Event discovery failed for platform")
			continue
		}
		outcome.perPlatform[r.slug] = len(r.events)
		for _, ev := range r.events {
			mergeCandidate(merged, r.slug, ev)
		}
	}
	if failed == len(results) {
		return nil, fmt.Errorf("event discovery failed on all %d platforms", len(results))
	}

	outcome.candidates = make([]*eventCandidate, 0, len(merged))
	for _, cand := range merged {
		outcome.candidates = append(outcome.candidates, cand)
	}
	outcome.durationMS = time.Since(start).Milliseconds()
	return outcome, nil
}

// mergeCandidate unions one discovered event into the candidate map. The
// reference book's kickoff wins when sources disagree.
func mergeCandidate(merged map[string]*eventCandidate, slug string, ev bookie.DiscoveredEvent) {
	cand, ok := merged[ev.CanonicalID]
	if !ok {
		cand = &eventCandidate{
			canonicalID: ev.CanonicalID,
			kickoff:     ev.Kickoff,
			refKickoff:  slug == models.ReferenceBookmaker,
			platforms:   make(map[string]string, len(models.AllBookmakers())),
		}
		merged[ev.CanonicalID] = cand
	}
	cand.platforms[slug] = ev.NativeEventID
	if slug == models.ReferenceBookmaker && !cand.refKickoff {
		cand.kickoff = ev.Kickoff
		cand.refKickoff = true
	}
}
