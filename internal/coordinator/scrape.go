package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
)

// eventScrapeResult is the outcome of scraping one event across every
// platform that listed it. raw holds the payloads of the platforms that
// answered; errs the failure messages of the ones that did not.
type eventScrapeResult struct {
	candidate   *eventCandidate
	raw         map[string]*bookie.RawEvent
	errs        map[string]string
	perPlatform map[string]int64
	durationMS  int64
}

func (r *eventScrapeResult) succeeded() bool {
	return len(r.raw) > 0
}

// attempted lists the platforms this event was fetched from, in the fixed
// bookmaker order
func (r *eventScrapeResult) attempted() []string {
	out := make([]string, 0, len(r.candidate.platforms))
	for _, slug := range models.AllBookmakers() {
		if _, ok := r.candidate.platforms[slug]; ok {
			out = append(out, slug)
		}
	}
	return out
}

// outcomes splits the attempted platforms by result, in the fixed order
func (r *eventScrapeResult) outcomes(success bool) []string {
	var out []string
	for _, slug := range r.attempted() {
		if _, ok := r.raw[slug]; ok == success {
			out = append(out, slug)
		}
	}
	return out
}

// scrapeBatch fans the batch out over a bounded goroutine pool. Every
// event gets a result; one event failing hard never takes down its batch.
func (c *Coordinator) scrapeBatch(ctx context.Context, runID uuid.UUID, b *broadcast.Broadcaster, batch []*eventCandidate, settings *models.Settings) []*eventScrapeResult {
	timeout := time.Duration(settings.BatchTimeoutSeconds) * time.Second
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]*eventScrapeResult, 0, len(batch))
	)
	p := pool.New().WithMaxGoroutines(settings.MaxConcurrentEvents)
	for _, cand := range batch {
		p.Go(func() {
			res := c.scrapeEvent(bctx, runID, b, cand)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
	}
	p.Wait()
	return results
}

// scrapeEvent fetches one event from each of its platforms in parallel
func (c *Coordinator) scrapeEvent(ctx context.Context, runID uuid.UUID, b *broadcast.Broadcaster, cand *eventCandidate) *eventScrapeResult {
	start := time.Now()
	res := &eventScrapeResult{
		candidate:   cand,
		raw:         make(map[string]*bookie.RawEvent, len(cand.platforms)),
		errs:        make(map[string]string),
		perPlatform: make(map[string]int64, len(cand.platforms)),
	}

	c.publish(b, runID, &models.ProgressEvent{
		EventType:        models.ProgressEventScraping,
		CanonicalEventID: cand.canonicalID,
		Platforms:        res.attempted(),
	})

	var (
		mu sync.Mutex
		wg conc.WaitGroup
	)
	for _, slug := range res.attempted() {
		adapter := c.adapters[slug]
		nativeID := cand.platforms[slug]
		wg.Go(func() {
			t0 := time.Now()
			payload, err := adapter.FetchEvent(ctx, nativeID)
			elapsed := time.Since(t0).Milliseconds()

			mu.Lock()
			defer mu.Unlock()
			res.perPlatform[slug] = elapsed
			if err != nil {
				res.errs[slug] = err.Error()
				return
			}
			res.raw[slug] = payload
		})
	}
	wg.Wait()

	res.durationMS = time.Since(start).Milliseconds()
	if res.succeeded() {
		metrics.RecordEventScraped(float64(res.durationMS) / 1000)
	} else {
		metrics.RecordEventFailed()
	}

	c.publish(b, runID, &models.ProgressEvent{
		EventType:          models.ProgressEventScraped,
		CanonicalEventID:   cand.canonicalID,
		PlatformsSucceeded: res.outcomes(true),
		PlatformsFailed:    res.outcomes(false),
		PerPlatformMS:      res.perPlatform,
		DurationMS:         res.durationMS,
	})
	return res
}
