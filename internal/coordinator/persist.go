package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/mapping"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
	"github.com/yourusername/oddswatch/internal/risk"
	"github.com/yourusername/oddswatch/internal/writequeue"
)

// errNoMetadata marks an event seen for the first time whose scrape failed
// on every platform: there is nothing to create a canonical row from.
var errNoMetadata = errors.New("no payload to create event from")

// storeBatchResults persists one finished batch: canonical rows and status
// rows on the coordinator's own session, snapshots and alerts through the
// write queue, cache updates last. An error aborts the rest of the batch
// but not the cycle.
func (c *Coordinator) storeBatchResults(ctx context.Context, run *models.ScrapeRun, batchIndex int, results []*eventScrapeResult, thresholds risk.Thresholds, cycleStart time.Time) error {
	batch := &writequeue.WriteBatch{
		ScrapeRunID: run.ID,
		BatchIndex:  batchIndex,
		ConfirmedAt: cycleStart,
	}

	var cachePuts []func()
	for _, res := range results {
		puts, err := c.storeEventResult(ctx, run, res, thresholds, batch, cycleStart)
		if err != nil {
			return err
		}
		cachePuts = append(cachePuts, puts...)
	}

	if !batch.IsEmpty() {
		if err := c.sink.Enqueue(ctx, batch); err != nil {
			return fmt.Errorf("enqueue write batch %d: %w", batchIndex, err)
		}
	}
	for _, put := range cachePuts {
		put()
	}
	return nil
}

// storeEventResult handles one event's scrape outcome: resolve or create
// the canonical rows, insert the per-event status row, classify each
// snapshot against the cache and fold the writes into the batch. The cache
// updates are returned as closures so they apply only after the batch is
// accepted by the write queue.
func (c *Coordinator) storeEventResult(ctx context.Context, run *models.ScrapeRun, res *eventScrapeResult, thresholds risk.Thresholds, batch *writequeue.WriteBatch, cycleStart time.Time) ([]func(), error) {
	event, err := c.resolveEvent(ctx, res)
	if errors.Is(err, errNoMetadata) {
		c.log.WithFields(logrus.Fields{
			"run_id":          run.ID.String(),
			"canonical_id":    res.candidate.canonicalID,
			"platform_errors": res.errs,
		}).Warn("Unseen event failed on all platforms, nothing to record")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	status := &models.EventScrapeStatus{
		ID:                 uuid.New(),
		ScrapeRunID:        run.ID,
		EventID:            event.ID,
		PlatformsAttempted: res.attempted(),
		PlatformsSucceeded: res.outcomes(true),
		PlatformsFailed:    res.outcomes(false),
		DurationMS:         res.durationMS,
		Errors:             res.errs,
	}
	if err := c.repos.ScrapeRun.InsertEventStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("insert event status for %s: %w", event.CanonicalID, err)
	}
	if !res.succeeded() {
		c.log.LogEventScrapeFailed(run.ID, event.ID, res.errs)
		return nil, nil
	}

	captured := time.Now().UTC()
	observation := &risk.EventOdds{EventID: event.ID, Kickoff: event.Kickoff}
	var cachePuts []func()

	if refRaw := res.raw[models.ReferenceBookmaker]; refRaw != nil {
		if err := c.linkBookmaker(ctx, event, models.ReferenceBookmaker, refRaw); err != nil {
			return nil, err
		}
		snapshot := c.buildReferenceSnapshot(run.ID, event, refRaw, captured)
		if len(snapshot.Markets) > 0 {
			changed, prev := c.deltas.ClassifyReference(models.ReferenceBookmaker, snapshot)
			observation.Reference = &risk.ReferenceObservation{
				Bookmaker: models.ReferenceBookmaker,
				Previous:  prev,
				Fresh:     snapshot,
			}
			if changed {
				batch.ChangedReference = append(batch.ChangedReference, writequeue.ReferenceWrite{
					Bookmaker: models.ReferenceBookmaker,
					Snapshot:  snapshot,
				})
				merged := oddscache.Merge(prev, oddscache.NewReferenceSnapshot(snapshot), captured)
				cachePuts = append(cachePuts, func() {
					c.cache.PutReference(event.ID, models.ReferenceBookmaker, merged, event.Kickoff)
				})
			} else {
				batch.UnchangedReference = append(batch.UnchangedReference, writequeue.SnapshotRef{
					ID:         prev.SnapshotID,
					CapturedAt: prev.CapturedAt,
					Bookmaker:  models.ReferenceBookmaker,
				})
				confirmed := prev.WithConfirmed(cycleStart)
				cachePuts = append(cachePuts, func() {
					c.cache.PutReference(event.ID, models.ReferenceBookmaker, confirmed, event.Kickoff)
				})
			}
		}
	}

	for _, source := range models.CompetitorBookmakers() {
		raw := res.raw[source]
		if raw == nil {
			continue
		}
		compEvent, err := c.resolveCompetitorEvent(ctx, event, source, raw)
		if err != nil {
			return nil, err
		}
		if err := c.linkBookmaker(ctx, event, source, raw); err != nil {
			return nil, err
		}
		snapshot := c.buildCompetitorSnapshot(run.ID, compEvent.ID, source, raw, captured)
		if len(snapshot.Markets) == 0 {
			continue
		}
		changed, prev := c.deltas.ClassifyCompetitor(event.ID, snapshot)
		observation.Competitors = append(observation.Competitors, risk.CompetitorObservation{
			Source:   source,
			Previous: prev,
			Fresh:    snapshot,
		})
		if changed {
			batch.ChangedCompetitor = append(batch.ChangedCompetitor, snapshot)
			merged := oddscache.Merge(prev, oddscache.NewCompetitorSnapshot(snapshot, event.ID), captured)
			cachePuts = append(cachePuts, func() {
				c.cache.PutCompetitor(event.ID, source, merged, event.Kickoff)
			})
		} else {
			batch.UnchangedCompetitor = append(batch.UnchangedCompetitor, writequeue.SnapshotRef{
				ID:         prev.SnapshotID,
				CapturedAt: prev.CapturedAt,
				Bookmaker:  source,
			})
			confirmed := prev.WithConfirmed(cycleStart)
			cachePuts = append(cachePuts, func() {
				c.cache.PutCompetitor(event.ID, source, confirmed, event.Kickoff)
			})
		}
	}

	findings := c.risks.Inspect(observation, thresholds, captured)
	for i := range findings.Alerts {
		batch.RiskAlerts = append(batch.RiskAlerts, &findings.Alerts[i])
	}
	batch.AvailabilityUpdates = append(batch.AvailabilityUpdates, findings.AvailabilityUpdates...)
	batch.CompetitorAvailabilityUpdates = append(batch.CompetitorAvailabilityUpdates, findings.CompetitorAvailabilityUpdates...)

	return cachePuts, nil
}

// resolveEvent finds the canonical event row for the scrape, creating it
// on first sight. The reference book is authoritative for names and
// kickoff; competitor payloads may only correct kickoff.
func (c *Coordinator) resolveEvent(ctx context.Context, res *eventScrapeResult) (*models.Event, error) {
	cand := res.candidate
	event, err := c.repos.Event.GetByCanonicalID(ctx, cand.canonicalID)
	if err == nil {
		return c.refreshEventMetadata(ctx, event, res)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load event %s: %w", cand.canonicalID, err)
	}

	meta := res.raw[models.ReferenceBookmaker]
	metaSource := models.ReferenceBookmaker
	if meta == nil {
		for _, source := range models.CompetitorBookmakers() {
			if raw := res.raw[source]; raw != nil {
				meta = raw
				metaSource = source
				break
			}
		}
	}
	if meta == nil {
		return nil, errNoMetadata
	}

	var tournamentID uuid.UUID
	if metaSource == models.ReferenceBookmaker {
		tournamentID, err = c.referenceTournament(ctx, meta)
	} else {
		tournamentID, err = c.competitorFirstTournament(ctx, metaSource, meta)
	}
	if err != nil {
		return nil, err
	}

	event = &models.Event{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Name:         eventName(meta.HomeTeam, meta.AwayTeam),
		HomeTeam:     meta.HomeTeam,
		AwayTeam:     meta.AwayTeam,
		CanonicalID:  cand.canonicalID,
		Kickoff:      meta.Kickoff,
	}
	if err := c.repos.Event.Upsert(ctx, event); err != nil {
		return nil, fmt.Errorf("create event %s: %w", cand.canonicalID, err)
	}
	return event, nil
}

// refreshEventMetadata applies this cycle's payloads to an existing event
func (c *Coordinator) refreshEventMetadata(ctx context.Context, event *models.Event, res *eventScrapeResult) (*models.Event, error) {
	if refRaw := res.raw[models.ReferenceBookmaker]; refRaw != nil {
		if event.HomeTeam == refRaw.HomeTeam && event.AwayTeam == refRaw.AwayTeam && event.Kickoff.Equal(refRaw.Kickoff) {
			return event, nil
		}
		event.HomeTeam = refRaw.HomeTeam
		event.AwayTeam = refRaw.AwayTeam
		event.Name = eventName(refRaw.HomeTeam, refRaw.AwayTeam)
		event.Kickoff = refRaw.Kickoff
		if err := c.repos.Event.Upsert(ctx, event); err != nil {
			return nil, fmt.Errorf("refresh event %s: %w", event.CanonicalID, err)
		}
		return event, nil
	}

	for _, source := range models.CompetitorBookmakers() {
		raw := res.raw[source]
		if raw == nil || raw.Kickoff.IsZero() || event.Kickoff.Equal(raw.Kickoff) {
			continue
		}
		event.Kickoff = raw.Kickoff
		if err := c.repos.Event.Upsert(ctx, event); err != nil {
			return nil, fmt.Errorf("correct kickoff for event %s: %w", event.CanonicalID, err)
		}
		break
	}
	return event, nil
}

// referenceTournament resolves the canonical tournament for a reference
// payload, creating it on first sight keyed by the reference book's own
// tournament ID.
func (c *Coordinator) referenceTournament(ctx context.Context, raw *bookie.RawEvent) (uuid.UUID, error) {
	if raw.TournamentID == "" {
		return uuid.Nil, fmt.Errorf("reference payload for event %s carries no tournament", raw.NativeEventID)
	}
	t, err := c.repos.Tournament.GetByCanonicalID(ctx, c.sport.ID, raw.TournamentID)
	if err == nil {
		return t.ID, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("load tournament %s: %w", raw.TournamentID, err)
	}

	canonicalID := raw.TournamentID
	t = &models.Tournament{
		ID:          uuid.New(),
		SportID:     c.sport.ID,
		Name:        raw.TournamentName,
		CanonicalID: &canonicalID,
	}
	if err := c.repos.Tournament.Upsert(ctx, t); err != nil {
		return uuid.Nil, fmt.Errorf("create tournament %s: %w", raw.TournamentID, err)
	}
	return t.ID, nil
}

// competitorFirstTournament resolves a tournament for an event whose first
// sighting came without reference data. If the competitor's tournament was
// linked before, the link is reused; otherwise a canonical tournament is
// created without a canonical ID, to be claimed once the reference book
// lists the competition.
func (c *Coordinator) competitorFirstTournament(ctx context.Context, source string, raw *bookie.RawEvent) (uuid.UUID, error) {
	if raw.TournamentID != "" {
		ct, err := c.repos.Tournament.GetCompetitorByExternalID(ctx, source, raw.TournamentID)
		if err == nil && ct.TournamentID != nil {
			return *ct.TournamentID, nil
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("load competitor tournament %s/%s: %w", source, raw.TournamentID, err)
		}
	}

	name := raw.TournamentName
	if name == "" {
		name = "Unknown"
	}
	t := &models.Tournament{
		ID:      uuid.New(),
		SportID: c.sport.ID,
		Name:    name,
	}
	if err := c.repos.Tournament.Upsert(ctx, t); err != nil {
		return uuid.Nil, fmt.Errorf("create tournament %q: %w", name, err)
	}
	return t.ID, nil
}

// resolveCompetitorEvent finds or creates the bookmaker-native event row
// for a competitor payload and keeps it linked to the canonical event
func (c *Coordinator) resolveCompetitorEvent(ctx context.Context, event *models.Event, source string, raw *bookie.RawEvent) (*models.CompetitorEvent, error) {
	ce, err := c.repos.Event.GetCompetitorByExternalID(ctx, source, raw.NativeEventID)
	if err == nil {
		if ce.EventID == nil || *ce.EventID != event.ID || !ce.Kickoff.Equal(raw.Kickoff) {
			eventID := event.ID
			ce.EventID = &eventID
			ce.HomeTeam = raw.HomeTeam
			ce.AwayTeam = raw.AwayTeam
			ce.Kickoff = raw.Kickoff
			if err := c.repos.Event.UpsertCompetitor(ctx, ce); err != nil {
				return nil, fmt.Errorf("refresh competitor event %s/%s: %w", source, raw.NativeEventID, err)
			}
		}
		return ce, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load competitor event %s/%s: %w", source, raw.NativeEventID, err)
	}

	var compTournamentID *uuid.UUID
	if raw.TournamentID != "" {
		ct, err := c.ensureCompetitorTournament(ctx, source, raw, event.TournamentID)
		if err != nil {
			return nil, err
		}
		compTournamentID = &ct.ID
	}

	eventID := event.ID
	ce = &models.CompetitorEvent{
		ID:                     uuid.New(),
		Source:                 source,
		ExternalEventID:        raw.NativeEventID,
		CompetitorTournamentID: compTournamentID,
		EventID:                &eventID,
		HomeTeam:               raw.HomeTeam,
		AwayTeam:               raw.AwayTeam,
		Kickoff:                raw.Kickoff,
	}
	if err := c.repos.Event.UpsertCompetitor(ctx, ce); err != nil {
		return nil, fmt.Errorf("create competitor event %s/%s: %w", source, raw.NativeEventID, err)
	}
	return ce, nil
}

// ensureCompetitorTournament records the competitor's own tournament row
// and links it to the canonical one the event resolved to
func (c *Coordinator) ensureCompetitorTournament(ctx context.Context, source string, raw *bookie.RawEvent, tournamentID uuid.UUID) (*models.CompetitorTournament, error) {
	ct, err := c.repos.Tournament.GetCompetitorByExternalID(ctx, source, raw.TournamentID)
	if err == nil {
		if ct.TournamentID == nil {
			linked := tournamentID
			ct.TournamentID = &linked
			if err := c.repos.Tournament.UpsertCompetitor(ctx, ct); err != nil {
				return nil, fmt.Errorf("link competitor tournament %s/%s: %w", source, raw.TournamentID, err)
			}
		}
		return ct, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load competitor tournament %s/%s: %w", source, raw.TournamentID, err)
	}

	linked := tournamentID
	ct = &models.CompetitorTournament{
		ID:           uuid.New(),
		Source:       source,
		ExternalID:   raw.TournamentID,
		Name:         raw.TournamentName,
		TournamentID: &linked,
	}
	if err := c.repos.Tournament.UpsertCompetitor(ctx, ct); err != nil {
		return nil, fmt.Errorf("create competitor tournament %s/%s: %w", source, raw.TournamentID, err)
	}
	return ct, nil
}

// linkBookmaker records that the bookmaker quotes this event, keyed by the
// book's native event ID, with the site-style path operators use to open
// the event page.
func (c *Coordinator) linkBookmaker(ctx context.Context, event *models.Event, bookmaker string, raw *bookie.RawEvent) error {
	bm, ok := c.bookmakers[bookmaker]
	if !ok {
		return fmt.Errorf("bookmaker %q not seeded", bookmaker)
	}
	url := eventURL(event, raw.NativeEventID)
	eb := &models.EventBookmaker{
		ID:              uuid.New(),
		EventID:         event.ID,
		BookmakerID:     bm.ID,
		ExternalEventID: raw.NativeEventID,
		EventURL:        &url,
	}
	if err := c.repos.Bookmaker.UpsertEventBookmaker(ctx, eb); err != nil {
		return fmt.Errorf("link event %s to %s: %w", event.CanonicalID, bookmaker, err)
	}
	return nil
}

func eventName(home, away string) string {
	return home + " vs " + away
}

// eventURL builds the public event page path used by the operator UI
func eventURL(event *models.Event, nativeEventID string) string {
	return "/" + sportSlug + "/" + slug.Make(event.HomeTeam+" vs "+event.AwayTeam) + "-" + nativeEventID
}

// buildReferenceSnapshot normalizes a reference payload into a snapshot
// ready for storage
func (c *Coordinator) buildReferenceSnapshot(runID uuid.UUID, event *models.Event, raw *bookie.RawEvent, captured time.Time) *models.OddsSnapshot {
	scrapeRunID := runID
	snapshot := &models.OddsSnapshot{
		ID:              uuid.New(),
		EventID:         event.ID,
		BookmakerID:     c.bookmakers[models.ReferenceBookmaker].ID,
		ScrapeRunID:     &scrapeRunID,
		CapturedAt:      captured,
		LastConfirmedAt: captured,
	}
	snapshot.Markets = c.normalizeMarkets(models.ReferenceBookmaker, raw.Markets, snapshot.ID)
	return snapshot
}

// buildCompetitorSnapshot normalizes a competitor payload. The snapshot
// hangs off the competitor event row, not the canonical event.
func (c *Coordinator) buildCompetitorSnapshot(runID, compEventID uuid.UUID, source string, raw *bookie.RawEvent, captured time.Time) *models.CompetitorOddsSnapshot {
	scrapeRunID := runID
	snapshot := &models.CompetitorOddsSnapshot{
		ID:                uuid.New(),
		CompetitorEventID: compEventID,
		Source:            source,
		ScrapeRunID:       &scrapeRunID,
		CapturedAt:        captured,
		LastConfirmedAt:   captured,
	}
	for _, m := range c.normalizeMarkets(source, raw.Markets, snapshot.ID) {
		snapshot.Markets = append(snapshot.Markets, models.CompetitorMarketOdds(m))
	}
	return snapshot
}

// normalizeMarkets maps raw markets into canonical rows. Unknown markets
// go to the unmapped recorder for review; every other mapping failure is
// logged and counted. A failing market is dropped, never the snapshot.
func (c *Coordinator) normalizeMarkets(source string, raws []bookie.RawMarket, snapshotID uuid.UUID) []models.MarketOdds {
	mapper, ok := c.mappers[source]
	if !ok {
		return nil
	}
	var markets []models.MarketOdds
	for _, raw := range raws {
		normalized, err := mapper.MapMarket(raw)
		if err != nil {
			if mapping.IsUnknownMarket(err) {
				c.unmapped.Record(source, raw)
			} else {
				kind := mapping.ErrorKind(err)
				c.mapLog.LogMappingFailure(source, raw.NativeMarketID, kind, err)
				metrics.RecordMappingFailure(source, kind)
			}
			continue
		}
		for _, n := range normalized {
			markets = append(markets, n.ToMarketOdds(snapshotID))
		}
	}
	return markets
}
