package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
)

// warmupWindow bounds how far back warmup reads: anything captured earlier
// belongs to events already decided or too stale to compare against.
const warmupWindow = 2 * time.Hour

// WarmCache loads the latest stored snapshot per (event, bookmaker) and
// (event, source) pair into the odds cache, so the first cycle after a
// restart classifies against real history instead of treating every event
// as newly seen.
func (c *Coordinator) WarmCache(ctx context.Context) error {
	if err := c.ensureTaxonomy(ctx); err != nil {
		return err
	}
	since := time.Now().UTC().Add(-warmupWindow)

	slugByID := make(map[uuid.UUID]string, len(c.bookmakers))
	for name, bm := range c.bookmakers {
		slugByID[bm.ID] = name
	}

	kickoffs := make(map[uuid.UUID]time.Time)
	kickoffOf := func(eventID uuid.UUID) (time.Time, error) {
		if k, ok := kickoffs[eventID]; ok {
			return k, nil
		}
		event, err := c.repos.Event.GetByID(ctx, eventID)
		if err != nil {
			return time.Time{}, err
		}
		kickoffs[eventID] = event.Kickoff
		return event.Kickoff, nil
	}

	loaded := 0

	refSnapshots, err := c.repos.Snapshot.LoadLatest(ctx, since)
	if err != nil {
		return fmt.Errorf("load reference snapshots: %w", err)
	}
	for _, s := range refSnapshots {
		name, ok := slugByID[s.BookmakerID]
		if !ok {
			continue
		}
		kickoff, err := kickoffOf(s.EventID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load event %s for warmup: %w", s.EventID, err)
		}
		c.cache.PutReference(s.EventID, name, oddscache.NewReferenceSnapshot(s), kickoff)
		loaded++
	}

	compSnapshots, err := c.repos.Snapshot.LoadLatestCompetitor(ctx, since)
	if err != nil {
		return fmt.Errorf("load competitor snapshots: %w", err)
	}
	for _, s := range compSnapshots {
		ce, err := c.repos.Event.GetCompetitorByID(ctx, s.CompetitorEventID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load competitor event %s for warmup: %w", s.CompetitorEventID, err)
		}
		if ce.EventID == nil {
			continue
		}
		kickoff, err := kickoffOf(*ce.EventID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load event %s for warmup: %w", *ce.EventID, err)
		}
		c.cache.PutCompetitor(*ce.EventID, s.Source, oddscache.NewCompetitorSnapshot(s, *ce.EventID), kickoff)
		loaded++
	}

	c.log.WithFields(logrus.Fields{
		"entries": loaded,
		"since":   since.Format(time.RFC3339),
	}).Info("Odds cache warmed from storage")
	return nil
}
