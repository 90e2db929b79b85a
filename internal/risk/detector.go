// Package risk inspects each scraped event for movements worth an operator's
// attention: large price swings, reference moves contradicted by a
// competitor, and markets vanishing or returning.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
)

// directionEpsilon is the smallest absolute odds move counted as movement
// when comparing directions between bookmakers.
const directionEpsilon = 0.001

const (
	directionUp   = "up"
	directionDown = "down"
)

// Thresholds are the absolute change-percent tiers, read from settings at
// the start of every cycle.
type Thresholds struct {
	Warning  float64
	Elevated float64
	Critical float64
}

// ThresholdsFromSettings extracts the price-change tiers
func ThresholdsFromSettings(s *models.Settings) Thresholds {
	return Thresholds{
		Warning:  s.RiskWarningPercent,
		Elevated: s.RiskElevatedPercent,
		Critical: s.RiskCriticalPercent,
	}
}

func (t Thresholds) severity(changePercent float64) (models.AlertSeverity, bool) {
	switch {
	case changePercent >= t.Critical:
		return models.SeverityCritical, true
	case changePercent >= t.Elevated:
		return models.SeverityElevated, true
	case changePercent >= t.Warning:
		return models.SeverityWarning, true
	}
	return "", false
}

// ReferenceObservation pairs the reference bookmaker's fresh snapshot with
// the cached record it was classified against. Previous is nil on the first
// sighting of the pair.
type ReferenceObservation struct {
	Bookmaker string
	Previous  *oddscache.CachedSnapshot
	Fresh     *models.OddsSnapshot
}

// CompetitorObservation is the competitor-side equivalent
type CompetitorObservation struct {
	Source   string
	Previous *oddscache.CachedSnapshot
	Fresh    *models.CompetitorOddsSnapshot
}

// EventOdds is one event's scrape output across every platform that
// answered this cycle.
type EventOdds struct {
	EventID     uuid.UUID
	Kickoff     time.Time
	Reference   *ReferenceObservation
	Competitors []CompetitorObservation
}

// Findings is the detector output attached to the event's write batch.
// Availability updates stamp unavailable_at on the snapshot row where a
// vanished market was last seen; they are emitted for every vanish,
// including reference markets whose alert was filtered out, because the
// stamp is storage bookkeeping rather than an operator signal.
type Findings struct {
	Alerts                        []models.RiskAlert
	AvailabilityUpdates           []models.AvailabilityUpdate
	CompetitorAvailabilityUpdates []models.AvailabilityUpdate
}

// Detector runs the three detection algorithms over one event at a time
type Detector struct {
	log *logger.AlertLogger
}

// NewDetector creates a risk detector
func NewDetector(baseLogger *logrus.Logger) *Detector {
	return &Detector{log: logger.NewAlertLogger(baseLogger)}
}

// Inspect examines one event's observations and returns the alerts and
// availability stamps for its write batch. Reference price-change and
// availability alerts are restricted to markets quoted by at least one
// competitor in the same batch, so every alert has a comparable
// counterpart; competitor alerts are unfiltered.
func (d *Detector) Inspect(event *EventOdds, thresholds Thresholds, now time.Time) *Findings {
	findings := &Findings{}
	matched := matchedMarkets(event.Competitors)

	var refMoves []priceMove
	if event.Reference != nil && event.Reference.Previous != nil {
		refMoves = collectMoves(event.Reference.Previous, event.Reference.Fresh.Markets)
		for _, m := range refMoves {
			if !matched[m.key] {
				continue
			}
			d.priceAlert(findings, event, event.Reference.Bookmaker, m, thresholds, now)
		}
	}

	refByKey := movesByOutcome(refMoves)
	for _, comp := range event.Competitors {
		if comp.Previous == nil {
			continue
		}
		compMoves := collectMoves(comp.Previous, competitorMarkets(comp.Fresh.Markets))
		for _, m := range compMoves {
			d.priceAlert(findings, event, comp.Source, m, thresholds, now)
			d.directionAlert(findings, event, comp.Source, refByKey, m, now)
		}
	}

	d.availability(findings, event, matched, now)
	return findings
}

// priceMove is one outcome whose odds differ from the cached value
type priceMove struct {
	key        oddscache.MarketKey
	marketID   string
	marketName string
	line       *float64
	outcome    string
	oldOdds    float64
	newOdds    float64
}

func (m priceMove) changePercent() float64 {
	return math.Abs((m.newOdds - m.oldOdds) / m.oldOdds * 100)
}

// direction reports up/down when the move exceeds the epsilon, else ""
func (m priceMove) direction() string {
	switch {
	case m.newOdds-m.oldOdds > directionEpsilon:
		return directionUp
	case m.oldOdds-m.newOdds > directionEpsilon:
		return directionDown
	}
	return ""
}

type outcomeKey struct {
	market  oddscache.MarketKey
	outcome string
}

// collectMoves diffs the fresh markets against the cached available ones.
// Only outcomes active on both sides count: a suspended outcome's price is
// not a quote.
func collectMoves(prev *oddscache.CachedSnapshot, fresh []models.MarketOdds) []priceMove {
	available := prev.AvailableMarkets()
	cached := make(map[oddscache.MarketKey]*oddscache.CachedMarket, len(available))
	for i := range available {
		cached[available[i].Key()] = &available[i]
	}

	var moves []priceMove
	for i := range fresh {
		key := oddscache.KeyFor(fresh[i].MarketID, fresh[i].Line)
		prevMarket, ok := cached[key]
		if !ok {
			continue
		}
		prevOdds := make(map[string]models.Outcome, len(prevMarket.Outcomes))
		for _, o := range prevMarket.Outcomes {
			prevOdds[o.Name] = o
		}
		for _, o := range fresh[i].Outcomes {
			old, ok := prevOdds[o.Name]
			if !ok || !o.IsActive || !old.IsActive || o.Odds == old.Odds {
				continue
			}
			moves = append(moves, priceMove{
				key:        key,
				marketID:   fresh[i].MarketID,
				marketName: fresh[i].MarketName,
				line:       fresh[i].Line,
				outcome:    o.Name,
				oldOdds:    old.Odds,
				newOdds:    o.Odds,
			})
		}
	}
	return moves
}

func movesByOutcome(moves []priceMove) map[outcomeKey]priceMove {
	byKey := make(map[outcomeKey]priceMove, len(moves))
	for _, m := range moves {
		byKey[outcomeKey{market: m.key, outcome: m.outcome}] = m
	}
	return byKey
}

// matchedMarkets is the set of market keys quoted by at least one competitor
// in this batch
func matchedMarkets(competitors []CompetitorObservation) map[oddscache.MarketKey]bool {
	matched := make(map[oddscache.MarketKey]bool)
	for _, comp := range competitors {
		if comp.Fresh == nil {
			continue
		}
		for _, m := range comp.Fresh.Markets {
			matched[oddscache.KeyFor(m.MarketID, m.Line)] = true
		}
	}
	return matched
}

func (d *Detector) priceAlert(findings *Findings, event *EventOdds, slug string, m priceMove, thresholds Thresholds, now time.Time) {
	change := m.changePercent()
	severity, ok := thresholds.severity(change)
	if !ok {
		return
	}

	outcome := m.outcome
	oldOdds, newOdds := m.oldOdds, m.newOdds
	findings.Alerts = append(findings.Alerts, models.RiskAlert{
		ID:            uuid.New(),
		EventID:       event.EventID,
		BookmakerSlug: slug,
		MarketID:      m.marketID,
		MarketName:    m.marketName,
		Line:          m.line,
		OutcomeName:   &outcome,
		AlertType:     models.AlertPriceChange,
		Severity:      severity,
		ChangePercent: change,
		OldValue:      &oldOdds,
		NewValue:      &newOdds,
		EventKickoff:  event.Kickoff,
		Status:        models.AlertStatusNew,
		DetectedAt:    now,
	})
	metrics.RecordRiskAlert(string(models.AlertPriceChange), string(severity))
	d.log.LogPriceChange(event.EventID, slug, m.marketID, m.outcome, m.oldOdds, m.newOdds, change, string(severity))
}

// directionAlert fires when the reference moved one way and this competitor
// moved the other way on the same outcome in the same batch
func (d *Detector) directionAlert(findings *Findings, event *EventOdds, source string, refByKey map[outcomeKey]priceMove, compMove priceMove, now time.Time) {
	if event.Reference == nil {
		return
	}
	refMove, ok := refByKey[outcomeKey{market: compMove.key, outcome: compMove.outcome}]
	if !ok {
		return
	}
	refDir, compDir := refMove.direction(), compMove.direction()
	if refDir == "" || compDir == "" || refDir == compDir {
		return
	}

	outcome := compMove.outcome
	oldOdds, newOdds := refMove.oldOdds, refMove.newOdds
	annotation := fmt.Sprintf("%s:%s", source, compDir)
	findings.Alerts = append(findings.Alerts, models.RiskAlert{
		ID:                  uuid.New(),
		EventID:             event.EventID,
		BookmakerSlug:       event.Reference.Bookmaker,
		MarketID:            refMove.marketID,
		MarketName:          refMove.marketName,
		Line:                refMove.line,
		OutcomeName:         &outcome,
		AlertType:           models.AlertDirectionDisagreement,
		Severity:            models.SeverityElevated,
		ChangePercent:       math.Abs((refMove.newOdds - compMove.newOdds) / refMove.newOdds * 100),
		OldValue:            &oldOdds,
		NewValue:            &newOdds,
		CompetitorDirection: &annotation,
		EventKickoff:        event.Kickoff,
		Status:              models.AlertStatusNew,
		DetectedAt:          now,
	})
	metrics.RecordRiskAlert(string(models.AlertDirectionDisagreement), string(models.SeverityElevated))
	d.log.LogDirectionDisagreement(event.EventID, refMove.marketID, compMove.outcome, refDir, annotation)
}

// availability walks every observation for vanished and returned markets.
// A vanish stamps the row where the market was last seen; a return needs no
// stamp since the replacement snapshot's fresh row is unstamped.
func (d *Detector) availability(findings *Findings, event *EventOdds, matched map[oddscache.MarketKey]bool, now time.Time) {
	if event.Reference != nil && event.Reference.Previous != nil {
		updates := d.availabilityForPair(findings, event, event.Reference.Bookmaker,
			event.Reference.Previous, marketKeys(event.Reference.Fresh.Markets), matched, now)
		findings.AvailabilityUpdates = append(findings.AvailabilityUpdates, updates...)
	}
	for _, comp := range event.Competitors {
		if comp.Previous == nil {
			continue
		}
		updates := d.availabilityForPair(findings, event, comp.Source,
			comp.Previous, marketKeys(competitorMarkets(comp.Fresh.Markets)), nil, now)
		findings.CompetitorAvailabilityUpdates = append(findings.CompetitorAvailabilityUpdates, updates...)
	}
}

// availabilityForPair emits transition alerts for one (event, platform)
// pair and returns the unavailable_at stamps. A nil matched set means
// alerts are unfiltered.
func (d *Detector) availabilityForPair(findings *Findings, event *EventOdds, slug string, prev *oddscache.CachedSnapshot, freshKeys map[oddscache.MarketKey]bool, matched map[oddscache.MarketKey]bool, now time.Time) []models.AvailabilityUpdate {
	var updates []models.AvailabilityUpdate
	for i := range prev.Markets {
		m := &prev.Markets[i]
		key := m.Key()
		if m.IsAvailable() && !freshKeys[key] {
			updates = append(updates, models.AvailabilityUpdate{
				SnapshotID:    m.SnapshotID,
				CapturedAt:    m.CapturedAt,
				MarketID:      m.MarketID,
				Line:          m.Line,
				UnavailableAt: now,
			})
			d.availabilityAlert(findings, event, slug, m, models.DirectionSuspended, matched, now)
		}
		if !m.IsAvailable() && freshKeys[key] {
			d.availabilityAlert(findings, event, slug, m, models.DirectionReturned, matched, now)
		}
	}
	return updates
}

func (d *Detector) availabilityAlert(findings *Findings, event *EventOdds, slug string, m *oddscache.CachedMarket, direction string, matched map[oddscache.MarketKey]bool, now time.Time) {
	if matched != nil && !matched[m.Key()] {
		return
	}

	dir := direction
	findings.Alerts = append(findings.Alerts, models.RiskAlert{
		ID:                  uuid.New(),
		EventID:             event.EventID,
		BookmakerSlug:       slug,
		MarketID:            m.MarketID,
		MarketName:          m.MarketName,
		Line:                m.Line,
		AlertType:           models.AlertAvailability,
		Severity:            models.SeverityWarning,
		CompetitorDirection: &dir,
		EventKickoff:        event.Kickoff,
		Status:              models.AlertStatusNew,
		DetectedAt:          now,
	})
	metrics.RecordRiskAlert(string(models.AlertAvailability), string(models.SeverityWarning))
	d.log.LogAvailabilityChange(event.EventID, slug, m.MarketID, direction)
}

func marketKeys(markets []models.MarketOdds) map[oddscache.MarketKey]bool {
	keys := make(map[oddscache.MarketKey]bool, len(markets))
	for i := range markets {
		keys[oddscache.KeyFor(markets[i].MarketID, markets[i].Line)] = true
	}
	return keys
}

func competitorMarkets(markets []models.CompetitorMarketOdds) []models.MarketOdds {
	out := make([]models.MarketOdds, 0, len(markets))
	for _, m := range markets {
		out = append(out, models.MarketOdds(m))
	}
	return out
}
