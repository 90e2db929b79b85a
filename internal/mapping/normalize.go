package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

// Mapper translates one bookmaker's raw markets into the canonical taxonomy.
// Most markets map one-to-one; SpinBet's combined team totals split into two.
type Mapper interface {
	Source() string
	MapMarket(raw bookie.RawMarket) ([]*NormalizedMarket, error)
}

// NormalizedMarket is a raw market translated into canonical vocabulary,
// ready to become a snapshot market row.
type NormalizedMarket struct {
	CanonicalMarketID   string
	CanonicalMarketName string
	Line                *float64
	Handicap            *models.Handicap
	MarketGroups        []string
	Outcomes            []NormalizedOutcome
}

// NormalizedOutcome pairs the canonical outcome name with the source's own
// descriptor, kept for diagnostics.
type NormalizedOutcome struct {
	CanonicalName string
	SourceName    string
	Odds          float64
	IsActive      bool
}

// ToMarketOdds converts into the storage model under the given snapshot
func (n *NormalizedMarket) ToMarketOdds(snapshotID uuid.UUID) models.MarketOdds {
	outcomes := make([]models.Outcome, 0, len(n.Outcomes))
	for _, o := range n.Outcomes {
		outcomes = append(outcomes, models.Outcome{
			Name:     o.CanonicalName,
			Odds:     o.Odds,
			IsActive: o.IsActive,
		})
	}
	return models.MarketOdds{
		ID:           uuid.New(),
		SnapshotID:   snapshotID,
		MarketID:     n.CanonicalMarketID,
		MarketName:   n.CanonicalMarketName,
		Line:         n.Line,
		Handicap:     n.Handicap,
		MarketGroups: n.MarketGroups,
		Outcomes:     outcomes,
	}
}

// routeParam interprets the raw parameter by canonical market family:
// simple markets ignore it, over/under markets read a total line, handicap
// markets read the home-side handicap value. Parameterized markets also set
// Line so (market, line) keying stays unique per parameter.
func routeParam(m *models.MarketMapping, source, externalMarketID, param string) (*float64, *models.Handicap, error) {
	switch {
	case m.IsOverUnder():
		if param == "" {
			return nil, nil, NewMappingError(source, ErrKindUnknownParamMarket, externalMarketID, "market requires a total line")
		}
		line, err := parseParam(param)
		if err != nil {
			return nil, nil, NewMappingError(source, ErrKindInvalidSpecifier, externalMarketID, fmt.Sprintf("unparseable total line %q", param))
		}
		return &line, nil, nil

	case m.IsHandicap():
		if param == "" {
			return nil, nil, NewMappingError(source, ErrKindUnknownParamMarket, externalMarketID, "market requires a handicap value")
		}
		value, err := parseParam(param)
		if err != nil {
			return nil, nil, NewMappingError(source, ErrKindInvalidSpecifier, externalMarketID, fmt.Sprintf("unparseable handicap %q", param))
		}
		h := &models.Handicap{Type: m.HandicapKind(), Home: value, Away: -value}
		return &value, h, nil

	default:
		return nil, nil, nil
	}
}

func parseParam(param string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", param)
	}
	return v, nil
}

// candidate is one raw selection prepared for matching: the identifier is
// what descriptor matching runs against (the outcome name for BetPrime and
// StakeOne, the key suffix for SpinBet).
type candidate struct {
	identifier string
	sourceName string
	odds       float64
	isActive   bool
}

func nameCandidates(outcomes []bookie.RawOutcome) []candidate {
	candidates := make([]candidate, 0, len(outcomes))
	for _, o := range outcomes {
		candidates = append(candidates, candidate{
			identifier: o.Name,
			sourceName: o.Name,
			odds:       o.Odds,
			isActive:   o.IsActive,
		})
	}
	return candidates
}

// resolveOutcomes matches the mapping's outcome table against the
// candidates. Case-insensitive descriptor matching runs first; only when it
// resolves nothing does positional matching take over, so a partially quoted
// market never captures a neighbouring selection by index. Positional
// matching is disabled for split lookups where several canonical markets
// share one raw market, since position is meaningless across the combined
// outcome list.
func resolveOutcomes(m *models.MarketMapping, source, externalMarketID string, candidates []candidate, allowPositional bool) ([]NormalizedOutcome, error) {
	hasDescriptors := false
	for _, om := range m.Outcomes {
		if om.SourceName(source) != nil {
			hasDescriptors = true
			break
		}
	}
	if !hasDescriptors {
		return nil, NewMappingError(source, ErrKindUnsupportedPlatform, externalMarketID,
			fmt.Sprintf("mapping %s has no outcome entries for this source", m.CanonicalMarketID))
	}

	resolved, err := matchEntries(m, source, externalMarketID, candidates, matchByName)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 && allowPositional {
		resolved, err = matchEntries(m, source, externalMarketID, candidates, matchByPosition)
		if err != nil {
			return nil, err
		}
	}
	if len(resolved) == 0 {
		return nil, NewMappingError(source, ErrKindNoMatchingOutcomes, externalMarketID,
			fmt.Sprintf("no outcomes resolved for %s", m.CanonicalMarketID))
	}
	return resolved, nil
}

type candidateMatcher func(om models.OutcomeMapping, source string, candidates []candidate) (candidate, bool)

func matchEntries(m *models.MarketMapping, source, externalMarketID string, candidates []candidate, match candidateMatcher) ([]NormalizedOutcome, error) {
	resolved := make([]NormalizedOutcome, 0, len(m.Outcomes))
	for _, om := range m.Outcomes {
		cand, ok := match(om, source, candidates)
		if !ok {
			continue
		}
		if cand.isActive && !validOdds(cand.odds) {
			return nil, NewMappingError(source, ErrKindInvalidOdds, externalMarketID,
				fmt.Sprintf("outcome %s has invalid odds %v", om.CanonicalName, cand.odds))
		}
		resolved = append(resolved, NormalizedOutcome{
			CanonicalName: om.CanonicalName,
			SourceName:    cand.sourceName,
			Odds:          cand.odds,
			IsActive:      cand.isActive,
		})
	}
	return resolved, nil
}

func matchByName(om models.OutcomeMapping, source string, candidates []candidate) (candidate, bool) {
	want := om.SourceName(source)
	if want == nil {
		return candidate{}, false
	}
	for _, c := range candidates {
		if strings.EqualFold(c.identifier, *want) {
			return c, true
		}
	}
	return candidate{}, false
}

func matchByPosition(om models.OutcomeMapping, _ string, candidates []candidate) (candidate, bool) {
	if om.Position < 0 || om.Position >= len(candidates) {
		return candidate{}, false
	}
	return candidates[om.Position], true
}

// validOdds accepts decimal odds an upstream could plausibly offer. A price
// at or below 1.0 on an active outcome means the payload is broken.
func validOdds(odds float64) bool {
	return !math.IsNaN(odds) && !math.IsInf(odds, 0) && odds > 1.0
}
