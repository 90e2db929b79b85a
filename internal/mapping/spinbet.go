package mapping

import (
	"fmt"
	"strings"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

const spinBetKeyLead = "S_"

// SpinBetMapper translates SpinBet markets. Keys are structured
// S_<MARKET>[@<PARAM>] at the market level and
// S_<MARKET>[@<PARAM>]_<OUTCOME> per selection; the mapping table matches on
// the S_<MARKET> prefix. A prefix shared by several canonical markets (the
// combined team totals) splits into one normalized market each.
type SpinBetMapper struct {
	cache *Cache
}

// NewSpinBetMapper creates the SpinBet mapper
func NewSpinBetMapper(cache *Cache) *SpinBetMapper {
	return &SpinBetMapper{cache: cache}
}

// Source returns the bookmaker slug this mapper serves
func (m *SpinBetMapper) Source() string {
	return models.BookmakerSpinBet
}

// MapMarket translates one raw market into the canonical taxonomy
func (m *SpinBetMapper) MapMarket(raw bookie.RawMarket) ([]*NormalizedMarket, error) {
	source := m.Source()

	prefix, param, ok := parseSpinBetKey(raw.NativeMarketID)
	if !ok {
		return nil, NewMappingError(source, ErrKindInvalidKeyFormat, raw.NativeMarketID, "market key does not parse")
	}

	mappings := m.cache.BySpinBetPrefix(prefix)
	if len(mappings) == 0 {
		return nil, NewMappingError(source, ErrKindUnknownMarket, raw.NativeMarketID, raw.Name)
	}

	candidates, err := m.selectionCandidates(raw)
	if err != nil {
		return nil, err
	}

	// positional fallback is only safe when exactly one canonical market
	// claims the prefix
	allowPositional := len(mappings) == 1

	var (
		result   []*NormalizedMarket
		firstErr error
	)
	for _, mapped := range mappings {
		line, handicap, err := routeParam(mapped, source, raw.NativeMarketID, param)
		if err != nil {
			return nil, err
		}
		outcomes, err := resolveOutcomes(mapped, source, raw.NativeMarketID, candidates, allowPositional)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result = append(result, &NormalizedMarket{
			CanonicalMarketID:   mapped.CanonicalMarketID,
			CanonicalMarketName: mapped.Name,
			Line:                line,
			Handicap:            handicap,
			Outcomes:            outcomes,
		})
	}
	if len(result) == 0 {
		return nil, firstErr
	}
	return result, nil
}

// selectionCandidates strips the market key from each selection key, leaving
// the outcome suffix as the matching identifier.
func (m *SpinBetMapper) selectionCandidates(raw bookie.RawMarket) ([]candidate, error) {
	marketPrefix := raw.NativeMarketID + "_"
	candidates := make([]candidate, 0, len(raw.Outcomes))
	for _, o := range raw.Outcomes {
		suffix, found := strings.CutPrefix(o.Name, marketPrefix)
		if !found || suffix == "" {
			return nil, NewMappingError(m.Source(), ErrKindInvalidKeyFormat, raw.NativeMarketID,
				fmt.Sprintf("selection key %q does not extend the market key", o.Name))
		}
		candidates = append(candidates, candidate{
			identifier: suffix,
			sourceName: o.Name,
			odds:       o.Odds,
			isActive:   o.IsActive,
		})
	}
	return candidates, nil
}

// parseSpinBetKey splits a market key into its mapping prefix and optional
// parameter: "S_TOTAL@2.50" → ("S_TOTAL", "2.50").
func parseSpinBetKey(key string) (prefix, param string, ok bool) {
	prefix = key
	if at := strings.IndexByte(key, '@'); at >= 0 {
		prefix, param = key[:at], key[at+1:]
		if param == "" {
			return "", "", false
		}
	}
	if !strings.HasPrefix(prefix, spinBetKeyLead) || len(prefix) <= len(spinBetKeyLead) {
		return "", "", false
	}
	return prefix, param, true
}
