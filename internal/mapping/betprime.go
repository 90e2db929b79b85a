package mapping

import (
	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

// BetPrimeMapper translates reference-bookmaker markets. BetPrime market IDs
// resolve by exact match and outcomes by display name.
type BetPrimeMapper struct {
	cache *Cache
}

// NewBetPrimeMapper creates the BetPrime mapper
func NewBetPrimeMapper(cache *Cache) *BetPrimeMapper {
	return &BetPrimeMapper{cache: cache}
}

// Source returns the bookmaker slug this mapper serves
func (m *BetPrimeMapper) Source() string {
	return models.BookmakerBetPrime
}

// MapMarket translates one raw market into the canonical taxonomy
func (m *BetPrimeMapper) MapMarket(raw bookie.RawMarket) ([]*NormalizedMarket, error) {
	return mapByName(m.cache.ByBetPrimeID(raw.NativeMarketID), m.Source(), raw)
}

// mapByName is the shared path for the two bookmakers whose outcomes match
// on display name.
func mapByName(mapped *models.MarketMapping, source string, raw bookie.RawMarket) ([]*NormalizedMarket, error) {
	if mapped == nil {
		return nil, NewMappingError(source, ErrKindUnknownMarket, raw.NativeMarketID, raw.Name)
	}

	line, handicap, err := routeParam(mapped, source, raw.NativeMarketID, raw.Param)
	if err != nil {
		return nil, err
	}

	outcomes, err := resolveOutcomes(mapped, source, raw.NativeMarketID, nameCandidates(raw.Outcomes), true)
	if err != nil {
		return nil, err
	}

	return []*NormalizedMarket{{
		CanonicalMarketID:   mapped.CanonicalMarketID,
		CanonicalMarketName: mapped.Name,
		Line:                line,
		Handicap:            handicap,
		MarketGroups:        raw.Groups,
		Outcomes:            outcomes,
	}}, nil
}
