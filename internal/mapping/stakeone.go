package mapping

import (
	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

// StakeOneMapper translates StakeOne markets: exact market-ID match, outcome
// resolution by selection name.
type StakeOneMapper struct {
	cache *Cache
}

// NewStakeOneMapper creates the StakeOne mapper
func NewStakeOneMapper(cache *Cache) *StakeOneMapper {
	return &StakeOneMapper{cache: cache}
}

// Source returns the bookmaker slug this mapper serves
func (m *StakeOneMapper) Source() string {
	return models.BookmakerStakeOne
}

// MapMarket translates one raw market into the canonical taxonomy
func (m *StakeOneMapper) MapMarket(raw bookie.RawMarket) ([]*NormalizedMarket, error) {
	return mapByName(m.cache.ByStakeOneID(raw.NativeMarketID), m.Source(), raw)
}
