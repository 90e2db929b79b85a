package mapping

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/models"
)

// OverrideSource provides the user-editable mapping rows. Satisfied by
// repository.MappingRepository.
type OverrideSource interface {
	GetActiveOverrides(ctx context.Context) ([]*models.MarketMapping, error)
}

// view is one immutable merged snapshot of the mapping table with its
// secondary indexes. Lookups read whatever view is current; Reload builds a
// fresh one and swaps the pointer.
type view struct {
	byCanonical map[string]*models.MarketMapping
	byBetPrime  map[string]*models.MarketMapping
	byStakeOne  map[string]*models.MarketMapping
	// SpinBet prefixes can map to several canonical markets (combined
	// team totals), hence the slice.
	bySpinBet map[string][]*models.MarketMapping

	compiled  int
	overrides int
}

// Cache is the merged mapping view: compiled-in defaults overlaid with
// active DB rows, DB winning per canonical market ID. Safe for any number
// of readers; Reload swaps the whole view atomically.
type Cache struct {
	source  OverrideSource
	log     *logger.MappingLogger
	current atomic.Pointer[view]
}

// NewCache creates a cache pre-seeded with the compiled-in defaults so
// mapping works before the first Reload.
func NewCache(source OverrideSource, baseLogger *logrus.Logger) *Cache {
	c := &Cache{
		source: source,
		log:    logger.NewMappingLogger(baseLogger),
	}
	c.current.Store(buildView(Defaults(), nil))
	return c
}

// Reload merges defaults with the active DB overrides and swaps the lookup
// view. Concurrent readers keep the old view until the swap lands.
func (c *Cache) Reload(ctx context.Context) error {
	overrides, err := c.source.GetActiveOverrides(ctx)
	if err != nil {
		return fmt.Errorf("loading mapping overrides: %w", err)
	}
	v := buildView(Defaults(), overrides)
	c.current.Store(v)
	c.log.LogMappingsLoaded(v.compiled, v.overrides, len(v.byCanonical))
	return nil
}

// ByCanonicalID returns the mapping for a canonical market ID. The returned
// value is shared and read-only.
func (c *Cache) ByCanonicalID(canonicalMarketID string) *models.MarketMapping {
	return c.current.Load().byCanonical[canonicalMarketID]
}

// ByBetPrimeID resolves a BetPrime native market ID
func (c *Cache) ByBetPrimeID(marketID string) *models.MarketMapping {
	return c.current.Load().byBetPrime[marketID]
}

// ByStakeOneID resolves a StakeOne native market ID
func (c *Cache) ByStakeOneID(marketID string) *models.MarketMapping {
	return c.current.Load().byStakeOne[marketID]
}

// BySpinBetPrefix resolves a SpinBet market key prefix (S_<MARKET>, without
// parameter). Combined markets return more than one mapping.
func (c *Cache) BySpinBetPrefix(prefix string) []*models.MarketMapping {
	return c.current.Load().bySpinBet[prefix]
}

// Len returns the number of merged canonical mappings
func (c *Cache) Len() int {
	return len(c.current.Load().byCanonical)
}

func buildView(defaults []*models.MarketMapping, overrides []*models.MarketMapping) *view {
	v := &view{
		byCanonical: make(map[string]*models.MarketMapping, len(defaults)),
		byBetPrime:  make(map[string]*models.MarketMapping),
		byStakeOne:  make(map[string]*models.MarketMapping),
		bySpinBet:   make(map[string][]*models.MarketMapping),
		compiled:    len(defaults),
		overrides:   len(overrides),
	}

	for _, m := range defaults {
		v.byCanonical[m.CanonicalMarketID] = m
	}
	for _, m := range overrides {
		v.byCanonical[m.CanonicalMarketID] = m
	}

	// index in declaration order so multi-valued SpinBet prefixes keep a
	// stable mapping order across reloads
	indexed := make(map[string]bool, len(v.byCanonical))
	for _, source := range [][]*models.MarketMapping{defaults, overrides} {
		for _, declared := range source {
			if indexed[declared.CanonicalMarketID] {
				continue
			}
			indexed[declared.CanonicalMarketID] = true

			m := v.byCanonical[declared.CanonicalMarketID]
			if !m.IsActive {
				continue
			}
			if m.BetPrimeMarketID != nil {
				v.byBetPrime[*m.BetPrimeMarketID] = m
			}
			if m.StakeOneMarketID != nil {
				v.byStakeOne[*m.StakeOneMarketID] = m
			}
			if m.SpinBetKeyPrefix != nil {
				v.bySpinBet[*m.SpinBetKeyPrefix] = append(v.bySpinBet[*m.SpinBetKeyPrefix], m)
			}
		}
	}
	return v
}
