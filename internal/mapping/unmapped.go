package mapping

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
)

// maxSampleOutcomes caps how many raw selections are kept as evidence on an
// unmapped-market row.
const maxSampleOutcomes = 3

// UnmappedSink persists unmapped-market rows. Satisfied by
// repository.MappingRepository.
type UnmappedSink interface {
	RecordUnmapped(ctx context.Context, log *models.UnmappedMarketLog) error
}

type unmappedKey struct {
	source           string
	externalMarketID string
}

type unmappedEntry struct {
	marketName string
	samples    []models.Outcome
	hits       int
}

// Recorder collects unknown markets during a cycle and writes one upsert per
// distinct (source, market) at cycle end, so a market quoted on every event
// in the cycle produces a single occurrence bump.
type Recorder struct {
	sink UnmappedSink
	log  *logger.MappingLogger

	mu   sync.Mutex
	seen map[unmappedKey]*unmappedEntry
}

// NewRecorder creates an unmapped-market recorder
func NewRecorder(sink UnmappedSink, baseLogger *logrus.Logger) *Recorder {
	return &Recorder{
		sink: sink,
		log:  logger.NewMappingLogger(baseLogger),
		seen: make(map[unmappedKey]*unmappedEntry),
	}
}

// Record notes one unmapped market occurrence within the current cycle
func (r *Recorder) Record(source string, raw bookie.RawMarket) {
	metrics.RecordUnmappedMarket(source)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := unmappedKey{source: source, externalMarketID: raw.NativeMarketID}
	if entry, ok := r.seen[key]; ok {
		entry.hits++
		return
	}

	samples := make([]models.Outcome, 0, maxSampleOutcomes)
	for _, o := range raw.Outcomes {
		if len(samples) == maxSampleOutcomes {
			break
		}
		samples = append(samples, models.Outcome{Name: o.Name, Odds: o.Odds, IsActive: o.IsActive})
	}
	r.seen[key] = &unmappedEntry{marketName: raw.Name, samples: samples, hits: 1}
}

// Pending returns how many distinct unmapped markets the cycle has collected
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Flush upserts every market collected this cycle and resets the recorder.
// Rows that fail to persist are dropped with the error returned; the next
// cycle will rediscover them.
func (r *Recorder) Flush(ctx context.Context, runID uuid.UUID) error {
	r.mu.Lock()
	pending := r.seen
	r.seen = make(map[unmappedKey]*unmappedEntry)
	r.mu.Unlock()

	var firstErr error
	for key, entry := range pending {
		row := &models.UnmappedMarketLog{
			ID:               uuid.New(),
			Source:           key.source,
			ExternalMarketID: key.externalMarketID,
			MarketName:       entry.marketName,
			SampleOutcomes:   entry.samples,
			FirstSeenRunID:   &runID,
		}
		if err := r.sink.RecordUnmapped(ctx, row); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.log.LogUnmappedMarket(row.Source, row.ExternalMarketID, row.MarketName, row.OccurrenceCount)
	}
	return firstErr
}
