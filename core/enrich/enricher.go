package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"waveger/core/applemusic"
	"waveger/logger"
	"waveger/model"
)

// Searcher looks up supplementary metadata for one song. The Apple Music
// SearchClient implements it.
type Searcher interface {
	SearchSong(ctx context.Context, name, artist string) (*applemusic.SongMetadata, error)
}

// Enricher augments a chart's songs with metadata from a secondary search
// API. Lookups run strictly one at a time with a fixed delay between calls,
// purely to respect the upstream rate limit.
//
// Results accumulate per chart, keyed by song position. Starting an
// enrichment for a different chart clears previous results and invalidates
// any run still in flight: late results from an old chart never leak into the
// new chart's key space.
type Enricher struct {
	searcher Searcher
	delay    time.Duration

	// reqMu serializes the actual search calls across runs, so at most one
	// request is ever outstanding even while a stale run drains.
	reqMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	chartKey   string
	results    map[int]*applemusic.SongMetadata
}

// NewEnricher creates an enricher with the given inter-request delay.
func NewEnricher(searcher Searcher, delay time.Duration) *Enricher {
	return &Enricher{
		searcher: searcher,
		delay:    delay,
		results:  make(map[int]*applemusic.SongMetadata),
	}
}

func chartKey(title, week string) string {
	return fmt.Sprintf("%s/%s", title, week)
}

// reset clears accumulated results and starts a new generation.
func (e *Enricher) reset(key string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.chartKey = key
	e.results = make(map[int]*applemusic.SongMetadata)
	return e.generation
}

func (e *Enricher) stale(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen != e.generation
}

func (e *Enricher) store(gen uint64, position int, meta *applemusic.SongMetadata) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		return false
	}
	e.results[position] = meta
	return true
}

// Metadata returns the accumulated metadata for a song position.
func (e *Enricher) Metadata(position int) (*applemusic.SongMetadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.results[position]
	return meta, ok
}

// Snapshot returns a copy of all accumulated metadata keyed by position.
func (e *Enricher) Snapshot() map[int]*applemusic.SongMetadata {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[int]*applemusic.SongMetadata, len(e.results))
	for pos, meta := range e.results {
		out[pos] = meta
	}
	return out
}

// Enrich looks up metadata for every song on the chart, sequentially, with
// the configured delay between calls. It blocks until the chart is processed,
// the context is cancelled, or a newer Enrich call supersedes this one.
// Per-song failures are logged and skipped.
func (e *Enricher) Enrich(ctx context.Context, title, week string, songs []model.ChartEntry) {
	gen := e.reset(chartKey(title, week))

	for i, song := range songs {
		if i > 0 {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return
			}
		}

		if e.stale(gen) {
			logger.Debug("Enrichment superseded by newer chart",
				logger.String("chart", title), logger.String("week", week))
			return
		}

		meta, err := e.lookup(ctx, song)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Enrichment lookup failed, skipping song",
				logger.String("song", song.Name),
				logger.String("artist", song.Artist),
				logger.ErrorField(err))
			continue
		}
		if meta == nil {
			continue
		}

		if !e.store(gen, song.Position, meta) {
			return
		}
	}
}

func (e *Enricher) lookup(ctx context.Context, song model.ChartEntry) (*applemusic.SongMetadata, error) {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.searcher.SearchSong(ctx, song.Name, song.Artist)
}
