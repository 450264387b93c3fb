package market

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Aggregator resolves returns for a set of symbols concurrently, consulting
// the cache before the upstream fetcher.
type Aggregator struct {
	cache        *Cache
	fetcher      HistoryFetcher
	lookbackDays int
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAggregator constructs an aggregator.
func NewAggregator(cache *Cache, fetcher HistoryFetcher, lookbackDays int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		cache:        cache,
		fetcher:      fetcher,
		lookbackDays: lookbackDays,
		logger:       logger.With().Str("component", "aggregator").Logger(),
		now:          time.Now,
	}
}

// Resolve returns stats for every input symbol. Symbols whose upstream
// fetch fails come back with zero-valued returns; one bad symbol never
// fails the whole alert. Per-symbol resolutions run in parallel with no
// ordering guarantee.
func (a *Aggregator) Resolve(ctx context.Context, symbols []string) map[string]ReturnStats {
	results := make(map[string]ReturnStats, len(symbols))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			stats := a.resolveOne(ctx, symbol)
			mu.Lock()
			results[symbol] = stats
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return results
}

func (a *Aggregator) resolveOne(ctx context.Context, symbol string) ReturnStats {
	if stats, ok := a.cache.Get(symbol, a.now()); ok {
		a.logger.Debug().Str("symbol", symbol).Msg("cache hit")
		return stats
	}

	stats, err := a.fetcher.FetchReturns(ctx, symbol, a.lookbackDays)
	if err != nil {
		// Degrade to zero returns instead of dropping the symbol; the
		// formatted alert must cover every requested entry.
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("fetch failed, using zero returns")
		return ZeroReturns()
	}

	a.cache.Put(symbol, stats, a.now())
	return stats
}
