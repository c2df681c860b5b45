// Package history walks the full trade history of each selected market
// through the paginated REST endpoint without exceeding the exchange's
// request quotas.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
)

const (
	// pageLimit is the maximum page size the endpoint accepts. A page of
	// exactly this size means more history may exist before it.
	pageLimit = 1000

	// historyReqWeight is the quota cost of one trade-history request.
	historyReqWeight = 5
)

// TradeLister fetches one page of account trade history.
type TradeLister interface {
	ListMyTrades(ctx context.Context, symbol string, limit int, endTime int64) ([]domain.HistoricalFill, error)
}

// FreqProvider computes the safe request frequency for a given call weight.
type FreqProvider interface {
	MaxRequestFreq(reqWeight int) float64
}

// Result is the outcome of walking one market's history. A non-nil Err
// means pagination aborted early; the fills pulled before the failure are
// still present and usable.
type Result struct {
	Symbol string
	Fills  []domain.HistoricalFill
	Err    error
}

// Progress is called after each market finishes.
type Progress func(symbol string, fills int, current, total int)

// Fetcher pulls complete per-market fill history, strictly serialized:
// one request at a time, one market after another, a flat wait between
// requests. The wait is the sole throttling mechanism.
type Fetcher struct {
	client TradeLister
	freq   FreqProvider
	logger *zap.Logger

	sleep      func(time.Duration)
	now        func() time.Time
	lastCalled time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSleep replaces the blocking sleep, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// WithClock replaces the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(f *Fetcher) { f.now = fn }
}

// NewFetcher creates a history fetcher.
func NewFetcher(client TradeLister, freq FreqProvider, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Fetcher{
		client: client,
		freq:   freq,
		logger: logger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll walks the full history of every symbol in order and returns one
// Result per symbol. A failing market keeps its partial fills and does not
// stop the remaining markets; only context cancellation stops the batch.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string, progress Progress) []Result {
	waitTime := f.waitTime()
	f.logger.Info("starting history sync",
		zap.Int("markets", len(symbols)),
		zap.Duration("request_interval", waitTime))

	results := make([]Result, 0, len(symbols))
	for i, symbol := range symbols {
		res := f.fetchMarket(ctx, symbol, waitTime)
		results = append(results, res)

		if progress != nil {
			progress(symbol, len(res.Fills), i+1, len(symbols))
		}
		if ctx.Err() != nil {
			break
		}
	}

	return results
}

// fetchMarket pages backward through one market's history. Each page's
// upper time bound is one millisecond before the earliest fill of the page
// after it; a short or empty page means the history is exhausted.
func (f *Fetcher) fetchMarket(ctx context.Context, symbol string, waitTime time.Duration) Result {
	res := Result{Symbol: symbol}

	var endTime int64
	for {
		if err := f.throttle(ctx, waitTime); err != nil {
			res.Err = err
			return res
		}

		page, err := f.client.ListMyTrades(ctx, symbol, pageLimit, endTime)
		if err != nil {
			f.logger.Warn("history page failed, keeping fills pulled so far",
				zap.String("symbol", symbol),
				zap.Int("fills", len(res.Fills)),
				zap.Error(err))
			res.Err = err
			return res
		}

		if len(page) == 0 {
			return res
		}

		res.Fills = append(res.Fills, page...)
		f.logger.Debug("fetched history page",
			zap.String("symbol", symbol),
			zap.Int("page_size", len(page)))

		if len(page) < pageLimit {
			return res
		}
		endTime = page[0].Time.UnixMilli() - 1
	}
}

// throttle enforces the flat wait between consecutive requests, shared
// across markets.
func (f *Fetcher) throttle(ctx context.Context, waitTime time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !f.lastCalled.IsZero() {
		if remaining := waitTime - f.now().Sub(f.lastCalled); remaining > 0 {
			f.sleep(remaining)
		}
	}
	f.lastCalled = f.now()

	return nil
}

// waitTime derives the inter-request interval from the exchange limits for
// this endpoint's weight.
func (f *Fetcher) waitTime() time.Duration {
	freq := f.freq.MaxRequestFreq(historyReqWeight)
	if freq <= 0 {
		// The frequency provider already falls back to a conservative
		// value; this is a second guard against division by zero.
		return time.Second
	}
	return time.Duration(float64(time.Second) / freq)
}
