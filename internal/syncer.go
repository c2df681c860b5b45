package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
	"github.com/anson-vandoren/binance-monitor/internal/services/history"
	"github.com/anson-vandoren/binance-monitor/internal/storage/prefs"
)

// HistoryFetcher walks the full fill history of the given markets.
type HistoryFetcher interface {
	FetchAll(ctx context.Context, symbols []string, progress history.Progress) []history.Result
}

// LedgerStore merges normalized trades and persists them.
type LedgerStore interface {
	Update(records []domain.TaxTrade) error
	Flush() error
	Len() int
}

// SelectionPolicy decides which markets are synced and self-corrects when
// a supposedly excluded market shows trades.
type SelectionPolicy interface {
	IsIncluded(symbol string) bool
	Reconcile(observed []string, confirmer prefs.Confirmer) ([]string, error)
}

// Syncer runs one historical sync session: select markets, fetch their fill
// history, normalize every fill, merge into the ledger and persist.
type Syncer struct {
	fetcher   HistoryFetcher
	ledger    LedgerStore
	policy    SelectionPolicy
	confirmer prefs.Confirmer
	logger    *zap.Logger
}

// NewSyncer creates a sync session runner.
func NewSyncer(fetcher HistoryFetcher, ledger LedgerStore, policy SelectionPolicy,
	confirmer prefs.Confirmer, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		fetcher:   fetcher,
		ledger:    ledger,
		policy:    policy,
		confirmer: confirmer,
		logger:    logger,
	}
}

// SyncAll pulls trade history for every candidate market that the selection
// policy includes. With force set, the policy is bypassed and every
// candidate is walked.
func (s *Syncer) SyncAll(ctx context.Context, candidates []string, force bool, progress history.Progress) error {
	symbols := candidates
	if !force {
		symbols = make([]string, 0, len(candidates))
		var skipped []string
		for _, sym := range candidates {
			if s.policy.IsIncluded(sym) {
				symbols = append(symbols, sym)
			} else {
				skipped = append(skipped, sym)
			}
		}
		if len(skipped) > 0 {
			s.logger.Info("skipping blacklisted markets", zap.Strings("symbols", skipped))
		}
	}

	return s.Sync(ctx, symbols, progress)
}

// Sync pulls trade history for the given markets, merges the normalized
// fills into the ledger and persists once at the end of the session. A
// single market's fetch failure keeps its partial history and does not
// abort the others; an invalid fill is skipped, the batch continues.
func (s *Syncer) Sync(ctx context.Context, symbols []string, progress history.Progress) error {
	results := s.fetcher.FetchAll(ctx, symbols, progress)

	var (
		records  []domain.TaxTrade
		observed []string
		seen     = make(map[string]struct{})
		failed   int
	)
	for _, res := range results {
		if res.Err != nil {
			failed++
			s.logger.Warn("market history incomplete",
				zap.String("symbol", res.Symbol),
				zap.Int("fills_kept", len(res.Fills)),
				zap.Error(res.Err))
		}

		for _, fill := range res.Fills {
			trade, err := domain.TradeFromHistory(fill)
			if err != nil {
				s.logger.Warn("skipping invalid fill",
					zap.String("symbol", fill.Symbol),
					zap.Int64("trade_id", fill.ID),
					zap.Error(err))
				continue
			}
			records = append(records, trade)

			if _, ok := seen[fill.Symbol]; !ok {
				seen[fill.Symbol] = struct{}{}
				observed = append(observed, fill.Symbol)
			}
		}
	}

	if len(records) == 0 {
		s.logger.Info("no trades received for given symbols")
		return nil
	}

	if err := s.ledger.Update(records); err != nil {
		return errors.Wrap(err, "merge fetched trades into ledger")
	}
	if err := s.ledger.Flush(); err != nil {
		return errors.Wrap(err, "persist ledger")
	}

	s.logger.Info("trades retrieved and stored on disk",
		zap.Int("fetched", len(records)),
		zap.Int("ledger_size", s.ledger.Len()),
		zap.Int("failed_markets", failed))

	// Activity on a blacklisted market proves the exclusion stale.
	if _, err := s.policy.Reconcile(observed, s.confirmer); err != nil {
		s.logger.Warn("blacklist reconciliation failed", zap.Error(err))
	}

	return nil
}
