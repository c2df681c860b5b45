// Package monitor consumes the live account stream: it classifies incoming
// user-data events, records qualifying fills in the ledger and reconciles
// the blacklist when an excluded market shows activity.
package monitor

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
	"github.com/anson-vandoren/binance-monitor/internal/storage/prefs"
	"github.com/anson-vandoren/binance-monitor/pkg/retrier"
)

// eventBufferSize bounds the queue between the websocket delivery goroutine
// and the ledger-owning consumer, so a slow disk never blocks the transport
// callback.
const eventBufferSize = 256

// StreamSubscriber delivers account events until the context ends or the
// stream fails.
type StreamSubscriber interface {
	SubscribeUserData(ctx context.Context, handler func(domain.AccountEvent)) error
}

// Ledger records live fills.
type Ledger interface {
	AddOne(record domain.TaxTrade) error
}

// BlacklistReconciler lifts stale market exclusions after confirmation.
type BlacklistReconciler interface {
	Reconcile(observed []string, confirmer prefs.Confirmer) ([]string, error)
}

// AccountMonitor routes live account events into the ledger. Events flow
// from the stream callback through a bounded channel into a single consumer
// goroutine, preserving the ledger's single-writer discipline.
type AccountMonitor struct {
	stream    StreamSubscriber
	ledger    Ledger
	prefs     BlacklistReconciler
	confirmer prefs.Confirmer
	logger    *zap.Logger
}

// New creates an account monitor.
func New(stream StreamSubscriber, ledger Ledger, reconciler BlacklistReconciler,
	confirmer prefs.Confirmer, logger *zap.Logger) *AccountMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountMonitor{
		stream:    stream,
		ledger:    ledger,
		prefs:     reconciler,
		confirmer: confirmer,
		logger:    logger,
	}
}

// Run subscribes to the account stream and processes events until ctx is
// cancelled. A dropped stream is re-subscribed with exponential backoff;
// page-style request throttling does not apply here.
func (m *AccountMonitor) Run(ctx context.Context) error {
	events := make(chan domain.AccountEvent, eventBufferSize)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for ev := range events {
			m.handle(ev)
		}
	}()

	r := retrier.New()
	err := r.Do(ctx, func(ctx context.Context) error {
		m.logger.Info("subscribing to account update stream")
		subErr := m.stream.SubscribeUserData(ctx, func(ev domain.AccountEvent) {
			select {
			case events <- ev:
			default:
				m.logger.Warn("event buffer full, dropping account event")
			}
		})
		if errors.Is(subErr, context.Canceled) {
			return nil
		}
		return subErr
	})

	close(events)
	<-consumerDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "account update stream")
	}
	return nil
}

// handle processes one classified event. Only execution reports that pass
// the trade-completion test reach the ledger; everything else is a
// non-trade lifecycle event and is dropped without error.
func (m *AccountMonitor) handle(ev domain.AccountEvent) {
	switch ev.Kind {
	case domain.EventAccountUpdate:
		m.logger.Debug("account balance update",
			zap.Time("at", ev.Time),
			zap.Int("assets", len(ev.Balances)))
	case domain.EventOrderUpdate:
		m.handleOrderUpdate(ev.Fill)
	default:
		m.logger.Debug("dropping account event",
			zap.Time("at", ev.Time),
			zap.Error(domain.ErrUnrecognizedEvent))
	}
}

func (m *AccountMonitor) handleOrderUpdate(fill domain.StreamedFill) {
	if !fill.IsTradeEvent() {
		m.logger.Debug("order update is not a completed fill",
			zap.String("symbol", fill.Symbol),
			zap.String("execution_type", fill.ExecutionType),
			zap.String("order_status", fill.OrderStatus))
		return
	}

	trade, err := domain.TradeFromOrderUpdate(fill)
	if err != nil {
		m.logger.Error("could not normalize streamed fill",
			zap.String("symbol", fill.Symbol),
			zap.Int64("trade_id", fill.TradeID),
			zap.Error(err))
		return
	}

	if err := m.ledger.AddOne(trade); err != nil {
		m.logger.Error("could not record live trade",
			zap.String("mark", trade.Mark),
			zap.Error(err))
		return
	}
	m.logger.Info("recorded live trade", zap.String("trade", trade.String()))

	// A fill on a blacklisted market means the exclusion is stale.
	if _, err := m.prefs.Reconcile([]string{fill.Symbol}, m.confirmer); err != nil {
		m.logger.Warn("blacklist reconciliation failed",
			zap.String("symbol", fill.Symbol),
			zap.Error(err))
	}
}
