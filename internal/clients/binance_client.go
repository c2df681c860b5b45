// Package clients wraps the Binance connectivity layer behind small,
// mockable methods returning domain types.
package clients

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
)

const keepaliveInterval = 30 * time.Minute

// BinanceClient is the exchange client used by the fetcher and the account
// monitor.
type BinanceClient struct {
	client *binance.Client
	logger *zap.Logger
}

// NewBinanceClient creates a Binance client from API credentials.
func NewBinanceClient(apiKey, apiSecret string, logger *zap.Logger) *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient(apiKey, apiSecret),
		logger: logger,
	}
}

// GetExchangeInfo fetches the exchange metadata: published rate limit rules
// and the list of markets with their trading status.
func (c *BinanceClient) GetExchangeInfo(ctx context.Context) ([]domain.RateLimitRule, []domain.MarketInfo, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch exchange info")
	}

	rules := make([]domain.RateLimitRule, 0, len(info.RateLimits))
	for _, rl := range info.RateLimits {
		rules = append(rules, domain.RateLimitRule{
			Type:        rl.RateLimitType,
			Interval:    rl.Interval,
			IntervalNum: rl.IntervalNum,
			Limit:       rl.Limit,
		})
	}

	markets := make([]domain.MarketInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		markets = append(markets, domain.MarketInfo{Symbol: s.Symbol, Status: s.Status})
	}

	return rules, markets, nil
}

// ListMyTrades fetches one page of the account's trade history for a market.
// endTime bounds the page from above in epoch milliseconds; pass 0 for no
// bound.
func (c *BinanceClient) ListMyTrades(ctx context.Context, symbol string, limit int, endTime int64) ([]domain.HistoricalFill, error) {
	svc := c.client.NewListTradesService().Symbol(symbol).Limit(limit)
	if endTime > 0 {
		svc = svc.EndTime(endTime)
	}

	trades, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch trades for %s", symbol)
	}

	fills := make([]domain.HistoricalFill, 0, len(trades))
	for _, t := range trades {
		fills = append(fills, domain.HistoricalFill{
			ID:              t.ID,
			Symbol:          t.Symbol,
			Price:           t.Price,
			Quantity:        t.Quantity,
			Commission:      t.Commission,
			CommissionAsset: t.CommissionAsset,
			Time:            time.UnixMilli(t.Time).UTC(),
			IsBuyer:         t.IsBuyer,
		})
	}

	return fills, nil
}

// SubscribeUserData opens the user-data stream and delivers classified
// account events to the handler until ctx is cancelled or the stream fails.
// The listen key is refreshed periodically as the API requires. The handler
// runs on the websocket delivery goroutine and must not block.
func (c *BinanceClient) SubscribeUserData(ctx context.Context, handler func(domain.AccountEvent)) error {
	listenKey, err := c.client.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return errors.Wrap(err, "start user data stream")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.client.NewCloseUserStreamService().ListenKey(listenKey).Do(closeCtx); err != nil {
			c.logger.Warn("failed to close user data stream", zap.Error(err))
		}
	}()

	streamErr := make(chan error, 1)
	wsHandler := func(event *binance.WsUserDataEvent) {
		handler(convertUserDataEvent(event))
	}
	errHandler := func(err error) {
		select {
		case streamErr <- err:
		default:
		}
	}

	doneC, stopC, err := binance.WsUserDataServe(listenKey, wsHandler, errHandler)
	if err != nil {
		return errors.Wrap(err, "subscribe user data stream")
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return ctx.Err()
		case <-doneC:
			return errors.New("user data stream closed by server")
		case err := <-streamErr:
			close(stopC)
			<-doneC
			return errors.Wrap(err, "user data stream error")
		case <-keepalive.C:
			if err := c.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
				c.logger.Warn("keepalive for user data stream failed", zap.Error(err))
			}
		}
	}
}

// convertUserDataEvent maps a raw websocket payload onto the domain's tagged
// event variants. Event types outside the two known ones come back as
// EventUnknown and are classified by the monitor.
func convertUserDataEvent(event *binance.WsUserDataEvent) domain.AccountEvent {
	at := time.UnixMilli(event.Time).UTC()

	switch event.Event {
	case binance.UserDataEventTypeOutboundAccountPosition:
		balances := make([]domain.Balance, 0, len(event.AccountUpdate.WsAccountUpdates))
		for _, b := range event.AccountUpdate.WsAccountUpdates {
			balances = append(balances, domain.Balance{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
		}
		return domain.AccountEvent{Kind: domain.EventAccountUpdate, Time: at, Balances: balances}
	case binance.UserDataEventTypeExecutionReport:
		o := event.OrderUpdate
		return domain.AccountEvent{
			Kind: domain.EventOrderUpdate,
			Time: at,
			Fill: domain.StreamedFill{
				Symbol:          o.Symbol,
				Side:            o.Side,
				OrderType:       o.Type,
				LastQuantity:    o.LatestVolume,
				LastQuoteQty:    o.LatestQuoteVolume,
				Commission:      o.FeeCost,
				CommissionAsset: o.FeeAsset,
				TradeID:         o.TradeId,
				TransactionTime: time.UnixMilli(o.TransactionTime).UTC(),
				ExecutionType:   o.ExecutionType,
				OrderStatus:     o.Status,
			},
		}
	default:
		return domain.AccountEvent{Kind: domain.EventUnknown, Time: at}
	}
}
