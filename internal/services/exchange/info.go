// Package exchange holds exchange metadata: published rate limit rules and
// the market list, with the safe-request-frequency calculation derived from
// them.
package exchange

import (
	"context"

	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
)

// FallbackRequestFreq is used when the exchange publishes no applicable
// request limit rules. Not knowing the limits is no reason to skip
// throttling, so callers get a floor of one request per second.
const FallbackRequestFreq = 1.0

// MetadataClient fetches exchange metadata.
type MetadataClient interface {
	GetExchangeInfo(ctx context.Context) ([]domain.RateLimitRule, []domain.MarketInfo, error)
}

// Info is a snapshot of exchange metadata taken at startup.
type Info struct {
	rules   []domain.RateLimitRule
	markets []domain.MarketInfo
	logger  *zap.Logger
}

// Load fetches the current exchange metadata snapshot.
func Load(ctx context.Context, client MetadataClient, logger *zap.Logger) (*Info, error) {
	rules, markets, err := client.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	return NewInfo(rules, markets, logger), nil
}

// NewInfo builds a metadata snapshot from already-fetched rules and markets.
func NewInfo(rules []domain.RateLimitRule, markets []domain.MarketInfo, logger *zap.Logger) *Info {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Info{rules: rules, markets: markets, logger: logger}
}

// MaxRequestFreq returns the highest safe request rate in requests per
// second for a call costing reqWeight quota units. Each applicable rule
// allows limit/interval requests per second, divided by the call weight for
// weight-typed rules; the most restrictive rule governs. Without any
// applicable rules the conservative FallbackRequestFreq is returned.
func (i *Info) MaxRequestFreq(reqWeight int) float64 {
	if reqWeight < 1 {
		reqWeight = 1
	}

	maxAllowed := 0.0
	found := false
	for _, rule := range i.rules {
		if !rule.IsRequestRule() {
			continue
		}
		interval := rule.IntervalDuration()
		if interval <= 0 {
			continue
		}

		freq := float64(rule.Limit) / interval.Seconds()
		// RAW_REQUESTS counts every call as one, regardless of weight.
		if rule.Type == domain.RateLimitRequestWeight {
			freq /= float64(reqWeight)
		}

		if !found || freq < maxAllowed {
			maxAllowed = freq
			found = true
		}
	}

	if !found {
		i.logger.Warn("exchange published no request limit rules, using fallback frequency",
			zap.Float64("fallback", FallbackRequestFreq))
		return FallbackRequestFreq
	}

	i.logger.Info("computed max request frequency",
		zap.Int("weight", reqWeight),
		zap.Float64("requests_per_second", maxAllowed))

	return maxAllowed
}

// ActiveSymbols returns the markets currently open for trading.
func (i *Info) ActiveSymbols() []string {
	return i.symbolsWhere(true)
}

// InactiveSymbols returns the markets not currently trading.
func (i *Info) InactiveSymbols() []string {
	return i.symbolsWhere(false)
}

// AllSymbols returns every listed market, active or not.
func (i *Info) AllSymbols() []string {
	out := make([]string, 0, len(i.markets))
	for _, m := range i.markets {
		out = append(out, m.Symbol)
	}
	return out
}

func (i *Info) symbolsWhere(active bool) []string {
	var out []string
	for _, m := range i.markets {
		if m.IsActive() == active {
			out = append(out, m.Symbol)
		}
	}
	return out
}
