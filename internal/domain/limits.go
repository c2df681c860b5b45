package domain

import (
	"strings"
	"time"
)

// Rate limit rule types published by the exchange.
const (
	RateLimitRequestWeight = "REQUEST_WEIGHT"
	RateLimitRawRequests   = "RAW_REQUESTS"
	RateLimitOrders        = "ORDERS"
)

// RateLimitRule is one exchange-published request quota, e.g. 1200 weight
// units per minute.
type RateLimitRule struct {
	Type        string
	Interval    string
	IntervalNum int64
	Limit       int64
}

// IsRequestRule reports whether the rule constrains API requests rather
// than order placement.
func (r RateLimitRule) IsRequestRule() bool {
	return strings.Contains(r.Type, "REQUEST")
}

// IntervalDuration converts the rule's interval to a time.Duration.
// Unknown interval units yield zero.
func (r RateLimitRule) IntervalDuration() time.Duration {
	var unit time.Duration
	switch strings.ToUpper(r.Interval) {
	case "SECOND":
		unit = time.Second
	case "MINUTE":
		unit = time.Minute
	case "HOUR":
		unit = time.Hour
	case "DAY":
		unit = 24 * time.Hour
	default:
		return 0
	}
	return time.Duration(r.IntervalNum) * unit
}

// MarketInfo is one listed market with its trading status.
type MarketInfo struct {
	Symbol string
	Status string
}

// IsActive reports whether the market is currently trading.
func (m MarketInfo) IsActive() bool {
	return m.Status == "TRADING"
}
