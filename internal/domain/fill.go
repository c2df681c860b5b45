package domain

import "time"

// HistoricalFill is one record from the REST trade-history endpoint,
// validated at the client boundary and immutable afterwards.
type HistoricalFill struct {
	ID              int64
	Symbol          string
	Price           string
	Quantity        string
	Commission      string
	CommissionAsset string
	Time            time.Time
	IsBuyer         bool
}

// StreamedFill is one execution report from the user-data stream. The
// quantities are the last-fill quantities, not the cumulative order totals:
// an order may fill incrementally across several reports.
type StreamedFill struct {
	Symbol          string
	Side            string
	OrderType       string
	LastQuantity    string
	LastQuoteQty    string
	Commission      string
	CommissionAsset string
	TradeID         int64
	TransactionTime time.Time
	ExecutionType   string
	OrderStatus     string
}

// IsTradeEvent reports whether this execution report represents an actual
// fill worth recording: the execution must be a trade, the order partially
// or fully filled, both last-fill quantities positive and the trade id not
// the "no trade" sentinel (-1).
func (f StreamedFill) IsTradeEvent() bool {
	if f.ExecutionType != "TRADE" {
		return false
	}
	if f.OrderStatus != "PARTIALLY_FILLED" && f.OrderStatus != "FILLED" {
		return false
	}
	if !positiveQty(f.LastQuantity) || !positiveQty(f.LastQuoteQty) {
		return false
	}
	return f.TradeID != -1
}

// AccountEventKind classifies user-data stream messages.
type AccountEventKind int

const (
	EventUnknown AccountEventKind = iota
	EventAccountUpdate
	EventOrderUpdate
)

// AccountEvent is one classified message from the user-data stream.
type AccountEvent struct {
	Kind AccountEventKind
	Time time.Time

	// Balances is set for account update events.
	Balances []Balance
	// Fill is set for order update events.
	Fill StreamedFill
}

// Balance is one asset balance from an account update event.
type Balance struct {
	Asset  string
	Free   string
	Locked string
}
