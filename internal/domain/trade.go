package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ExchangeName tags every ledger record with its origin.
const ExchangeName = "Binance"

// TaxTrade is the canonical ledger record: one fill expressed as a
// buy/sell/fee triple, the representation tax-accounting tools consume.
//
// All three amounts are non-negative; the fee sign is normalized away.
// Time is always stored in UTC. Mark carries the exchange-assigned trade id
// and is the ledger's deduplication key.
type TaxTrade struct {
	Kind         string          `json:"kind"`
	Time         time.Time       `json:"dtime"`
	BuyCurrency  string          `json:"buy_currency"`
	BuyAmount    decimal.Decimal `json:"buy_amount"`
	SellCurrency string          `json:"sell_currency"`
	SellAmount   decimal.Decimal `json:"sell_amount"`
	FeeCurrency  string          `json:"fee_currency"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	Exchange     string          `json:"exchange"`
	Mark         string          `json:"mark"`
	Comment      string          `json:"comment"`
}

// CSVColumns is the fixed export column order.
var CSVColumns = []string{
	"kind", "dtime",
	"buy_currency", "buy_amount",
	"sell_currency", "sell_amount",
	"fee_currency", "fee_amount",
	"exchange", "mark", "comment",
}

// NewTaxTrade validates and normalizes a canonical trade. The fee amount is
// stored as an absolute value. Negative buy or sell amounts and a zero time
// are rejected with ErrInvalidTradeRecord: a bare epoch number is ambiguous
// between seconds and milliseconds, so callers must convert timestamps to
// time.Time explicitly before they get here.
func NewTaxTrade(kind string, at time.Time, buyCur string, buyAmount decimal.Decimal,
	sellCur string, sellAmount decimal.Decimal, feeCur string, feeAmount decimal.Decimal,
	mark, comment string) (TaxTrade, error) {

	if at.IsZero() {
		return TaxTrade{}, errors.Wrap(ErrInvalidTradeRecord, "trade time is not set")
	}
	if buyAmount.IsNegative() || sellAmount.IsNegative() {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord,
			"expected non-negative amounts, got buy=%s sell=%s", buyAmount, sellAmount)
	}

	return TaxTrade{
		Kind:         kind,
		Time:         at.UTC(),
		BuyCurrency:  buyCur,
		BuyAmount:    buyAmount,
		SellCurrency: sellCur,
		SellAmount:   sellAmount,
		FeeCurrency:  feeCur,
		FeeAmount:    feeAmount.Abs(),
		Exchange:     ExchangeName,
		Mark:         mark,
		Comment:      comment,
	}, nil
}

// TradeFromHistory converts a historical REST fill into a canonical trade.
// The quote amount is derived as qty*price; buy and sell sides are assigned
// by the fill's direction.
func TradeFromHistory(fill HistoricalFill) (TaxTrade, error) {
	symbol, err := ParseSymbol(fill.Symbol)
	if err != nil {
		return TaxTrade{}, err
	}

	baseQty, err := decimal.NewFromString(fill.Quantity)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "qty %q", fill.Quantity)
	}
	price, err := decimal.NewFromString(fill.Price)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "price %q", fill.Price)
	}
	fee, err := decimal.NewFromString(fill.Commission)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "commission %q", fill.Commission)
	}
	quoteQty := baseQty.Mul(price)

	kind := "SELL"
	if fill.IsBuyer {
		kind = "BUY"
	}

	buyCur, buyAmount, sellCur, sellAmount := assignSides(symbol, fill.IsBuyer, baseQty, quoteQty)
	return NewTaxTrade(kind, fill.Time, buyCur, buyAmount, sellCur, sellAmount,
		fill.CommissionAsset, fee, fmt.Sprintf("%d", fill.ID), "")
}

// TradeFromOrderUpdate converts a streamed execution report into a canonical
// trade. Both quantities come straight from the report's last-fill fields.
func TradeFromOrderUpdate(fill StreamedFill) (TaxTrade, error) {
	symbol, err := ParseSymbol(fill.Symbol)
	if err != nil {
		return TaxTrade{}, err
	}

	baseQty, err := decimal.NewFromString(fill.LastQuantity)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "last qty %q", fill.LastQuantity)
	}
	quoteQty, err := decimal.NewFromString(fill.LastQuoteQty)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "last quote qty %q", fill.LastQuoteQty)
	}
	fee, err := decimal.NewFromString(fill.Commission)
	if err != nil {
		return TaxTrade{}, errors.Wrapf(ErrInvalidTradeRecord, "commission %q", fill.Commission)
	}

	isBuy := fill.Side == "BUY"
	kind := fmt.Sprintf("%s %s", fill.OrderType, fill.Side)

	buyCur, buyAmount, sellCur, sellAmount := assignSides(symbol, isBuy, baseQty, quoteQty)
	return NewTaxTrade(kind, fill.TransactionTime, buyCur, buyAmount, sellCur, sellAmount,
		fill.CommissionAsset, fee, fmt.Sprintf("%d", fill.TradeID), "")
}

// assignSides maps base/quote quantities onto buy/sell by trade direction:
// buying acquires the base currency and spends the quote, selling is the
// mirror image.
func assignSides(symbol Symbol, isBuy bool, baseQty, quoteQty decimal.Decimal) (string, decimal.Decimal, string, decimal.Decimal) {
	if isBuy {
		return symbol.Base, baseQty, symbol.Quote, quoteQty
	}
	return symbol.Quote, quoteQty, symbol.Base, baseQty
}

// Equal reports whether two records carry identical field values.
// Decimal amounts compare by numeric value, not representation.
func (t TaxTrade) Equal(other TaxTrade) bool {
	return t.Kind == other.Kind &&
		t.Time.Equal(other.Time) &&
		t.BuyCurrency == other.BuyCurrency &&
		t.BuyAmount.Equal(other.BuyAmount) &&
		t.SellCurrency == other.SellCurrency &&
		t.SellAmount.Equal(other.SellAmount) &&
		t.FeeCurrency == other.FeeCurrency &&
		t.FeeAmount.Equal(other.FeeAmount) &&
		t.Exchange == other.Exchange &&
		t.Mark == other.Mark &&
		t.Comment == other.Comment
}

// CSVRow renders the record in CSVColumns order with fixed eight-decimal
// formatting for the three amount fields.
func (t TaxTrade) CSVRow() []string {
	return []string{
		t.Kind,
		t.Time.Format(time.RFC3339),
		t.BuyCurrency,
		t.BuyAmount.StringFixed(8),
		t.SellCurrency,
		t.SellAmount.StringFixed(8),
		t.FeeCurrency,
		t.FeeAmount.StringFixed(8),
		t.Exchange,
		t.Mark,
		t.Comment,
	}
}

// String returns a human-readable trade summary.
func (t TaxTrade) String() string {
	return fmt.Sprintf("%s %s: +%s %s / -%s %s (fee %s %s) id=%s",
		t.Time.Format(time.RFC3339), t.Kind,
		t.BuyAmount, t.BuyCurrency,
		t.SellAmount, t.SellCurrency,
		t.FeeAmount, t.FeeCurrency, t.Mark)
}

func positiveQty(s string) bool {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.IsPositive()
}
