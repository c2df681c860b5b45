package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var tradeTime = time.Date(2019, 4, 12, 9, 30, 0, 0, time.UTC)

func TestTradeFromHistoryBuy(t *testing.T) {
	fill := HistoricalFill{
		ID:              42,
		Symbol:          "ADABTC",
		Price:           "10",
		Quantity:        "2.0",
		Commission:      "0.001",
		CommissionAsset: "ADA",
		Time:            tradeTime,
		IsBuyer:         true,
	}

	trade, err := TradeFromHistory(fill)
	require.NoError(t, err)

	require.Equal(t, "BUY", trade.Kind)
	require.Equal(t, "ADA", trade.BuyCurrency)
	require.True(t, trade.BuyAmount.Equal(decimal.NewFromInt(2)), "buy amount %s", trade.BuyAmount)
	require.Equal(t, "BTC", trade.SellCurrency)
	require.True(t, trade.SellAmount.Equal(decimal.NewFromInt(20)), "sell amount %s", trade.SellAmount)
	require.Equal(t, "ADA", trade.FeeCurrency)
	require.True(t, trade.FeeAmount.Equal(decimal.NewFromFloat(0.001)))
	require.Equal(t, "Binance", trade.Exchange)
	require.Equal(t, "42", trade.Mark)
	require.Equal(t, tradeTime, trade.Time)
}

func TestTradeFromHistorySellSwapsSides(t *testing.T) {
	fill := HistoricalFill{
		ID:              7,
		Symbol:          "ETHUSDT",
		Price:           "200",
		Quantity:        "3",
		Commission:      "0.5",
		CommissionAsset: "USDT",
		Time:            tradeTime,
		IsBuyer:         false,
	}

	trade, err := TradeFromHistory(fill)
	require.NoError(t, err)

	require.Equal(t, "SELL", trade.Kind)
	require.Equal(t, "USDT", trade.BuyCurrency)
	require.True(t, trade.BuyAmount.Equal(decimal.NewFromInt(600)))
	require.Equal(t, "ETH", trade.SellCurrency)
	require.True(t, trade.SellAmount.Equal(decimal.NewFromInt(3)))
}

func TestTradeFromHistoryUnknownSymbol(t *testing.T) {
	_, err := TradeFromHistory(HistoricalFill{Symbol: "ADAEUR", Price: "1", Quantity: "1", Commission: "0", Time: tradeTime})
	require.ErrorIs(t, err, ErrUnparseableSymbol)
}

func TestTradeFromHistoryBadNumbers(t *testing.T) {
	fill := HistoricalFill{
		Symbol: "ADABTC", Price: "not-a-number", Quantity: "1",
		Commission: "0", CommissionAsset: "BNB", Time: tradeTime,
	}
	_, err := TradeFromHistory(fill)
	require.ErrorIs(t, err, ErrInvalidTradeRecord)
}

func TestTradeFromOrderUpdateUsesLastFillQuantities(t *testing.T) {
	fill := StreamedFill{
		Symbol:          "ADABTC",
		Side:            "BUY",
		OrderType:       "LIMIT",
		LastQuantity:    "1.5",
		LastQuoteQty:    "0.015",
		Commission:      "-0.002",
		CommissionAsset: "BNB",
		TradeID:         99,
		TransactionTime: tradeTime,
		ExecutionType:   "TRADE",
		OrderStatus:     "PARTIALLY_FILLED",
	}

	trade, err := TradeFromOrderUpdate(fill)
	require.NoError(t, err)

	require.Equal(t, "LIMIT BUY", trade.Kind)
	require.Equal(t, "ADA", trade.BuyCurrency)
	require.True(t, trade.BuyAmount.Equal(decimal.NewFromFloat(1.5)))
	require.Equal(t, "BTC", trade.SellCurrency)
	require.True(t, trade.SellAmount.Equal(decimal.NewFromFloat(0.015)))
	// Fee sign is normalized away.
	require.True(t, trade.FeeAmount.Equal(decimal.NewFromFloat(0.002)))
	require.Equal(t, "99", trade.Mark)
}

func TestNewTaxTradeRejectsNegativeAmounts(t *testing.T) {
	_, err := NewTaxTrade("BUY", tradeTime,
		"ADA", decimal.NewFromInt(-1),
		"BTC", decimal.NewFromInt(1),
		"BNB", decimal.NewFromInt(0), "1", "")
	require.ErrorIs(t, err, ErrInvalidTradeRecord)
}

func TestNewTaxTradeRejectsZeroTime(t *testing.T) {
	_, err := NewTaxTrade("BUY", time.Time{},
		"ADA", decimal.NewFromInt(1),
		"BTC", decimal.NewFromInt(1),
		"BNB", decimal.NewFromInt(0), "1", "")
	require.ErrorIs(t, err, ErrInvalidTradeRecord)
}

func TestNewTaxTradeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2019, 4, 12, 12, 30, 0, 0, loc)

	trade, err := NewTaxTrade("BUY", local,
		"ADA", decimal.NewFromInt(1),
		"BTC", decimal.NewFromInt(1),
		"BNB", decimal.Zero, "1", "")
	require.NoError(t, err)
	require.Equal(t, time.UTC, trade.Time.Location())
	require.True(t, trade.Time.Equal(local))
}

func TestStreamedFillIsTradeEvent(t *testing.T) {
	base := StreamedFill{
		ExecutionType: "TRADE",
		OrderStatus:   "FILLED",
		LastQuantity:  "1",
		LastQuoteQty:  "10",
		TradeID:       5,
	}

	tests := []struct {
		name   string
		mutate func(*StreamedFill)
		want   bool
	}{
		{"filled trade", func(f *StreamedFill) {}, true},
		{"partial fill", func(f *StreamedFill) { f.OrderStatus = "PARTIALLY_FILLED" }, true},
		{"new order", func(f *StreamedFill) { f.ExecutionType = "NEW" }, false},
		{"canceled", func(f *StreamedFill) { f.OrderStatus = "CANCELED" }, false},
		{"zero base qty", func(f *StreamedFill) { f.LastQuantity = "0" }, false},
		{"zero quote qty", func(f *StreamedFill) { f.LastQuoteQty = "0.000" }, false},
		{"sentinel trade id", func(f *StreamedFill) { f.TradeID = -1 }, false},
		{"garbage qty", func(f *StreamedFill) { f.LastQuantity = "x" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fill := base
			tt.mutate(&fill)
			require.Equal(t, tt.want, fill.IsTradeEvent())
		})
	}
}

func TestCSVRowFormatting(t *testing.T) {
	trade, err := NewTaxTrade("BUY", tradeTime,
		"ADA", decimal.NewFromFloat(2),
		"BTC", decimal.NewFromFloat(0.0153),
		"BNB", decimal.NewFromFloat(0.001),
		"42", "")
	require.NoError(t, err)

	row := trade.CSVRow()
	require.Len(t, row, len(CSVColumns))
	require.Equal(t, "2.00000000", row[3])
	require.Equal(t, "0.01530000", row[5])
	require.Equal(t, "0.00100000", row[7])
	require.Equal(t, "Binance", row[8])
	require.Equal(t, "42", row[9])
}
