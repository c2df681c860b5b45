package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		identifier string
		base       string
		quote      string
	}{
		{"ADABTC", "ADA", "BTC"},
		{"ETHUSDT", "ETH", "USDT"},
		{"XRPBNB", "XRP", "BNB"},
		{"LINKETH", "LINK", "ETH"},
		{"BTCTUSD", "BTC", "TUSD"},
		{"USDCPAX", "USDC", "PAX"},
		// BTC is both a plausible base and a quote; the tail match wins.
		{"BTCBTC", "BTC", "BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			symbol, err := ParseSymbol(tt.identifier)
			require.NoError(t, err)
			require.Equal(t, tt.base, symbol.Base)
			require.Equal(t, tt.quote, symbol.Quote)
			require.Equal(t, tt.identifier, symbol.String())
		})
	}
}

func TestParseSymbolRoundTripAllQuotes(t *testing.T) {
	for _, quote := range QuoteAssets {
		symbol, err := ParseSymbol("XYZ" + quote)
		require.NoError(t, err)
		require.Equal(t, "XYZ", symbol.Base)
		require.Equal(t, quote, symbol.Quote)
	}
}

func TestParseSymbolUnknownQuote(t *testing.T) {
	for _, identifier := range []string{"ADAEUR", "FOO", "", "USDT"} {
		_, err := ParseSymbol(identifier)
		require.ErrorIs(t, err, ErrUnparseableSymbol, "identifier %q", identifier)
	}
}
