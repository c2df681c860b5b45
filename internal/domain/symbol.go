// Package domain defines the core data structures of the trade ledger:
// market symbols, raw exchange fills and canonical tax trades.
package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// QuoteAssets are the quote currencies recognized when splitting a market
// identifier. Order matters: the first asset found at the tail of the
// identifier wins, so a base currency that is itself a prefix of a quote
// asset can be misparsed. Known limitation, kept deliberately.
var QuoteAssets = []string{"BTC", "ETH", "USDT", "TUSD", "PAX", "BNB"}

// Symbol is a market pair split into its base and quote assets.
type Symbol struct {
	Base  string
	Quote string
}

// ParseSymbol splits a concatenated market identifier such as "ADABTC" into
// base and quote assets. It returns ErrUnparseableSymbol when no known quote
// asset occupies the tail of the identifier.
func ParseSymbol(identifier string) (Symbol, error) {
	for _, quote := range QuoteAssets {
		if len(identifier) > len(quote) && strings.HasSuffix(identifier, quote) {
			return Symbol{
				Base:  identifier[:len(identifier)-len(quote)],
				Quote: quote,
			}, nil
		}
	}
	return Symbol{}, errors.Wrapf(ErrUnparseableSymbol, "symbol %q", identifier)
}

// String returns the concatenated market identifier.
func (s Symbol) String() string {
	return s.Base + s.Quote
}
