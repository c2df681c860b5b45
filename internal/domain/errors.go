package domain

import "errors"

var (
	// ErrUnparseableSymbol is returned when a market identifier does not end
	// with any known quote asset.
	ErrUnparseableSymbol = errors.New("no known quote asset found in symbol")

	// ErrInvalidTradeRecord is returned when a raw fill cannot be converted
	// into a valid tax trade (negative amounts or unusable timestamp).
	ErrInvalidTradeRecord = errors.New("invalid trade record")

	// ErrDuplicateMark is returned when a trade id already present in the
	// ledger reappears with different field values.
	ErrDuplicateMark = errors.New("duplicate trade id with conflicting fields")

	// ErrUnrecognizedEvent is returned by the user-data classifier for
	// event types it does not know.
	ErrUnrecognizedEvent = errors.New("unrecognized user data event type")
)
