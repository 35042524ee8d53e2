package portfolio

import "errors"

// Trade errors. Callers match them with errors.Is; the returned error usually
// wraps one of these with the symbol or counts involved.
var (
	ErrInvalidQuantity    = errors.New("share quantity must be a positive integer")
	ErrDuplicatePosition  = errors.New("position already held")
	ErrQuoteUnavailable   = errors.New("no usable quote")
	ErrPositionNotFound   = errors.New("position not found")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrRiskLimit          = errors.New("risk limit")
)
