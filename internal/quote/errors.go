package quote

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("quote not found")
	ErrNetworkFailure = errors.New("quote network failure")
	ErrRateLimited    = errors.New("quote rate limited")
	ErrInvalidSymbol  = errors.New("invalid symbol")
)

// Error is a classified quote failure. Kind is one of the sentinel errors
// above; Err carries the underlying cause, if any.
type Error struct {
	Symbol string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(symbol string, kind, cause error) *Error {
	return &Error{Symbol: symbol, Kind: kind, Err: cause}
}

// Classify returns the sentinel kind of err, or nil when err is not a quote failure.
func Classify(err error) error {
	for _, kind := range []error{ErrInvalidSymbol, ErrRateLimited, ErrNotFound, ErrNetworkFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
