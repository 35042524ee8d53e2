package quote

import (
	"context"
	"errors"
	"time"

	"github.com/kjannette/paper-trader/internal/httputil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Quote is a price observed for a symbol at a point in time.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Age returns how old the quote is at now.
func (q *Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// Total returns the cost of shares at the quoted price.
func (q *Quote) Total(shares int64) decimal.Decimal {
	return q.Price.Mul(decimal.NewFromInt(shares))
}

// Lookup fetches the current price of symbol, retrying up to attempts times
// with no delay. Invalid symbols are not retried. When every attempt fails
// the last attempt's classified error is returned.
func Lookup(ctx context.Context, q Quoter, symbol string, attempts int, log zerolog.Logger) (*Quote, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	cfg := httputil.QuoteRetry
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.Retryable = func(err error) bool {
		return !errors.Is(err, ErrInvalidSymbol) && ctx.Err() == nil
	}
	cfg.OnRetry = func(attempt int, err error, _ time.Duration) {
		log.Debug().Str("symbol", sym).Int("attempt", attempt).Err(err).Msg("quote lookup failed, retrying")
	}

	price, err := httputil.Retry(ctx, cfg, func(ctx context.Context) (decimal.Decimal, error) {
		return q.GetQuote(ctx, sym)
	})
	if err != nil {
		return nil, err
	}
	return &Quote{Symbol: sym, Price: price, FetchedAt: time.Now()}, nil
}
