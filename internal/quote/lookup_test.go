package quote

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedQuoter answers each call with the next scripted result.
type scriptedQuoter struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	price decimal.Decimal
	err   error
}

func (s *scriptedQuoter) GetQuote(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[s.calls]
	s.calls++
	return r.price, r.err
}

func fail(kind error) result {
	return result{err: newError("TEST", kind, nil)}
}

func TestLookup_SucceedsOnThirdAttempt(t *testing.T) {
	q := &scriptedQuoter{results: []result{
		fail(ErrNetworkFailure),
		fail(ErrNotFound),
		{price: decimal.NewFromInt(150)},
	}}

	got, err := Lookup(context.Background(), q, "aapl", 3, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(150)))
	assert.False(t, got.FetchedAt.IsZero())
	assert.Equal(t, 3, q.calls)
}

func TestLookup_FirstSuccessShortCircuits(t *testing.T) {
	q := &scriptedQuoter{results: []result{
		{price: decimal.NewFromInt(10)},
		fail(ErrNetworkFailure),
	}}

	_, err := Lookup(context.Background(), q, "IBM", 3, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, q.calls)
}

func TestLookup_AllAttemptsFailSurfacesLastKind(t *testing.T) {
	q := &scriptedQuoter{results: []result{
		fail(ErrNetworkFailure),
		fail(ErrNetworkFailure),
		fail(ErrNotFound),
	}}

	_, err := Lookup(context.Background(), q, "ZZZZ", 3, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, ErrNotFound, Classify(err))
	assert.Equal(t, 3, q.calls)
}

func TestLookup_InvalidSymbolNotRetried(t *testing.T) {
	q := &scriptedQuoter{}
	_, err := Lookup(context.Background(), q, "not a symbol", 3, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidSymbol)
	assert.Zero(t, q.calls)
}

func TestQuote_Total(t *testing.T) {
	q := &Quote{Symbol: "AAPL", Price: decimal.NewFromInt(150)}
	assert.True(t, q.Total(10).Equal(decimal.NewFromInt(1500)))
}
