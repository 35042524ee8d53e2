package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/kjannette/paper-trader/internal/repository/memstore"
	"github.com/kjannette/paper-trader/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type priceBook struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	down   bool
}

func (p *priceBook) set(symbol, price string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = decimal.RequireFromString(price)
}

func (p *priceBook) GetQuote(_ context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, quote.ErrNetworkFailure)
	}
	price, ok := p.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, quote.ErrNotFound)
	}
	return price, nil
}

func (p *priceBook) setDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	srv    *Server
	quotes *priceBook
	store  *memstore.Store
	feed   *scheduler.RefreshScheduler
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	store := memstore.New()
	quotes := &priceBook{prices: map[string]decimal.Decimal{}}
	svc := portfolio.NewService(portfolio.Deps{
		Trades: store.Trades(),
		Spend:  store.Spend(),
		Quotes: quotes,
		Log:    zerolog.Nop(),
	}, portfolio.Options{QuoteAttempts: 1})
	feed := scheduler.NewRefreshScheduler(svc, scheduler.RefreshConfig{Log: zerolog.Nop()})
	svc.OnReconciled(feed.Publish)

	return &fixture{
		srv:    NewServer(svc, feed, store, Options{APIKey: apiKey, Log: zerolog.Nop()}),
		quotes: quotes,
		store:  store,
		feed:   feed,
	}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func (f *fixture) buy(t *testing.T, symbol string, shares int64) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/v1/trades/buy", orderRequest{Symbol: symbol, Shares: shares})
}

func (f *fixture) sell(t *testing.T, symbol string, shares int64) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/v1/trades/sell", orderRequest{Symbol: symbol, Shares: shares})
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
