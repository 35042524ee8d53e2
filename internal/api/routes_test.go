package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_NoAuth(t *testing.T) {
	f := newFixture(t, "secret123")
	rr := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	got := decode[healthResponse](t, rr)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "connected", got.Services.Database)
	assert.Equal(t, "waiting", got.Services.Feed)
}

func TestRoutes_RequireAuth(t *testing.T) {
	f := newFixture(t, "secret123")
	rr := f.do(t, http.MethodGet, "/v1/portfolio", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rr).RequestID)
}

func TestBuyThenPortfolio(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("AAPL", "150")

	rr := f.buy(t, "aapl", 10)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[buyResponse](t, rr)
	assert.Equal(t, "AAPL", res.Trade.Symbol)
	assert.True(t, res.Trade.TotalCost.Equal(d("1500")))
	assert.Empty(t, res.Warning)
	require.NotNil(t, res.View)
	assert.Len(t, res.View.Positions, 1)

	f.quotes.set("AAPL", "160")
	rr = f.do(t, http.MethodGet, "/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[models.PortfolioView](t, rr)
	assert.True(t, view.TotalValue.Equal(d("1600")))
	assert.True(t, view.TotalProfitLoss.Equal(d("100")))
	assert.True(t, view.TotalSpent.Equal(d("1500")))
	assert.Empty(t, view.FailedSymbols)

	rr = f.do(t, http.MethodGet, "/v1/spend", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[spendResponse](t, rr).TotalSpent.Equal(d("1500")))
}

func TestPortfolio_Cached(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("MSFT", "400")
	require.Equal(t, http.StatusCreated, f.buy(t, "MSFT", 1).Code)

	latest := f.feed.Latest()
	require.NotNil(t, latest)

	f.quotes.set("MSFT", "500")
	view := decode[models.PortfolioView](t, f.do(t, http.MethodGet, "/v1/portfolio?cached=true", nil))
	assert.True(t, view.TotalValue.Equal(d("400")), "cached view should not requote")
}

func TestPortfolio_FailedQuoteStillListed(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("AAPL", "150")
	require.Equal(t, http.StatusCreated, f.buy(t, "AAPL", 10).Code)

	f.quotes.setDown(true)
	view := decode[models.PortfolioView](t, f.do(t, http.MethodGet, "/v1/portfolio", nil))
	require.Len(t, view.Positions, 1)
	assert.Equal(t, models.PriceFailed, view.Positions[0].PriceState)
	assert.Nil(t, view.Positions[0].CurrentPrice)
	assert.Equal(t, []string{"AAPL"}, view.FailedSymbols)
}

func TestBuy_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		shares int64
		status int
		kind   string
	}{
		{"zero shares", "AAPL", 0, http.StatusBadRequest, "invalid_quantity"},
		{"negative shares", "AAPL", -3, http.StatusBadRequest, "invalid_quantity"},
		{"bad symbol", "AA PL!", 1, http.StatusBadRequest, "invalid_symbol"},
		{"unknown symbol", "NOPE", 1, http.StatusServiceUnavailable, "quote_unavailable"},
		{"duplicate", "AAPL", 5, http.StatusConflict, "duplicate_position"},
	}

	f := newFixture(t, "")
	f.quotes.set("AAPL", "150")
	require.Equal(t, http.StatusCreated, f.buy(t, "AAPL", 10).Code)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.buy(t, tc.symbol, tc.shares)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Equal(t, tc.kind, decode[errorResponse](t, rr).Kind)
		})
	}

	trades, err := f.store.Trades().FindAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestBuy_MalformedBody(t *testing.T) {
	f := newFixture(t, "")
	rr := f.do(t, http.MethodPost, "/v1/trades/buy", map[string]any{"shares": 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSell(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("AAPL", "150")
	require.Equal(t, http.StatusCreated, f.buy(t, "AAPL", 10).Code)

	rr := f.sell(t, "AAPL", 4)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[portfolio.SellResult](t, rr)
	require.NotNil(t, res.Remaining)
	assert.EqualValues(t, 6, res.Remaining.Shares)

	rr = f.sell(t, "AAPL", 7)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "insufficient_shares", decode[errorResponse](t, rr).Kind)

	rr = f.sell(t, "TSLA", 1)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "position_not_found", decode[errorResponse](t, rr).Kind)

	rr = f.sell(t, "AAPL", 6)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[portfolio.SellResult](t, rr).Remaining)

	// Sells leave the lifetime spend untouched.
	assert.True(t, decode[spendResponse](t, f.do(t, http.MethodGet, "/v1/spend", nil)).TotalSpent.Equal(d("1500")))
}

func TestQuote(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("AAPL", "150.25")

	rr := f.do(t, http.MethodGet, "/v1/quote/aapl?shares=4", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[quoteResponse](t, rr)
	assert.Equal(t, "AAPL", got.Symbol)
	require.NotNil(t, got.Total)
	assert.True(t, got.Total.Equal(d("601")))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/quote/AAPL?shares=abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/quote/NOPE", nil).Code)

	f.quotes.setDown(true)
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodGet, "/v1/quote/AAPL", nil).Code)
}

func TestTrades_Filters(t *testing.T) {
	f := newFixture(t, "")
	f.quotes.set("AAPL", "150")
	f.quotes.set("MSFT", "400")
	require.Equal(t, http.StatusCreated, f.buy(t, "AAPL", 1).Code)
	require.Equal(t, http.StatusCreated, f.buy(t, "MSFT", 1).Code)

	all := decode[[]models.Trade](t, f.do(t, http.MethodGet, "/v1/trades", nil))
	assert.Len(t, all, 2)

	limited := decode[[]models.Trade](t, f.do(t, http.MethodGet, "/v1/trades?limit=1", nil))
	assert.Len(t, limited, 1)

	today := decode[[]models.Trade](t, f.do(t, http.MethodGet, "/v1/trades?day="+repository.TradingDayNow(), nil))
	assert.Len(t, today, 2)

	none := decode[[]models.Trade](t, f.do(t, http.MethodGet, "/v1/trades?day=2001-01-01", nil))
	assert.Empty(t, none)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/trades?day=yesterday", nil).Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %w", portfolio.ErrQuoteUnavailable, quote.ErrNotFound), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", portfolio.ErrDuplicatePosition, repository.ErrWriteConflict), http.StatusConflict},
		{fmt.Errorf("%w: %w", portfolio.ErrRiskLimit, errors.New("position too large")), http.StatusUnprocessableEntity},
		{quote.ErrRateLimited, http.StatusServiceUnavailable},
		{fmt.Errorf("load trades: %w", repository.ErrConnectionFailure), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
