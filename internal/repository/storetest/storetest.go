// Package storetest holds the behaviour every Trade Store backend must share.
// Backend packages call Run from their own tests with a freshly emptied store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Trades interface {
	FindAll(ctx context.Context) ([]models.Trade, error)
	FindBySymbol(ctx context.Context, symbol string) (*models.Trade, error)
	Insert(ctx context.Context, t *models.Trade) (*models.Trade, error)
	UpdateShares(ctx context.Context, id string, from, to int64) error
	Delete(ctx context.Context, id string) error
}

type Spend interface {
	// Increment records one buy.
	Increment(ctx context.Context, amount decimal.Decimal) error
	Get(ctx context.Context) (*models.AggregateSpend, error)
	CountToday(ctx context.Context) (int, error)
}

func trade(symbol string, shares int64, price string) *models.Trade {
	p := decimal.RequireFromString(price)
	return &models.Trade{
		Symbol:        symbol,
		Shares:        shares,
		PurchasePrice: p,
		TotalCost:     p.Mul(decimal.NewFromInt(shares)),
		TradeDate:     time.Now().UTC().Truncate(time.Second),
	}
}

// Run exercises trades and spend against an empty store.
func Run(t *testing.T, trades Trades, spend Spend) {
	t.Run("InsertAndFind", func(t *testing.T) { insertAndFind(t, trades) })
	t.Run("UniqueSymbol", func(t *testing.T) { uniqueSymbol(t, trades) })
	t.Run("ConditionalUpdate", func(t *testing.T) { conditionalUpdate(t, trades) })
	t.Run("Delete", func(t *testing.T) { deleteTrade(t, trades) })
	t.Run("Spend", func(t *testing.T) { spendCounter(t, trades, spend) })
}

func insertAndFind(t *testing.T, trades Trades) {
	ctx := context.Background()

	in := trade("AAPL", 10, "150.25")
	got, err := trades.Insert(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, int64(10), got.Shares)
	assert.True(t, got.TotalCost.Equal(decimal.RequireFromString("1502.5")), "totalCost %s", got.TotalCost)

	found, err := trades.FindBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, got.ID, found.ID)
	assert.True(t, found.PurchasePrice.Equal(in.PurchasePrice))
	assert.True(t, found.TradeDate.Equal(in.TradeDate), "trade date %s vs %s", found.TradeDate, in.TradeDate)

	missing, err := trades.FindBySymbol(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := trades.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, trades.Delete(ctx, got.ID))
}

func uniqueSymbol(t *testing.T, trades Trades) {
	ctx := context.Background()

	first, err := trades.Insert(ctx, trade("MSFT", 1, "400"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = trades.Delete(context.Background(), first.ID) })

	_, err = trades.Insert(ctx, trade("MSFT", 2, "410"))
	assert.ErrorIs(t, err, repository.ErrWriteConflict)

	all, err := trades.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func conditionalUpdate(t *testing.T, trades Trades) {
	ctx := context.Background()

	tr, err := trades.Insert(ctx, trade("IBM", 10, "180"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = trades.Delete(context.Background(), tr.ID) })

	require.NoError(t, trades.UpdateShares(ctx, tr.ID, 10, 6))

	// The share count moved from 10, so a second writer holding the stale read loses.
	err = trades.UpdateShares(ctx, tr.ID, 10, 3)
	assert.ErrorIs(t, err, repository.ErrWriteConflict)

	got, err := trades.FindBySymbol(ctx, "IBM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(6), got.Shares)
	assert.True(t, got.PurchasePrice.Equal(decimal.NewFromInt(180)))
}

func deleteTrade(t *testing.T, trades Trades) {
	ctx := context.Background()

	tr, err := trades.Insert(ctx, trade("TSLA", 2, "250"))
	require.NoError(t, err)

	require.NoError(t, trades.Delete(ctx, tr.ID))
	assert.ErrorIs(t, trades.Delete(ctx, tr.ID), repository.ErrWriteConflict)

	got, err := trades.FindBySymbol(ctx, "TSLA")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func spendCounter(t *testing.T, trades Trades, spend Spend) {
	ctx := context.Background()

	s, err := spend.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SpendDocumentID, s.ID)
	assert.True(t, s.TotalSpent.IsZero(), "fresh store spend %s", s.TotalSpent)

	count, err := spend.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, spend.Increment(ctx, decimal.RequireFromString("1500")))
	require.NoError(t, spend.Increment(ctx, decimal.RequireFromString("99.95")))

	s, err = spend.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.TotalSpent.Equal(decimal.RequireFromString("1599.95")), "spend %s", s.TotalSpent)

	// Buys stay counted after the position they opened is sold off.
	tr, err := trades.Insert(ctx, trade("GONE", 1, "1"))
	require.NoError(t, err)
	require.NoError(t, trades.Delete(ctx, tr.ID))

	count, err = spend.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
