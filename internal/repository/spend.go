package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/shopspring/decimal"
)

// SpendRepo stores the AggregateSpend counter as a row of the users table.
type SpendRepo struct {
	pool *pgxpool.Pool
}

func NewSpendRepo(pool *pgxpool.Pool) *SpendRepo {
	return &SpendRepo{pool: pool}
}

// Increment records one buy of amount. The spend total and the current
// trading day's buy count are upserted in a single statement.
func (r *SpendRepo) Increment(ctx context.Context, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`WITH spend AS (
			INSERT INTO users (id, total_spent, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE
			SET total_spent = users.total_spent + EXCLUDED.total_spent,
			    updated_at = NOW()
		 )
		 INSERT INTO daily_buys (trading_day, buys)
		 VALUES ($3::date, 1)
		 ON CONFLICT (trading_day) DO UPDATE
		 SET buys = daily_buys.buys + 1`,
		models.SpendDocumentID, amount, TradingDayNow(),
	)
	return classify(err)
}

// CountToday returns how many buys were recorded during the current trading
// day. Closing a position does not lower it.
func (r *SpendRepo) CountToday(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT buys FROM daily_buys WHERE trading_day = $1::date), 0)`,
		TradingDayNow(),
	).Scan(&count)
	return count, classify(err)
}

// Get returns the counter; a missing row reads as zero.
func (r *SpendRepo) Get(ctx context.Context) (*models.AggregateSpend, error) {
	s := &models.AggregateSpend{ID: models.SpendDocumentID}
	err := r.pool.QueryRow(ctx,
		`SELECT total_spent FROM users WHERE id = $1`,
		models.SpendDocumentID,
	).Scan(&s.TotalSpent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, nil
		}
		return nil, classify(err)
	}
	return s, nil
}
