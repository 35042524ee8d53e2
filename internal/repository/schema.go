package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		symbol         TEXT NOT NULL UNIQUE,
		shares         BIGINT NOT NULL CHECK (shares > 0),
		purchase_price NUMERIC(20,6) NOT NULL,
		total_cost     NUMERIC(20,6) NOT NULL,
		trade_date     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS trades_trade_date_idx ON trades (trade_date)`,
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		total_spent NUMERIC(20,6) NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS daily_buys (
		trading_day DATE PRIMARY KEY,
		buys        INT NOT NULL DEFAULT 0
	)`,
}

// EnsureSchema creates the trades, users and daily_buys tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", classify(err))
		}
	}
	return nil
}
