package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/paper-trader/internal/models"
)

const tradeColumns = `id::text, symbol, shares, purchase_price, total_cost, trade_date`

type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

// FindAll returns every stored trade, oldest first.
func (r *TradeRepo) FindAll(ctx context.Context) ([]models.Trade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades ORDER BY trade_date ASC, symbol ASC`,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	trades, err := collectTrades(rows)
	if err != nil {
		return nil, classify(err)
	}
	return trades, nil
}

// FindBySymbol returns the trade for symbol, or nil if none is stored.
func (r *TradeRepo) FindBySymbol(ctx context.Context, symbol string) (*models.Trade, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE symbol = $1`,
		symbol,
	)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return t, nil
}

func (r *TradeRepo) Insert(ctx context.Context, t *models.Trade) (*models.Trade, error) {
	ts := t.TradeDate
	if ts.IsZero() {
		ts = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO trades (symbol, shares, purchase_price, total_cost, trade_date)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING `+tradeColumns,
		t.Symbol, t.Shares, t.PurchasePrice, t.TotalCost, ts,
	)
	out, err := scanTrade(row)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// UpdateShares sets the share count of trade id to `to`, provided it still
// holds `from` shares. Otherwise ErrWriteConflict is returned.
func (r *TradeRepo) UpdateShares(ctx context.Context, id string, from, to int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trades SET shares = $1 WHERE id = $2::uuid AND shares = $3`,
		to, id, from,
	)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: trade %s no longer holds %d shares", ErrWriteConflict, id, from)
	}
	return nil
}

func (r *TradeRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trades WHERE id = $1::uuid`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: trade %s already removed", ErrWriteConflict, id)
	}
	return nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrade(row scannable) (*models.Trade, error) {
	var t models.Trade
	err := row.Scan(&t.ID, &t.Symbol, &t.Shares, &t.PurchasePrice, &t.TotalCost, &t.TradeDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTrades(rows rowsIter) ([]models.Trade, error) {
	var out []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
