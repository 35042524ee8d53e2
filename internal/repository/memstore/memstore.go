// Package memstore is an in-process Trade Store used by tests and by
// STORE_BACKEND=memory. It enforces the same uniqueness and conditional
// update rules as the database backends.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu     sync.RWMutex
	trades map[string]models.Trade // id -> trade
	spend  decimal.Decimal
	buys   map[string]int // trading day -> buys recorded

	// Now is the clock used for trade dates and the daily buy count.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		trades: make(map[string]models.Trade),
		buys:   make(map[string]int),
		Now:    time.Now,
	}
}

func (s *Store) Trades() *TradeRepo { return &TradeRepo{s: s} }
func (s *Store) Spend() *SpendRepo  { return &SpendRepo{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

/* ---- trades ---- */

type TradeRepo struct{ s *Store }

func (r *TradeRepo) FindAll(_ context.Context) ([]models.Trade, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Trade, 0, len(r.s.trades))
	for _, t := range r.s.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeDate.Equal(out[j].TradeDate) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].TradeDate.Before(out[j].TradeDate)
	})
	return out, nil
}

func (r *TradeRepo) FindBySymbol(_ context.Context, symbol string) (*models.Trade, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.trades {
		if t.Symbol == symbol {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *TradeRepo) Insert(_ context.Context, t *models.Trade) (*models.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.trades {
		if existing.Symbol == t.Symbol {
			return nil, fmt.Errorf("%w: symbol %s already stored", repository.ErrWriteConflict, t.Symbol)
		}
	}

	out := *t
	out.ID = uuid.NewString()
	if out.TradeDate.IsZero() {
		out.TradeDate = r.s.Now()
	}
	r.s.trades[out.ID] = out
	return &out, nil
}

func (r *TradeRepo) UpdateShares(_ context.Context, id string, from, to int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trades[id]
	if !ok || t.Shares != from {
		return fmt.Errorf("%w: trade %s no longer holds %d shares", repository.ErrWriteConflict, id, from)
	}
	t.Shares = to
	r.s.trades[id] = t
	return nil
}

func (r *TradeRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trades[id]; !ok {
		return fmt.Errorf("%w: trade %s already removed", repository.ErrWriteConflict, id)
	}
	delete(r.s.trades, id)
	return nil
}

/* ---- spend ---- */

type SpendRepo struct{ s *Store }

// Increment records one buy of amount: it adds to the spend total and to
// the current trading day's buy count.
func (r *SpendRepo) Increment(_ context.Context, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.spend = r.s.spend.Add(amount)
	r.s.buys[repository.TradingDay(r.s.Now())]++
	return nil
}

// CountToday returns how many buys were recorded during the current trading day.
func (r *SpendRepo) CountToday(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.buys[repository.TradingDay(r.s.Now())], nil
}

func (r *SpendRepo) Get(_ context.Context) (*models.AggregateSpend, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return &models.AggregateSpend{ID: models.SpendDocumentID, TotalSpent: r.s.spend}, nil
}
