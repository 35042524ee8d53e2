package portfolio

import (
	"context"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/shopspring/decimal"
)

// TradeStore is the trades collection. Implemented by repository.TradeRepo,
// mongostore.TradeRepo and memstore.TradeRepo.
type TradeStore interface {
	FindAll(ctx context.Context) ([]models.Trade, error)
	// FindBySymbol returns nil, nil when no trade holds symbol.
	FindBySymbol(ctx context.Context, symbol string) (*models.Trade, error)
	Insert(ctx context.Context, t *models.Trade) (*models.Trade, error)
	// UpdateShares fails with repository.ErrWriteConflict unless the trade still holds from shares.
	UpdateShares(ctx context.Context, id string, from, to int64) error
	Delete(ctx context.Context, id string) error
}

// SpendStore is the aggregate spend counter.
type SpendStore interface {
	// Increment records one buy costing amount.
	Increment(ctx context.Context, amount decimal.Decimal) error
	Get(ctx context.Context) (*models.AggregateSpend, error)
}

// RiskChecker gates buys. Satisfied by *risk.Guardian.
type RiskChecker interface {
	PreTradeCheck(ctx context.Context, tradeUSDValue float64) error
}

// Notifier receives trade confirmations. Satisfied by *notifications.Sender.
type Notifier interface {
	Send(msg string)
}
