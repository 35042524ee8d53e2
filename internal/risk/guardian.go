// Package risk holds the optional guard rails around paper trades: a cap on
// the cost of a single buy, a cap on buys per trading day, and portfolio-wide
// stop-loss / take-profit alert thresholds.
package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjannette/paper-trader/internal/models"
)

var (
	ErrPositionTooLarge = errors.New("position size limit")
	ErrDailyTradeLimit  = errors.New("daily trade limit")
	ErrStopLoss         = errors.New("stop-loss")
	ErrTakeProfit       = errors.New("take-profit")
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without a real database.
type DailyTradeCounter interface {
	CountToday(ctx context.Context) (int, error)
}

// Limits holds the four risk thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyTrades     int
	MaxPositionSizeUSD float64
	StopLossPercent    float64
	TakeProfitPercent  float64
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

func (g *Guardian) Limits() Limits { return g.limits }

// PreTradeCheck validates a buy costing tradeUSDValue before it is stored.
// Returns nil if the trade is allowed. A counter failure blocks the trade.
func (g *Guardian) PreTradeCheck(ctx context.Context, tradeUSDValue float64) error {
	if g.limits.MaxPositionSizeUSD > 0 && tradeUSDValue > g.limits.MaxPositionSizeUSD {
		return fmt.Errorf("%w: cost $%.2f exceeds max $%.2f",
			ErrPositionTooLarge, tradeUSDValue, g.limits.MaxPositionSizeUSD)
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx)
		if err != nil {
			return fmt.Errorf("%w: unable to verify today's buys: %w", ErrDailyTradeLimit, err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("%w: %d of %d buys already made today",
				ErrDailyTradeLimit, count, g.limits.MaxDailyTrades)
		}
	}

	return nil
}

// PortfolioCheck evaluates the portfolio-level thresholds.
// pnlPercent is the unrealized P&L as a percentage (e.g. -8.5 means down 8.5%).
// Returns nil when no threshold is crossed, otherwise an error wrapping
// ErrStopLoss or ErrTakeProfit. Nothing is sold automatically.
func (g *Guardian) PortfolioCheck(pnlPercent float64) error {
	if g.limits.StopLossPercent > 0 && pnlPercent <= -g.limits.StopLossPercent {
		return fmt.Errorf("%w: portfolio down %.2f%% (threshold -%.2f%%)",
			ErrStopLoss, pnlPercent, g.limits.StopLossPercent)
	}

	if g.limits.TakeProfitPercent > 0 && pnlPercent >= g.limits.TakeProfitPercent {
		return fmt.Errorf("%w: portfolio up %.2f%% (threshold +%.2f%%)",
			ErrTakeProfit, pnlPercent, g.limits.TakeProfitPercent)
	}

	return nil
}

// CheckView runs PortfolioCheck against the priced part of view.
// A view with nothing priced never trips a threshold.
func (g *Guardian) CheckView(view *models.PortfolioView) error {
	pct, ok := view.ProfitLossPercent()
	if !ok {
		return nil
	}
	return g.PortfolioCheck(pct)
}

// Kind returns the threshold sentinel wrapped by err, or nil.
func Kind(err error) error {
	switch {
	case errors.Is(err, ErrStopLoss):
		return ErrStopLoss
	case errors.Is(err, ErrTakeProfit):
		return ErrTakeProfit
	}
	return nil
}
