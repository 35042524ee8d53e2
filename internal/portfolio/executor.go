package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/shopspring/decimal"
)

type BuyResult struct {
	Trade *models.Trade         `json:"trade"`
	View  *models.PortfolioView `json:"view,omitempty"`
}

type SellResult struct {
	Symbol     string `json:"symbol"`
	SharesSold int64  `json:"sharesSold"`
	// Remaining is nil when the whole position was sold.
	Remaining *models.Trade         `json:"remaining"`
	View      *models.PortfolioView `json:"view,omitempty"`
}

// Buy opens a position of shares in symbol at the price of q.
//
// If the trade is stored but the spend counter cannot be incremented, the
// result still carries the trade and the returned error wraps the store
// failure. Nothing is rolled back.
func (s *Service) Buy(ctx context.Context, symbol string, shares int64, q *quote.Quote) (*BuyResult, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, shares)
	}
	sym, err := quote.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuote(sym, q); err != nil {
		return nil, err
	}

	total := q.Total(shares)

	// The spend increment also counts the buy toward the daily limit, so it
	// lands before the next buy's risk check.
	s.mu.Lock()
	trade, err := s.buyLocked(ctx, sym, shares, q, total)
	var spendErr error
	if err == nil {
		if err := s.spend.Increment(ctx, total); err != nil {
			s.log.Error().Err(err).Str("tradeId", trade.ID).Str("amount", total.StringFixed(2)).
				Msg("trade stored but aggregate spend not updated")
			spendErr = fmt.Errorf("trade %s stored, spend not recorded: %w", trade.ID, err)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("symbol", sym).
		Int64("shares", shares).
		Str("price", q.Price.StringFixed(2)).
		Str("totalCost", total.StringFixed(2)).
		Msg("BUY executed")
	s.send(fmt.Sprintf("BUY %d %s @ $%s (total $%s)", shares, sym, q.Price.StringFixed(2), total.StringFixed(2)))

	res := &BuyResult{Trade: trade, View: s.refreshAfterTrade(ctx)}
	if spendErr != nil {
		return res, spendErr
	}
	return res, nil
}

func (s *Service) buyLocked(ctx context.Context, sym string, shares int64, q *quote.Quote, total decimal.Decimal) (*models.Trade, error) {
	existing, err := s.trades.FindBySymbol(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("check existing position %s: %w", sym, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (%d shares)", ErrDuplicatePosition, sym, existing.Shares)
	}

	if s.risk != nil {
		if err := s.risk.PreTradeCheck(ctx, total.InexactFloat64()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRiskLimit, err)
		}
	}

	trade, err := s.trades.Insert(ctx, &models.Trade{
		Symbol:        sym,
		Shares:        shares,
		PurchasePrice: q.Price,
		TotalCost:     total,
		TradeDate:     s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrWriteConflict) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDuplicatePosition, sym, err)
		}
		return nil, fmt.Errorf("insert trade %s: %w", sym, err)
	}
	return trade, nil
}

// BuyAtMarket looks up a fresh quote for symbol and buys at that price.
func (s *Service) BuyAtMarket(ctx context.Context, symbol string, shares int64) (*BuyResult, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, shares)
	}
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, quote.ErrInvalidSymbol) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}
	return s.Buy(ctx, symbol, shares, q)
}

// Sell removes shares from the position in symbol. Selling every share
// deletes the trade. The aggregate spend counter is left as is.
func (s *Service) Sell(ctx context.Context, symbol string, shares int64) (*SellResult, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, shares)
	}
	sym, err := quote.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	remaining, err := s.sellLocked(ctx, sym, shares)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	left := int64(0)
	if remaining != nil {
		left = remaining.Shares
	}
	s.log.Info().Str("symbol", sym).Int64("shares", shares).Int64("remaining", left).Msg("SELL executed")
	s.send(fmt.Sprintf("SELL %d %s (%d remaining)", shares, sym, left))

	return &SellResult{
		Symbol:     sym,
		SharesSold: shares,
		Remaining:  remaining,
		View:       s.refreshAfterTrade(ctx),
	}, nil
}

func (s *Service) sellLocked(ctx context.Context, sym string, shares int64) (*models.Trade, error) {
	t, err := s.trades.FindBySymbol(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("load position %s: %w", sym, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, sym)
	}
	if shares > t.Shares {
		return nil, fmt.Errorf("%w: %s holds %d, asked to sell %d", ErrInsufficientShares, sym, t.Shares, shares)
	}

	if shares == t.Shares {
		if err := s.trades.Delete(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("close position %s: %w", sym, err)
		}
		return nil, nil
	}

	left := t.Shares - shares
	if err := s.trades.UpdateShares(ctx, t.ID, t.Shares, left); err != nil {
		return nil, fmt.Errorf("reduce position %s: %w", sym, err)
	}
	out := *t
	out.Shares = left
	return &out, nil
}

func (s *Service) checkQuote(sym string, q *quote.Quote) error {
	switch {
	case q == nil:
		return fmt.Errorf("%w: no quote for %s", ErrQuoteUnavailable, sym)
	case !q.Price.IsPositive():
		return fmt.Errorf("%w: %s price %s", ErrQuoteUnavailable, sym, q.Price)
	case q.Symbol != sym:
		return fmt.Errorf("%w: quote is for %s, not %s", ErrQuoteUnavailable, q.Symbol, sym)
	case s.opts.MaxQuoteAge > 0 && q.Age(s.now()) > s.opts.MaxQuoteAge:
		return fmt.Errorf("%w: %s quote is %s old", ErrQuoteUnavailable, sym, q.Age(s.now()).Truncate(time.Second))
	}
	return nil
}

// refreshAfterTrade reconciles after a mutation. The trade already happened,
// so a failure here is logged rather than returned.
func (s *Service) refreshAfterTrade(ctx context.Context) *models.PortfolioView {
	view, err := s.Refresh(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("post-trade refresh failed")
		return nil
	}
	return view
}
