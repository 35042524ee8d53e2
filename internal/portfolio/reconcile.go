package portfolio

import (
	"context"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 8

// Reconciler prices a set of trades and folds them into a PortfolioView.
type Reconciler struct {
	quotes      quote.Quoter
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

func NewReconciler(quotes quote.Quoter, concurrency int, log zerolog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reconciler{
		quotes:      quotes,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

// Reconcile quotes every trade once, in parallel, then builds the view in
// trade order. A failed quote marks its position failed and leaves it out of
// the totals; the pass itself never fails.
func (r *Reconciler) Reconcile(ctx context.Context, trades []models.Trade) *models.PortfolioView {
	results := make([]priceResult, len(trades))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, t := range trades {
		g.Go(func() error {
			price, err := r.quotes.GetQuote(ctx, t.Symbol)
			results[i] = priceResult{price: price, err: err}
			return nil
		})
	}
	_ = g.Wait()

	view := &models.PortfolioView{
		Positions:     make([]models.EnrichedPosition, 0, len(trades)),
		FailedSymbols: []string{},
		ReconciledAt:  r.now(),
	}

	for i, t := range trades {
		pos := models.EnrichedPosition{Trade: t}
		res := results[i]

		if res.err != nil {
			pos.PriceState = models.PriceFailed
			pos.QuoteError = res.err.Error()
			view.FailedSymbols = append(view.FailedSymbols, t.Symbol)
			r.log.Warn().Str("symbol", t.Symbol).Err(res.err).Msg("quote failed during reconciliation")
			view.Positions = append(view.Positions, pos)
			continue
		}

		price := res.price
		shares := decimal.NewFromInt(t.Shares)
		pos.PriceState = models.PricePriced
		pos.CurrentPrice = &price
		pos.CurrentValue = price.Mul(shares)
		pos.ProfitLoss = price.Sub(t.PurchasePrice).Mul(shares)

		view.TotalValue = view.TotalValue.Add(pos.CurrentValue)
		view.TotalProfitLoss = view.TotalProfitLoss.Add(pos.ProfitLoss)
		view.CostBasis = view.CostBasis.Add(t.TotalCost)
		view.Positions = append(view.Positions, pos)
	}

	r.log.Debug().
		Int("positions", len(view.Positions)).
		Int("failed", len(view.FailedSymbols)).
		Str("totalValue", view.TotalValue.StringFixed(2)).
		Msg("reconciled")

	return view
}
