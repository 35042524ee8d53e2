package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceState distinguishes a position that has not been quoted yet from one
// whose quote failed.
type PriceState string

const (
	PriceUnknown PriceState = "unknown"
	PricePriced  PriceState = "priced"
	PriceFailed  PriceState = "failed"
)

// EnrichedPosition is a Trade plus the result of its latest quote.
// CurrentPrice is non-nil iff PriceState is PricePriced.
type EnrichedPosition struct {
	Trade
	PriceState   PriceState       `json:"priceState"`
	CurrentPrice *decimal.Decimal `json:"currentPrice"`
	CurrentValue decimal.Decimal  `json:"currentValue"`
	ProfitLoss   decimal.Decimal  `json:"profitLoss"`
	QuoteError   string           `json:"quoteError,omitempty"`
}

// Priced reports whether the position carries a usable current price.
func (p *EnrichedPosition) Priced() bool {
	return p.PriceState == PricePriced && p.CurrentPrice != nil
}

type PortfolioView struct {
	Positions       []EnrichedPosition `json:"positions"`
	TotalValue      decimal.Decimal    `json:"totalValue"`
	TotalProfitLoss decimal.Decimal    `json:"totalProfitLoss"`
	CostBasis       decimal.Decimal    `json:"costBasis"`
	TotalSpent      decimal.Decimal    `json:"totalSpent"`
	FailedSymbols   []string           `json:"failedSymbols"`
	ReconciledAt    time.Time          `json:"reconciledAt"`
}

// ProfitLossPercent returns the unrealized P&L relative to the cost basis of
// the priced positions. The second value is false when there is nothing priced.
func (v *PortfolioView) ProfitLossPercent() (float64, bool) {
	if v == nil || !v.CostBasis.IsPositive() {
		return 0, false
	}
	pct := v.TotalProfitLoss.Div(v.CostBasis).Mul(decimal.NewFromInt(100))
	return pct.InexactFloat64(), true
}

// Position returns the enriched position for symbol, if present.
func (v *PortfolioView) Position(symbol string) (EnrichedPosition, bool) {
	for _, p := range v.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return EnrichedPosition{}, false
}
