// Package report renders portfolio data as markdown for the CLI.
package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/shopspring/decimal"
)

const notAvailable = "n/a"

// USD formats d as US dollars, rounded to cents.
func USD(d decimal.Decimal) string {
	cur := *money.New(0, money.USD).Currency()
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// SignedUSD is USD with an explicit sign for positive amounts.
func SignedUSD(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + USD(d)
	}
	return USD(d)
}

// Portfolio renders the positions table followed by the totals.
func Portfolio(v *models.PortfolioView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio\n\n")

	if len(v.Positions) == 0 {
		fmt.Fprintf(&b, "No open positions.\n\n")
	} else {
		fmt.Fprintln(&b, "| Symbol | Shares | Bought at | Price | Value | P/L |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
		for _, p := range v.Positions {
			price, value, pl := notAvailable, notAvailable, notAvailable
			if p.Priced() {
				price = USD(*p.CurrentPrice)
				value = USD(p.CurrentValue)
				pl = SignedUSD(p.ProfitLoss)
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
				p.Symbol, p.Shares, USD(p.PurchasePrice), price, value, pl)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintf(&b, "- **Total value:** %s\n", USD(v.TotalValue))
	if pct, ok := v.ProfitLossPercent(); ok {
		fmt.Fprintf(&b, "- **Unrealized P/L:** %s (%+.2f%%)\n", SignedUSD(v.TotalProfitLoss), pct)
	} else {
		fmt.Fprintf(&b, "- **Unrealized P/L:** %s\n", SignedUSD(v.TotalProfitLoss))
	}
	fmt.Fprintf(&b, "- **Cost basis:** %s\n", USD(v.CostBasis))
	fmt.Fprintf(&b, "- **Total spent:** %s\n", USD(v.TotalSpent))

	if len(v.FailedSymbols) > 0 {
		fmt.Fprintf(&b, "\n> Quotes unavailable for: %s\n", strings.Join(v.FailedSymbols, ", "))
	}
	return b.String()
}

// Quote renders a single quote; shares > 0 adds the projected cost.
func Quote(q *quote.Quote, shares int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", q.Symbol)
	fmt.Fprintf(&b, "- **Price:** %s\n", USD(q.Price))
	if shares > 0 {
		fmt.Fprintf(&b, "- **%d shares:** %s\n", shares, USD(q.Total(shares)))
	}
	fmt.Fprintf(&b, "- **As of:** %s\n", q.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

func Trades(trades []models.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trades\n\n")
	if len(trades) == 0 {
		fmt.Fprintln(&b, "No trades stored.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Date | Symbol | Shares | Price | Total cost |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
	for _, t := range trades {
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			t.TradeDate.Format("2006-01-02"), t.Symbol, t.Shares, USD(t.PurchasePrice), USD(t.TotalCost))
	}
	return b.String()
}

func Spend(s *models.AggregateSpend) string {
	return fmt.Sprintf("# Spend\n\n- **Total spent:** %s\n", USD(s.TotalSpent))
}

func Buy(r *portfolio.BuyResult) string {
	t := r.Trade
	s := fmt.Sprintf("# Bought %s\n\n- **Shares:** %d\n- **Price:** %s\n- **Total cost:** %s\n",
		t.Symbol, t.Shares, USD(t.PurchasePrice), USD(t.TotalCost))
	if r.View != nil {
		s += "\n" + demote(Portfolio(r.View))
	}
	return s
}

func Sell(r *portfolio.SellResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sold %s\n\n- **Shares sold:** %d\n", r.Symbol, r.SharesSold)
	if r.Remaining != nil {
		fmt.Fprintf(&b, "- **Remaining:** %d\n", r.Remaining.Shares)
	} else {
		fmt.Fprintln(&b, "- **Position closed**")
	}
	if r.View != nil {
		b.WriteString("\n" + demote(Portfolio(r.View)))
	}
	return b.String()
}

// demote turns the leading H1 of md into an H2 so it can nest under another heading.
func demote(md string) string {
	if strings.HasPrefix(md, "# ") {
		return "#" + md
	}
	return md
}
