package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/report"
	"github.com/kjannette/paper-trader/internal/repository"
)

type portfolioCmd struct{ output }

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show positions priced at current quotes" }
func (*portfolioCmd) Usage() string {
	return `papertrade portfolio [-raw]

  Quotes every held symbol and prints positions, P/L and totals.
`
}
func (c *portfolioCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	view, err := t.Refresh(ctx)
	if err != nil {
		return fail(env, err)
	}
	warnFailed(env, view)
	return c.print(env, report.Portfolio(view))
}

type tradesCmd struct {
	output
	day string
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list stored positions without quoting them" }
func (*tradesCmd) Usage() string {
	return `papertrade trades [-day YYYY-MM-DD] [-raw]

  Lists stored trades. -day keeps the ones opened on that New York trading day.
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.day, "day", "", "only trades opened on this trading day")
}

func (c *tradesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	trades, err := t.Trades(ctx)
	if err != nil {
		return fail(env, err)
	}
	if c.day != "" {
		kept := trades[:0]
		for _, tr := range trades {
			if repository.TradingDay(tr.TradeDate) == c.day {
				kept = append(kept, tr)
			}
		}
		trades = kept
	}
	return c.print(env, report.Trades(trades))
}

type spendCmd struct{ output }

func (*spendCmd) Name() string     { return "spend" }
func (*spendCmd) Synopsis() string { return "show the lifetime total spent on buys" }
func (*spendCmd) Usage() string {
	return `papertrade spend [-raw]

  Prints the aggregate spend counter. Sells never reduce it.
`
}
func (c *spendCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *spendCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	spend, err := t.Spend(ctx)
	if err != nil {
		return fail(env, err)
	}
	return c.print(env, report.Spend(spend))
}

// warnFailed repeats unpriced symbols on stderr so scripts reading -raw output still see them.
func warnFailed(env *Env, v *models.PortfolioView) {
	if v != nil && len(v.FailedSymbols) > 0 {
		fmt.Fprintf(env.Err, "Warning: no quote for %v\n", v.FailedSymbols)
	}
}
