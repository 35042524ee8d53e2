// Package cli implements the papertrade subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Trader is what the commands need from the portfolio. Satisfied by *portfolio.Service.
type Trader interface {
	Refresh(ctx context.Context) (*models.PortfolioView, error)
	Quote(ctx context.Context, symbol string) (*quote.Quote, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	Spend(ctx context.Context) (*models.AggregateSpend, error)
	BuyAtMarket(ctx context.Context, symbol string, shares int64) (*portfolio.BuyResult, error)
	Sell(ctx context.Context, symbol string, shares int64) (*portfolio.SellResult, error)
}

// Env is passed to every command through Commander.Execute.
type Env struct {
	// Open connects to the store on first use, so help and completion work offline.
	Open func(ctx context.Context) (Trader, error)
	Out  io.Writer
	Err  io.Writer
	// Style is a glamour standard style name; empty picks one from the terminal.
	Style string
	Width int

	trader Trader
}

func (e *Env) Trader(ctx context.Context) (Trader, error) {
	if e.trader == nil {
		t, err := e.Open(ctx)
		if err != nil {
			return nil, err
		}
		e.trader = t
	}
	return e.trader, nil
}

// Register adds every command to c.
func Register(c *subcommands.Commander) {
	c.Register(&portfolioCmd{}, "portfolio")
	c.Register(&tradesCmd{}, "portfolio")
	c.Register(&spendCmd{}, "portfolio")
	c.Register(&quoteCmd{}, "market")
	c.Register(&buyCmd{}, "trading")
	c.Register(&sellCmd{}, "trading")
}

// Completion describes the command tree for shell completion.
func Completion() *complete.Command {
	raw := map[string]complete.Predictor{"raw": predict.Nothing}
	withShares := map[string]complete.Predictor{"raw": predict.Nothing, "n": predict.Something}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"portfolio": {Flags: raw},
			"trades":    {Flags: map[string]complete.Predictor{"raw": predict.Nothing, "day": predict.Something}},
			"spend":     {Flags: raw},
			"quote":     {Flags: withShares, Args: predict.Something},
			"buy":       {Flags: withShares, Args: predict.Something},
			"sell":      {Flags: withShares, Args: predict.Something},
			"help":      {Args: predict.Set{"portfolio", "trades", "spend", "quote", "buy", "sell"}},
			"commands":  {},
			"flags":     {},
		},
	}
}

func envFrom(args []interface{}) *Env {
	for _, a := range args {
		if e, ok := a.(*Env); ok {
			return e
		}
	}
	panic("cli: Execute called without *Env")
}

// output holds the flags shared by every command.
type output struct {
	raw bool
}

func (o *output) setFlags(f *flag.FlagSet) {
	f.BoolVar(&o.raw, "raw", false, "print markdown instead of rendering it")
}

func (o *output) print(env *Env, md string) subcommands.ExitStatus {
	if o.raw {
		fmt.Fprint(env.Out, md)
		return subcommands.ExitSuccess
	}

	width := env.Width
	if width <= 0 {
		width = 100
	}
	style := glamour.WithAutoStyle()
	if env.Style != "" {
		style = glamour.WithStandardStyle(env.Style)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return fail(env, fmt.Errorf("markdown renderer: %w", err))
	}
	out, err := r.Render(md)
	if err != nil {
		return fail(env, fmt.Errorf("render: %w", err))
	}
	fmt.Fprint(env.Out, out)
	return subcommands.ExitSuccess
}

// fail reports err and picks the exit status. Bad input is a usage error.
func fail(env *Env, err error) subcommands.ExitStatus {
	fmt.Fprintf(env.Err, "Error: %v\n", err)
	if errors.Is(err, portfolio.ErrInvalidQuantity) || errors.Is(err, quote.ErrInvalidSymbol) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

func usage(env *Env, msg string) subcommands.ExitStatus {
	fmt.Fprintf(env.Err, "Error: %s\n", msg)
	return subcommands.ExitUsageError
}
