package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/kjannette/paper-trader/internal/report"
)

type quoteCmd struct {
	output
	shares int64
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the current price of a symbol" }
func (*quoteCmd) Usage() string {
	return `papertrade quote [-n <shares>] [-raw] <symbol>

  Prints the current price. With -n, also the cost of buying that many shares.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Int64Var(&c.shares, "n", 0, "number of shares to price")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	if f.NArg() != 1 {
		return usage(env, "quote takes exactly one symbol")
	}
	if c.shares < 0 {
		return usage(env, "-n must not be negative")
	}
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	q, err := t.Quote(ctx, f.Arg(0))
	if err != nil {
		return fail(env, err)
	}
	return c.print(env, report.Quote(q, c.shares))
}

type buyCmd struct {
	output
	shares int64
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy shares of a symbol at the current price" }
func (*buyCmd) Usage() string {
	return `papertrade buy -n <shares> [-raw] <symbol>

  Opens a new position at the current quote. Only one position per symbol is allowed.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Int64Var(&c.shares, "n", 0, "number of shares to buy")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	if f.NArg() != 1 {
		return usage(env, "buy takes exactly one symbol")
	}
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	res, err := t.BuyAtMarket(ctx, f.Arg(0), c.shares)
	if res == nil {
		return fail(env, err)
	}
	if err != nil {
		fmt.Fprintf(env.Err, "Warning: %v\n", err)
	}
	warnFailed(env, res.View)
	return c.print(env, report.Buy(res))
}

type sellCmd struct {
	output
	shares int64
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares of a held symbol" }
func (*sellCmd) Usage() string {
	return `papertrade sell -n <shares> [-raw] <symbol>

  Reduces a position. Selling every share closes it.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Int64Var(&c.shares, "n", 0, "number of shares to sell")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	if f.NArg() != 1 {
		return usage(env, "sell takes exactly one symbol")
	}
	t, err := env.Trader(ctx)
	if err != nil {
		return fail(env, err)
	}
	res, err := t.Sell(ctx, f.Arg(0), c.shares)
	if err != nil {
		return fail(env, err)
	}
	warnFailed(env, res.View)
	return c.print(env, report.Sell(res))
}
