// Command papertrade trades against the paper portfolio from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	"github.com/kjannette/paper-trader/internal/app"
	"github.com/kjannette/paper-trader/internal/cli"
	"github.com/kjannette/paper-trader/internal/config"
	"github.com/kjannette/paper-trader/internal/logging"
)

func main() {
	name := path.Base(os.Args[0])
	// Exits when invoked by the shell for completion.
	cli.Completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander)

	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opened *app.App
	env := &cli.Env{
		Out: os.Stdout,
		Err: os.Stderr,
		Open: func(ctx context.Context) (cli.Trader, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			level := "disabled"
			if *verbose {
				level = cfg.LogLevel
			}
			a, err := app.Open(ctx, cfg, nil, logging.NewWithWriter(os.Stderr, level, true))
			if err != nil {
				return nil, err
			}
			opened = a
			return a.Service, nil
		},
	}

	status := commander.Execute(ctx, env)
	if opened != nil {
		opened.Close()
	}
	os.Exit(int(status))
}
