// Package app assembles the store, quote client, portfolio service and
// refresh scheduler from configuration. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjannette/paper-trader/internal/config"
	"github.com/kjannette/paper-trader/internal/db"
	"github.com/kjannette/paper-trader/internal/notifications"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/kjannette/paper-trader/internal/repository/memstore"
	"github.com/kjannette/paper-trader/internal/repository/mongostore"
	"github.com/kjannette/paper-trader/internal/risk"
	"github.com/kjannette/paper-trader/internal/scheduler"
	"github.com/rs/zerolog"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Service   *portfolio.Service
	Scheduler *scheduler.RefreshScheduler
	Guardian  *risk.Guardian
	Notifier  *notifications.Sender
	Store     Pinger

	closers []func()
}

type stores struct {
	trades  portfolio.TradeStore
	spend   portfolio.SpendStore
	counter risk.DailyTradeCounter
	ping    Pinger
	close   func()
}

// Open connects the configured store and wires everything on top of it.
// Quotes is optional and replaces the Finnhub client when set.
func Open(ctx context.Context, cfg *config.Config, quotes quote.Quoter, log zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if quotes == nil {
		quotes = quote.NewClient(quote.Options{
			BaseURL:   cfg.QuoteBaseURL,
			Token:     cfg.FinnhubToken,
			Timeout:   cfg.QuoteTimeout(),
			PricePath: cfg.QuotePricePath,
		})
	}

	guardian := risk.NewGuardian(risk.Limits{
		MaxDailyTrades:     cfg.MaxDailyTrades,
		MaxPositionSizeUSD: cfg.MaxPositionSizeUSD,
		StopLossPercent:    cfg.StopLossPercent,
		TakeProfitPercent:  cfg.TakeProfitPercent,
	}, st.counter)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName, log)

	svc := portfolio.NewService(portfolio.Deps{
		Trades:   st.trades,
		Spend:    st.spend,
		Quotes:   quotes,
		Risk:     guardian,
		Notifier: notify,
		Log:      log,
	}, portfolio.Options{
		QuoteAttempts: cfg.QuoteRetryAttempts,
		MaxQuoteAge:   cfg.QuoteMaxAge(),
		Concurrency:   cfg.ReconcileConcurrency,
	})

	sched := scheduler.NewRefreshScheduler(svc, scheduler.RefreshConfig{
		Interval: cfg.RefreshInterval(),
		Alerts:   guardian,
		Notifier: notify,
		Log:      log,
	})
	// Views produced by trades reach stream subscribers without waiting for the next tick.
	svc.OnReconciled(sched.Publish)

	return &App{
		Service:   svc,
		Scheduler: sched,
		Guardian:  guardian,
		Notifier:  notify,
		Store:     st.ping,
		closers:   []func(){st.close},
	}, nil
}

// Close stops the scheduler and releases the store.
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Service.Drain()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	log = log.With().Str("component", "store").Str("backend", cfg.StoreBackend).Logger()

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrConnectionFailure, err)
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if now, err := db.ServerTime(ctx, pool); err == nil {
			log.Info().Time("serverTime", now).Str("db", cfg.DBName).Msg("connected")
		}
		spend := repository.NewSpendRepo(pool)
		return &stores{
			trades:  repository.NewTradeRepo(pool),
			spend:   spend,
			counter: spend,
			ping:    pool,
			close: func() {
				pool.Close()
				log.Info().Msg("connection pool closed")
			},
		}, nil

	case config.BackendMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrConnectionFailure, err)
		}
		store := mongostore.New(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("db", cfg.MongoDatabase).Msg("connected")
		spend := store.Spend()
		return &stores{
			trades:  store.Trades(),
			spend:   spend,
			counter: spend,
			ping:    store,
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn().Err(err).Msg("disconnect")
				}
			},
		}, nil

	case config.BackendMemory:
		store := memstore.New()
		spend := store.Spend()
		log.Warn().Msg("in-memory store, trades are lost on exit")
		return &stores{
			trades:  store.Trades(),
			spend:   spend,
			counter: spend,
			ping:    store,
			close:   func() {},
		}, nil
	}
	return nil, errors.New("unknown store backend " + cfg.StoreBackend)
}
