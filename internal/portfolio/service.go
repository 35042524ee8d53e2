// Package portfolio executes paper trades and reconciles held positions
// against live quotes.
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/rs/zerolog"
)

const (
	DefaultQuoteAttempts = 3
	DefaultMaxQuoteAge   = 60 * time.Second
)

type Deps struct {
	Trades TradeStore
	Spend  SpendStore
	Quotes quote.Quoter
	// Risk and Notifier are optional.
	Risk     RiskChecker
	Notifier Notifier
	Log      zerolog.Logger
}

type Options struct {
	QuoteAttempts int
	// MaxQuoteAge rejects buys against quotes older than this. Zero disables the check.
	MaxQuoteAge time.Duration
	Concurrency int
}

type Service struct {
	mu sync.Mutex // serialises buys and sells

	trades     TradeStore
	spend      SpendStore
	quotes     quote.Quoter
	risk       RiskChecker
	notify     Notifier
	reconciler *Reconciler
	log        zerolog.Logger
	opts       Options
	now        func() time.Time

	listenersMu sync.RWMutex
	listeners   []func(*models.PortfolioView)

	sending sync.WaitGroup // trade confirmations in flight
}

func NewService(d Deps, opts Options) *Service {
	if opts.QuoteAttempts <= 0 {
		opts.QuoteAttempts = DefaultQuoteAttempts
	}
	log := d.Log.With().Str("component", "portfolio").Logger()
	return &Service{
		trades:     d.Trades,
		spend:      d.Spend,
		quotes:     d.Quotes,
		risk:       d.Risk,
		notify:     d.Notifier,
		reconciler: NewReconciler(d.Quotes, opts.Concurrency, log),
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// OnReconciled registers fn to receive every view produced by Refresh.
func (s *Service) OnReconciled(fn func(*models.PortfolioView)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh loads all trades and reconciles them. Only a failure to load the
// trades is returned; a spend read failure leaves TotalSpent at zero.
func (s *Service) Refresh(ctx context.Context) (*models.PortfolioView, error) {
	trades, err := s.trades.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	view := s.reconciler.Reconcile(ctx, trades)

	if spend, err := s.spend.Get(ctx); err != nil {
		s.log.Warn().Err(err).Msg("could not read aggregate spend")
	} else {
		view.TotalSpent = spend.TotalSpent
	}

	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(view)
	}

	return view, nil
}

// Quote looks up the current price of symbol with the configured retry budget.
func (s *Service) Quote(ctx context.Context, symbol string) (*quote.Quote, error) {
	return quote.Lookup(ctx, s.quotes, symbol, s.opts.QuoteAttempts, s.log)
}

// Trades returns the stored trades without pricing them.
func (s *Service) Trades(ctx context.Context) ([]models.Trade, error) {
	return s.trades.FindAll(ctx)
}

func (s *Service) Spend(ctx context.Context) (*models.AggregateSpend, error) {
	return s.spend.Get(ctx)
}

// send delivers msg in the background. A slow webhook never holds up the
// trade that produced it.
func (s *Service) send(msg string) {
	if s.notify == nil {
		return
	}
	s.sending.Add(1)
	go func() {
		defer s.sending.Done()
		s.notify.Send(msg)
	}()
}

// Drain waits for trade confirmations still being delivered.
func (s *Service) Drain() {
	s.sending.Wait()
}
