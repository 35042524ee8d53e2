package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/rs/zerolog"
)

// Refresher produces a reconciled portfolio view. Satisfied by *portfolio.Service.
type Refresher interface {
	Refresh(ctx context.Context) (*models.PortfolioView, error)
}

// AlertChecker evaluates portfolio thresholds. Satisfied by *risk.Guardian.
type AlertChecker interface {
	CheckView(view *models.PortfolioView) error
}

type Notifier interface {
	Send(msg string)
}

type RefreshConfig struct {
	Interval time.Duration // default 60s
	Timeout  time.Duration // per refresh, default 30s
	Alerts   AlertChecker  // optional
	Notifier Notifier      // optional
	Log      zerolog.Logger
}

// RefreshScheduler re-reconciles the portfolio on a fixed interval and fans
// every view out to subscribers. Subscribers that fall behind only see the
// most recent view.
type RefreshScheduler struct {
	refresher Refresher
	cfg       RefreshConfig
	log       zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	pubMu     sync.Mutex
	latest    *models.PortfolioView
	subs      map[int]chan *models.PortfolioView
	nextSub   int
	lastAlert string
}

func NewRefreshScheduler(r Refresher, cfg RefreshConfig) *RefreshScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RefreshScheduler{
		refresher: r,
		cfg:       cfg,
		log:       cfg.Log.With().Str("component", "refresh-scheduler").Logger(),
		subs:      make(map[int]chan *models.PortfolioView),
	}
}

func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go func() {
		s.tick()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("started")
}

func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.log.Info().Msg("stopped")
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RefreshScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if _, err := s.RefreshNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled refresh failed")
	}
}

// RefreshNow reconciles immediately, outside the normal schedule, and
// publishes the result.
func (s *RefreshScheduler) RefreshNow(ctx context.Context) (*models.PortfolioView, error) {
	view, err := s.refresher.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	s.Publish(view)
	return view, nil
}

// Latest returns the most recently published view, or nil before the first one.
func (s *RefreshScheduler) Latest() *models.PortfolioView {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	return s.latest
}

// Subscribe returns a channel of published views and a function that
// unsubscribes and closes it.
func (s *RefreshScheduler) Subscribe() (<-chan *models.PortfolioView, func()) {
	ch := make(chan *models.PortfolioView, 1)

	s.pubMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.pubMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.pubMu.Lock()
			delete(s.subs, id)
			s.pubMu.Unlock()
			close(ch)
		})
	}
}

// Publish records view as the latest and hands it to every subscriber
// without blocking. Publishing the same view twice is a no-op, so Publish
// can also be registered as a portfolio listener.
func (s *RefreshScheduler) Publish(view *models.PortfolioView) {
	if view == nil {
		return
	}

	s.pubMu.Lock()
	if s.latest == view {
		s.pubMu.Unlock()
		return
	}
	s.latest = view
	for _, ch := range s.subs {
		offer(ch, view)
	}
	s.pubMu.Unlock()

	s.checkAlerts(view)
}

// offer replaces any undelivered view in ch with v.
func offer(ch chan *models.PortfolioView, v *models.PortfolioView) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// checkAlerts notifies only when the alert state differs from the last view.
func (s *RefreshScheduler) checkAlerts(view *models.PortfolioView) {
	if s.cfg.Alerts == nil {
		return
	}
	err := s.cfg.Alerts.CheckView(view)

	state := ""
	if err != nil {
		state = alertKey(err)
	}

	s.pubMu.Lock()
	changed := state != s.lastAlert
	s.lastAlert = state
	s.pubMu.Unlock()

	if !changed {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("portfolio threshold crossed")
		if s.cfg.Notifier != nil {
			s.cfg.Notifier.Send("ALERT " + err.Error())
		}
		return
	}
	s.log.Info().Msg("portfolio back inside thresholds")
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Send("Portfolio back inside stop-loss / take-profit thresholds")
	}
}

// alertKey reduces an alert to its innermost sentinel so a changing
// percentage does not count as a new alert.
func alertKey(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
