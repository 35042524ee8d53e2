package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(context.Context) (*models.PortfolioView, error) {
	n := c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.PortfolioView{TotalValue: decimal.NewFromInt(int64(n))}, nil
}

var errStop = errors.New("stop-loss")

type scriptedAlerts struct {
	mu    sync.Mutex
	down  bool
	depth float64
}

func (a *scriptedAlerts) set(down bool, depth float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down, a.depth = down, depth
}

func (a *scriptedAlerts) CheckView(*models.PortfolioView) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.down {
		return fmt.Errorf("%w: portfolio down %.2f%%", errStop, a.depth)
	}
	return nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Send(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestRefreshNow_PublishesToSubscribers(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, RefreshConfig{Log: zerolog.Nop()})
	assert.Nil(t, s.Latest())

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	view, err := s.RefreshNow(context.Background())
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Same(t, view, got)
	case <-time.After(time.Second):
		t.Fatal("no view delivered")
	}
	assert.Same(t, view, s.Latest())
}

func TestRefreshNow_Error(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{err: errors.New("db down")}, RefreshConfig{Log: zerolog.Nop()})
	_, err := s.RefreshNow(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Nil(t, s.Latest())
}

func TestPublish_SlowSubscriberSeesLatest(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, RefreshConfig{Log: zerolog.Nop()})
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	var last *models.PortfolioView
	for i := 0; i < 5; i++ {
		v, err := s.RefreshNow(context.Background())
		require.NoError(t, err)
		last = v
	}

	assert.Same(t, last, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra view %v", v.TotalValue)
	default:
	}
}

func TestPublish_SameViewOnce(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, RefreshConfig{Log: zerolog.Nop()})
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	v := &models.PortfolioView{}
	s.Publish(v)
	<-ch
	s.Publish(v)

	select {
	case <-ch:
		t.Fatal("duplicate publish delivered")
	default:
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, RefreshConfig{Log: zerolog.Nop()})
	ch, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	s.Publish(&models.PortfolioView{})
}

func TestAlerts_OnlyOnStateChange(t *testing.T) {
	alerts := &scriptedAlerts{}
	notify := &recorder{}
	s := NewRefreshScheduler(&countingRefresher{}, RefreshConfig{
		Alerts:   alerts,
		Notifier: notify,
		Log:      zerolog.Nop(),
	})
	ctx := context.Background()

	_, _ = s.RefreshNow(ctx)
	assert.Equal(t, 0, notify.count(), "no alert while inside thresholds")

	alerts.set(true, 11)
	_, _ = s.RefreshNow(ctx)
	assert.Equal(t, 1, notify.count())

	alerts.set(true, 12.5)
	_, _ = s.RefreshNow(ctx)
	assert.Equal(t, 1, notify.count(), "same alert kind is not repeated")

	alerts.set(false, 0)
	_, _ = s.RefreshNow(ctx)
	assert.Equal(t, 2, notify.count(), "recovery is announced")
}

func TestStartStop(t *testing.T) {
	r := &countingRefresher{}
	s := NewRefreshScheduler(r, RefreshConfig{Interval: 10 * time.Millisecond, Log: zerolog.Nop()})

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	s.Stop()

	time.Sleep(30 * time.Millisecond)
	settled := r.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, r.calls.Load(), "no refreshes after Stop")
}
