// Package refresher keeps a cookie session alive from the client side by
// refreshing shortly before the access token expires.
package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
)

// DefaultLead is how long before access token expiry the refresh fires.
const DefaultLead = 2 * time.Minute

// SessionAPI is the server surface the scheduler drives.
type SessionAPI interface {
	Session(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Scheduler owns at most one outstanding refresh timer.
type Scheduler struct {
	api       SessionAPI
	onExpired func()
	interval  time.Duration
	afterFunc AfterFunc

	mu      sync.Mutex
	ctx     context.Context
	timer   Timer
	gen     uint64
	stopped bool
	expired bool
}

type Option func(*Scheduler)

// WithInterval overrides the delay between refreshes.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithAfterFunc(f AfterFunc) Option {
	return func(s *Scheduler) { s.afterFunc = f }
}

// New returns a scheduler that calls onExpired when the session can no
// longer be renewed; typically it navigates to the login page.
func New(api SessionAPI, onExpired func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		api:       api,
		onExpired: onExpired,
		interval:  tokens.AccessTokenTTL - DefaultLead,
		afterFunc: realAfterFunc,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start reads the session and falls back to a single refresh. When both fail
// onExpired runs and the error is returned; otherwise the refresh timer is armed.
// onExpired runs at most once per Start and never after Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.stopped = false
	s.expired = false
	gen := s.gen
	s.mu.Unlock()

	if err := s.api.Session(ctx); err != nil {
		logger.Debugf("refresher: session read failed, refreshing: %v", err)
		if err := s.api.Refresh(ctx); err != nil {
			s.expire(gen)
			return err
		}
	}
	s.arm(gen)
	return nil
}

// Stop cancels the outstanding timer. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.stopped = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// arm replaces any previous timer with a new one unless the scheduler was
// stopped or re-armed since gen was read.
func (s *Scheduler) arm(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || gen != s.gen {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	next := s.gen
	s.timer = s.afterFunc(s.interval, func() { s.fire(next) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.api.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			// cancelled by the owner: teardown, not expiry
			return
		}
		logger.Warnf("refresher: refresh failed: %v", err)
		s.expire(gen)
		return
	}
	s.arm(gen)
}

// expire stops the scheduler and calls onExpired, unless Stop or a newer
// timer got there first.
func (s *Scheduler) expire(gen uint64) {
	s.mu.Lock()
	if s.stopped || s.expired || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.stopLocked()
	s.mu.Unlock()

	if s.onExpired != nil {
		s.onExpired()
	}
}
