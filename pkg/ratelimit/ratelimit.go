// Package ratelimit guards calls to quota-constrained workers. Each worker
// carries its own quota numbers and minimum inter-call interval; state for
// one worker never contends with another.
//
// Quota numbers come from an external QuotaProvider and are pulled only via
// the explicit Refresh operation, which is itself rate-capped so it cannot
// exhaust the quota it is checking. Acquire never refreshes as a side effect.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
)

const (
	// DefaultMinInterval spaces consecutive calls to one worker.
	DefaultMinInterval = 100 * time.Millisecond

	// DefaultRefreshInterval caps how often quota numbers are pulled from
	// the provider.
	DefaultRefreshInterval = 30 * time.Second
)

// Quota is the upstream API's reported call budget.
type Quota struct {
	Remaining int
	Reset     time.Time
}

// QuotaProvider reports the upstream quota for a worker. Implemented by the
// caller, typically against the upstream API's own limit endpoint.
type QuotaProvider interface {
	Quota(ctx context.Context, worker string) (Quota, error)
}

// RateState is a snapshot of one worker's limiter state.
type RateState struct {
	Remaining   int       `json:"remaining"`
	Reset       time.Time `json:"reset,omitempty"`
	LastCall    time.Time `json:"last_call,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	QuotaKnown  bool      `json:"quota_known"`
}

// Config tunes the limiter.
type Config struct {
	MinInterval     time.Duration
	RefreshInterval time.Duration
}

type workerState struct {
	mu          sync.Mutex
	remaining   int
	reset       time.Time
	lastCall    time.Time
	lastRefresh time.Time
	quotaKnown  bool
}

// Limiter is the per-worker quota and interval guard.
type Limiter struct {
	cfg      Config
	provider QuotaProvider
	logger   zerolog.Logger

	mu      sync.Mutex
	workers map[string]*workerState
}

// New builds a limiter. provider may be nil, in which case only the
// minimum-interval guard applies until SetQuota is called.
func New(cfg Config, provider QuotaProvider, logger zerolog.Logger) *Limiter {
	if cfg.MinInterval < 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &Limiter{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With().Str("component", "ratelimit").Logger(),
		workers:  make(map[string]*workerState),
	}
}

func (l *Limiter) state(worker string) *workerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.workers[worker]
	if !ok {
		st = &workerState{}
		l.workers[worker] = st
	}
	return st
}

// Acquire permits one call to the worker. It refuses immediately with a
// RateLimitExceeded error while the cached quota is exhausted and its reset
// is still ahead; otherwise it sleeps out the remainder of the minimum
// inter-call interval, honoring ctx, and records the call.
func (l *Limiter) Acquire(ctx context.Context, worker string) error {
	st := l.state(worker)

	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	if st.quotaKnown && st.remaining <= 0 && now.Before(st.reset) {
		l.logger.Debug().Str("worker", worker).Time("reset", st.reset).Msg("Quota exhausted, call refused")
		return protocol.NewCallError(protocol.ErrKindRateLimit,
			"quota exhausted for %s until %s", worker, st.reset.Format(time.RFC3339))
	}

	if !st.lastCall.IsZero() {
		if wait := l.cfg.MinInterval - now.Sub(st.lastCall); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return protocol.NewCallError(protocol.ErrKindTimeout,
					"canceled while pacing call to %s: %v", worker, ctx.Err())
			}
		}
	}

	st.lastCall = time.Now()
	if st.quotaKnown {
		st.remaining--
	}
	return nil
}

// Refresh pulls current quota numbers from the provider. Calls arriving
// before the refresh interval has elapsed are ignored, keeping the refresh
// itself from burning quota.
func (l *Limiter) Refresh(ctx context.Context, worker string) error {
	if l.provider == nil {
		return nil
	}

	st := l.state(worker)

	st.mu.Lock()
	if !st.lastRefresh.IsZero() && time.Since(st.lastRefresh) < l.cfg.RefreshInterval {
		st.mu.Unlock()
		return nil
	}
	st.lastRefresh = time.Now()
	st.mu.Unlock()

	quota, err := l.provider.Quota(ctx, worker)
	if err != nil {
		l.logger.Warn().Err(err).Str("worker", worker).Msg("Quota refresh failed")
		return protocol.NewCallError(protocol.ErrKindRemote, "quota refresh for %s: %v", worker, err)
	}

	l.SetQuota(worker, quota)
	return nil
}

// SetQuota installs quota numbers directly, bypassing the provider. Also the
// seam tests use to set up exhaustion scenarios.
func (l *Limiter) SetQuota(worker string, quota Quota) {
	st := l.state(worker)
	st.mu.Lock()
	st.remaining = quota.Remaining
	st.reset = quota.Reset
	st.quotaKnown = true
	st.mu.Unlock()

	l.logger.Debug().Str("worker", worker).Int("remaining", quota.Remaining).Msg("Quota updated")
}

// Snapshot reports the limiter state of every known worker.
func (l *Limiter) Snapshot() map[string]RateState {
	l.mu.Lock()
	names := make([]string, 0, len(l.workers))
	states := make([]*workerState, 0, len(l.workers))
	for name, st := range l.workers {
		names = append(names, name)
		states = append(states, st)
	}
	l.mu.Unlock()

	out := make(map[string]RateState, len(names))
	for i, st := range states {
		st.mu.Lock()
		out[names[i]] = RateState{
			Remaining:   st.remaining,
			Reset:       st.reset,
			LastCall:    st.lastCall,
			LastRefresh: st.lastRefresh,
			QuotaKnown:  st.quotaKnown,
		}
		st.mu.Unlock()
	}
	return out
}
