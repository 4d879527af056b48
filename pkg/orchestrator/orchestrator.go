// Package orchestrator is the unified facade over worker supervision, the
// RPC channel, rate limiting, and progress tracking. External pipelines see
// one Call/Status surface; every outcome is normalized into a CallResult and
// no error crosses the facade boundary as a panic.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/internal/config"
	"github.com/KaifAhmad1/repo-analyzer/internal/metrics"
	"github.com/KaifAhmad1/repo-analyzer/pkg/progress"
	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
	"github.com/KaifAhmad1/repo-analyzer/pkg/ratelimit"
	"github.com/KaifAhmad1/repo-analyzer/pkg/stdiorpc"
	"github.com/KaifAhmad1/repo-analyzer/pkg/supervisor"
	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

// Options configures a new Orchestrator.
type Options struct {
	Config config.Config
	Logger zerolog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics

	// QuotaProvider supplies upstream quota numbers for quota-bound workers.
	// Optional; nil leaves only the minimum-interval guard.
	QuotaProvider ratelimit.QuotaProvider

	// ToolRegistry backs ETA estimation. Nil selects the stock registry.
	ToolRegistry *toolinfo.Registry

	// SupervisorOptions tune process timing, mostly for tests.
	SupervisorOptions []supervisor.Option
}

// Orchestrator composes the supervision, channel, rate-limit, and progress
// components behind one handle. Construct with New and pass by reference;
// there is no package-level instance.
type Orchestrator struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics

	sup      *supervisor.Supervisor
	limiter  *ratelimit.Limiter
	tracker  *progress.Tracker
	registry *operationRegistry
	toolReg  *toolinfo.Registry
	ledger   *ledger
	history  *progress.History
	sweeper  *cron.Cron

	quotaBound map[string]bool

	recoverMu  sync.Mutex
	recovering map[string]bool
}

// New validates the configuration and builds an orchestrator. No process is
// spawned until Start.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg.Workers)
	if err != nil {
		return nil, err
	}

	toolReg := opts.ToolRegistry
	if toolReg == nil {
		toolReg = toolinfo.DefaultRegistry()
	}

	stages := cfg.Stages
	if len(stages) == 0 {
		stages = config.DefaultStages()
	}
	defs := make([]progress.StageDef, len(stages))
	for i, s := range stages {
		defs[i] = progress.StageDef{Name: s.Name, Weight: s.Weight, TotalTools: s.TotalTools}
	}
	tracker, err := progress.NewTracker(defs, toolReg, opts.Logger)
	if err != nil {
		return nil, err
	}

	var history *progress.History
	if cfg.History.Enabled && cfg.History.Path != "" {
		history, err = progress.OpenHistory(cfg.History.Path, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	quotaBound := make(map[string]bool, len(cfg.Workers))
	for _, w := range cfg.Workers {
		quotaBound[w.Name] = w.QuotaBound
	}

	return &Orchestrator{
		cfg:     cfg,
		logger:  opts.Logger.With().Str("component", "orchestrator").Logger(),
		metrics: opts.Metrics,
		sup:     supervisor.New(opts.Logger, opts.SupervisorOptions...),
		limiter: ratelimit.New(ratelimit.Config{
			MinInterval:     cfg.RateLimit.MinInterval,
			RefreshInterval: cfg.RateLimit.RefreshInterval,
		}, opts.QuotaProvider, opts.Logger),
		tracker:    tracker,
		registry:   registry,
		toolReg:    toolReg,
		ledger:     newLedger(),
		history:    history,
		quotaBound: quotaBound,
		recovering: make(map[string]bool),
	}, nil
}

func (o *Orchestrator) descriptors() []supervisor.Descriptor {
	descs := make([]supervisor.Descriptor, len(o.cfg.Workers))
	for i, w := range o.cfg.Workers {
		ops := make([]string, len(w.Operations))
		for j, op := range w.Operations {
			ops[j] = op.Name
		}
		descs[i] = supervisor.Descriptor{
			Name:        w.Name,
			Command:     w.Command,
			Args:        w.Args,
			Operations:  ops,
			QuotaBound:  w.QuotaBound,
			MaxInFlight: w.MaxInFlight,
		}
	}
	return descs
}

// Start spawns all declared workers and begins the periodic health sweep.
// The returned map carries one entry per worker: nil on success, the spawn
// error otherwise. Partial failure is not fatal; the survivors serve calls.
func (o *Orchestrator) Start(ctx context.Context) map[string]error {
	results := o.sup.Start(o.descriptors())
	o.updateWorkerGauge()

	for name, bound := range o.quotaBound {
		if bound && results[name] == nil {
			if err := o.limiter.Refresh(ctx, name); err != nil {
				o.logger.Warn().Err(err).Str("worker", name).Msg("Initial quota refresh failed")
			}
		}
	}

	if o.cfg.Health.Schedule != "" {
		o.sweeper = cron.New()
		if _, err := o.sweeper.AddFunc(o.cfg.Health.Schedule, o.healthSweep); err != nil {
			o.logger.Error().Err(err).Str("schedule", o.cfg.Health.Schedule).Msg("Bad health schedule, sweep disabled")
			o.sweeper = nil
		} else {
			o.sweeper.Start()
		}
	}

	started := 0
	for _, err := range results {
		if err == nil {
			started++
		}
	}
	o.logger.Info().Int("started", started).Int("declared", len(results)).Msg("Orchestrator started")
	return results
}

// Stop settles every worker and halts the health sweep. Always best-effort;
// it keeps going past individual failures and reports them joined.
func (o *Orchestrator) Stop() error {
	if o.sweeper != nil {
		o.sweeper.Stop()
		o.sweeper = nil
	}

	err := o.sup.Stop()
	o.updateWorkerGauge()

	if o.history != nil {
		if cerr := o.history.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}

	o.logger.Info().Msg("Orchestrator stopped")
	return err
}

// Run executes fn inside a started orchestrator scope. The shutdown path
// always executes, including when fn returns an error or panics.
func (o *Orchestrator) Run(ctx context.Context, fn func(*Orchestrator) error) (err error) {
	results := o.Start(ctx)

	defer func() {
		stopErr := o.Stop()
		if err == nil {
			err = stopErr
		}
	}()

	failed := 0
	for _, rerr := range results {
		if rerr != nil {
			failed++
		}
	}
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("no worker started")
	}

	return fn(o)
}

// Call routes one invocation: operation registry, quota guard for
// quota-bound workers, argument schema, then the RPC channel. Every outcome
// comes back as a CallResult; the ledger and metrics record it either way.
func (o *Orchestrator) Call(ctx context.Context, worker, operation string, args map[string]interface{}) CallResult {
	start := time.Now()

	if err := o.registry.resolve(worker, operation); err != nil {
		return o.finish(worker, operation, start, nil, err)
	}

	if o.quotaBound[worker] {
		if err := o.limiter.Acquire(ctx, worker); err != nil {
			if protocol.KindOf(err) == protocol.ErrKindRateLimit && o.metrics != nil {
				o.metrics.RateLimitRejections.WithLabelValues(worker).Inc()
			}
			return o.finish(worker, operation, start, nil, err)
		}
	}

	if err := o.registry.validateArgs(worker, operation, args); err != nil {
		return o.finish(worker, operation, start, nil, err)
	}

	callCtx := ctx
	if _, ok := ctx.Deadline(); !ok && o.cfg.Calls.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Calls.Timeout)
		defer cancel()
	}

	result, err := o.dispatch(callCtx, worker, operation, args)
	if err != nil && protocol.KindOf(err) == protocol.ErrKindTimeout && o.cfg.Calls.Strategy != "ephemeral" {
		// The timed-out channel is already torn down; bring up a fresh one
		// so the worker stays callable. An ephemeral timeout poisons only
		// its own throwaway process, the supervisor's session is untouched.
		o.scheduleRecovery(worker)
	}

	return o.finish(worker, operation, start, result, err)
}

func (o *Orchestrator) dispatch(ctx context.Context, worker, operation string, args map[string]interface{}) ([]byte, error) {
	if o.cfg.Calls.Strategy == "ephemeral" {
		desc, err := o.sup.Descriptor(worker)
		if err != nil {
			return nil, err
		}
		caller := stdiorpc.NewEphemeral(stdiorpc.SessionConfig{
			Worker:  worker,
			Command: desc.Command,
			Args:    desc.Args,
		}, o.logger)
		return caller.Call(ctx, operation, args)
	}

	session, err := o.sup.Session(worker)
	if err != nil {
		return nil, err
	}
	return session.Call(ctx, operation, args)
}

// scheduleRecovery starts at most one recovery goroutine per worker. A hung
// worker fails every in-flight call at once; one replacement serves them all.
func (o *Orchestrator) scheduleRecovery(worker string) {
	o.recoverMu.Lock()
	defer o.recoverMu.Unlock()

	if o.recovering[worker] {
		return
	}
	o.recovering[worker] = true
	go o.recoverSession(worker)
}

func (o *Orchestrator) recoverSession(worker string) {
	defer func() {
		o.recoverMu.Lock()
		delete(o.recovering, worker)
		o.recoverMu.Unlock()
	}()

	if err := o.sup.ReplaceSession(worker); err != nil {
		o.logger.Error().Err(err).Str("worker", worker).Msg("Session recovery failed")
		return
	}
	if o.metrics != nil {
		o.metrics.WorkerRestarts.WithLabelValues(worker).Inc()
	}
	o.updateWorkerGauge()
	o.logger.Info().Str("worker", worker).Msg("Session recovered after timeout")
}

// finish normalizes the outcome and records it.
func (o *Orchestrator) finish(worker, operation string, start time.Time, result []byte, err error) CallResult {
	duration := time.Since(start)
	name := worker + "." + operation

	res := CallResult{Duration: duration}
	if err == nil {
		res.Success = true
		res.Result = result
	} else {
		kind := protocol.KindOf(err)
		msg := err.Error()
		if ce, ok := err.(*protocol.CallError); ok {
			msg = ce.Message
		}
		res.Error = &protocol.WireError{Kind: kind, Message: msg}
	}

	o.ledger.record(name, duration, res.Success)

	if o.metrics != nil {
		status := "ok"
		if !res.Success {
			status = "error"
			o.metrics.ToolCallErrors.WithLabelValues(worker, operation, string(res.Error.Kind)).Inc()
		}
		o.metrics.ToolCallsTotal.WithLabelValues(worker, operation, status).Inc()
		o.metrics.ToolCallDuration.WithLabelValues(worker, operation).Observe(duration.Seconds())
	}

	if !res.Success {
		o.logger.Debug().Str("call", name).Str("kind", string(res.Error.Kind)).Dur("duration", duration).Msg("Call failed")
	}
	return res
}

// healthSweep re-probes worker liveness and refreshes quota numbers.
func (o *Orchestrator) healthSweep() {
	states := o.sup.Health()
	o.updateWorkerGauge()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for name, state := range states {
		if o.quotaBound[name] && state == supervisor.StateRunning {
			if err := o.limiter.Refresh(ctx, name); err != nil {
				o.logger.Debug().Err(err).Str("worker", name).Msg("Quota refresh failed during sweep")
			}
		}
	}
}

func (o *Orchestrator) updateWorkerGauge() {
	if o.metrics != nil {
		o.metrics.WorkersRunning.Set(float64(o.sup.RunningCount()))
	}
}

// Status merges supervisor health, the progress snapshot, rate-limiter
// utilization, and the performance ledger into one structure for display.
func (o *Orchestrator) Status() StatusSnapshot {
	return StatusSnapshot{
		Workers:    o.sup.Status(),
		Progress:   o.tracker.Snapshot(),
		RateLimits: o.limiter.Snapshot(),
		Ledger:     o.ledger.snapshot(),
	}
}

// Supervisor exposes the worker supervisor for direct lifecycle control
// (restart of a named subset, health probes).
func (o *Orchestrator) Supervisor() *supervisor.Supervisor {
	return o.sup
}

// Limiter exposes the rate limiter, mainly for explicit quota refreshes.
func (o *Orchestrator) Limiter() *ratelimit.Limiter {
	return o.limiter
}
