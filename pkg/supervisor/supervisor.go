// Package supervisor owns the worker process table. It spawns, stops,
// restarts, and health-checks worker processes, holding one RPC session per
// worker.
//
// Invariants:
// - At most one live OS process exists per worker name.
// - State transitions happen only under the supervisor's lock.
// - Spawn failures are recorded and surfaced per worker, never raised across
//   the supervisor boundary; one worker's failure does not block the others.
package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
	"github.com/KaifAhmad1/repo-analyzer/pkg/stdiorpc"
)

const (
	// DefaultGracePeriod is how long Start waits after spawning before
	// probing that the process survived startup.
	DefaultGracePeriod = 300 * time.Millisecond

	// DefaultStopTimeout bounds the graceful-termination wait before a
	// worker is force-killed.
	DefaultStopTimeout = 5 * time.Second

	// DefaultSettleDelay separates the stop and start halves of a restart so
	// the old process fully releases its resources.
	DefaultSettleDelay = 200 * time.Millisecond
)

type workerEntry struct {
	// startMu serializes spawn-to-install per worker. Two concurrent starts
	// would both spawn; the loser's session gets overwritten and its OS
	// process leaks with nothing left referencing it.
	startMu sync.Mutex

	desc      Descriptor
	session   *stdiorpc.Session
	state     State
	lastErr   string
	startedAt time.Time
}

// Option tunes supervisor timing.
type Option func(*Supervisor)

// WithGracePeriod overrides the post-spawn grace wait.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) { s.gracePeriod = d }
}

// WithStopTimeout overrides the graceful-stop wait.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.stopTimeout = d }
}

// WithSettleDelay overrides the restart settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.settleDelay = d }
}

// Supervisor manages the lifecycle of all declared workers.
type Supervisor struct {
	logger      zerolog.Logger
	gracePeriod time.Duration
	stopTimeout time.Duration
	settleDelay time.Duration

	mu      sync.Mutex
	workers map[string]*workerEntry
}

// New builds an empty supervisor. Workers are declared via Start.
func New(logger zerolog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:      logger.With().Str("component", "supervisor").Logger(),
		gracePeriod: DefaultGracePeriod,
		stopTimeout: DefaultStopTimeout,
		settleDelay: DefaultSettleDelay,
		workers:     make(map[string]*workerEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns every descriptor's process, waits the grace period, then
// probes liveness. The returned map holds one entry per descriptor: nil on
// success, the spawn error otherwise. Workers already running are left alone.
func (s *Supervisor) Start(descriptors []Descriptor) map[string]error {
	results := make(map[string]error, len(descriptors))

	for _, desc := range descriptors {
		results[desc.Name] = s.startOne(desc)
	}

	return results
}

func (s *Supervisor) startOne(desc Descriptor) error {
	entry := s.entry(desc.Name)

	entry.startMu.Lock()
	defer entry.startMu.Unlock()

	return s.startEntry(entry, desc)
}

// entry returns the table entry for a worker, creating it on first use.
// Entries are never removed from the table, so the pointer stays valid.
func (s *Supervisor) entry(name string) *workerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.workers[name]
	if !ok {
		e = &workerEntry{}
		s.workers[name] = e
	}
	return e
}

// startEntry spawns and installs a session. Callers must hold entry.startMu.
func (s *Supervisor) startEntry(entry *workerEntry, desc Descriptor) error {
	s.mu.Lock()
	if entry.state == StateRunning && entry.session != nil && entry.session.Alive() {
		s.mu.Unlock()
		return nil
	}
	entry.desc = desc
	entry.state = StateStarting
	entry.lastErr = ""
	s.mu.Unlock()

	if err := s.checkExecutable(desc.Command); err != nil {
		return s.failStart(desc.Name, err)
	}

	session := stdiorpc.NewSession(stdiorpc.SessionConfig{
		Worker:      desc.Name,
		Command:     desc.Command,
		Args:        desc.Args,
		MaxInFlight: desc.MaxInFlight,
	}, s.logger)

	if err := session.Start(); err != nil {
		return s.failStart(desc.Name, err)
	}

	// Give the worker a moment to crash on startup before declaring victory.
	time.Sleep(s.gracePeriod)

	if !session.ProcessRunning() {
		_ = session.Close()
		err := protocol.NewCallError(protocol.ErrKindSpawn, "worker %s exited during startup", desc.Name)
		return s.failStart(desc.Name, err)
	}

	s.mu.Lock()
	entry.session = session
	entry.state = StateRunning
	entry.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().Str("worker", desc.Name).Int("pid", session.Pid()).Msg("Worker started")
	return nil
}

// checkExecutable rejects launch commands that cannot possibly run, so the
// failure is a clean SpawnError instead of a confusing pipe error.
func (s *Supervisor) checkExecutable(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
			return protocol.NewCallError(protocol.ErrKindSpawn, "executable not found: %s", command)
		}
		return protocol.NewCallError(protocol.ErrKindSpawn, "executable not usable: %s: %v", command, err)
	}
	return nil
}

func (s *Supervisor) failStart(name string, err error) error {
	s.mu.Lock()
	if entry, ok := s.workers[name]; ok {
		entry.state = StateStopped
		entry.lastErr = err.Error()
		entry.session = nil
	}
	s.mu.Unlock()

	s.logger.Error().Err(err).Str("worker", name).Msg("Worker failed to start")
	return err
}

// Stop gracefully terminates the named workers, or all of them when no names
// are given. Every worker is settled to Stopped even if some stops fail; the
// returned error joins the individual failures.
func (s *Supervisor) Stop(names ...string) error {
	targets := s.resolveNames(names)

	var errs []error
	for _, name := range targets {
		if err := s.stopOne(name); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Supervisor) stopOne(name string) error {
	s.mu.Lock()
	entry, ok := s.workers[name]
	if !ok {
		s.mu.Unlock()
		return protocol.NewCallError(protocol.ErrKindNotFound, "unknown worker: %s", name)
	}
	session := entry.session
	entry.state = StateStopping
	s.mu.Unlock()

	var stopErr error
	if session != nil {
		if err := session.Signal(stdiorpc.SignalTerminate); err == nil {
			if !session.Wait(s.stopTimeout) {
				s.logger.Warn().Str("worker", name).Msg("Graceful stop timed out, killing")
				_ = session.Signal(stdiorpc.SignalKill)
				session.Wait(s.stopTimeout)
			}
		}
		stopErr = session.Close()
	}

	s.mu.Lock()
	entry.state = StateStopped
	entry.session = nil
	s.mu.Unlock()

	s.logger.Info().Str("worker", name).Msg("Worker stopped")
	return stopErr
}

// Restart stops then starts the named workers (all when no names are given),
// reusing their recorded descriptors.
func (s *Supervisor) Restart(names ...string) map[string]error {
	targets := s.resolveNames(names)

	_ = s.Stop(targets...)
	time.Sleep(s.settleDelay)

	s.mu.Lock()
	descriptors := make([]Descriptor, 0, len(targets))
	for _, name := range targets {
		if entry, ok := s.workers[name]; ok {
			descriptors = append(descriptors, entry.desc)
		}
	}
	s.mu.Unlock()

	return s.Start(descriptors)
}

// Health re-probes every Running worker and demotes dead or broken ones to
// Unhealthy. It returns the state of every known worker.
func (s *Supervisor) Health() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]State, len(s.workers))
	for name, entry := range s.workers {
		if entry.state == StateRunning {
			if entry.session == nil || !entry.session.Alive() || !entry.session.ProcessRunning() {
				entry.state = StateUnhealthy
				entry.lastErr = "liveness probe failed"
				s.logger.Warn().Str("worker", name).Msg("Worker demoted to unhealthy")
			}
		}
		states[name] = entry.state
	}
	return states
}

// Session returns the live RPC session for a Running worker.
func (s *Supervisor) Session(name string) (*stdiorpc.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.workers[name]
	if !ok {
		return nil, protocol.NewCallError(protocol.ErrKindNotFound, "unknown worker: %s", name)
	}
	if entry.state != StateRunning || entry.session == nil {
		return nil, protocol.NewCallError(protocol.ErrKindSpawn, "worker %s is %s", name, entry.state)
	}
	return entry.session, nil
}

// Descriptor returns the recorded descriptor for a worker.
func (s *Supervisor) Descriptor(name string) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.workers[name]
	if !ok {
		return Descriptor{}, protocol.NewCallError(protocol.ErrKindNotFound, "unknown worker: %s", name)
	}
	return entry.desc, nil
}

// ReplaceSession swaps in a fresh session for a worker whose channel was torn
// down, marking it Running again. Used by callers that rebuild sessions after
// a per-call timeout.
func (s *Supervisor) ReplaceSession(name string) error {
	s.mu.Lock()
	entry, ok := s.workers[name]
	s.mu.Unlock()
	if !ok {
		return protocol.NewCallError(protocol.ErrKindNotFound, "unknown worker: %s", name)
	}

	// Close-old and spawn-new happen under the same start guard, so a
	// concurrent replacement sees the new session instead of racing the swap.
	entry.startMu.Lock()
	defer entry.startMu.Unlock()

	s.mu.Lock()
	old := entry.session
	desc := entry.desc
	entry.session = nil
	entry.state = StateStopping
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
		old.Wait(s.stopTimeout)
	}
	return s.startEntry(entry, desc)
}

// Status reports every worker, sorted by name for stable display.
func (s *Supervisor) Status() []WorkerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(s.workers))
	for name, entry := range s.workers {
		ws := WorkerStatus{
			Name:      name,
			State:     entry.state,
			LastError: entry.lastErr,
			StartedAt: entry.startedAt,
		}
		if entry.session != nil {
			ws.Pid = entry.session.Pid()
		}
		statuses = append(statuses, ws)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// RunningCount reports how many workers are currently Running.
func (s *Supervisor) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.workers {
		if entry.state == StateRunning {
			count++
		}
	}
	return count
}

func (s *Supervisor) resolveNames(names []string) []string {
	if len(names) > 0 {
		return names
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]string, 0, len(s.workers))
	for name := range s.workers {
		all = append(all, name)
	}
	sort.Strings(all)
	return all
}
