// Package stdiorpc implements the request/response channel to one worker
// process over its standard input and output.
//
// Two session strategies exist. Session keeps one long-lived channel per
// worker and correlates responses to in-flight requests by id; this is the
// primary strategy. Ephemeral spawns a fresh process per call and is the
// documented fallback for low-volume callers.
//
// Invariants:
// - Every response is matched to its request id; unmatched responses are discarded.
// - A timed-out session is torn down and never reused.
// - At most MaxInFlight calls are outstanding on one session.
package stdiorpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
)

// DefaultMaxInFlight bounds concurrent calls on one session. Workers in the
// upstream ecosystem advertise capacity between 3 and 5 concurrent requests.
const DefaultMaxInFlight = 4

// scanBufferSize caps a single response line. Tool results can carry whole
// file contents, so this is generous.
const scanBufferSize = 4 * 1024 * 1024

// SessionConfig describes how to reach one worker.
type SessionConfig struct {
	Worker      string
	Command     string
	Args        []string
	MaxInFlight int
}

// Session is a persistent channel to one worker process.
type Session struct {
	cfg    SessionConfig
	logger zerolog.Logger

	inflight chan struct{}

	// writeMu serializes frame writes. Concurrent writes above the pipe's
	// atomic size would interleave and corrupt the line protocol.
	writeMu sync.Mutex

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	pending map[string]chan protocol.Response
	done    chan struct{}
	started bool
	broken  bool
	closed  bool
}

// NewSession builds a session; the worker process is not spawned until Start.
func NewSession(cfg SessionConfig, logger zerolog.Logger) *Session {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &Session{
		cfg:      cfg,
		logger:   logger.With().Str("component", "stdiorpc").Str("worker", cfg.Worker).Logger(),
		inflight: make(chan struct{}, cfg.MaxInFlight),
		pending:  make(map[string]chan protocol.Response),
	}
}

// Start spawns the worker process and begins reading responses.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.started {
		return nil
	}

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return protocol.NewCallError(protocol.ErrKindSpawn, "stdin pipe for %s: %v", s.cfg.Worker, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return protocol.NewCallError(protocol.ErrKindSpawn, "stdout pipe for %s: %v", s.cfg.Worker, err)
	}

	if err := cmd.Start(); err != nil {
		return protocol.NewCallError(protocol.ErrKindSpawn, "spawn %s: %v", s.cfg.Worker, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.started = true
	s.done = make(chan struct{})

	go s.listen(stdout)
	go func(done chan struct{}) {
		// Reap the process so it never lingers as a zombie.
		_ = cmd.Wait()
		close(done)
	}(s.done)

	s.logger.Debug().Int("pid", cmd.Process.Pid).Msg("Worker session started")
	return nil
}

// listen reads frames until the worker closes stdout, routing each response
// to the call waiting on its id.
func (s *Session) listen(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	for scanner.Scan() {
		resp, err := protocol.DecodeResponse(scanner.Bytes())
		if err != nil {
			s.logger.Error().Err(err).Msg("Discarding malformed frame")
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.mu.Unlock()

		if !ok {
			// Late answer to a timed-out or unknown request.
			s.logger.Warn().Str("id", resp.ID).Msg("Discarding unmatched response")
			continue
		}
		ch <- resp
	}

	// Worker went away. Fail every outstanding call and poison the session.
	s.mu.Lock()
	s.broken = true
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
	s.mu.Unlock()
	s.logger.Debug().Msg("Worker stdout closed, session marked broken")
}

// Call sends one request and awaits its correlated response. The context
// deadline bounds the whole round trip; on expiry the session is torn down
// and ErrSessionBroken is returned from subsequent calls.
func (s *Session) Call(ctx context.Context, operation string, args map[string]interface{}) (json.RawMessage, error) {
	select {
	case s.inflight <- struct{}{}:
		defer func() { <-s.inflight }()
	case <-ctx.Done():
		return nil, protocol.NewCallError(protocol.ErrKindTimeout, "waiting for call slot on %s: %v", s.cfg.Worker, ctx.Err())
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, protocol.NewCallError(protocol.ErrKindProtocol, "generate request id: %v", err)
	}

	frame, err := protocol.EncodeRequest(protocol.Request{ID: id, Operation: operation, Arguments: args})
	if err != nil {
		return nil, protocol.NewCallError(protocol.ErrKindProtocol, "%v", err)
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case s.broken:
		s.mu.Unlock()
		return nil, ErrSessionBroken
	case !s.started:
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	ch := make(chan protocol.Response, 1)
	s.pending[id] = ch
	stdin := s.stdin
	s.mu.Unlock()

	s.writeMu.Lock()
	_, err = stdin.Write(frame)
	s.writeMu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.teardown()
		return nil, protocol.NewCallError(protocol.ErrKindSpawn, "write to %s: %v", s.cfg.Worker, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, protocol.NewCallError(protocol.ErrKindSpawn, "worker %s exited mid-call", s.cfg.Worker)
		}
		if resp.Error != nil {
			return nil, protocol.NewCallError(protocol.ErrKindRemote, "%s", resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		// A stale partial read must never leak into a later call, so the
		// whole channel goes down with the timed-out request.
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.teardown()
		return nil, protocol.NewCallError(protocol.ErrKindTimeout, "%s.%s: %v", s.cfg.Worker, operation, ctx.Err())
	}
}

// teardown poisons the session and kills the worker process.
func (s *Session) teardown() {
	s.mu.Lock()
	alreadyBroken := s.broken
	s.broken = true
	cmd := s.cmd
	s.mu.Unlock()

	if alreadyBroken {
		return
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	s.logger.Warn().Msg("Session torn down")
}

// Alive reports whether the session is usable: started, not broken, not closed.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.broken && !s.closed
}

// Pid returns the worker process id, or 0 before Start.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Signal forwards a signal to the worker process.
func (s *Session) Signal(sig SignalKind) error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return ErrNotStarted
	}
	return sendSignal(cmd.Process, sig)
}

// Close stops the worker process and releases the session. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	stdin := s.stdin
	s.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// Wait blocks until the worker process exits or the timeout lapses,
// reporting whether the process is gone.
func (s *Session) Wait(timeout time.Duration) bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ProcessRunning reports whether the worker OS process is still alive.
func (s *Session) ProcessRunning() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
