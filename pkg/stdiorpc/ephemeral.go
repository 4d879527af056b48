package stdiorpc

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Ephemeral performs one call per process: spawn, send, await, stop. Costlier
// than a persistent Session but immune to cross-call state, suitable for
// low-volume callers.
type Ephemeral struct {
	cfg    SessionConfig
	logger zerolog.Logger
}

// NewEphemeral builds an ephemeral caller for one worker command.
func NewEphemeral(cfg SessionConfig, logger zerolog.Logger) *Ephemeral {
	cfg.MaxInFlight = 1
	return &Ephemeral{cfg: cfg, logger: logger}
}

// Call spawns a fresh worker process, performs a single round trip, and
// always stops the process before returning.
func (e *Ephemeral) Call(ctx context.Context, operation string, args map[string]interface{}) (json.RawMessage, error) {
	session := NewSession(e.cfg, e.logger)
	if err := session.Start(); err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	return session.Call(ctx, operation, args)
}
