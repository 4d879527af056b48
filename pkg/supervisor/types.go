package supervisor

import "time"

// State tracks a worker through its lifecycle.
type State string

const (
	StateStopped   State = "stopped"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateUnhealthy State = "unhealthy"
	StateStopping  State = "stopping"
)

// Descriptor declares one worker: how to launch it and what it serves.
type Descriptor struct {
	// Name uniquely identifies the worker, e.g. "file_content".
	Name string

	// Command and Args launch the worker executable. The worker speaks the
	// line-delimited protocol on its stdin/stdout and needs no arguments
	// beyond these.
	Command string
	Args    []string

	// Operations are the remote operation names this worker exposes.
	Operations []string

	// QuotaBound marks workers backed by the quota-constrained upstream API;
	// calls to them route through the rate limiter.
	QuotaBound bool

	// MaxInFlight bounds concurrent calls on the worker's session.
	// Zero selects the channel default.
	MaxInFlight int
}

// WorkerStatus is a point-in-time view of one worker.
type WorkerStatus struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Pid       int       `json:"pid,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}
