package stdiorpc

import (
	"os"
	"syscall"
)

// SignalKind selects how a worker process is asked to stop.
type SignalKind int

const (
	// SignalTerminate requests a graceful shutdown (SIGTERM).
	SignalTerminate SignalKind = iota
	// SignalKill forces the process down (SIGKILL).
	SignalKill
)

func sendSignal(proc *os.Process, sig SignalKind) error {
	switch sig {
	case SignalKill:
		return proc.Kill()
	default:
		return proc.Signal(syscall.SIGTERM)
	}
}
