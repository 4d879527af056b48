package orchestrator

import (
	"sync"
	"time"
)

// ledger accumulates per-operation call statistics, keyed by the qualified
// "worker.operation" name.
type ledger struct {
	mu    sync.Mutex
	stats map[string]*OperationStats
}

func newLedger() *ledger {
	return &ledger{stats: make(map[string]*OperationStats)}
}

func (l *ledger) record(name string, duration time.Duration, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.stats[name]
	if !ok {
		st = &OperationStats{}
		l.stats[name] = st
	}

	st.TotalCalls++
	st.TotalDuration += duration
	st.AvgDuration = st.TotalDuration / time.Duration(st.TotalCalls)
	if success {
		st.SuccessCount++
	} else {
		st.ErrorCount++
	}
}

func (l *ledger) snapshot() map[string]OperationStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]OperationStats, len(l.stats))
	for name, st := range l.stats {
		out[name] = *st
	}
	return out
}
