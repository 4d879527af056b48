package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/KaifAhmad1/repo-analyzer/pkg/progress"
	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
	"github.com/KaifAhmad1/repo-analyzer/pkg/ratelimit"
	"github.com/KaifAhmad1/repo-analyzer/pkg/supervisor"
)

// CallResult is the uniform outcome of one invocation. Exactly one of Result
// and Error is set.
type CallResult struct {
	Success  bool                `json:"success"`
	Result   json.RawMessage     `json:"result,omitempty"`
	Error    *protocol.WireError `json:"error,omitempty"`
	Duration time.Duration       `json:"duration"`
}

// OperationStats is the performance ledger entry for one operation.
type OperationStats struct {
	TotalCalls    int           `json:"total_calls"`
	SuccessCount  int           `json:"success_count"`
	ErrorCount    int           `json:"error_count"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// ErrorRate is the fraction of calls that failed, 0-1.
func (s OperationStats) ErrorRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.TotalCalls)
}

// StatusSnapshot merges every component's view for external display.
type StatusSnapshot struct {
	Workers    []supervisor.WorkerStatus      `json:"workers"`
	Progress   progress.Snapshot              `json:"progress"`
	RateLimits map[string]ratelimit.RateState `json:"rate_limits,omitempty"`
	Ledger     map[string]OperationStats      `json:"ledger,omitempty"`
}
