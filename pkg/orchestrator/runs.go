package orchestrator

import (
	"time"

	"github.com/KaifAhmad1/repo-analyzer/pkg/progress"
	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

// StartRun opens a new analysis run on the progress tracker.
func (o *Orchestrator) StartRun(kind toolinfo.AnalysisKind) string {
	if o.metrics != nil {
		o.metrics.RunsTotal.WithLabelValues(string(kind)).Inc()
	}
	return o.tracker.StartRun(kind)
}

// StartStage finalizes the active stage and opens the named one.
func (o *Orchestrator) StartStage(stage string) error {
	return o.tracker.StartStage(stage)
}

// UpdateStage sets a stage's progress directly.
func (o *Orchestrator) UpdateStage(stage string, pct float64, currentTool string) error {
	return o.tracker.UpdateStage(stage, pct, currentTool)
}

// CompleteTool records one finished tool for a stage.
func (o *Orchestrator) CompleteTool(stage, tool string) error {
	return o.tracker.CompleteTool(stage, tool)
}

// CompleteRun finalizes the run, archives it to history, and returns the
// record.
func (o *Orchestrator) CompleteRun() progress.RunRecord {
	rec := o.tracker.CompleteRun()

	if o.metrics != nil {
		o.metrics.RunDuration.WithLabelValues(string(rec.Kind)).Observe(rec.Duration().Seconds())
	}
	if o.history != nil {
		if err := o.history.Archive(rec); err != nil {
			o.logger.Error().Err(err).Str("run_id", rec.ID).Msg("Failed to archive run")
		}
	}
	return rec
}

// ETA estimates remaining time for an analysis kind.
func (o *Orchestrator) ETA(kind toolinfo.AnalysisKind) time.Duration {
	return o.tracker.ETA(kind)
}

// RecentRuns lists archived runs, newest first. Returns nil when history is
// disabled.
func (o *Orchestrator) RecentRuns(limit int) ([]progress.RunRecord, error) {
	if o.history == nil {
		return nil, nil
	}
	return o.history.Recent(limit)
}
