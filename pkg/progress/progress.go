// Package progress tracks a multi-stage analysis run. Stages carry fixed
// relative weights summing to 100; overall progress is the weighted sum of
// stage progress and never decreases within a run.
//
// One writer (the pipeline driving the run) mutates the tracker; any number
// of readers poll Snapshot, which returns an atomic copy.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

// StageStatus tracks one stage through a run.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
)

// StageDef declares one stage of an analysis run.
type StageDef struct {
	// Name identifies the stage, e.g. "structure_analysis".
	Name string

	// Weight is the stage's relative share of overall progress. Weights
	// across all stages must sum to 100.
	Weight int

	// TotalTools is how many tool completions bring the stage to 100% when
	// progress is driven through CompleteTool. Zero disables tool-granular
	// updates for the stage.
	TotalTools int
}

// StageState is the live state of one stage.
type StageState struct {
	Name           string      `json:"name"`
	Weight         int         `json:"weight"`
	Progress       float64     `json:"progress"`
	Status         StageStatus `json:"status"`
	CompletedTools []string    `json:"completed_tools,omitempty"`
	TotalTools     int         `json:"total_tools,omitempty"`
	CurrentTool    string      `json:"current_tool,omitempty"`
	StartedAt      time.Time   `json:"started_at,omitempty"`
}

// Snapshot is an atomic copy of the tracker for display.
type Snapshot struct {
	RunID     string                `json:"run_id,omitempty"`
	Kind      toolinfo.AnalysisKind `json:"kind,omitempty"`
	Running   bool                  `json:"running"`
	Overall   float64               `json:"overall"`
	Stages    []StageState          `json:"stages"`
	StartedAt time.Time             `json:"started_at,omitempty"`
	Elapsed   time.Duration         `json:"elapsed,omitempty"`
	Remaining time.Duration         `json:"remaining,omitempty"`
}

// Tracker aggregates stage-weighted progress for one run at a time.
type Tracker struct {
	registry *toolinfo.Registry
	logger   zerolog.Logger
	defs     []StageDef

	mu        sync.RWMutex
	stages    []StageState
	runID     string
	kind      toolinfo.AnalysisKind
	startedAt time.Time
	running   bool
	floor     float64
	active    int
}

// NewTracker validates the stage definitions and builds an idle tracker.
func NewTracker(defs []StageDef, registry *toolinfo.Registry, logger zerolog.Logger) (*Tracker, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no stages defined")
	}
	sum := 0
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("stage with empty name")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate stage: %s", d.Name)
		}
		seen[d.Name] = true
		if d.Weight < 0 {
			return nil, fmt.Errorf("stage %s has negative weight", d.Name)
		}
		sum += d.Weight
	}
	if sum != 100 {
		return nil, fmt.Errorf("stage weights sum to %d, want 100", sum)
	}

	t := &Tracker{
		registry: registry,
		logger:   logger.With().Str("component", "progress").Logger(),
		defs:     defs,
		active:   -1,
	}
	t.resetLocked()
	return t, nil
}

func (t *Tracker) resetLocked() {
	t.stages = make([]StageState, len(t.defs))
	for i, d := range t.defs {
		t.stages[i] = StageState{
			Name:       d.Name,
			Weight:     d.Weight,
			Status:     StagePending,
			TotalTools: d.TotalTools,
		}
	}
	t.floor = 0
	t.active = -1
}

// StartRun resets every stage to zero and opens the first stage.
func (t *Tracker) StartRun(kind toolinfo.AnalysisKind) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked()
	t.runID = uuid.New().String()
	t.kind = kind
	t.startedAt = time.Now()
	t.running = true

	t.active = 0
	t.stages[0].Status = StageRunning
	t.stages[0].StartedAt = t.startedAt

	t.logger.Info().Str("run_id", t.runID).Str("kind", string(kind)).Msg("Analysis run started")
	return t.runID
}

func (t *Tracker) indexOf(stage string) int {
	for i := range t.stages {
		if t.stages[i].Name == stage {
			return i
		}
	}
	return -1
}

// StartStage finalizes the active stage at 100% and opens the named one.
func (t *Tracker) StartStage(stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(stage)
	if idx < 0 {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	if t.active >= 0 && t.active != idx {
		prev := &t.stages[t.active]
		prev.Progress = 100
		prev.Status = StageComplete
		prev.CurrentTool = ""
	}

	st := &t.stages[idx]
	st.Status = StageRunning
	st.StartedAt = time.Now()
	t.active = idx
	t.recomputeLocked()

	t.logger.Debug().Str("stage", stage).Msg("Stage opened")
	return nil
}

// UpdateStage sets a stage's progress directly, clamped to 0-100.
func (t *Tracker) UpdateStage(stage string, pct float64, currentTool string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(stage)
	if idx < 0 {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	st := &t.stages[idx]
	st.Progress = pct
	if st.Status == StagePending {
		// A stage reporting progress is running, whatever opened it.
		st.Status = StageRunning
		st.StartedAt = time.Now()
	}
	if currentTool != "" {
		st.CurrentTool = currentTool
	}
	if pct >= 100 {
		st.Status = StageComplete
		st.CurrentTool = ""
	}
	t.recomputeLocked()
	return nil
}

// CompleteTool records one finished tool for a stage; stage progress becomes
// completed/total x 100.
func (t *Tracker) CompleteTool(stage, tool string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(stage)
	if idx < 0 {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	st := &t.stages[idx]
	if st.TotalTools <= 0 {
		return fmt.Errorf("stage %s has no expected tool count", stage)
	}

	st.CompletedTools = append(st.CompletedTools, tool)
	st.Progress = float64(len(st.CompletedTools)) / float64(st.TotalTools) * 100
	if st.Status == StagePending {
		st.Status = StageRunning
		st.StartedAt = time.Now()
	}
	if st.Progress >= 100 {
		st.Progress = 100
		st.Status = StageComplete
		st.CurrentTool = ""
	}
	t.recomputeLocked()
	return nil
}

// recomputeLocked refreshes the monotonic overall floor.
func (t *Tracker) recomputeLocked() {
	var weighted, total float64
	for _, st := range t.stages {
		weighted += st.Progress / 100 * float64(st.Weight)
		total += float64(st.Weight)
	}
	if total == 0 {
		return
	}
	overall := weighted / total * 100
	if overall > t.floor {
		t.floor = overall
	}
}

// Overall returns weighted overall progress, 0-100, non-decreasing within a run.
func (t *Tracker) Overall() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.floor
}

// ETA estimates remaining time for the current run from the static registry:
// the summed typical durations of the kind's expected tools, minus elapsed,
// floored at zero. Before a run starts it returns the initial estimate for
// the given kind.
func (t *Tracker) ETA(kind toolinfo.AnalysisKind) time.Duration {
	estimate := time.Duration(0)
	if t.registry != nil {
		estimate = t.registry.Estimate(kind)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.running {
		return estimate
	}
	remaining := estimate - time.Since(t.startedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// CompleteRun finalizes every stage and returns the archived record.
func (t *Tracker) CompleteRun() RunRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.stages {
		if t.stages[i].Status == StageRunning {
			t.stages[i].Progress = 100
			t.stages[i].Status = StageComplete
			t.stages[i].CurrentTool = ""
		}
	}
	t.recomputeLocked()
	t.running = false
	t.active = -1

	rec := RunRecord{
		ID:          t.runID,
		Kind:        t.kind,
		StartedAt:   t.startedAt,
		CompletedAt: time.Now(),
		Overall:     t.floor,
		Stages:      append([]StageState(nil), t.stages...),
	}
	t.logger.Info().Str("run_id", t.runID).Float64("overall", t.floor).Msg("Analysis run completed")
	return rec
}

// Snapshot returns an atomic copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		RunID:     t.runID,
		Kind:      t.kind,
		Running:   t.running,
		Overall:   t.floor,
		Stages:    make([]StageState, len(t.stages)),
		StartedAt: t.startedAt,
	}
	for i, st := range t.stages {
		copied := st
		copied.CompletedTools = append([]string(nil), st.CompletedTools...)
		snap.Stages[i] = copied
	}
	if t.running {
		snap.Elapsed = time.Since(t.startedAt)
		if t.registry != nil {
			if remaining := t.registry.Estimate(t.kind) - snap.Elapsed; remaining > 0 {
				snap.Remaining = remaining
			}
		}
	}
	return snap
}

// FormatDuration renders a duration the way status displays expect: "45s",
// "2m 30s", "1h 5m".
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}
