package progress

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

func analysisStages() []StageDef {
	return []StageDef{
		{Name: "initialization", Weight: 5},
		{Name: "structure_discovery", Weight: 25, TotalTools: 2},
		{Name: "content_analysis", Weight: 30, TotalTools: 4},
		{Name: "history_analysis", Weight: 15, TotalTools: 3},
		{Name: "code_metrics", Weight: 15, TotalTools: 4},
		{Name: "synthesis", Weight: 5},
		{Name: "report", Weight: 5},
		{Name: "cleanup", Weight: 0},
	}
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(analysisStages(), toolinfo.DefaultRegistry(), zerolog.Nop())
	require.NoError(t, err)
	return tracker
}

func TestNewTracker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []StageDef
		wantErr string
	}{
		{"no stages", nil, "no stages defined"},
		{"weights off", []StageDef{{Name: "a", Weight: 60}, {Name: "b", Weight: 30}}, "sum to 90"},
		{"duplicate name", []StageDef{{Name: "a", Weight: 50}, {Name: "a", Weight: 50}}, "duplicate stage"},
		{"negative weight", []StageDef{{Name: "a", Weight: -5}, {Name: "b", Weight: 105}}, "negative weight"},
		{"empty name", []StageDef{{Name: "", Weight: 100}}, "empty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracker(tt.defs, nil, zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTracker_WeightedOverall(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)

	// First stage complete, everything else untouched: overall equals the
	// first stage's weight.
	require.NoError(t, tracker.UpdateStage("initialization", 100, ""))
	assert.InDelta(t, 5.0, tracker.Overall(), 0.001)

	require.NoError(t, tracker.UpdateStage("content_analysis", 50, "get_file_content"))
	assert.InDelta(t, 20.0, tracker.Overall(), 0.001)
}

func TestTracker_OverallNeverDecreases(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)

	require.NoError(t, tracker.UpdateStage("content_analysis", 80, ""))
	high := tracker.Overall()

	// A stage reporting lower numbers must not drag the overall back down.
	require.NoError(t, tracker.UpdateStage("content_analysis", 10, ""))
	assert.GreaterOrEqual(t, tracker.Overall(), high)
}

func TestTracker_UpdateStageClamps(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)

	require.NoError(t, tracker.UpdateStage("synthesis", 250, ""))
	snap := tracker.Snapshot()
	for _, st := range snap.Stages {
		if st.Name == "synthesis" {
			assert.Equal(t, 100.0, st.Progress)
			assert.Equal(t, StageComplete, st.Status)
		}
	}

	require.NoError(t, tracker.UpdateStage("report", -10, ""))
	assert.Error(t, tracker.UpdateStage("no_such_stage", 50, ""))
}

func TestTracker_ProgressPromotesPendingStage(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)

	// Direct updates and tool completions both mark the stage running even
	// when nobody called StartStage for it.
	require.NoError(t, tracker.UpdateStage("synthesis", 60, ""))
	require.NoError(t, tracker.CompleteTool("history_analysis", "get_recent_commits"))

	for _, st := range tracker.Snapshot().Stages {
		switch st.Name {
		case "synthesis":
			assert.Equal(t, StageRunning, st.Status)
			assert.False(t, st.StartedAt.IsZero())
		case "history_analysis":
			assert.Equal(t, StageRunning, st.Status)
		}
	}
}

func TestTracker_CompleteTool(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)
	require.NoError(t, tracker.StartStage("structure_discovery"))

	require.NoError(t, tracker.CompleteTool("structure_discovery", "get_repository_info"))
	snap := tracker.Snapshot()
	assert.InDelta(t, 50.0, snap.Stages[1].Progress, 0.001)

	require.NoError(t, tracker.CompleteTool("structure_discovery", "get_repository_structure"))
	snap = tracker.Snapshot()
	assert.Equal(t, 100.0, snap.Stages[1].Progress)
	assert.Equal(t, StageComplete, snap.Stages[1].Status)

	// Stages without a tool count reject tool-granular updates.
	assert.Error(t, tracker.CompleteTool("synthesis", "whatever"))
}

func TestTracker_StartStageFinalizesPrevious(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)

	require.NoError(t, tracker.UpdateStage("initialization", 40, ""))
	require.NoError(t, tracker.StartStage("structure_discovery"))

	snap := tracker.Snapshot()
	assert.Equal(t, StageComplete, snap.Stages[0].Status)
	assert.Equal(t, 100.0, snap.Stages[0].Progress)
	assert.Equal(t, StageRunning, snap.Stages[1].Status)
}

func TestTracker_StartRunResets(t *testing.T) {
	tracker := newTestTracker(t)

	first := tracker.StartRun(toolinfo.AnalysisSmartSummary)
	require.NoError(t, tracker.UpdateStage("content_analysis", 90, ""))
	tracker.CompleteRun()

	second := tracker.StartRun(toolinfo.AnalysisQuickOverview)
	assert.NotEqual(t, first, second)
	assert.Less(t, tracker.Overall(), 5.0)

	snap := tracker.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, toolinfo.AnalysisQuickOverview, snap.Kind)
	assert.Equal(t, StageRunning, snap.Stages[0].Status)
}

func TestTracker_CompleteRun(t *testing.T) {
	tracker := newTestTracker(t)
	id := tracker.StartRun(toolinfo.AnalysisSmartSummary)
	require.NoError(t, tracker.StartStage("content_analysis"))

	rec := tracker.CompleteRun()
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, toolinfo.AnalysisSmartSummary, rec.Kind)
	assert.False(t, rec.CompletedAt.Before(rec.StartedAt))
	for _, st := range rec.Stages {
		assert.NotEqual(t, StageRunning, st.Status)
	}
	assert.False(t, tracker.Snapshot().Running)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.StartRun(toolinfo.AnalysisSmartSummary)
	require.NoError(t, tracker.StartStage("structure_discovery"))
	require.NoError(t, tracker.CompleteTool("structure_discovery", "get_repository_info"))

	snap := tracker.Snapshot()
	snap.Stages[1].CompletedTools[0] = "mutated"
	snap.Stages[1].Progress = 0

	fresh := tracker.Snapshot()
	assert.Equal(t, "get_repository_info", fresh.Stages[1].CompletedTools[0])
	assert.InDelta(t, 50.0, fresh.Stages[1].Progress, 0.001)
}

func TestTracker_ETA(t *testing.T) {
	tracker := newTestTracker(t)

	// Idle tracker reports the initial estimate for the kind.
	idle := tracker.ETA(toolinfo.AnalysisQuickOverview)
	assert.Equal(t, toolinfo.DefaultRegistry().Estimate(toolinfo.AnalysisQuickOverview), idle)

	tracker.StartRun(toolinfo.AnalysisQuickOverview)
	running := tracker.ETA(toolinfo.AnalysisQuickOverview)
	assert.Greater(t, running, time.Duration(0))
	assert.LessOrEqual(t, running, idle)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{150 * time.Second, "2m 30s"},
		{3900 * time.Second, "1h 5m"},
		{0, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}
