package progress

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	hist, err := OpenHistory(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })
	return hist
}

func sampleRecord(completedAt time.Time) RunRecord {
	return RunRecord{
		ID:          uuid.New().String(),
		Kind:        toolinfo.AnalysisSmartSummary,
		StartedAt:   completedAt.Add(-45 * time.Second),
		CompletedAt: completedAt,
		Overall:     100,
		Stages: []StageState{
			{Name: "initialization", Weight: 5, Progress: 100, Status: StageComplete},
			{Name: "content_analysis", Weight: 30, Progress: 100, Status: StageComplete,
				CompletedTools: []string{"get_readme_content", "list_directory"}, TotalTools: 2},
		},
	}
}

func TestHistory_ArchiveAndRecent(t *testing.T) {
	hist := openTestHistory(t)

	rec := sampleRecord(time.Now())
	require.NoError(t, hist.Archive(rec))

	records, err := hist.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, toolinfo.AnalysisSmartSummary, got.Kind)
	assert.Equal(t, rec.StartedAt.UnixMilli(), got.StartedAt.UnixMilli())
	assert.Equal(t, 100.0, got.Overall)
	require.Len(t, got.Stages, 2)
	assert.Equal(t, []string{"get_readme_content", "list_directory"}, got.Stages[1].CompletedTools)
	assert.Equal(t, 45*time.Second, got.Duration())
}

func TestHistory_RecentOrdersNewestFirst(t *testing.T) {
	hist := openTestHistory(t)

	base := time.Now()
	var ids []string
	for i := 0; i < 5; i++ {
		rec := sampleRecord(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, rec.ID)
		require.NoError(t, hist.Archive(rec))
	}

	records, err := hist.Recent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ids[4], records[0].ID)
	assert.Equal(t, ids[3], records[1].ID)
	assert.Equal(t, ids[2], records[2].ID)
}

func TestHistory_ArchiveReplacesById(t *testing.T) {
	hist := openTestHistory(t)

	rec := sampleRecord(time.Now())
	require.NoError(t, hist.Archive(rec))

	rec.Overall = 42
	require.NoError(t, hist.Archive(rec))

	records, err := hist.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 42.0, records[0].Overall)
}

func TestHistory_EmptyDatabase(t *testing.T) {
	hist := openTestHistory(t)

	records, err := hist.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistory_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	hist, err := OpenHistory(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, hist.Archive(sampleRecord(time.Now())))
	require.NoError(t, hist.Close())

	reopened, err := OpenHistory(path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.Recent(10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRunRecord_Duration(t *testing.T) {
	now := time.Now()
	rec := RunRecord{StartedAt: now.Add(-90 * time.Second), CompletedAt: now}
	assert.Equal(t, 90*time.Second, rec.Duration())
	assert.Equal(t, "1m 30s", FormatDuration(rec.Duration()))
}
