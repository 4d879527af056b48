package toolinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("tool lookup", func(t *testing.T) {
		tool, ok := reg.Tool("code_search.analyze_code_complexity")
		require.True(t, ok)
		assert.Equal(t, "code_search", tool.Worker)
		assert.Equal(t, 15*time.Second, tool.TypicalDuration)
		assert.Equal(t, ComplexityHigh, tool.Complexity)

		_, ok = reg.Tool("code_search.no_such_tool")
		assert.False(t, ok)
	})

	t.Run("expected tools per kind", func(t *testing.T) {
		assert.Len(t, reg.ExpectedTools(AnalysisUltraFast), 2)
		assert.Len(t, reg.ExpectedTools(AnalysisComprehensive), 11)
		assert.Empty(t, reg.ExpectedTools(AnalysisKind("unknown")))
	})

	t.Run("base eta dominates short tool sums", func(t *testing.T) {
		// Ultra fast tools sum to 4s; the recorded base of 15s wins.
		assert.Equal(t, 15*time.Second, reg.Estimate(AnalysisUltraFast))
		assert.Equal(t, 120*time.Second, reg.Estimate(AnalysisComprehensive))
	})

	t.Run("worker tools", func(t *testing.T) {
		names := reg.WorkerTools("commit_history")
		assert.Len(t, names, 3)
		assert.Contains(t, names, "commit_history.get_development_patterns")
	})
}

func TestRegistry_EstimatePrefersToolSum(t *testing.T) {
	reg := NewRegistry(
		[]ToolMetadata{
			{Name: "w.slow_a", Worker: "w", TypicalDuration: 40 * time.Second},
			{Name: "w.slow_b", Worker: "w", TypicalDuration: 50 * time.Second},
		},
		map[AnalysisKind][]string{AnalysisSecurity: {"w.slow_a", "w.slow_b", "w.missing"}},
		map[AnalysisKind]time.Duration{AnalysisSecurity: 30 * time.Second},
	)

	// The summed durations exceed the base ETA; unknown tools add nothing.
	assert.Equal(t, 90*time.Second, reg.Estimate(AnalysisSecurity))
}
