package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAccumulate(t *testing.T) {
	m := New()

	m.ToolCallsTotal.WithLabelValues("file_content", "get_file_content", "ok").Inc()
	m.ToolCallsTotal.WithLabelValues("file_content", "get_file_content", "ok").Inc()
	m.ToolCallErrors.WithLabelValues("commit_history", "get_recent_commits", "timeout_error").Inc()
	m.WorkersRunning.Set(4)
	m.RateLimitRejections.WithLabelValues("commit_history").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.ToolCallsTotal.WithLabelValues("file_content", "get_file_content", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.ToolCallErrors.WithLabelValues("commit_history", "get_recent_commits", "timeout_error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.WorkersRunning))
}

func TestMetrics_PrivateRegistries(t *testing.T) {
	// Two instances never collide: each registers on its own registry.
	a := New()
	b := New()
	a.RunsTotal.WithLabelValues("smart_summary").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RunsTotal.WithLabelValues("smart_summary")))
}

func TestMetrics_HandlerServesExposition(t *testing.T) {
	m := New()
	m.ToolCallsTotal.WithLabelValues("file_content", "list_directory", "ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tool_calls_total")
}
