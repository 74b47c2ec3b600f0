package app

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsLoadsAndUnloads(t *testing.T) {
	m := NewMetrics()

	m.ComponentLoaded()
	m.ComponentLoaded()
	m.ComponentUnloaded()

	body := scrape(t, m)
	assert.Contains(t, body, "wassette_component_loads_total 2")
	assert.Contains(t, body, "wassette_component_unloads_total 1")
	assert.Contains(t, body, "wassette_components_loaded 1")
}

func TestMetricsRecordsToolCalls(t *testing.T) {
	m := NewMetrics()

	m.ToolCallSucceeded("calculator.add")
	m.ToolCallFailed("calculator.add", "InvalidArgument")

	body := scrape(t, m)
	assert.Contains(t, body, `wassette_tool_calls_total{tool="calculator.add"} 1`)
	assert.Contains(t, body, `wassette_tool_call_errors_total{kind="InvalidArgument",tool="calculator.add"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	return strings.TrimSpace(rec.Body.String())
}
