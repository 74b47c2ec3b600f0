package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wassette/internal/mcpfacade"
)

// Metrics is the Prometheus instrumentation wired into the facade: every
// load, unload, and tool call updates one of these series. It implements
// mcpfacade.Recorder so the facade never needs to import a Prometheus
// client directly.
type Metrics struct {
	registry *prometheus.Registry

	componentsLoaded prometheus.Gauge
	loadsTotal       prometheus.Counter
	unloadsTotal     prometheus.Counter
	toolCallsTotal   *prometheus.CounterVec
	toolErrorsTotal  *prometheus.CounterVec
}

// NewMetrics builds a fresh registry and registers every Wassette series
// against it.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		componentsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wassette",
			Name:      "components_loaded",
			Help:      "Number of components currently loaded.",
		}),
		loadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wassette",
			Name:      "component_loads_total",
			Help:      "Total number of successful component loads.",
		}),
		unloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wassette",
			Name:      "component_unloads_total",
			Help:      "Total number of successful component unloads.",
		}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wassette",
			Name:      "tool_calls_total",
			Help:      "Total number of successful tool calls, by tool name.",
		}, []string{"tool"}),
		toolErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wassette",
			Name:      "tool_call_errors_total",
			Help:      "Total number of failed tool calls, by tool name and error kind.",
		}, []string{"tool", "kind"}),
	}

	registry.MustRegister(
		m.componentsLoaded,
		m.loadsTotal,
		m.unloadsTotal,
		m.toolCallsTotal,
		m.toolErrorsTotal,
	)
	return m
}

var _ mcpfacade.Recorder = (*Metrics)(nil)

// ComponentLoaded implements mcpfacade.Recorder.
func (m *Metrics) ComponentLoaded() {
	m.loadsTotal.Inc()
	m.componentsLoaded.Inc()
}

// ComponentUnloaded implements mcpfacade.Recorder.
func (m *Metrics) ComponentUnloaded() {
	m.unloadsTotal.Inc()
	m.componentsLoaded.Dec()
}

// ToolCallSucceeded implements mcpfacade.Recorder.
func (m *Metrics) ToolCallSucceeded(toolName string) {
	m.toolCallsTotal.WithLabelValues(toolName).Inc()
}

// ToolCallFailed implements mcpfacade.Recorder.
func (m *Metrics) ToolCallFailed(toolName, kind string) {
	m.toolErrorsTotal.WithLabelValues(toolName, kind).Inc()
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
