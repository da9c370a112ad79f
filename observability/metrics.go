package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstructionMetrics records instruction dispatch activity segmented by
// instruction name and outcome.
type InstructionMetrics struct {
	executions *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// QueryMetrics records read-only fetcher activity for the query service.
type QueryMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	instructionMetricsOnce sync.Once
	instructionRegistry    *InstructionMetrics

	queryMetricsOnce sync.Once
	queryRegistry    *QueryMetrics
)

// Instructions returns the lazily-initialised instruction metrics registry.
func Instructions() *InstructionMetrics {
	instructionMetricsOnce.Do(func() {
		instructionRegistry = &InstructionMetrics{
			executions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "treasury",
				Subsystem: "program",
				Name:      "instructions_total",
				Help:      "Total instructions dispatched segmented by instruction and outcome.",
			}, []string{"instruction", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "treasury",
				Subsystem: "program",
				Name:      "instruction_errors_total",
				Help:      "Total instruction failures segmented by instruction and error kind.",
			}, []string{"instruction", "error"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "treasury",
				Subsystem: "program",
				Name:      "instruction_duration_seconds",
				Help:      "Latency distribution for instruction handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"instruction"}),
		}
		prometheus.MustRegister(
			instructionRegistry.executions,
			instructionRegistry.failures,
			instructionRegistry.latency,
		)
	})
	return instructionRegistry
}

// Observe records a single instruction execution.
func (m *InstructionMetrics) Observe(instruction string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	instruction = strings.TrimSpace(instruction)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.failures.WithLabelValues(instruction, errorLabel(err)).Inc()
	}
	m.executions.WithLabelValues(instruction, outcome).Inc()
	m.latency.WithLabelValues(instruction).Observe(duration.Seconds())
}

// Queries returns the lazily-initialised query metrics registry.
func Queries() *QueryMetrics {
	queryMetricsOnce.Do(func() {
		queryRegistry = &QueryMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "treasury",
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Total query requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "treasury",
				Subsystem: "query",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for query handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(queryRegistry.requests, queryRegistry.latency)
	})
	return queryRegistry
}

// Observe records a single query request.
func (m *QueryMetrics) Observe(route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

func errorLabel(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, ':'); idx > 0 {
		msg = msg[idx+1:]
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > 64 {
		msg = msg[:64]
	}
	return msg
}
