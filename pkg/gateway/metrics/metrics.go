// Package metrics exposes Prometheus instrumentation for the voice gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bharath8080/voiced/pkg/core/live"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge

	TurnsTotal   *prometheus.CounterVec
	TurnDuration prometheus.Histogram

	ToolCallsTotal  *prometheus.CounterVec
	ReasoningRounds prometheus.Histogram

	AudioFramesTotal prometheus.Counter
	BargeInsTotal    prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on a
// fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voiced"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of connected voice sessions",
	})

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	turnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "End-to-end turn duration in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	toolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total tool invocations by tool and terminal status",
		},
		[]string{"tool", "status"},
	)

	reasoningRounds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reasoning_rounds",
		Help:      "Model rounds used per completed turn",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})

	audioFramesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_frames_out_total",
		Help:      "Total synthesized audio frames sent to clients",
	})

	bargeInsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "barge_ins_total",
		Help:      "Total turns interrupted by the caller speaking",
	})

	registry.MustRegister(
		sessionsActive,
		turnsTotal,
		turnDuration,
		toolCallsTotal,
		reasoningRounds,
		audioFramesTotal,
		bargeInsTotal,
	)

	return &Metrics{
		registry:         registry,
		SessionsActive:   sessionsActive,
		TurnsTotal:       turnsTotal,
		TurnDuration:     turnDuration,
		ToolCallsTotal:   toolCallsTotal,
		ReasoningRounds:  reasoningRounds,
		AudioFramesTotal: audioFramesTotal,
		BargeInsTotal:    bargeInsTotal,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionOpened records a client connecting.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

// SessionClosed records a client disconnecting.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

// ObserveEvent updates counters from a pipeline event. Unrecognized
// events are ignored.
func (m *Metrics) ObserveEvent(ev live.Event) {
	if m == nil {
		return
	}
	switch e := ev.(type) {
	case *live.TurnCompletedEvent:
		m.TurnsTotal.WithLabelValues("completed").Inc()
		m.TurnDuration.Observe(float64(e.DurationMs) / 1000)
		m.ReasoningRounds.Observe(float64(e.Rounds))
	case *live.TurnCancelledEvent:
		m.TurnsTotal.WithLabelValues("cancelled").Inc()
	case *live.TurnFailedEvent:
		m.TurnsTotal.WithLabelValues("failed").Inc()
	case *live.ToolCallFinishedEvent:
		m.ToolCallsTotal.WithLabelValues(e.Call.Name, string(e.Call.Status)).Inc()
	case *live.BargeInEvent:
		m.BargeInsTotal.Inc()
	}
}

// ObserveFrame records one synthesized audio frame leaving the server.
func (m *Metrics) ObserveFrame() {
	if m != nil {
		m.AudioFramesTotal.Inc()
	}
}
