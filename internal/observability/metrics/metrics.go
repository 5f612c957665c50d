package metrics

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics exposes counters/histograms for the turn-processing loop.
type TurnMetrics struct {
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	toolCallsTotal    *prometheus.CounterVec
	droppedUtterances prometheus.Counter
	llmTokensTotal    *prometheus.CounterVec
	llmCostDollars    prometheus.Counter
	breakerOpenTotal  prometheus.Counter
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "turns",
			Name:      "processed_total",
			Help:      "Total processed turns by outcome",
		}, []string{"outcome", "state"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voicedesk",
			Subsystem: "turns",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of one turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "turns",
			Name:      "tool_calls_total",
			Help:      "Total executed tool calls by tool and status",
		}, []string{"tool", "status"}),
		droppedUtterances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "turns",
			Name:      "dropped_utterances_total",
			Help:      "Utterances dropped by the reentrancy guard",
		}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total LLM tokens by direction",
		}, []string{"direction"}),
		llmCostDollars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "llm",
			Name:      "cost_dollars_total",
			Help:      "Accumulated LLM usage cost in dollars",
		}),
		breakerOpenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicedesk",
			Subsystem: "llm",
			Name:      "circuit_open_total",
			Help:      "Turns that hit an open LLM circuit breaker",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.turnDuration,
		m.toolCallsTotal,
		m.droppedUtterances,
		m.llmTokensTotal,
		m.llmCostDollars,
		m.breakerOpenTotal,
	)
	return m
}

func (m *TurnMetrics) ObserveTurn(outcome, state string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome, state).Inc()
	m.turnDuration.WithLabelValues(state).Observe(seconds)
}

func (m *TurnMetrics) ObserveToolCall(tool string, isError bool) {
	if m == nil {
		return
	}
	status := "ok"
	if isError {
		status = "error"
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *TurnMetrics) ObserveDroppedUtterance() {
	if m == nil {
		return
	}
	m.droppedUtterances.Inc()
}

func (m *TurnMetrics) ObserveTokens(input, output int32) {
	if m == nil {
		return
	}
	m.llmTokensTotal.WithLabelValues("input").Add(float64(input))
	m.llmTokensTotal.WithLabelValues("output").Add(float64(output))
}

func (m *TurnMetrics) ObserveCost(dollars float64) {
	if m == nil || dollars <= 0 {
		return
	}
	m.llmCostDollars.Add(dollars)
}

func (m *TurnMetrics) ObserveCircuitOpen() {
	if m == nil {
		return
	}
	m.breakerOpenTotal.Inc()
}
