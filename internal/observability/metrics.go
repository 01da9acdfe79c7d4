package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting Prometheus metrics
// about an agent run: model latency and token spend, tool execution outcomes,
// graph step traversal, and error rates.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	defer metrics.LLMRequestDuration("anthropic", "claude-3-opus").Observe(time.Since(start).Seconds())
type Metrics struct {
	// LLMRequestDuration measures Modeling-phase latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts Modeling-phase calls by provider, model, status.
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption by provider, model, type (prompt|completion).
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts Dispatching-phase tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and error type.
	ErrorCounter *prometheus.CounterVec

	// ActiveRuns is a gauge tracking currently-executing agent/graph runs.
	ActiveRuns *prometheus.GaugeVec

	// RunDuration measures a run's wall-clock lifetime in seconds.
	// Labels: engine (agentloop|graph)
	RunDuration *prometheus.HistogramVec

	// LLMCostUSD tracks estimated LLM API cost in USD.
	LLMCostUSD *prometheus.CounterVec

	// ContextWindowUsed tracks context window utilization in tokens.
	ContextWindowUsed *prometheus.HistogramVec

	// RunAttempts counts run attempts by status (success|retry|failed).
	RunAttempts *prometheus.CounterVec

	// GraphStepDuration measures a single orchestration step's latency.
	// Labels: kind (one of graph.Kind's String() values), outcome (completed|interrupted|error)
	GraphStepDuration *prometheus.HistogramVec

	// GraphStepCounter counts orchestration step executions.
	GraphStepCounter *prometheus.CounterVec

	// GraphInterrupts counts workflow pauses by reason (human_approval|interrupt).
	GraphInterrupts *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. Call once at
// process startup; a second call panics on duplicate registration with the
// default registry, consistent with promauto's own contract.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		ActiveRuns: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swarm_active_runs",
				Help: "Current number of in-flight runs by engine",
			},
			[]string{"engine"},
		),

		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_run_duration_seconds",
				Help:    "Duration of a run in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"engine"},
		),

		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD",
			},
			[]string{"provider", "model"},
		),

		ContextWindowUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_context_window_tokens",
				Help:    "Context window tokens used",
				Buckets: []float64{1000, 4000, 8000, 16000, 32000, 64000, 128000},
			},
			[]string{"provider", "model"},
		),

		RunAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_run_attempts_total",
				Help: "Total number of run attempts by status",
			},
			[]string{"status"},
		),

		GraphStepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_graph_step_duration_seconds",
				Help:    "Duration of a single orchestration step",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"kind", "outcome"},
		),

		GraphStepCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_graph_steps_total",
				Help: "Total number of orchestration steps executed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		GraphInterrupts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_graph_interrupts_total",
				Help: "Total number of workflow pauses by reason",
			},
			[]string{"reason"},
		),
	}
}

// RecordLLMRequest records metrics for a Modeling-phase LLM request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records metrics for a Dispatching-phase tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RunStarted increments the active-runs gauge for the given engine.
func (m *Metrics) RunStarted(engine string) {
	m.ActiveRuns.WithLabelValues(engine).Inc()
}

// RunEnded decrements the active-runs gauge and records the run's duration.
func (m *Metrics) RunEnded(engine string, durationSeconds float64) {
	m.ActiveRuns.WithLabelValues(engine).Dec()
	m.RunDuration.WithLabelValues(engine).Observe(durationSeconds)
}

// RecordLLMCost records estimated API cost.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordContextWindow records context window utilization.
func (m *Metrics) RecordContextWindow(provider, model string, tokensUsed int) {
	m.ContextWindowUsed.WithLabelValues(provider, model).Observe(float64(tokensUsed))
}

// RecordRunAttempt records a run attempt.
func (m *Metrics) RecordRunAttempt(status string) {
	m.RunAttempts.WithLabelValues(status).Inc()
}

// RecordGraphStep records one orchestration step's outcome and latency.
func (m *Metrics) RecordGraphStep(kind, outcome string, durationSeconds float64) {
	m.GraphStepCounter.WithLabelValues(kind, outcome).Inc()
	m.GraphStepDuration.WithLabelValues(kind, outcome).Observe(durationSeconds)
}

// RecordGraphInterrupt records a workflow pause.
func (m *Metrics) RecordGraphInterrupt(reason string) {
	m.GraphInterrupts.WithLabelValues(reason).Inc()
}
