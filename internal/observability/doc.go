// Package observability provides monitoring and debugging capabilities for
// agent runs through metrics, structured logging, and distributed tracing.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed tracing with OpenTelemetry
//
// It is the consumer side of the observation stream: agentloop and graph
// emit Event values describing each iteration, tool dispatch, and
// orchestration step; the bridge in this package turns those into spans,
// metric observations, and a replayable Timeline.
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Modeling-phase request latency and token usage
//   - Dispatching-phase tool execution performance
//   - Graph step duration, outcome, and interrupt counts
//   - Error rates by component and type
//   - Active run counts and run duration
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	// ... invoke the provider ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//
//	start = time.Now()
//	// ... dispatch a tool call ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx := observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddSessionID(ctx, runID)
//
//	logger.Info(ctx, "dispatching tool",
//	    "tool_name", "web_search",
//	    "run_id", runID,
//	)
//
//	logger.Error(ctx, "modeling request failed",
//	    "error", err,
//	    "provider", "anthropic",
//	    "api_key", apiKey, // Automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a run across components,
// with dedicated span helpers matching the run's own phase boundaries:
//   - TraceModeling wraps a single provider round trip
//   - TraceDispatching wraps one iteration's concurrent tool calls
//   - TraceGraphStep wraps a single orchestration step
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "swarm",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "production",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceModeling(ctx, runID, "triage", "anthropic", "claude-3-opus")
//	defer span.End()
//	tracer.SetAttributes(span, "prompt_tokens", 100, "completion_tokens", 500)
//
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "web_search")
//	defer toolSpan.End()
//	if err != nil {
//	    tracer.RecordError(toolSpan, err)
//	}
//
// # Context Propagation
//
// All three components integrate with Go's context for automatic correlation:
//
//	ctx = observability.AddRequestID(ctx, "req-123")
//	ctx = observability.AddSessionID(ctx, runID)
//	ctx = observability.AddRunID(ctx, runID)
//	ctx = observability.AddAgentID(ctx, "triage")
//
//	logger.Info(ctx, "starting run") // Includes request_id, session_id, etc.
//
//	ctx, span := tracer.Start(ctx, "operation")
//	// Trace context propagates to child spans
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, generic)
//   - Passwords and secrets
//   - JWT tokens
//   - Bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted:
//   - password, passwd, pwd
//   - secret, api_key, apikey
//   - token, auth, authorization
//   - private_key, privatekey
//
// # Testing
//
// All components provide testable interfaces:
//   - Metrics can be verified using prometheus/testutil
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with no-op exporters in tests
//
// # Monitoring Dashboard
//
// The metrics exposed can be used to build dashboards:
//
//	# Modeling latency (95th percentile)
//	histogram_quantile(0.95, rate(swarm_llm_request_duration_seconds_bucket[5m]))
//
//	# Error rate
//	rate(swarm_errors_total[5m])
//
//	# Active runs
//	swarm_active_runs
//
//	# Graph step throughput by kind
//	rate(swarm_graph_steps_total[5m])
//
//	# Tool execution time
//	rate(swarm_tool_execution_duration_seconds_sum[5m]) /
//	rate(swarm_tool_execution_duration_seconds_count[5m])
//
// # Further Reading
//
//   - Prometheus best practices: https://prometheus.io/docs/practices/naming/
//   - OpenTelemetry specification: https://opentelemetry.io/docs/specs/otel/
//   - slog documentation: https://pkg.go.dev/log/slog
package observability
