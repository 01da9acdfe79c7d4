// Package provider defines the inference-provider boundary: submit a
// rendered prompt plus optional tool schemas, receive text, a stream of
// deltas, or parsed tool calls with a finish reason and usage.
//
// Grounded on internal/agent/provider_types.go's LLMProvider interface and
// CompletionRequest/CompletionChunk shapes, generalized to speak value.Value
// message content instead of a concrete wire format, and on
// internal/agent/providers/base.go's retry wrapper for transient failures.
// Concrete HTTP clients (Anthropic, OpenAI) are out of scope; only the
// interface, option types, and a deterministic in-memory provider used by
// tests live here.
package provider

import (
	"context"

	"github.com/haasonsaas/swarm/internal/value"
)

// FinishReason explains why a model call stopped producing output.
type FinishReason int

const (
	FinishUnspecified FinishReason = iota
	FinishCompleted
	FinishToolCall
	FinishLength
	FinishContentFilter
)

func (f FinishReason) String() string {
	switch f {
	case FinishCompleted:
		return "completed"
	case FinishToolCall:
		return "tool_call"
	case FinishLength:
		return "length"
	case FinishContentFilter:
		return "content_filter"
	default:
		return "unspecified"
	}
}

// ToolChoice constrains which (if any) tools the model may call.
type ToolChoice int

const (
	ToolChoiceAuto ToolChoice = iota
	ToolChoiceNone
	ToolChoiceRequired
)

// Options mirrors the request knobs exposed by anthropic-sdk-go and
// go-openai's chat-completion request types (temperature, top_p,
// stop_sequences, tool_choice, seed), kept provider-agnostic here.
type Options struct {
	Model          string
	Temperature    *float64
	TopP           *float64
	MaxTokens      int
	StopSequences  []string
	Seed           *int64
	ToolChoice     ToolChoice
	EnableThinking bool
	ThinkingBudget int
}

// Request is a single call to an InferenceProvider.
type Request struct {
	System   string
	Messages []value.MemoryMessage
	Tools    []value.ToolSchema
	Options  Options
}

// Response is a non-streamed model call's result.
type Response struct {
	Text      string
	ToolCalls []value.ToolCall
	Finish    FinishReason
	Usage     value.TokenUsage
}

// StreamDelta is one increment of a streaming model call.
type StreamDelta struct {
	TextDelta     string
	ThinkingDelta string
	ToolCall      *value.ToolCall // populated on the delta that completes a call
	Finish        FinishReason    // zero value (FinishUnspecified) until the final delta
	Usage         value.TokenUsage
	Err           error
}

// InferenceProvider is the boundary between an agent loop and a model
// backend. Implementations must be safe for concurrent use.
type InferenceProvider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (<-chan StreamDelta, error)
}
