package provider

import (
	"context"

	"github.com/haasonsaas/swarm/internal/value"
)

// StubProvider is a deterministic InferenceProvider used by tests and by
// callers exercising the agent loop without a live model backend. Responses
// are supplied up front and returned in order, one per call.
type StubProvider struct {
	ProviderName string
	Responses    []Response
	calls        int
}

func NewStubProvider(responses ...Response) *StubProvider {
	return &StubProvider{ProviderName: "stub", Responses: responses}
}

func (s *StubProvider) Name() string {
	if s.ProviderName == "" {
		return "stub"
	}
	return s.ProviderName
}

func (s *StubProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if s.calls >= len(s.Responses) {
		return Response{Text: "", Finish: FinishCompleted}, nil
	}
	resp := s.Responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *StubProvider) Stream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	resp, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamDelta, 2)
	go func() {
		defer close(ch)
		if resp.Text != "" {
			ch <- StreamDelta{TextDelta: resp.Text}
		}
		for _, tc := range resp.ToolCalls {
			call := tc
			ch <- StreamDelta{ToolCall: &call}
		}
		ch <- StreamDelta{Finish: resp.Finish, Usage: resp.Usage}
	}()
	return ch, nil
}

// CallCount returns how many Generate calls have been served.
func (s *StubProvider) CallCount() int { return s.calls }

// TextResponse is a convenience constructor for a plain completed response.
func TextResponse(text string) Response {
	return Response{Text: text, Finish: FinishCompleted}
}

// ToolCallResponse is a convenience constructor for a tool-call response.
func ToolCallResponse(calls ...value.ToolCall) Response {
	return Response{ToolCalls: calls, Finish: FinishToolCall}
}
