package model

import (
	"context"
)

// Script is a scripted, deterministic sequence of events a MockProvider
// replays verbatim — used to satisfy testable property #7:
// "given identical inputs and a deterministic provider, two invocations
// yield byte-identical event sequences", and to drive the agent runtime's
// own tests without a live vendor dependency.
type Script []StreamEvent

// MockProvider is a deterministic Provider for tests: RunStream ignores
// its inputs and replays the configured Script, or — if ScriptFunc is set
// — calls it with the number of tool-role messages in the history it was
// given, so a test can script a budget-exhaustion loop.
type MockProvider struct {
	NameValue  string
	Script     Script
	ScriptFunc func(turnToolCallCount int) Script
}

func (m *MockProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *MockProvider) CountTokens(text string) (int, bool) {
	return len(text) / 4, true
}

func (m *MockProvider) RunStream(ctx context.Context, messages []Message, tools []ToolSchema, settings Settings) (<-chan StreamEvent, error) {
	script := m.Script
	if m.ScriptFunc != nil {
		toolCalls := 0
		for _, msg := range messages {
			if msg.Role == "tool" {
				toolCalls++
			}
		}
		script = m.ScriptFunc(toolCalls)
	}

	ch := make(chan StreamEvent, len(script))
	for _, ev := range script {
		select {
		case ch <- ev:
		case <-ctx.Done():
			close(ch)
			return ch, nil
		}
	}
	close(ch)
	return ch, nil
}
