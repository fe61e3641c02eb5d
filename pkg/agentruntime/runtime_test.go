package agentruntime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/classroomai/gateway/pkg/artifact"
	"github.com/classroomai/gateway/pkg/convo"
	"github.com/classroomai/gateway/pkg/model"
	"github.com/classroomai/gateway/pkg/stream"
	"github.com/classroomai/gateway/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider plays back one model.StreamEvent sequence per call,
// advancing to the next script entry every RunStream invocation so tests
// can drive a multi-turn tool loop deterministically.
type scriptedProvider struct {
	scripts [][]model.StreamEvent
	calls   int
}

func (p *scriptedProvider) RunStream(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.Settings) (<-chan model.StreamEvent, error) {
	idx := p.calls
	if idx >= len(p.scripts) {
		idx = len(p.scripts) - 1
	}
	p.calls++

	ch := make(chan model.StreamEvent, len(p.scripts[idx]))
	for _, ev := range p.scripts[idx] {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) CountTokens(text string) (int, bool) { return len(text) / 4, true }
func (p *scriptedProvider) Name() string                        { return "scripted" }

func textThenToolCall(toolName, argsJSON, toolCallID string) []model.StreamEvent {
	return []model.StreamEvent{
		{Kind: model.EventTextStart, PartID: "p1"},
		{Kind: model.EventTextDelta, PartID: "p1", Delta: "Looking that up..."},
		{Kind: model.EventTextEnd, PartID: "p1"},
		{Kind: model.EventToolCallStart, ToolCallID: toolCallID, ToolName: toolName},
		{Kind: model.EventToolCallEnd, ToolCallID: toolCallID, ToolName: toolName, ToolArgsJSON: argsJSON},
		{Kind: model.EventStreamEnd},
	}
}

func finalAnswer(text string) []model.StreamEvent {
	return []model.StreamEvent{
		{Kind: model.EventTextStart, PartID: "p2"},
		{Kind: model.EventTextDelta, PartID: "p2", Delta: text},
		{Kind: model.EventTextEnd, PartID: "p2"},
		{Kind: model.EventStreamEnd},
	}
}

func newTestRegistry() *tools.Registry {
	r := tools.NewRegistry()
	r.MustRegister(tools.Definition{
		Name:        "get_class_detail",
		Description: "fetch a class",
		InputSchema: map[string]any{"type": "object"},
		OutputType:  tools.OutputRawMap,
		Toolset:     tools.BaseData,
		Handler: func(ctx tools.Context, args map[string]any) (tools.ToolResult, error) {
			return tools.ToolResult{Status: tools.StatusOK, Action: tools.ActionComplete, Data: map[string]any{"classId": args["classId"]}}, nil
		},
	})
	return r
}

func newTestRuntime(provider model.Provider, registry *tools.Registry) *Runtime {
	budgets := DefaultBudgets()
	budgets.MaxTurnDuration = 5 * time.Second
	budgets.PerToolTimeout = 2 * time.Second
	budgets.HeartbeatInterval = time.Hour // never fire during a short test

	return NewRuntime(
		provider,
		registry,
		convo.NewMemoryStore(),
		artifact.NewMemoryStore(),
		nil,
		convo.NewTokenCounter(nil),
		budgets,
	)
}

func TestRunTurn_ToolCallThenFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]model.StreamEvent{
		textThenToolCall("get_class_detail", `{"classId":"c1"}`, "call_1"),
		finalAnswer("Here is the class."),
	}}
	rt := newTestRuntime(provider, newTestRegistry())

	w := &stream.BufferWriter{}
	err := rt.RunTurn(context.Background(), TurnInput{
		ConversationID: "conv-1", TeacherID: "t-1", Message: "show me class c1",
	}, w)
	require.NoError(t, err)
	assert.True(t, w.Done)

	var sawToolOutput bool
	finishes := 0
	for _, ev := range w.Events {
		if ev.Type == stream.TypeToolOutputAvailable {
			sawToolOutput = true
		}
		if ev.Type == stream.TypeFinish {
			finishes++
			assert.Equal(t, stream.FinishStop, ev.FinishReason)
		}
	}
	assert.True(t, sawToolOutput, "expected a tool-output-available event")
	assert.Equal(t, 1, finishes, "expected exactly one finish event")

	session, err := rt.Conversations.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	require.False(t, session.Empty())
	assert.Equal(t, convo.RoleToolReturn, session.Messages[len(session.Messages)-2].Role)
	assert.Equal(t, convo.RoleAssistantText, session.Messages[len(session.Messages)-1].Role)
}

func TestRunTurn_NoToolCallAnswersDirectly(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]model.StreamEvent{
		finalAnswer("No tools needed."),
	}}
	rt := newTestRuntime(provider, newTestRegistry())

	w := &stream.BufferWriter{}
	err := rt.RunTurn(context.Background(), TurnInput{
		ConversationID: "conv-2", TeacherID: "t-1", Message: "hello",
	}, w)
	require.NoError(t, err)

	finishes := 0
	for _, ev := range w.Events {
		if ev.Type == stream.TypeFinish {
			finishes++
		}
	}
	assert.Equal(t, 1, finishes, "adapter must emit exactly one finish event")
}

func TestRunTurn_MaxToolCallsBudgetAborts(t *testing.T) {
	// Every call requests another tool call, so the budget must trip.
	scripts := make([][]model.StreamEvent, 0, 12)
	for i := 0; i < 12; i++ {
		scripts = append(scripts, textThenToolCall("get_class_detail", `{"classId":"c1"}`, "call_n"))
	}
	provider := &scriptedProvider{scripts: scripts}
	rt := newTestRuntime(provider, newTestRegistry())
	rt.Budgets.MaxToolCalls = 2

	w := &stream.BufferWriter{}
	err := rt.RunTurn(context.Background(), TurnInput{
		ConversationID: "conv-3", TeacherID: "t-1", Message: "loop forever",
	}, w)
	require.Error(t, err)

	var rtErr *RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, FailureBudget, rtErr.Level)

	var finishReason string
	for _, ev := range w.Events {
		if ev.Type == stream.TypeFinish {
			finishReason = ev.FinishReason
		}
	}
	assert.Equal(t, stream.FinishBudget, finishReason)
}

func TestRunTurn_ToolHandlerErrorIsRecoverable(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(tools.Definition{
		Name:        "broken_tool",
		Description: "always fails",
		InputSchema: map[string]any{"type": "object"},
		OutputType:  tools.OutputRawMap,
		Toolset:     tools.BaseData,
		Handler: func(ctx tools.Context, args map[string]any) (tools.ToolResult, error) {
			return tools.ErrorResult("upstream unavailable"), nil
		},
	})

	provider := &scriptedProvider{scripts: [][]model.StreamEvent{
		textThenToolCall("broken_tool", `{}`, "call_1"),
		finalAnswer("I couldn't fetch that, but here's what I know."),
	}}
	rt := newTestRuntime(provider, registry)

	w := &stream.BufferWriter{}
	err := rt.RunTurn(context.Background(), TurnInput{
		ConversationID: "conv-4", TeacherID: "t-1", Message: "try the broken tool",
	}, w)
	require.NoError(t, err)

	var gotOutput map[string]any
	for _, ev := range w.Events {
		if ev.Type == stream.TypeToolOutputAvailable {
			b, _ := json.Marshal(ev.Output)
			_ = json.Unmarshal(b, &gotOutput)
		}
	}
	require.NotNil(t, gotOutput)
	assert.Equal(t, "error", gotOutput["status"])
}

func TestRunTurn_ProviderErrorEndsturnAsModelFailure(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]model.StreamEvent{
		{
			{Kind: model.EventTextStart, PartID: "p1"},
			{Kind: model.EventProviderError, Err: assertErr{}},
		},
	}}
	rt := newTestRuntime(provider, newTestRegistry())

	w := &stream.BufferWriter{}
	err := rt.RunTurn(context.Background(), TurnInput{
		ConversationID: "conv-5", TeacherID: "t-1", Message: "hello",
	}, w)
	require.Error(t, err)

	var rtErr *RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, FailureModel, rtErr.Level)
}

type assertErr struct{}

func (assertErr) Error() string { return "provider exploded" }
