package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/classroomai/gateway/pkg/artifact"
	"github.com/classroomai/gateway/pkg/convo"
	"github.com/classroomai/gateway/pkg/model"
	"github.com/classroomai/gateway/pkg/observability"
	"github.com/classroomai/gateway/pkg/stream"
	"github.com/classroomai/gateway/pkg/tools"
	"github.com/classroomai/gateway/pkg/toolset"
)

// Runtime wires a model provider, the tool registry, and the conversation
// and artifact stores into one tool-calling loop per turn.
type Runtime struct {
	Provider      model.Provider
	Tools         *tools.Registry
	Conversations convo.Store
	Artifacts     artifact.Store
	Summarizer    *convo.Summarizer
	Tokens        convo.TokenCounter
	Budgets       Budgets
}

func NewRuntime(
	provider model.Provider,
	toolRegistry *tools.Registry,
	conversations convo.Store,
	artifacts artifact.Store,
	summarizer *convo.Summarizer,
	tokens convo.TokenCounter,
	budgets Budgets,
) *Runtime {
	return &Runtime{
		Provider:      provider,
		Tools:         toolRegistry,
		Conversations: conversations,
		Artifacts:     artifacts,
		Summarizer:    summarizer,
		Tokens:        tokens,
		Budgets:       budgets,
	}
}

// TurnInput is one incoming teacher message.
type TurnInput struct {
	ConversationID string
	TeacherID      string
	ClassID        string
	Message        string
}

// RunTurn loads the conversation, drains the model/tool loop through w via
// a stream.Adapter, then truncates, summarizes, and persists the session.
// It returns a non-nil error only for a turn-ending failure; the adapter
// itself has already written the matching finish event to w in every case:
// exactly one finish event is emitted regardless of which failure level
// ended the turn.
func (r *Runtime) RunTurn(ctx context.Context, in TurnInput, w stream.Writer) error {
	start := time.Now()
	turnCtx, cancel := context.WithTimeout(ctx, r.Budgets.MaxTurnDuration)
	defer cancel()

	session, err := r.Conversations.Load(turnCtx, in.ConversationID)
	if err != nil {
		loadErr := &RuntimeError{Level: FailureSystem, Action: "LoadSession", Err: err}
		failed := make(chan stream.InputEvent, 1)
		failed <- stream.InputEvent{Kind: stream.InputError, Err: loadErr}
		close(failed)
		_ = stream.NewAdapter(r.Budgets.HeartbeatInterval).Run(turnCtx, failed, w, in.ConversationID)
		return loadErr
	}
	if session.Empty() {
		session = convo.NewSession(in.ConversationID, in.TeacherID)
	}
	session.Messages = append(session.Messages, convo.Message{
		Role: convo.RoleUser, Content: in.Message, Timestamp: time.Now(),
	})

	events := make(chan stream.InputEvent, 16)
	adapter := stream.NewAdapter(r.Budgets.HeartbeatInterval)

	adapterDone := make(chan error, 1)
	go func() {
		adapterDone <- adapter.Run(turnCtx, events, w, in.ConversationID)
	}()

	loopErr := r.loop(turnCtx, in, session, events)
	close(events)

	if adaptErr := <-adapterDone; adaptErr != nil {
		slog.Error("agent turn: stream adapter failed", "conversation_id", in.ConversationID, "error", adaptErr)
		if loopErr == nil {
			loopErr = &RuntimeError{Level: FailureProtocol, Action: "StreamAdapter", Err: adaptErr}
		}
	}

	dropped := convo.Truncate(r.Tokens, session, convo.DefaultTruncateConfig(r.Budgets.MaxInputTokens))
	if r.Summarizer != nil && len(dropped) > 0 {
		if sumErr := r.Summarizer.Summarize(ctx, session, dropped); sumErr != nil {
			// A summarization failure must not cost the teacher their own
			// turn's response; the dropped prefix is simply left out of
			// session.Summary until the next successful pass.
			slog.Warn("agent turn: summarization failed, dropped prefix left unsummarized",
				"conversation_id", in.ConversationID, "error", sumErr)
		}
	}
	session.UpdatedAt = time.Now()
	if err := r.Conversations.Save(ctx, session); err != nil {
		return &RuntimeError{Level: FailureSystem, Action: "SaveSession", Err: err}
	}

	metrics := observability.GetGlobalMetrics()
	metrics.RecordAgentCall(ctx, time.Since(start), convo.CountMessages(r.Tokens, session.Messages), loopErr)
	metrics.RecordConversationTurn(ctx, r.Provider.Name(), len(session.Messages))

	return loopErr
}

// loop runs the select -> call model -> execute tools cycle until the
// model stops requesting tools, a budget is exceeded, or a failure level
// aborts the turn. It always emits exactly one InputStreamEnd or
// InputError+InputStreamEnd pair before returning, so the adapter's own
// terminality invariant is upheld regardless of how the loop exits.
func (r *Runtime) loop(ctx context.Context, in TurnInput, session *convo.Session, events chan<- stream.InputEvent) error {
	actx := AgentContext{
		TeacherID:      in.TeacherID,
		ConversationID: in.ConversationID,
		ClassID:        in.ClassID,
		HasArtifacts:   session.HasArtifacts(),
	}

	toolsetNames := toolset.Select(in.Message, toolset.Context{
		HasArtifacts: actx.HasArtifacts,
		ClassID:      actx.ClassID,
	})
	defs := r.Tools.GetTools(toolsetNames)
	schemas := make([]model.ToolSchema, 0, len(defs))
	for _, d := range defs {
		schemas = append(schemas, model.ToolSchema{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}

	toolCalls := 0
	deadline := time.Now().Add(r.Budgets.MaxTurnDuration)

	for {
		if ctx.Err() != nil {
			events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishTimeout}
			return &RuntimeError{Level: FailureBudget, Action: "MaxTurnDuration", Err: ctx.Err()}
		}
		if time.Now().After(deadline) {
			events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishTimeout}
			return &RuntimeError{Level: FailureBudget, Action: "MaxTurnDuration", Err: ErrBudgetExceeded}
		}

		modelMessages := toMessages(session)
		modelStream, err := r.Provider.RunStream(ctx, modelMessages, schemas, model.Settings{
			Temperature: 0.3,
			MaxTokens:   r.Budgets.MaxOutputTokens,
		})
		if err != nil {
			events <- stream.InputEvent{Kind: stream.InputError, Err: err}
			events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishError}
			return &RuntimeError{Level: FailureModel, Action: "RunStream", Err: err}
		}

		text, calls, drainErr := r.drainModelStream(modelStream, events)
		if drainErr != nil {
			events <- stream.InputEvent{Kind: stream.InputError, Err: drainErr}
			events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishError}
			return &RuntimeError{Level: FailureModel, Action: "ModelStream", Err: drainErr}
		}

		if text != "" {
			session.Messages = append(session.Messages, convo.Message{
				Role: convo.RoleAssistantText, Content: text, Timestamp: time.Now(),
			})
		}

		if len(calls) == 0 {
			events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishStop}
			return nil
		}

		for _, call := range calls {
			toolCalls++
			if toolCalls > r.Budgets.MaxToolCalls {
				events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishBudget}
				return &RuntimeError{Level: FailureBudget, Action: "MaxToolCalls", Err: ErrBudgetExceeded}
			}

			var args map[string]any
			if call.ArgsJSON != "" {
				_ = json.Unmarshal([]byte(call.ArgsJSON), &args)
			}
			session.Messages = append(session.Messages, convo.Message{
				Role: convo.RoleToolCall, ToolCallID: call.ID, ToolName: call.Name,
				Arguments: args, Timestamp: time.Now(),
			})

			result := r.executeTool(ctx, actx, call.ID, call.Name, args)

			events <- stream.InputEvent{Kind: stream.InputToolReturn, ToolCallID: call.ID, Output: result}

			resultMap, _ := toResultMap(result)
			session.Messages = append(session.Messages, convo.Message{
				Role: convo.RoleToolReturn, ToolCallID: call.ID, ToolName: call.Name,
				Result: resultMap, Status: convo.ToolReturnStatus(result.Status), Timestamp: time.Now(),
			})

			if result.Action == tools.ActionClarify {
				events <- stream.InputEvent{Kind: stream.InputStreamEnd, FinishReason: stream.FinishStop}
				return nil
			}
		}
		// Loop again with the tool results folded into history so the
		// model can either answer or request another tool call.
	}
}

// toolCall is the runtime's own accumulated view of one model tool call,
// decoupled from model.StreamEvent's field-per-event shape.
type toolCall struct {
	ID       string
	Name     string
	ArgsJSON string
}

// drainModelStream consumes one model.Provider call's event channel to
// completion, forwarding the subset the wire protocol carries (spec
// §4.3's mapping table has no counterpart for incremental tool-argument
// deltas, so those are accumulated silently and only surface at
// tool-call-end).
func (r *Runtime) drainModelStream(in <-chan model.StreamEvent, out chan<- stream.InputEvent) (text string, calls []toolCall, err error) {
	var b strings.Builder

	for ev := range in {
		switch ev.Kind {
		case model.EventTextStart:
			out <- stream.InputEvent{Kind: stream.InputTextStart, ID: ev.PartID}
		case model.EventTextDelta:
			b.WriteString(ev.Delta)
			out <- stream.InputEvent{Kind: stream.InputTextDelta, ID: ev.PartID, Delta: ev.Delta}
		case model.EventTextEnd:
			out <- stream.InputEvent{Kind: stream.InputTextEnd, ID: ev.PartID}
		case model.EventToolCallStart:
			out <- stream.InputEvent{Kind: stream.InputToolCallStart, ToolCallID: ev.ToolCallID, ToolName: ev.ToolName}
		case model.EventToolCallArgs:
			// No wire counterpart; the full argument JSON arrives on
			// EventToolCallEnd.
		case model.EventToolCallEnd:
			var input any
			if ev.ToolArgsJSON != "" {
				if jsonErr := json.Unmarshal([]byte(ev.ToolArgsJSON), &input); jsonErr != nil {
					input = map[string]any{}
				}
			}
			out <- stream.InputEvent{Kind: stream.InputToolCallEnd, ToolCallID: ev.ToolCallID, ToolName: ev.ToolName, Input: input}
			calls = append(calls, toolCall{ID: ev.ToolCallID, Name: ev.ToolName, ArgsJSON: ev.ToolArgsJSON})
		case model.EventProviderError:
			return b.String(), calls, ev.Err
		case model.EventStreamEnd:
			return b.String(), calls, nil
		}
	}
	return b.String(), calls, ErrModelStream
}

// executeTool runs one tool call under its own per-call timeout. A
// handler error or timeout is folded into an error ToolResult rather than
// aborting the turn: tool failures are recoverable, the model sees the
// failure and may retry, ask a clarifying question, or proceed without it,
// up to the MaxToolCalls budget enforced by the caller.
func (r *Runtime) executeTool(ctx context.Context, actx AgentContext, toolCallID, toolName string, args map[string]any) tools.ToolResult {
	toolCtx, cancel := context.WithTimeout(ctx, r.Budgets.PerToolTimeout)
	defer cancel()

	result, err := r.Tools.Execute(tools.Context{
		Context:        toolCtx,
		TeacherID:      actx.TeacherID,
		ConversationID: actx.ConversationID,
		Debug:          actx.Debug,
	}, toolName, args)

	if toolCtx.Err() != nil {
		return tools.ErrorResult(fmt.Sprintf("%s: %s", ErrToolTimeout, toolName))
	}
	if err != nil {
		if result.Status == tools.StatusError && result.Reason != "" {
			return result
		}
		return tools.ErrorResult(err.Error())
	}
	return result
}

func toResultMap(result tools.ToolResult) (map[string]any, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
