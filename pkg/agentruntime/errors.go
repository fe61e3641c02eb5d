package agentruntime

import (
	"errors"
	"fmt"
)

// FailureLevel classifies why a turn ended early.
type FailureLevel string

const (
	// FailureTool: a single tool call failed or timed out. Recoverable —
	// reported back to the model as a tool_return with status "error"
	// rather than aborting the turn, unless the model keeps retrying past
	// MaxToolCalls.
	FailureTool FailureLevel = "tool"
	// FailureModel: the provider returned an error or violated its own
	// streaming contract (e.g. closed its event stream without a
	// stream-end or provider-error event).
	FailureModel FailureLevel = "model"
	// FailureProtocol: the unified event sequence itself broke down
	// (stream.Adapter's own invariant, surfaced back up here).
	FailureProtocol FailureLevel = "protocol"
	// FailureBudget: MaxToolCalls or MaxTurnDuration exceeded.
	FailureBudget FailureLevel = "budget"
	// FailureSystem: a collaborator outside the loop itself failed —
	// loading or saving the conversation.
	FailureSystem FailureLevel = "system"
)

var (
	ErrToolTimeout    = errors.New("agentruntime: tool call exceeded its per-call timeout")
	ErrModelStream    = errors.New("agentruntime: model closed its event stream without stream-end or provider-error")
	ErrBudgetExceeded = errors.New("agentruntime: turn budget exceeded")
)

// RuntimeError wraps a turn-ending failure with its taxonomy level,
// using the same component:action tagged error style as the rest of
// this codebase (see tools.RegistryError).
type RuntimeError struct {
	Level  FailureLevel
	Action string
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[AgentRuntime:%s] level=%s: %v", e.Action, e.Level, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
