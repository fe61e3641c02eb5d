// Package agentruntime implements the Native Agent Runtime: the
// tool-calling loop that turns one teacher message into an ordered stream
// of model and tool events under a fixed per-turn budget.
package agentruntime

import "time"

// Budgets bounds one turn so a misbehaving model or a long tool chain
// cannot run away.
type Budgets struct {
	MaxToolCalls      int
	MaxInputTokens    int
	MaxOutputTokens   int
	MaxTurnDuration   time.Duration
	PerToolTimeout    time.Duration
	HeartbeatInterval time.Duration
}

// DefaultBudgets returns the gateway's standard per-turn limits.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxToolCalls:      10,
		MaxInputTokens:    32000,
		MaxOutputTokens:   8000,
		MaxTurnDuration:   120 * time.Second,
		PerToolTimeout:    30 * time.Second,
		HeartbeatInterval: 15 * time.Second,
	}
}

// AgentContext is the per-turn state threaded through tool selection and
// execution.
type AgentContext struct {
	TeacherID      string
	ConversationID string
	ClassID        string
	HasArtifacts   bool
	Debug          bool
}
