// Package tools implements the Tool Registry: the single source of
// truth for every tool exposed to the LLM, bucketed into the five fixed
// toolsets with a permissive selection policy (see pkg/toolset for the
// selector itself).
package tools

import "context"

// Toolset names, mirrored from pkg/toolset to avoid an import cycle
// (pkg/toolset stays a leaf package with zero dependencies).
const (
	BaseData    = "base_data"
	Analysis    = "analysis"
	Generation  = "generation"
	ArtifactOps = "artifact_ops"
	Platform    = "platform"
)

// OutputType names the return-type contract a tool's handler honors.
type OutputType string

const (
	OutputRawMap      OutputType = "raw-data-map"
	OutputToolResult  OutputType = "tool-result"
	OutputClarifyEvent OutputType = "clarify-event"
)

// Context is what every handler receives alongside its arguments: the
// caller's identity, conversation, and debug flag.
type Context struct {
	context.Context

	TeacherID      string
	ConversationID string
	Debug          bool // mock synthesis is permitted only in debug builds
}

// Handler executes one tool call. It must never panic across the
// registry boundary; Registry.Execute recovers panics and
// converts them to a tool-level failure, but handlers should prefer
// returning a result with Status "error".
type Handler func(ctx Context, args map[string]any) (ToolResult, error)

// ToolReturnStatus values.
type ToolReturnStatus string

const (
	StatusOK       ToolReturnStatus = "ok"
	StatusNoResult ToolReturnStatus = "no_result"
	StatusError    ToolReturnStatus = "error"
	StatusDegraded ToolReturnStatus = "degraded"
	StatusPartial  ToolReturnStatus = "partial"
)

// Action values.
type Action string

const (
	ActionComplete Action = "complete"
	ActionClarify  Action = "clarify"
	ActionPartial  Action = "partial"
)

// ToolResult is the envelope generation/write/RAG/clarify tools return.
type ToolResult struct {
	Data          any              `json:"data,omitempty"`
	Status        ToolReturnStatus `json:"status"`
	ArtifactType  string           `json:"artifactType,omitempty"`
	ContentFormat string           `json:"contentFormat,omitempty"`
	Action        Action           `json:"action,omitempty"`
	Reason        string           `json:"reason,omitempty"`

	// Options is populated only for Action == ActionClarify: a
	// structured question plus choices, never inferred from free text
	//.
	ClarifyQuestion string   `json:"clarifyQuestion,omitempty"`
	ClarifyOptions  []string `json:"clarifyOptions,omitempty"`
}

// ErrorResult builds the uniform error envelope used whenever a handler
// wants to fail without panicking.
func ErrorResult(reason string) ToolResult {
	return ToolResult{Status: StatusError, Reason: reason}
}

// Definition is one registry entry. Each catalogue tool declares its
// InputSchema as a literal map rather than having it generated via
// reflection, since our handlers take a plain map[string]any; no package
// of this module generates schemas by reflection.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	OutputType  OutputType
	Toolset     string
	Handler     Handler
}
