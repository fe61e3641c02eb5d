// Package model defines the ModelProvider abstraction: given
// (messages, tool_schemas, settings) it yields an ordered event stream.
// The concrete vendor is deliberately out of the core's scope;
// this package owns only the interface, a deterministic mock used by the
// runtime's own tests, and one small reference HTTP-backed adapter.
package model

import (
	"context"

	"github.com/google/uuid"
)

// EventKind discriminates StreamEvent, using plain Go/JSON payloads, since the gateway's wire contract
// downstream (pkg/stream) is frozen JSON.
type EventKind string

const (
	EventTextStart     EventKind = "text-part-start"
	EventTextDelta      EventKind = "text-part-delta"
	EventTextEnd        EventKind = "text-part-end"
	EventToolCallStart EventKind = "tool-call-start"
	EventToolCallArgs   EventKind = "tool-call-arg-delta"
	EventToolCallEnd    EventKind = "tool-call-end"
	EventProviderError EventKind = "provider-error"
	EventStreamEnd      EventKind = "stream-end"
)

// StreamEvent is one element of the ordered event stream a ModelProvider
// yields. Only the fields relevant to Kind are populated.
type StreamEvent struct {
	Kind EventKind

	PartID string // text-part-* correlation id
	Delta  string // text-part-delta

	ToolCallID   string
	ToolName     string
	ToolArgsJSON string // accumulated by the time EventToolCallEnd fires

	Err error

	// InputTokens/OutputTokens are populated on EventStreamEnd.
	InputTokens  int
	OutputTokens int
}

// ToolSchema is the subset of a ToolDefinition a provider needs to offer
// function-calling: name, description, and a JSON Schema for arguments.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Settings carries per-call generation parameters.
type Settings struct {
	Temperature float64
	MaxTokens   int
}

// Message is the minimal role/content pair a provider consumes; the
// runtime translates convo.Message into this shape before each call.
type Message struct {
	Role    string // "user" | "assistant" | "tool"
	Content string
}

// Provider is the C4 contract.
type Provider interface {
	// RunStream issues one model call and returns an ordered, already
	// time-ordered channel of StreamEvent. The channel is closed after
	// EventStreamEnd or EventProviderError; RunStream never sends both.
	RunStream(ctx context.Context, messages []Message, tools []ToolSchema, settings Settings) (<-chan StreamEvent, error)

	// CountTokens gives the provider's own tokenizer, if it exposes one;
	// used as the model-aware tier of the 3-level token counter. Returns false if unsupported.
	CountTokens(text string) (int, bool)

	Name() string
}

// NewToolCallID mints a globally unique tool_call_id.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}
