// Package stream implements the Stream Adapter: translates
// ModelProvider events into the frozen SSE wire protocol, enforcing
// heartbeats and finish-event terminality.
package stream

// WireEvent is the JSON shape of one SSE data frame. Only the fields
// relevant to Type are populated; omitempty keeps the wire payload
// minimal, matching the frozen wire contract.
type WireEvent struct {
	Type string `json:"type"`

	ID string `json:"id,omitempty"` // text-start / text-delta / text-end

	Delta string `json:"delta,omitempty"`

	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Input      any    `json:"input,omitempty"`
	Output     any    `json:"output,omitempty"`

	ConversationID string `json:"conversationId,omitempty"` // start event only

	ErrorText string `json:"errorText,omitempty"`

	FinishReason string `json:"finishReason,omitempty"`
}

const (
	TypeStart               = "start"
	TypeTextStart           = "text-start"
	TypeTextDelta           = "text-delta"
	TypeTextEnd             = "text-end"
	TypeToolInputStart      = "tool-input-start"
	TypeToolInputAvailable  = "tool-input-available"
	TypeToolOutputAvailable = "tool-output-available"
	TypeError               = "error"
	TypeFinish              = "finish"
)

// FinishReason values.
const (
	FinishStop    = "stop"
	FinishError   = "error"
	FinishBudget  = "budget"
	FinishTimeout = "timeout"
)

func NewStartEvent(conversationID string) WireEvent {
	return WireEvent{Type: TypeStart, ConversationID: conversationID}
}

func NewTextStartEvent(id string) WireEvent { return WireEvent{Type: TypeTextStart, ID: id} }

func NewTextDeltaEvent(id, delta string) WireEvent {
	return WireEvent{Type: TypeTextDelta, ID: id, Delta: delta}
}

func NewTextEndEvent(id string) WireEvent { return WireEvent{Type: TypeTextEnd, ID: id} }

func NewToolInputStartEvent(toolCallID, toolName string) WireEvent {
	return WireEvent{Type: TypeToolInputStart, ToolCallID: toolCallID, ToolName: toolName}
}

func NewToolInputAvailableEvent(toolCallID, toolName string, input any) WireEvent {
	return WireEvent{Type: TypeToolInputAvailable, ToolCallID: toolCallID, ToolName: toolName, Input: input}
}

func NewToolOutputAvailableEvent(toolCallID string, output any) WireEvent {
	return WireEvent{Type: TypeToolOutputAvailable, ToolCallID: toolCallID, Output: output}
}

func NewErrorEvent(errorText string) WireEvent {
	return WireEvent{Type: TypeError, ErrorText: errorText}
}

func NewFinishEvent(reason string) WireEvent {
	return WireEvent{Type: TypeFinish, FinishReason: reason}
}
