package stream

// InputKind discriminates the unified event sequence the Native Agent
// Runtime feeds the adapter: native ModelProvider events plus the
// synthetic tool-return events the runtime injects once a handler
// completes, treated as one more provider-level event the adapter maps,
// even though it originates from the runtime's own tool loop rather than
// the vendor.
type InputKind string

const (
	InputTextStart     InputKind = "text-start"
	InputTextDelta     InputKind = "text-delta"
	InputTextEnd       InputKind = "text-end"
	InputToolCallStart InputKind = "tool-call-start"
	InputToolCallEnd   InputKind = "tool-call-end"
	InputToolReturn    InputKind = "tool-return"
	InputError         InputKind = "provider-error"
	InputStreamEnd     InputKind = "stream-end"
)

// InputEvent is one element of that unified sequence.
type InputEvent struct {
	Kind InputKind

	ID string // text-* correlation id

	Delta string

	ToolCallID string
	ToolName   string
	Input      any // tool-call-end: complete arguments
	Output     any // tool-return: result payload

	Err error

	FinishReason string // stream-end: "stop", "budget", "timeout", "error"
}
