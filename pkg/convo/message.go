// Package convo implements the conversation state store: durable,
// atomic tool-call/return pairing, bounded by token budget.
package convo

import "time"

// Role discriminates the four Message variants. Order in a session's
// Messages slice is significant.
type Role string

const (
	RoleUser          Role = "user"
	RoleAssistantText Role = "assistant_text"
	RoleToolCall      Role = "tool_call"
	RoleToolReturn    Role = "tool_return"
)

// ToolReturnStatus is the status carried by a tool_return message.
type ToolReturnStatus string

const (
	ToolReturnOK       ToolReturnStatus = "ok"
	ToolReturnNoResult ToolReturnStatus = "no_result"
	ToolReturnError    ToolReturnStatus = "error"
	ToolReturnDegraded ToolReturnStatus = "degraded"
	ToolReturnPartial  ToolReturnStatus = "partial"
)

// Message is a tagged union of four variants. Only the
// fields relevant to Role are populated; the zero value of the others is
// left unset rather than modeled as separate structs — one flat struct
// per wire concept, since the wire contract is JSON rather than a typed
// protocol.
type Message struct {
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// user, assistant_text
	Content string `json:"content,omitempty"`

	// tool_call, tool_return
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`

	// tool_call only
	Arguments map[string]any `json:"arguments,omitempty"`

	// tool_return only
	Result map[string]any  `json:"result,omitempty"`
	Status ToolReturnStatus `json:"status,omitempty"`
}

// IsGenerationClass reports whether a tool_call/tool_return message belongs
// to the generation toolset, used by the truncation algorithm to decide
// which trailing pair is protected.
func (m Message) IsGenerationClass() bool {
	switch m.ToolName {
	case "generate_quiz_questions", "propose_pptx_outline", "generate_pptx",
		"generate_docx", "render_pdf", "generate_interactive_html",
		"request_interactive_content":
		return true
	default:
		return false
	}
}

// Session is the durable per-conversation record.
type Session struct {
	ConversationID         string    `json:"conversationId"`
	TeacherID              string    `json:"teacherId"`
	Messages               []Message `json:"messages"`
	Summary                string    `json:"summary,omitempty"`
	SummarizedMessageCount int       `json:"summarizedMessageCount"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Empty reports whether the session has never been populated, i.e. it is
// the sentinel returned by Load for an unknown conversation_id.
func (s *Session) Empty() bool {
	return s == nil || (s.ConversationID == "" && len(s.Messages) == 0)
}

// NewSession constructs a freshly minted session for a conversation_id that
// was absent from the request.
func NewSession(conversationID, teacherID string) *Session {
	now := time.Now()
	return &Session{
		ConversationID: conversationID,
		TeacherID:      teacherID,
		Messages:       make([]Message, 0, 8),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasArtifacts reports whether any tool_call in the session invoked a
// generation-class or artifact_ops tool, used to seed AgentContext.has_artifacts.
func (s *Session) HasArtifacts() bool {
	for _, m := range s.Messages {
		if m.Role == RoleToolCall && (m.IsGenerationClass() || m.ToolName == "patch_artifact" || m.ToolName == "get_artifact") {
			return true
		}
	}
	return false
}
