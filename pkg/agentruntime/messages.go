package agentruntime

import (
	"encoding/json"

	"github.com/classroomai/gateway/pkg/convo"
	"github.com/classroomai/gateway/pkg/model"
)

// toMessages renders a session (plus any synthetic summary preface) into
// the minimal role/content shape a ModelProvider consumes.
func toMessages(session *convo.Session) []model.Message {
	synthetic := convo.PrependSyntheticMessages(session)
	msgs := make([]model.Message, 0, len(synthetic)+len(session.Messages))

	for _, m := range synthetic {
		msgs = append(msgs, convoToModelMessage(m))
	}
	for _, m := range session.Messages {
		msgs = append(msgs, convoToModelMessage(m))
	}
	return msgs
}

func convoToModelMessage(m convo.Message) model.Message {
	switch m.Role {
	case convo.RoleUser:
		return model.Message{Role: "user", Content: m.Content}
	case convo.RoleAssistantText:
		return model.Message{Role: "assistant", Content: m.Content}
	case convo.RoleToolCall:
		return model.Message{Role: "assistant", Content: "called " + m.ToolName + "(" + renderJSON(m.Arguments) + ")"}
	case convo.RoleToolReturn:
		return model.Message{Role: "tool", Content: m.ToolName + " -> status=" + string(m.Status) + " " + renderJSON(m.Result)}
	default:
		return model.Message{}
	}
}

func renderJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
