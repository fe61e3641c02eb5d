package convo

// TruncateConfig carries the trigger/target ratios and token budget for one
// truncation pass.
type TruncateConfig struct {
	HistoryTokenBudget int
	TriggerRatio       float64 // default 0.80 — informational threshold a caller may poll
	TargetRatio        float64 // default 0.40 — the tail is shrunk to this fraction of budget
}

// DefaultTruncateConfig returns the gateway's documented defaults.
func DefaultTruncateConfig(budget int) TruncateConfig {
	return TruncateConfig{
		HistoryTokenBudget: budget,
		TriggerRatio:       0.80,
		TargetRatio:        0.40,
	}
}

// unit is one or two messages that must survive or be dropped together:
// a lone user/assistant_text message, or a tool_call+tool_return pair.
type unit struct {
	messages []Message
	tokens   int
	isGen    bool
}

func groupUnits(tc TokenCounter, messages []Message) []unit {
	units := make([]unit, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		m := messages[i]
		if m.Role == RoleToolCall && i+1 < len(messages) &&
			messages[i+1].Role == RoleToolReturn && messages[i+1].ToolCallID == m.ToolCallID {
			pair := messages[i : i+2]
			units = append(units, unit{
				messages: pair,
				tokens:   CountMessages(tc, pair),
				isGen:    m.IsGenerationClass(),
			})
			i++
			continue
		}
		single := messages[i : i+1]
		units = append(units, unit{
			messages: single,
			tokens:   CountMessages(tc, single),
		})
	}
	return units
}

// Truncate applies the history truncation algorithm in place on
// session.Messages and returns the dropped-prefix messages (empty if no
// truncation was necessary) for the caller to hand to a Summarizer.
func Truncate(tc TokenCounter, session *Session, cfg TruncateConfig) []Message {
	total := CountMessages(tc, session.Messages)
	if total <= cfg.HistoryTokenBudget {
		return nil
	}

	units := groupUnits(tc, session.Messages)

	protectedIdx := -1
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].isGen {
			protectedIdx = i
			break
		}
	}

	targetTokens := int(float64(cfg.HistoryTokenBudget) * cfg.TargetRatio)
	remaining := total
	dropped := make([]bool, len(units))

	for i := 0; i < len(units) && remaining > targetTokens; i++ {
		if i == protectedIdx {
			continue
		}
		dropped[i] = true
		remaining -= units[i].tokens
	}

	var droppedMessages, keptMessages []Message
	for i, u := range units {
		if dropped[i] {
			droppedMessages = append(droppedMessages, u.messages...)
		} else {
			keptMessages = append(keptMessages, u.messages...)
		}
	}

	session.Messages = keptMessages
	return droppedMessages
}
