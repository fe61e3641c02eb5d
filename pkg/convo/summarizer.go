package convo

import (
	"context"
	"fmt"
	"strings"
)

// defaultSummarizationPrompt is a fixed template with a single %s
// placeholder for the rendered conversation text.
const defaultSummarizationPrompt = `Summarize the following conversation between a teacher and an educational assistant. Preserve any decisions, generated artifacts, and open questions. Keep it under 1024 tokens.

Conversation:
%s

Summary:`

// SummarizeFunc calls a fast LLM tier with a prompt and returns its text
// completion. The agent runtime supplies this from its ModelProvider.
type SummarizeFunc func(ctx context.Context, prompt string) (string, error)

// Summarizer implements progressive summarization of dropped history.
type Summarizer struct {
	summarize SummarizeFunc
	prompt    string
	maxTokens int
	tc        TokenCounter
}

// NewSummarizer builds a Summarizer. prompt defaults to
// defaultSummarizationPrompt when empty; maxTokens defaults to 1024.
func NewSummarizer(fn SummarizeFunc, tc TokenCounter, prompt string, maxTokens int) *Summarizer {
	if prompt == "" {
		prompt = defaultSummarizationPrompt
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Summarizer{summarize: fn, prompt: prompt, maxTokens: maxTokens, tc: tc}
}

func renderConversationText(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			fmt.Fprintf(&b, "teacher: %s\n", m.Content)
		case RoleAssistantText:
			fmt.Fprintf(&b, "assistant: %s\n", m.Content)
		case RoleToolCall:
			fmt.Fprintf(&b, "assistant called tool %s\n", m.ToolName)
		case RoleToolReturn:
			fmt.Fprintf(&b, "tool %s returned status=%s\n", m.ToolName, m.Status)
		}
	}
	return b.String()
}

// Summarize compresses dropped into a capped summary and folds it into
// session.Summary, extending summarizedMessageCount. It is a no-op if
// dropped is empty.
func (s *Summarizer) Summarize(ctx context.Context, session *Session, dropped []Message) error {
	if len(dropped) == 0 {
		return nil
	}

	text := renderConversationText(dropped)
	prompt := fmt.Sprintf(s.prompt, text)

	summary, err := s.summarize(ctx, prompt)
	if err != nil {
		return fmt.Errorf("convo: summarize dropped prefix: %w", err)
	}

	for s.tc.Count(summary) > s.maxTokens && len(summary) > 0 {
		cut := len(summary) * 9 / 10
		summary = summary[:cut]
	}

	if session.Summary != "" {
		session.Summary = session.Summary + "\n" + summary
	} else {
		session.Summary = summary
	}
	session.SummarizedMessageCount += len(dropped)
	return nil
}

// PrependSyntheticMessages renders session.Summary (if any) as the two
// synthetic messages expected on next load: a user-role context
// note followed by an assistant-role acknowledgement, preserving role
// alternation.
func PrependSyntheticMessages(session *Session) []Message {
	if session.Summary == "" {
		return nil
	}
	note := fmt.Sprintf("[earlier conversation summary (%d turns)]: %s",
		session.SummarizedMessageCount, session.Summary)
	return []Message{
		{Role: RoleUser, Content: note},
		{Role: RoleAssistantText, Content: "Understood, continuing from that context."},
	}
}
