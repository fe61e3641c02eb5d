package convo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCharCounter() TokenCounter { return charHeuristicCounter{} }

func TestTruncate_BelowBudgetIsNoop(t *testing.T) {
	tc := makeCharCounter()
	session := &Session{
		ConversationID: "c-1",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistantText, Content: "hello"},
		},
	}
	dropped := Truncate(tc, session, DefaultTruncateConfig(10000))
	assert.Empty(t, dropped)
	assert.Len(t, session.Messages, 2)
}

func TestTruncate_DropsCompletePairs(t *testing.T) {
	tc := makeCharCounter()
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	session := &Session{
		ConversationID: "c-1",
		Messages: []Message{
			{Role: RoleUser, Content: string(long)},
			{Role: RoleAssistantText, Content: string(long)},
			{Role: RoleToolCall, ToolCallID: "t-1", ToolName: "get_teacher_classes", Arguments: map[string]any{}},
			{Role: RoleToolReturn, ToolCallID: "t-1", ToolName: "get_teacher_classes", Status: ToolReturnOK, Result: map[string]any{"a": "b"}},
			{Role: RoleUser, Content: "please generate a quiz"},
			{Role: RoleToolCall, ToolCallID: "t-2", ToolName: "generate_quiz_questions", Arguments: map[string]any{}},
			{Role: RoleToolReturn, ToolCallID: "t-2", ToolName: "generate_quiz_questions", Status: ToolReturnOK},
			{Role: RoleAssistantText, Content: "done"},
		},
	}

	dropped := Truncate(tc, session, TruncateConfig{HistoryTokenBudget: 100, TriggerRatio: 0.8, TargetRatio: 0.4})
	require.NotEmpty(t, dropped)

	// the protected generation pair must survive intact.
	foundCall, foundReturn := false, false
	for _, m := range session.Messages {
		if m.Role == RoleToolCall && m.ToolCallID == "t-2" {
			foundCall = true
		}
		if m.Role == RoleToolReturn && m.ToolCallID == "t-2" {
			foundReturn = true
		}
	}
	assert.True(t, foundCall)
	assert.True(t, foundReturn)

	// every surviving tool_call has its tool_return and vice versa.
	calls := map[string]bool{}
	returns := map[string]bool{}
	for _, m := range session.Messages {
		if m.Role == RoleToolCall {
			calls[m.ToolCallID] = true
		}
		if m.Role == RoleToolReturn {
			returns[m.ToolCallID] = true
		}
	}
	assert.Equal(t, calls, returns)
}

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	session := NewSession("c-1", "teacher-1")
	session.Messages = append(session.Messages, Message{Role: RoleUser, Content: "hi", Timestamp: time.Now()})

	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, session.ConversationID, loaded.ConversationID)
	assert.Equal(t, session.TeacherID, loaded.TeacherID)
	assert.Equal(t, session.Messages, loaded.Messages)
}

func TestMemoryStore_LoadUnknownReturnsEmptySentinel(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	loaded, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
}

func TestPrependSyntheticMessages_PreservesAlternation(t *testing.T) {
	session := &Session{Summary: "covered quiz generation", SummarizedMessageCount: 4}
	msgs := PrependSyntheticMessages(session)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistantText, msgs[1].Role)
}

func TestPrependSyntheticMessages_EmptyWhenNoSummary(t *testing.T) {
	session := &Session{}
	assert.Nil(t, PrependSyntheticMessages(session))
}
