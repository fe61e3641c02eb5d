package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ChatOnlySequence(t *testing.T) {
	in := make(chan InputEvent, 8)
	in <- InputEvent{Kind: InputTextStart, ID: "t-1"}
	in <- InputEvent{Kind: InputTextDelta, ID: "t-1", Delta: "hi"}
	in <- InputEvent{Kind: InputTextEnd, ID: "t-1"}
	in <- InputEvent{Kind: InputStreamEnd, FinishReason: FinishStop}
	close(in)

	w := &BufferWriter{}
	a := NewAdapter(time.Minute)
	err := a.Run(context.Background(), in, w, "conv-1")
	require.NoError(t, err)

	require.True(t, w.Done)
	last := w.Events[len(w.Events)-1]
	assert.Equal(t, TypeFinish, last.Type)
	assert.Equal(t, FinishStop, last.FinishReason)
	assert.Equal(t, TypeStart, w.Events[0].Type)

	toolEvents := 0
	for _, e := range w.Events {
		if e.Type == TypeToolInputStart || e.Type == TypeToolInputAvailable || e.Type == TypeToolOutputAvailable {
			toolEvents++
		}
	}
	assert.Zero(t, toolEvents)
}

func TestAdapter_ErrorStillEmitsExactlyOneFinish(t *testing.T) {
	in := make(chan InputEvent, 2)
	in <- InputEvent{Kind: InputError, Err: assertErr{}}
	close(in)

	w := &BufferWriter{}
	a := NewAdapter(time.Minute)
	require.NoError(t, a.Run(context.Background(), in, w, "conv-1"))

	finishCount := 0
	for _, e := range w.Events {
		if e.Type == TypeFinish {
			finishCount++
		}
	}
	assert.Equal(t, 1, finishCount)
	assert.True(t, w.Done)
}

func TestAdapter_UnexpectedCloseStillTerminates(t *testing.T) {
	in := make(chan InputEvent)
	close(in)

	w := &BufferWriter{}
	a := NewAdapter(time.Minute)
	require.NoError(t, a.Run(context.Background(), in, w, "conv-1"))

	last := w.Events[len(w.Events)-1]
	assert.Equal(t, TypeFinish, last.Type)
	assert.Equal(t, FinishError, last.FinishReason)
}

func TestAdapter_OrderPreservedForToolSequence(t *testing.T) {
	in := make(chan InputEvent, 8)
	in <- InputEvent{Kind: InputToolCallStart, ToolCallID: "c-1", ToolName: "get_teacher_classes"}
	in <- InputEvent{Kind: InputToolCallEnd, ToolCallID: "c-1", ToolName: "get_teacher_classes", Input: map[string]any{}}
	in <- InputEvent{Kind: InputToolReturn, ToolCallID: "c-1", Output: map[string]any{"status": "ok"}}
	in <- InputEvent{Kind: InputStreamEnd, FinishReason: FinishStop}
	close(in)

	w := &BufferWriter{}
	a := NewAdapter(time.Minute)
	require.NoError(t, a.Run(context.Background(), in, w, "conv-1"))

	var types []string
	for _, e := range w.Events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{TypeStart, TypeToolInputStart, TypeToolInputAvailable, TypeToolOutputAvailable, TypeFinish}, types)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
