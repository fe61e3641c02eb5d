package stream

import (
	"context"
	"time"
)

// DefaultHeartbeatInterval is the adapter's default keep-alive cadence.
const DefaultHeartbeatInterval = 15 * time.Second

// Adapter maps a runtime's unified InputEvent sequence onto the wire
// protocol, owning the heartbeat timer and the finish-terminality
// invariant.
type Adapter struct {
	HeartbeatInterval time.Duration
}

func NewAdapter(heartbeatInterval time.Duration) *Adapter {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	return &Adapter{HeartbeatInterval: heartbeatInterval}
}

// Run drains in until it closes or ctx is cancelled, writing mapped
// WireEvents to w. It guarantees exactly one finish event followed by
// [DONE], regardless of how the input sequence ends: clean stream-end,
// an explicit provider-error, a channel close with no terminal event
// (protocol-level — L3), or context cancellation.
func (a *Adapter) Run(ctx context.Context, in <-chan InputEvent, w Writer, conversationID string) error {
	if err := w.WriteEvent(NewStartEvent(conversationID)); err != nil {
		return err
	}

	ticker := time.NewTicker(a.HeartbeatInterval)
	defer ticker.Stop()

	finish := func(reason string) error {
		if err := w.WriteEvent(NewFinishEvent(reason)); err != nil {
			return err
		}
		return w.WriteDone()
	}

	for {
		select {
		case <-ctx.Done():
			return finish(FinishTimeout)

		case <-ticker.C:
			if err := w.WriteComment("keep-alive"); err != nil {
				return err
			}

		case ev, ok := <-in:
			if !ok {
				// Protocol violation: the runtime must always emit an
				// explicit stream-end or provider-error before closing.
				return finish(FinishError)
			}
			ticker.Reset(a.HeartbeatInterval)

			switch ev.Kind {
			case InputTextStart:
				if err := w.WriteEvent(NewTextStartEvent(ev.ID)); err != nil {
					return err
				}
			case InputTextDelta:
				if err := w.WriteEvent(NewTextDeltaEvent(ev.ID, ev.Delta)); err != nil {
					return err
				}
			case InputTextEnd:
				if err := w.WriteEvent(NewTextEndEvent(ev.ID)); err != nil {
					return err
				}
			case InputToolCallStart:
				if err := w.WriteEvent(NewToolInputStartEvent(ev.ToolCallID, ev.ToolName)); err != nil {
					return err
				}
			case InputToolCallEnd:
				if err := w.WriteEvent(NewToolInputAvailableEvent(ev.ToolCallID, ev.ToolName, ev.Input)); err != nil {
					return err
				}
			case InputToolReturn:
				if err := w.WriteEvent(NewToolOutputAvailableEvent(ev.ToolCallID, ev.Output)); err != nil {
					return err
				}
			case InputError:
				errText := ""
				if ev.Err != nil {
					errText = ev.Err.Error()
				}
				if err := w.WriteEvent(NewErrorEvent(errText)); err != nil {
					return err
				}
				return finish(FinishError)
			case InputStreamEnd:
				reason := ev.FinishReason
				if reason == "" {
					reason = FinishStop
				}
				return finish(reason)
			}
		}
	}
}
