package datarecording

import (
	"time"

	"github.com/dinebot/dinesim/engine"
	"github.com/dinebot/dinesim/eventgen"
	"github.com/dinebot/dinesim/hooking"
)

const traceTableName = "event_trace"

type traceEntry struct {
	EventID   string
	Time      string
	Kind      string
	TableID   int
	GuestID   int
	PartySize int
	Priority  string
	Note      string
}

// A TraceRecorder writes every scheduled event the engine applies into the
// data recorder. Register it on the engine as a hook.
type TraceRecorder struct {
	recorder DataRecorder
}

// NewTraceRecorder creates a TraceRecorder and its backing table.
func NewTraceRecorder(recorder DataRecorder) *TraceRecorder {
	recorder.CreateTable(traceTableName, traceEntry{})

	return &TraceRecorder{recorder: recorder}
}

// Func records the applied event.
func (t *TraceRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != engine.HookPosEventApplied {
		return
	}

	evt, ok := ctx.Item.(eventgen.ScheduledEvent)
	if !ok {
		return
	}

	t.recorder.InsertData(traceTableName, traceEntry{
		EventID:   evt.ID,
		Time:      evt.Time.Format(time.RFC3339),
		Kind:      evt.Kind.String(),
		TableID:   evt.TableID,
		GuestID:   evt.GuestID,
		PartySize: evt.PartySize,
		Priority:  evt.Priority.String(),
		Note:      evt.Note,
	})
}
