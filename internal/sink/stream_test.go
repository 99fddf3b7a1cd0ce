package sink

import (
	"strings"
	"testing"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/sinkfactory"
)

// recordingSink accepts everything and records every event in arrival
// order, so tests can assert on dispatch and backlog-replay ordering.
type recordingSink struct {
	events []logging.Event
}

func (r *recordingSink) Consume(e logging.Event) bool {
	r.events = append(r.events, e)
	return true
}

var _ sinkfactory.Sink = (*recordingSink)(nil)

// refuseThenAcceptSink refuses the first N Consume calls, then accepts.
type refuseThenAcceptSink struct {
	refuseCount int
	events      []logging.Event
}

func (r *refuseThenAcceptSink) Consume(e logging.Event) bool {
	if r.refuseCount > 0 {
		r.refuseCount--
		return false
	}
	r.events = append(r.events, e)
	return true
}

func TestStreamBeginFirstMessageFinishLast(t *testing.T) {
	sink := &recordingSink{}
	s := NewStream(1, sink, "test", nil)

	input := strings.Join([]string{
		`{"kind":"begin","offset":0}`,
		`{"kind":"message","offset":1,"format":"hello","severity":"info","source":"a"}`,
		`{"kind":"finish","offset":2,"clean":true}`,
	}, "")

	if err := s.Run(strings.NewReader(input), 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.events) != 3 {
		t.Fatalf("got %d events, want 3", len(sink.events))
	}
	if sink.events[0].Kind != logging.EventBegin {
		t.Fatalf("first event kind = %v, want begin", sink.events[0].Kind)
	}
	if sink.events[len(sink.events)-1].Kind != logging.EventFinish {
		t.Fatalf("last event kind = %v, want finish", sink.events[len(sink.events)-1].Kind)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if s.BacklogLen() != 0 {
		t.Fatalf("backlog not cleared after finish: len = %d", s.BacklogLen())
	}
}

func TestStreamLatchesRootFromFirstMessage(t *testing.T) {
	sink := &recordingSink{}
	s := NewStream(1, sink, "test", nil)

	input := strings.Join([]string{
		`{"kind":"begin","offset":0}`,
		`{"kind":"message","offset":1,"format":"a","severity":"info","source":"first"}`,
		`{"kind":"message","offset":2,"format":"b","severity":"info","source":"second"}`,
		`{"kind":"finish","offset":3,"clean":true}`,
	}, "")
	if err := s.Run(strings.NewReader(input), 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := logging.MakeID("first")
	if s.Root() != want {
		t.Fatalf("Root() = %v, want %v (latched from first message only)", s.Root(), want)
	}
}

func TestStreamIntervalDivertsToAggregateUntilWindowReady(t *testing.T) {
	sink := &recordingSink{}
	s := NewStream(1, sink, "test", nil)
	// Directly dispatch an interval event: since the default aggregation
	// window (DefaultPeriod) hasn't expired, no Aggregate should reach the
	// sink, and the raw interval itself must never reach it either
	// (spec.md §3: "raw interval events never surface downstream").
	s.dispatch(logging.Event{Kind: logging.EventInterval, Interval: logging.Interval{
		Tag: logging.MakeID("frame"), Duration: 1000,
	}})
	for _, e := range sink.events {
		if e.Kind == logging.EventInterval {
			t.Fatalf("raw interval event reached the sink")
		}
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no events before the aggregation window expires, got %d", len(sink.events))
	}
}

func TestStreamBacklogReplaysInOrderBeforeNewEvent(t *testing.T) {
	downstream := &refuseThenAcceptSink{refuseCount: 2}
	s := NewStream(1, downstream, "test", nil)

	s.dispatch(logging.Event{Kind: logging.EventBegin})
	if s.BacklogLen() != 1 {
		t.Fatalf("backlog len = %d, want 1 (begin refused)", s.BacklogLen())
	}

	s.dispatch(logging.Event{Kind: logging.EventMessage, Message: logging.Message{Source: logging.MakeID("x")}})
	if s.BacklogLen() != 2 {
		t.Fatalf("backlog len = %d, want 2 (message queued behind begin)", s.BacklogLen())
	}

	// Third enqueue triggers the drain: the head-of-line (begin) is
	// retried and accepted first, then message, matching FIFO order.
	s.dispatch(logging.Event{Kind: logging.EventHeartbeat})
	if s.BacklogLen() != 0 {
		t.Fatalf("backlog should have fully drained, len = %d", s.BacklogLen())
	}
	if len(downstream.events) != 3 {
		t.Fatalf("got %d delivered events, want 3", len(downstream.events))
	}
	if downstream.events[0].Kind != logging.EventBegin || downstream.events[1].Kind != logging.EventMessage {
		t.Fatalf("delivery order violated FIFO: %v", downstream.events)
	}
}

func TestStreamAbortOnMalformedInputDiscardsBacklog(t *testing.T) {
	downstream := &refuseThenAcceptSink{refuseCount: 1000}
	s := NewStream(1, downstream, "test", nil)

	input := `{"kind":"begin","offset":0}{"kind":"not-a-real-kind"}`
	err := s.Run(strings.NewReader(input), 0)
	if err == nil {
		t.Fatalf("expected Run() to fail on malformed event")
	}
	if s.State() != StateAborted {
		t.Fatalf("state = %v, want aborted", s.State())
	}
	if s.BacklogLen() != 0 {
		t.Fatalf("backlog should be discarded on abort, len = %d", s.BacklogLen())
	}
}

func TestStreamDispatchIgnoresRepeatBeginAndEventsAfterFinish(t *testing.T) {
	sink := &recordingSink{}
	s := NewStream(1, sink, "test", nil)

	s.dispatch(logging.Event{Kind: logging.EventBegin})
	s.dispatch(logging.Event{Kind: logging.EventBegin})
	if n := countKind(sink.events, logging.EventBegin); n != 1 {
		t.Fatalf("sink saw %d begin events, want 1 (repeat begin must be ignored)", n)
	}

	s.dispatch(logging.Event{Kind: logging.EventFinish, Finish: logging.Finish{Clean: true}})
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	before := len(sink.events)

	s.dispatch(logging.Event{Kind: logging.EventMessage, Message: logging.Message{Source: logging.MakeID("late")}})
	s.dispatch(logging.Event{Kind: logging.EventBegin})
	if len(sink.events) != before {
		t.Fatalf("sink saw %d events after finish, want no change from %d", len(sink.events), before)
	}
}

func countKind(events []logging.Event, k logging.EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func TestStreamRunAbortsOnAbruptEOFWithoutFinish(t *testing.T) {
	sink := &recordingSink{}
	s := NewStream(1, sink, "test", nil)

	input := `{"kind":"begin","offset":0}`
	if err := s.Run(strings.NewReader(input), 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.State() != StateAborted {
		t.Fatalf("state = %v, want aborted after EOF with no finish", s.State())
	}
}
