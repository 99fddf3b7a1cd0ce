package sinkfactory

import (
	"errors"
	"testing"

	"github.com/eagine-core/log-server/internal/logging"
)

type fakeFactory struct {
	name      string
	accept    bool
	updates   int
	updateErr error
}

func (f *fakeFactory) Name() string { return f.name }
func (f *fakeFactory) Update() error {
	f.updates++
	return f.updateErr
}
func (f *fakeFactory) MakeSink() Sink { return &fakeSink{accept: f.accept} }

type fakeSink struct {
	accept bool
	seen   []logging.Event
}

func (s *fakeSink) Consume(e logging.Event) bool {
	if !s.accept {
		return false
	}
	s.seen = append(s.seen, e)
	return true
}

// refuseThenAcceptSink refuses the first refuseCount Consume calls, then
// accepts and records every event it is offered afterward.
type refuseThenAcceptSink struct {
	refuseCount int
	seen        []logging.Event
}

func (s *refuseThenAcceptSink) Consume(e logging.Event) bool {
	if s.refuseCount > 0 {
		s.refuseCount--
		return false
	}
	s.seen = append(s.seen, e)
	return true
}

func TestCombinedFactoryMulticastsToEveryChild(t *testing.T) {
	a := &fakeFactory{name: "a", accept: true}
	b := &fakeFactory{name: "b", accept: true}
	cf := NewCombinedFactory(a, b)

	sink := cf.MakeSink()
	e := logging.Event{Kind: logging.EventMessage, Message: logging.Message{Format: "hi"}}
	if !sink.Consume(e) {
		t.Fatalf("Consume() = false, want true once every child has absorbed the event")
	}

	ms, ok := sink.(*multiSink)
	if !ok {
		t.Fatalf("expected *multiSink, got %T", sink)
	}
	for i, c := range ms.children {
		fs := c.sink.(*fakeSink)
		if len(fs.seen) != 1 || fs.seen[0].Message.Format != "hi" {
			t.Fatalf("child %d did not see the event exactly once: %v", i, fs.seen)
		}
	}
}

// TestCombinedFactoryRefusingChildDoesNotDelayOrDuplicateForSiblings covers
// the fan-out scenario where one child accepts everything and another
// refuses its first event before accepting: the accepting child must see
// each event exactly once, with no duplicate redelivery caused by the
// refusing sibling's retry.
func TestCombinedFactoryRefusingChildDoesNotDelayOrDuplicateForSiblings(t *testing.T) {
	accepting := &fakeSink{accept: true}
	refusing := &refuseThenAcceptSink{refuseCount: 1}
	sink := &multiSink{children: []*childBacklog{
		{sink: accepting},
		{sink: refusing},
	}}

	e1 := logging.Event{Kind: logging.EventMessage, Message: logging.Message{Format: "e1"}}
	e2 := logging.Event{Kind: logging.EventMessage, Message: logging.Message{Format: "e2"}}

	if !sink.Consume(e1) {
		t.Fatalf("Consume(e1) = false, want true")
	}
	if !sink.Consume(e2) {
		t.Fatalf("Consume(e2) = false, want true")
	}

	if len(accepting.seen) != 2 || accepting.seen[0].Message.Format != "e1" || accepting.seen[1].Message.Format != "e2" {
		t.Fatalf("accepting child saw %v, want exactly [e1, e2] with no duplicates", accepting.seen)
	}
	if len(refusing.seen) != 2 || refusing.seen[0].Message.Format != "e1" || refusing.seen[1].Message.Format != "e2" {
		t.Fatalf("refusing child saw %v, want [e1, e2] once it catches up", refusing.seen)
	}
}

func TestCombinedFactoryUpdatePollsAllChildrenAndReturnsFirstError(t *testing.T) {
	errA := errors.New("a failed")
	a := &fakeFactory{name: "a", updateErr: errA}
	b := &fakeFactory{name: "b"}
	cf := NewCombinedFactory(a, b)

	err := cf.Update()
	if !errors.Is(err, errA) {
		t.Fatalf("Update() = %v, want %v", err, errA)
	}
	if a.updates != 1 || b.updates != 1 {
		t.Fatalf("expected both children polled once, got a=%d b=%d", a.updates, b.updates)
	}
}

func TestCombinedFactoryName(t *testing.T) {
	cf := NewCombinedFactory(&fakeFactory{name: "a"})
	if cf.Name() != "combined" {
		t.Fatalf("Name() = %q, want %q", cf.Name(), "combined")
	}
}
