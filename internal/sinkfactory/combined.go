package sinkfactory

import "github.com/eagine-core/log-server/internal/logging"

// CombinedFactory holds an ordered list of child factories and multicasts
// every event to a sink created from each (spec.md §4.5). Each child sink
// gets its own backlog inside the returned multiSink, so a refusing child
// never holds back, or causes re-delivery to, a sibling that already
// accepted the event.
type CombinedFactory struct {
	children []Factory
}

// NewCombinedFactory builds a fan-out Factory over children. A single
// child is typically used directly instead (spec.md §4.6's
// "make_sink_factory": "if factories.size() == 1, return the one
// factory"); this constructor does not special-case that, since callers
// can and do make that choice themselves (see cmd/log_server).
func NewCombinedFactory(children ...Factory) *CombinedFactory {
	return &CombinedFactory{children: children}
}

func (c *CombinedFactory) Name() string { return "combined" }

// MakeSink creates one child Sink per child factory and returns a sink
// that multicasts every event to all of them in order.
func (c *CombinedFactory) MakeSink() Sink {
	children := make([]*childBacklog, len(c.children))
	for i, f := range c.children {
		children[i] = &childBacklog{sink: f.MakeSink()}
	}
	return &multiSink{children: children}
}

// Update drives every child factory's background work. A child error does
// not prevent the others from being polled.
func (c *CombinedFactory) Update() error {
	var firstErr error
	for _, f := range c.children {
		if err := f.Update(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// childBacklog gives one child sink its own FIFO of undelivered events, so
// a refusal from that child never touches any sibling's state (spec.md
// §4.5: "each child independently tracks backlog through its own sink").
type childBacklog struct {
	sink    Sink
	backlog []logging.Event
}

// push appends e and drains in order, stopping at the first refusal and
// leaving that event (and everything after it) buffered for the next
// push's drain attempt. Mirrors internal/sink.Stream's own
// enqueue/flushBacklog, but scoped to a single child.
func (c *childBacklog) push(e logging.Event) {
	c.backlog = append(c.backlog, e)
	i := 0
	for i < len(c.backlog) {
		if !c.sink.Consume(c.backlog[i]) {
			break
		}
		i++
	}
	c.backlog = c.backlog[i:]
}

type multiSink struct {
	children []*childBacklog
}

// Consume hands e to every child's own backlog, in order (spec.md §5:
// "Fan-out writes across composed ... outputs are serialized within one
// event call: every child sees event N before any child sees event
// N+1"). A child that refuses only delays its own future delivery; it
// never blocks, or causes redelivery to, a sibling that already accepted
// e. Consume therefore always reports true to the caller: the backlog
// that matters now lives per-child inside multiSink, not in the caller's
// single shared backlog.
func (m *multiSink) Consume(e logging.Event) bool {
	for _, c := range m.children {
		c.push(e)
	}
	return true
}

var _ Factory = (*CombinedFactory)(nil)
var _ Sink = (*multiSink)(nil)
