package sink

import (
	"io"

	"github.com/eagine-core/log-server/internal/aggregate"
	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/sinkfactory"
	"github.com/eagine-core/log-server/internal/valtree"
)

// State is a stream's position in the Fresh->Open->Closed/Aborted machine
// (spec.md §4.4).
type State int

const (
	StateFresh State = iota
	StateOpen
	StateClosed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Stream owns one producer connection's state machine, backlog and
// aggregation engine, and couples a valtree.Parser to a downstream
// sinkfactory.Sink (spec.md §4.4). It is the single generic implementation
// every concrete backend (text-tree, InfluxDB, libpq) is driven through,
// rather than each backend re-implementing the state machine and backlog
// itself.
type Stream struct {
	ID    uint64
	state State

	root       logging.ID // latched from the first message.Source seen
	prevOffset float64

	agg     *aggregate.Engine
	backlog []logging.Event

	sink    sinkfactory.Sink
	backend *logging.Backend
	factory string
}

// NewStream builds a Stream with id, wrapping downstream as the final
// consumer for factory (used only as a metrics label), and using backend
// for operational logging/metrics (may be nil in tests).
func NewStream(id uint64, downstream sinkfactory.Sink, factory string, backend *logging.Backend) *Stream {
	return &Stream{
		ID:      id,
		state:   StateFresh,
		agg:     aggregate.New(aggregate.DefaultPeriod),
		sink:    downstream,
		factory: factory,
		backend: backend,
	}
}

// State reports the stream's current state.
func (s *Stream) State() State { return s.state }

// Root returns the identifier latched from the first message's Source
// field, used by consumers (e.g. internal/texttree) to key a stream's
// display lane. Zero until the first message event is seen.
func (s *Stream) Root() logging.ID { return s.root }

// PrevOffset returns the offset of the most recently dispatched
// description, state, message or heartbeat event, for consumers that
// render relative timing. Begin, finish, interval and derived Aggregate
// events do not update it.
func (s *Stream) PrevOffset() float64 { return s.prevOffset }

// BacklogLen reports the number of undelivered events currently buffered.
func (s *Stream) BacklogLen() int { return len(s.backlog) }

// Run drives a valtree.Parser over r, dispatching each reconstructed event
// to the stream, until EOF or a fatal parse error. It implements the
// coupling named in spec.md §4.3: "each stream owns one parser instance
// tied 1:1 to its connection".
func (s *Stream) Run(r io.Reader, maxTokenSize int) error {
	adapter := NewAdapter(s.dispatch)
	var failErr error
	adapter.OnFailed = func(err error) {
		if failErr == nil {
			failErr = err
		}
		if s.backend != nil {
			s.backend.ParserError(s.ID, err)
		}
		s.abort()
	}
	parser := valtree.NewParser(r, adapter, maxTokenSize)
	err := parser.Run()
	if s.state != StateClosed && s.state != StateAborted {
		s.abort()
	}
	if err == nil {
		err = failErr
	}
	return err
}

// abort moves the stream to Aborted. An open stream first dispatches a
// finish{clean=false} at the last recorded offset, so downstream sees the
// stream end as failed; any backlog left after that is discarded.
func (s *Stream) abort() {
	if s.state == StateClosed || s.state == StateAborted {
		return
	}
	if s.state == StateOpen {
		s.enqueue(logging.Event{Kind: logging.EventFinish, Finish: logging.Finish{Offset: s.prevOffset}})
	}
	s.state = StateAborted
	if s.backend != nil {
		s.backend.StreamClosed(s.ID, false)
		s.backend.BacklogDiscarded(s.ID, len(s.backlog))
	}
	s.backlog = nil
}

// dispatch is the per-event entry point fed by the adapter (spec.md §4.4).
// Begin transitions Fresh->Open and latches nothing yet (the root
// identifier is latched from the first message seen, per spec.md §4.1's
// "root source" note); Finish transitions to Closed. Interval events are
// diverted into the aggregation engine and only forwarded downstream as a
// derived Aggregate once a window expires. Once Closed or Aborted the
// stream drops everything, including a stray second Begin, rather than
// reopening (spec.md §4.4: "further events are dropped").
func (s *Stream) dispatch(e logging.Event) {
	if s.state == StateClosed || s.state == StateAborted {
		return
	}
	switch e.Kind {
	case logging.EventBegin:
		if s.state != StateFresh {
			return
		}
		s.state = StateOpen
		if s.backend != nil {
			s.backend.StreamOpened(s.ID)
		}
		s.enqueue(e)
		return
	case logging.EventInterval:
		if agg, ready := s.agg.Update(e.Interval); ready {
			s.enqueue(logging.Event{Kind: logging.EventAggregate, Aggregate: agg})
		}
		return
	case logging.EventMessage:
		if s.root.IsZero() {
			s.root = e.Message.Source
		}
	case logging.EventFinish:
		s.enqueue(e)
		s.state = StateClosed
		if s.backend != nil {
			s.backend.StreamClosed(s.ID, e.Finish.Clean)
			s.backend.BacklogDiscarded(s.ID, len(s.backlog))
		}
		s.backlog = nil
		return
	}
	s.prevOffset = e.Offset()
	s.enqueue(e)
}

// enqueue appends e to the backlog, then attempts to drain the backlog in
// order (spec.md §4.4: "replay head-of-line, then try the new event").
// Delivery stops at the first refusal, leaving that event and everything
// after it (including e, if it was never reached) buffered.
func (s *Stream) enqueue(e logging.Event) {
	s.backlog = append(s.backlog, e)
	s.flushBacklog()
	if s.backend != nil {
		s.backend.SetBacklogDepth(s.factory, len(s.backlog))
	}
}

func (s *Stream) flushBacklog() {
	i := 0
	for i < len(s.backlog) {
		if !s.sink.Consume(s.backlog[i]) {
			break
		}
		i++
	}
	s.backlog = s.backlog[i:]
}
