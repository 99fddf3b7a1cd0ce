// Package texttree renders events as a multi-lane ASCII tree, one lane per
// active stream, writing through an internal/output.TextOutput (spec.md
// §4.6). It is grounded on the box-drawing layout of the teacher corpus's
// original ostream sink, re-expressed as a sinkfactory.Factory rather than
// a one-off class per output.
package texttree

import (
	"fmt"
	"sync"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/output"
	"github.com/eagine-core/log-server/internal/sinkfactory"
)

// Factory renders every stream's events to a single underlying
// output.TextOutput, which may itself be an output.Combined fanning out to
// several physical destinations.
//
// Streams are parsed concurrently, one goroutine per accepted connection
// (internal/reader), so unlike the single-threaded cooperative loop this
// is grounded on, writes and lane-table mutations here are synchronized
// by mu rather than relying on single-threaded ownership.
type Factory struct {
	out     output.TextOutput
	mu      sync.Mutex
	lanes   laneTable
	laneSeq uint64
}

// New builds a text-tree Factory writing to out.
func New(out output.TextOutput) *Factory {
	f := &Factory{out: out}
	fmt.Fprint(out, "╮\n")
	return f
}

func (f *Factory) Name() string { return "text-tree" }

// Update is a no-op: the text-tree writer has no background work to
// drive (spec.md §4.5 names libcurl/libpq polling as the motivating case,
// neither of which applies here).
func (f *Factory) Update() error { return nil }

// MakeSink returns a new Sink for one stream; its lane is opened on the
// first begin, message or finish event it renders.
func (f *Factory) MakeSink() sinkfactory.Sink {
	return &streamSink{factory: f}
}

// Close writes the tree's closing glyph; callers should call this once, on
// shutdown, after every stream has finished.
func (f *Factory) Close() error {
	_, err := fmt.Fprint(f.out, "╯\n")
	return err
}

type streamSink struct {
	factory  *Factory
	id       uint64
	assigned bool
	root     logging.ID
	start    float64
	prev     float64
}

// Consume renders e into this stream's lane. The text-tree writer has no
// backpressure of its own (an io.Writer either accepts the bytes or the
// process is already failing), so it always reports acceptance.
func (s *streamSink) Consume(e logging.Event) bool {
	f := s.factory
	f.mu.Lock()
	defer f.mu.Unlock()
	switch e.Kind {
	case logging.EventBegin:
		s.assign()
		s.start = e.Begin.Offset
		s.prev = e.Begin.Offset
		f.drawBegin()
	case logging.EventMessage:
		if !s.assigned {
			s.assign()
		}
		if s.root.IsZero() {
			s.root = e.Message.Source
		}
		f.drawMessage(s, e.Message)
		s.prev = e.Message.Offset
	case logging.EventAggregate:
		// Aggregates have no wire-level offset/severity and are not
		// rendered as a tree row in the text view (spec.md §4.6 names
		// begin/message/heartbeat/finish only); they remain visible via
		// any aggregate-consuming backend (e.g. internal/influxdb).
	case logging.EventHeartbeat:
		// no visible output (spec.md §4.6)
	case logging.EventFinish:
		if !s.assigned {
			s.assign()
		}
		f.drawFinish(s, e.Finish)
		f.lanes.close(s.id)
	}
	return true
}

func (s *streamSink) assign() {
	if s.assigned {
		return
	}
	s.id = s.factory.nextLane()
	s.assigned = true
	s.factory.lanes.open(s.id)
}

// nextLane allocates a lane key unique across the factory's lifetime, so a
// reopened lane never collides with one still open (it need not match the
// owning sink.Stream's id, which the factory never sees).
func (f *Factory) nextLane() uint64 {
	f.laneSeq++
	return f.laneSeq
}

func (f *Factory) drawBegin() {
	fmt.Fprintf(f.out, "%s   ╭────────────╮\n", f.lanes.connIdle())
	fmt.Fprintf(f.out, "%sstarting log│\n", f.lanes.connTop())
	fmt.Fprintf(f.out, "%s │ ╰────────────╯\n", f.lanes.connIdle())
}

func (f *Factory) drawMessage(s *streamSink, m logging.Message) {
	fmt.Fprintf(f.out, "%s━┑\n", f.lanes.connMessage(s.id))
	row := padRight(microsSince(s.start, m.Offset), 10) + "│" +
		padRight(microsSince(s.prev, m.Offset), 10) + "│" +
		padRight(m.Severity.String(), 9) + "│" +
		padRight(s.root.String(), 10) + "│" +
		padRight(m.Source.String(), 10) + "│"
	if !m.Tag.IsZero() {
		row += padRight(m.Tag.String(), 10) + "│"
	}
	row += padRight(fmt.Sprintf("#%d", m.Instance), 12) + "│"
	fmt.Fprintln(f.out, row)
	fmt.Fprintf(f.out, "%s ╰─┤%s\n", f.lanes.connIdle(), FormatMessage(m.Format, m.Args))
}

func (f *Factory) drawFinish(s *streamSink, fin logging.Finish) {
	fmt.Fprintf(f.out, "%s ╭──────────┬──────────┬────────────┬─────────╮\n", f.lanes.connIdle())
	status := " success "
	if !fin.Clean {
		status = " failed  "
	}
	fmt.Fprintf(f.out, "%s%s│%s│ closing log│%s│\n",
		f.lanes.connFinishLeft(s.id),
		padRight(microsSince(s.start, fin.Offset), 10),
		padRight(microsSince(s.prev, fin.Offset), 10),
		status,
	)
	fmt.Fprintf(f.out, "%s ╰──────────┴──────────┴────────────┴─────────╯\n", f.lanes.connFinishMid(s.id))
	fmt.Fprintln(f.out)
}

var _ sinkfactory.Factory = (*Factory)(nil)
var _ sinkfactory.Sink = (*streamSink)(nil)
