// Package reader implements the three producer-facing input variants
// named in spec.md §4.8: stdin, TCP accept and AF_UNIX accept. Each
// exposes a single Run that drives connections until input is exhausted;
// every accepted connection gets a fresh internal/valtree.Parser and
// internal/sink.Stream pair, read on its own goroutine (spec.md's
// single-threaded cooperative loop is redesigned here as one goroutine
// per connection — see DESIGN.md — since idiomatic Go uses blocking reads
// rather than hand-rolled cooperative scheduling).
package reader

import (
	"io"
	"net"
	"time"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/sink"
	"github.com/eagine-core/log-server/internal/sinkfactory"
)

// DefaultUnixPath is the default AF_UNIX reader socket path (spec.md §6,
// --local).
const DefaultUnixPath = "/tmp/eagine-log"

// DefaultTCPPort is the default TCP reader port (spec.md §6, --network).
const DefaultTCPPort = "34917"

// Stdin drains a single stream of JSON events from r until EOF (spec.md
// §4.8). Unlike the socket variants there is no accept loop: one reader,
// one stream.
type Stdin struct {
	r            io.Reader
	factory      sinkfactory.Factory
	backend      *logging.Backend
	maxTokenSize int
}

// NewStdin builds a Stdin reader over r, dispatching to factory.
func NewStdin(r io.Reader, factory sinkfactory.Factory, backend *logging.Backend, maxTokenSize int) *Stdin {
	return &Stdin{r: r, factory: factory, backend: backend, maxTokenSize: maxTokenSize}
}

// Run parses r to completion. On abrupt EOF with no prior finish event,
// the stream's own teardown (internal/sink.Stream.abort) dispatches an
// implicit finish{clean=false} and marks the stream Aborted exactly as a
// dropped socket would be, since stdin offers no separate "orderly close"
// signal to distinguish the two.
func (s *Stdin) Run() error {
	table := sinkfactory.NewStreamsTable[*sink.Stream]()
	id := table.NextID()
	st := sink.NewStream(id, s.factory.MakeSink(), s.factory.Name(), s.backend)
	table.Insert(id, st)
	err := st.Run(s.r, s.maxTokenSize)
	table.Erase(id)
	return err
}

// AcceptLoop is shared by the TCP and AF_UNIX readers: accept connections
// from ln until it is closed, driving a fresh parser+sink pair per
// connection on its own goroutine (spec.md §4.8: "A reader owns the
// factory reference and, for each accepted connection, creates a fresh
// parser+sink pair"). Socket errors on one client tear down only that
// client; the accept loop itself keeps running (spec.md §4.8, §7).
type AcceptLoop struct {
	ln               net.Listener
	factory          sinkfactory.Factory
	backend          *logging.Backend
	maxTokenSize     int
	heartbeatTimeout time.Duration
	table            *sinkfactory.StreamsTable[*sink.Stream]
}

// NewAcceptLoop builds an AcceptLoop over ln, dispatching accepted
// connections' events to factory. heartbeatTimeout, if nonzero, drops a
// connection that produces no event (heartbeat or otherwise) within that
// window (log.heartbeat_timeout; spec.md §3's heartbeat carries "producer
// liveness" but the distilled spec never acts on it).
func NewAcceptLoop(ln net.Listener, factory sinkfactory.Factory, backend *logging.Backend, maxTokenSize int, heartbeatTimeout time.Duration) *AcceptLoop {
	return &AcceptLoop{
		ln:               ln,
		factory:          factory,
		backend:          backend,
		maxTokenSize:     maxTokenSize,
		heartbeatTimeout: heartbeatTimeout,
		table:            sinkfactory.NewStreamsTable[*sink.Stream](),
	}
}

// Run accepts connections until ln is closed (e.g. on shutdown), at which
// point it returns nil.
func (a *AcceptLoop) Run() error {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return nil
		}
		go a.serve(conn)
	}
}

func (a *AcceptLoop) serve(conn net.Conn) {
	defer conn.Close()
	id := a.table.NextID()
	st := sink.NewStream(id, a.factory.MakeSink(), a.factory.Name(), a.backend)
	a.table.Insert(id, st)
	defer a.table.Erase(id)

	var r io.Reader = conn
	if a.heartbeatTimeout > 0 {
		r = &deadlineReader{conn: conn, timeout: a.heartbeatTimeout}
	}
	if err := st.Run(r, a.maxTokenSize); err != nil && a.backend != nil {
		a.backend.SocketError("reader", err)
	}
}

// Close stops accepting new connections.
func (a *AcceptLoop) Close() error { return a.ln.Close() }

// deadlineReader refreshes conn's read deadline before every Read, so a
// connection that falls silent for longer than timeout (no heartbeat, no
// other event) fails with a timeout error instead of hanging forever.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Read(p)
}
