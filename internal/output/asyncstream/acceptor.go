package asyncstream

import (
	"net"
	"sync"
)

// DefaultTCPPort is the text-output acceptor's default TCP port (spec.md
// §4.7, used by --netcat).
const DefaultTCPPort = "34915"

// DefaultUnixPath is the text-output acceptor's default AF_UNIX path
// (spec.md §4.7, used by --socat).
const DefaultUnixPath = "/tmp/eagine-text-log"

// Acceptor implements output.TextOutput by accepting client connections
// on a listener and fanning every Write out to each connected client
// through its own double-buffered clientStream (spec.md §4.7: "Acceptors
// run an accept loop: each successful accept constructs a new client
// stream and re-arms").
type Acceptor struct {
	ln   net.Listener
	pool *bufferPool

	mu      sync.Mutex
	clients []*clientStream
}

// Listen starts accepting on ln. The caller is responsible for creating
// ln with the network-appropriate address (tcp or unix).
func Listen(ln net.Listener) *Acceptor {
	a := &Acceptor{ln: ln, pool: newBufferPool()}
	go a.acceptLoop()
	return a
}

func (a *Acceptor) acceptLoop() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetKeepAlive(true)
		}
		cs := newClientStream(conn, a.pool)
		a.mu.Lock()
		a.clients = append(a.clients, cs)
		a.mu.Unlock()
	}
}

// Write fans p out to every connected client, first pruning clients whose
// socket has failed (spec.md §4.7: "the acceptor drops it from its client
// list on the next write").
func (a *Acceptor) Write(p []byte) (int, error) {
	a.mu.Lock()
	live := a.clients[:0]
	for _, c := range a.clients {
		if c.Connected() {
			live = append(live, c)
		} else {
			c.Close()
		}
	}
	a.clients = live
	for _, c := range a.clients {
		c.Write(p)
	}
	a.mu.Unlock()
	return len(p), nil
}

// Flush is a no-op: writes are already dispatched asynchronously as soon
// as they are issued.
func (a *Acceptor) Flush() error { return nil }

// Close stops accepting new connections and closes every client.
func (a *Acceptor) Close() error {
	err := a.ln.Close()
	a.mu.Lock()
	for _, c := range a.clients {
		c.Close()
	}
	a.clients = nil
	a.mu.Unlock()
	return err
}
