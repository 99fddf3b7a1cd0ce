package asyncstream

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
)

// clientStream is a single accepted connection's double-buffered async
// writer (spec.md §4.7): Write appends to the "next" buffer and, if no
// write is already in flight, swaps and hands "current" off to a
// background goroutine standing in for asio's async_write completion
// handler. On any write error the stream marks itself failed so the
// owning acceptor drops it on its next sweep.
type clientStream struct {
	conn net.Conn
	pool *bufferPool

	mu      sync.Mutex
	current *bytes.Buffer
	next    *bytes.Buffer
	writing bool

	failed atomic.Bool
}

func newClientStream(conn net.Conn, pool *bufferPool) *clientStream {
	return &clientStream{
		conn:    conn,
		pool:    pool,
		current: pool.get(),
		next:    pool.get(),
	}
}

// Connected reports whether the underlying socket is still usable.
func (c *clientStream) Connected() bool { return !c.failed.Load() }

// Write appends data to the pending buffer and, if the writer loop is
// idle, starts it. It never blocks on the network.
func (c *clientStream) Write(data []byte) {
	if c.failed.Load() {
		return
	}
	c.mu.Lock()
	c.next.Write(data)
	start := !c.writing
	if start {
		c.writing = true
	}
	c.mu.Unlock()
	if start {
		go c.run()
	}
}

// run drains buffered chunks until the pending buffer is empty, then goes
// idle; a later Write restarts it (spec.md §4.7: "completion rearms the
// write loop if the next buffer is non-empty, else sets writing=false").
func (c *clientStream) run() {
	for {
		c.mu.Lock()
		c.current, c.next = c.next, c.current
		c.next.Reset()
		chunk := c.current
		c.mu.Unlock()

		if chunk.Len() == 0 {
			c.mu.Lock()
			c.writing = false
			c.mu.Unlock()
			return
		}
		if _, err := c.conn.Write(chunk.Bytes()); err != nil {
			c.failed.Store(true)
			c.mu.Lock()
			c.writing = false
			c.mu.Unlock()
			return
		}
	}
}

// Close closes the socket and returns its buffers to the pool.
func (c *clientStream) Close() error {
	c.mu.Lock()
	c.pool.put(c.current)
	c.pool.put(c.next)
	c.mu.Unlock()
	return c.conn.Close()
}
