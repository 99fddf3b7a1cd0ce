package asyncstream

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/eagine-core/log-server/internal/output"
)

var (
	_ output.TextOutput = (*DialOutput)(nil)
	_ output.TextOutput = (*Acceptor)(nil)
)

// backoff is a bounded exponential back-off: minimum 1s, doubling on each
// failed attempt, capped, resetting to the minimum on a successful
// connect (spec.md §5: "Reconnect back-off uses a bounded exponential
// (minimum 1 s, doubling on each failed attempt up to a cap; resets to
// minimum on successful connect)").
type backoff struct {
	min, cap, cur time.Duration
}

func newBackoff(min, cap time.Duration) *backoff {
	return &backoff{min: min, cap: cap, cur: min}
}

func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur *= 2
	if b.cur > b.cap {
		b.cur = b.cap
	}
	return d
}

func (b *backoff) reset() { b.cur = b.min }

// DialOutput is the reconnecting client-side variant of the async output
// stream (spec.md §4.7): while disconnected, writes are persisted to a
// temporary chunkStore and replayed in order once a new connection is
// established; while connected, it behaves like an Acceptor's single
// client stream.
type DialOutput struct {
	network, address string
	dial             func(network, address string) (net.Conn, error)

	backoff *backoff
	pool    *bufferPool
	store   *chunkStore

	mu     sync.Mutex
	stream *clientStream
	done   chan struct{}
}

// NewDialOutput starts a background connect loop to address over network
// ("tcp" or "unix"). Writes issued before the first successful connect, or
// while reconnecting, are buffered in a chunk store and replayed in order
// once connected.
func NewDialOutput(network, address string) (*DialOutput, error) {
	store, err := newChunkStore()
	if err != nil {
		return nil, err
	}
	d := &DialOutput{
		network: network,
		address: address,
		dial:    net.Dial,
		backoff: newBackoff(time.Second, 30*time.Second),
		pool:    newBufferPool(),
		store:   store,
		done:    make(chan struct{}),
	}
	go d.connectLoop()
	return d, nil
}

func (d *DialOutput) connectLoop() {
	for {
		select {
		case <-d.done:
			return
		default:
		}
		conn, err := d.dial(d.network, d.address)
		if err != nil {
			select {
			case <-time.After(d.backoff.next()):
				continue
			case <-d.done:
				return
			}
		}
		d.backoff.reset()
		cs := newClientStream(conn, d.pool)
		d.mu.Lock()
		d.stream = cs
		d.mu.Unlock()

		d.store.replay(func(chunk []byte) error {
			cs.Write(chunk)
			return nil
		})

		for cs.Connected() {
			select {
			case <-d.done:
				cs.Close()
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
		d.mu.Lock()
		d.stream = nil
		d.mu.Unlock()
	}
}

// Write sends p over the live connection if connected, else buffers it in
// the chunk store for replay on reconnect.
func (d *DialOutput) Write(p []byte) (int, error) {
	d.mu.Lock()
	cs := d.stream
	d.mu.Unlock()
	if cs != nil && cs.Connected() {
		cs.Write(p)
		return len(p), nil
	}
	if err := d.store.append(p); err != nil {
		return 0, fmt.Errorf("asyncstream: buffer while disconnected: %w", err)
	}
	return len(p), nil
}

// Flush is a no-op: DialOutput's writer dispatches asynchronously.
func (d *DialOutput) Flush() error { return nil }

// Close stops the reconnect loop, closes any live connection, and removes
// the temporary chunk store.
func (d *DialOutput) Close() error {
	close(d.done)
	d.mu.Lock()
	if d.stream != nil {
		d.stream.Close()
	}
	d.mu.Unlock()
	return d.store.close()
}
