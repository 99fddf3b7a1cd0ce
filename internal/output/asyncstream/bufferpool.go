package asyncstream

import (
	"bytes"
	"sync"
)

// bufferPool recycles the byte buffers clientStream double-buffers into,
// mirroring the pool-backed buffer ownership in spec.md §4.7 ("Buffers
// come from a pool and return to the pool on destruction").
type bufferPool struct {
	pool sync.Pool
}

func newBufferPool() *bufferPool {
	return &bufferPool{pool: sync.Pool{New: func() any { return new(bytes.Buffer) }}}
}

func (p *bufferPool) get() *bytes.Buffer {
	b := p.pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

func (p *bufferPool) put(b *bytes.Buffer) {
	p.pool.Put(b)
}
