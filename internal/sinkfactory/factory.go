// Package sinkfactory defines the polymorphic Sink/Factory contract
// (spec.md §4.5, §9) concrete backends (text-tree, InfluxDB, libpq)
// implement, plus the streams table and combined (fan-out) factory.
package sinkfactory

import (
	"sync"

	"github.com/eagine-core/log-server/internal/logging"
)

// Sink is the downstream, per-stream event consumer a concrete backend
// creates for each accepted connection. Consume returns true on successful
// acceptance, false to signal "try again later" (spec.md §4.5); the
// caller normally owns the backlog/replay logic around this boolean, so
// implementations need only report their own readiness. The one exception
// is the combined (fan-out) Sink built by CombinedFactory, which absorbs
// every event into a per-child backlog and always reports true upstream,
// since it replays to each child independently.
type Sink interface {
	Consume(e logging.Event) bool
}

// Factory creates Sinks and drives any background work a backend needs
// (spec.md §4.5: "libcurl poll, libpq connection progress"). Update must
// be non-blocking.
type Factory interface {
	MakeSink() Sink
	Update() error
	// Name identifies the factory for metrics/log labeling.
	Name() string
}

// StreamsTable maps stream_id to an opaque per-stream context. Insertion
// happens on accept, erase on finish or connection loss (spec.md §3).
type StreamsTable[T any] struct {
	mu      sync.Mutex
	streams map[uint64]T
	nextID  uint64
}

// NewStreamsTable builds an empty table.
func NewStreamsTable[T any]() *StreamsTable[T] {
	return &StreamsTable[T]{streams: make(map[uint64]T)}
}

// NextID allocates a fresh, monotonically increasing, never-reused stream
// id (spec.md §4.5).
func (t *StreamsTable[T]) NextID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return t.nextID
}

// Insert records ctx under id.
func (t *StreamsTable[T]) Insert(id uint64, ctx T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams[id] = ctx
}

// Erase removes id, e.g. on finish or connection loss.
func (t *StreamsTable[T]) Erase(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

// Len reports the number of tracked streams.
func (t *StreamsTable[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// Each calls f for every tracked stream. f must not mutate the table.
func (t *StreamsTable[T]) Each(f func(id uint64, ctx T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ctx := range t.streams {
		f(id, ctx)
	}
}
