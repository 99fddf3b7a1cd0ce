// Package output defines the text-output contract the text-tree renderer
// writes through (spec.md §4.6, §4.7) and a combined output that fans a
// single writer out to several physical destinations.
package output

import "io"

// TextOutput is a single writable destination for rendered text chunks.
// Implementations (stdout, an asyncstream client/server stream) must not
// block the caller indefinitely; a slow destination should buffer rather
// than stall the event loop (spec.md §5).
type TextOutput interface {
	io.Writer
	Flush() error
}

// wrapped adapts a plain io.Writer (e.g. os.Stdout) with a no-op Flush.
type wrapped struct{ io.Writer }

func (wrapped) Flush() error { return nil }

// Wrap adapts w into a TextOutput whose Flush is a no-op, for destinations
// with no internal buffering.
func Wrap(w io.Writer) TextOutput { return wrapped{w} }

// Combined writes every chunk to each of its children in order, so a
// single text-tree renderer can address stdout, a TCP listener and an
// AF_UNIX listener at once (spec.md §4.6: "combined text output").
type Combined struct {
	children []TextOutput
}

// NewCombined builds a Combined output over children.
func NewCombined(children ...TextOutput) *Combined {
	return &Combined{children: children}
}

// Write sends p to every child, returning the first error encountered
// (after still attempting the rest) and len(p) on success. A failing
// child does not stop delivery to its siblings, matching the fan-out
// contract used for sinks (spec.md §4.5).
func (c *Combined) Write(p []byte) (int, error) {
	var firstErr error
	for _, w := range c.children {
		if _, err := w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return len(p), nil
}

// Flush flushes every child, returning the first error encountered.
func (c *Combined) Flush() error {
	var firstErr error
	for _, w := range c.children {
		if err := w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ TextOutput = (*Combined)(nil)
