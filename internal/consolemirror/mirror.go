// Package consolemirror mirrors fatal startup errors to stderr, supplying
// the "Address-in-use on startup" surface named in spec.md §7
// ("Fatal; nonzero exit... stderr") independent of the structured JSON
// logger, which may not have flushed yet by the time the process exits.
package consolemirror

import (
	"fmt"
	"io"
)

// Mirror writes a one-line, human-readable fatal error to w.
type Mirror struct {
	w io.Writer
}

// New builds a Mirror writing to w (typically os.Stderr).
func New(w io.Writer) *Mirror { return &Mirror{w: w} }

// Fatal prints component and err to the mirror's writer.
func (m *Mirror) Fatal(component string, err error) {
	fmt.Fprintf(m.w, "log_server: fatal: %s: %v\n", component, err)
}
