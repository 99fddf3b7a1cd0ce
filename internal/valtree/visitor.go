// Package valtree implements the streaming value-tree parser that feeds
// the log server's per-stream sinks. Events from the wire (newline- or
// object-delimited JSON, spec.md §6) are pushed through a Visitor; the
// Visitor is the only coupling between the parser and the sink (spec.md
// §4.3) — method names are fixed by the original EAGine interfaces
// (_examples/original_source/source/app/log_server/interfaces.cpp's
// valtree visitor contract).
package valtree

// Visitor receives a flat stream of structural events as the parser walks
// each top-level JSON value. Implementations reassemble higher-level
// records (begin/message/finish/...) from this flat stream using a
// current-path stack (spec.md §4.3).
type Visitor interface {
	Begin()
	Finish()
	Failed(err error)

	BeginStruct()
	FinishStruct()

	BeginList()
	FinishList()

	BeginAttribute(name string)
	FinishAttribute(name string)

	ConsumeBool(v bool)
	ConsumeInt64(v int64)
	ConsumeUint64(v uint64)
	ConsumeFloat64(v float64)
	ConsumeString(v string)
	ConsumeNull()

	UnparsedData(data []byte)

	// ShouldContinue reports whether the visitor still wants further
	// events; a CombinedVisitor stops forwarding to a child once it
	// returns false (spec.md §4.3).
	ShouldContinue() bool
}
