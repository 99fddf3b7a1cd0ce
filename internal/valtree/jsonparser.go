package valtree

import (
	"encoding/json"
	"fmt"
	"io"
)

// DefaultMaxTokenSize is the default limit on the input bytes of any single
// token (spec.md §4.3); a larger token fails the parse and ends the stream.
// The check runs after the decoder has read the whole token, so it does
// not cap the memory used while that one token is being read.
const DefaultMaxTokenSize = 1 << 20 // 1 MiB

type frameKind int

const (
	frameObject frameKind = iota
	frameArray
)

type frame struct {
	kind       frameKind
	expectKey  bool // object frames only: next scalar is a key, not a value
	pendingKey string
}

// Parser consumes bytes from a reader and emits structural events to a
// Visitor, reconstructing the begin_attribute/finish_attribute nesting
// JSON's flat token stream elides. stdlib's encoding/json.Decoder already
// reads from the underlying io.Reader in whatever chunks arrive and
// tokenizes across arbitrary chunk boundaries (including mid-token), which
// is exactly the incrementality spec.md §4.3 requires — no custom
// buffering is needed for that property.
type Parser struct {
	dec          *json.Decoder
	visitor      Visitor
	maxTokenSize int
	stack        []frame
}

// NewParser builds a Parser reading JSON values from r and reporting
// structural events to v. maxTokenSize of 0 uses DefaultMaxTokenSize.
func NewParser(r io.Reader, v Visitor, maxTokenSize int) *Parser {
	if maxTokenSize <= 0 {
		maxTokenSize = DefaultMaxTokenSize
	}
	dec := json.NewDecoder(r)
	dec.UseNumber() // preserve integer precision for instance/duration/etc.
	return &Parser{dec: dec, visitor: v, maxTokenSize: maxTokenSize}
}

// Run parses top-level JSON values from the reader until EOF or a fatal
// parse/size error, emitting one begin_*/finish_* pair per JSON container
// and a primitive span per scalar (spec.md §4.3). It calls v.Begin() once
// before the first value and v.Finish() on clean EOF.
func (p *Parser) Run() error {
	p.visitor.Begin()
	for {
		before := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if err == io.EOF {
			p.visitor.Finish()
			return nil
		}
		if err != nil {
			wrapped := fmt.Errorf("valtree: parse error: %w", err)
			p.visitor.Failed(wrapped)
			return wrapped
		}
		if n := p.dec.InputOffset() - before; n > int64(p.maxTokenSize) {
			err := fmt.Errorf("valtree: token of %d bytes exceeds max %d", n, p.maxTokenSize)
			p.visitor.Failed(err)
			return err
		}
		if err := p.dispatch(tok); err != nil {
			p.visitor.Failed(err)
			return err
		}
		if !p.visitor.ShouldContinue() {
			return nil
		}
	}
}

func (p *Parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

// beforeValue announces an attribute name just before its value (whatever
// shape that value takes: struct, list, or scalar) if the current position
// is an object's value slot.
func (p *Parser) beforeValue() {
	if t := p.top(); t != nil && t.kind == frameObject && !t.expectKey {
		p.visitor.BeginAttribute(t.pendingKey)
	}
}

// afterValue closes the attribute opened by beforeValue, if any, and flips
// the owning object frame back to expecting a key.
func (p *Parser) afterValue() {
	if t := p.top(); t != nil && t.kind == frameObject {
		p.visitor.FinishAttribute(t.pendingKey)
		t.expectKey = true
	}
}

func (p *Parser) dispatch(tok json.Token) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			p.beforeValue()
			p.visitor.BeginStruct()
			p.stack = append(p.stack, frame{kind: frameObject, expectKey: true})
		case '}':
			p.visitor.FinishStruct()
			p.stack = p.stack[:len(p.stack)-1]
			p.afterValue()
		case '[':
			p.beforeValue()
			p.visitor.BeginList()
			p.stack = append(p.stack, frame{kind: frameArray})
		case ']':
			p.visitor.FinishList()
			p.stack = p.stack[:len(p.stack)-1]
			p.afterValue()
		}
		return nil
	case string:
		if t2 := p.top(); t2 != nil && t2.kind == frameObject && t2.expectKey {
			t2.pendingKey = t
			t2.expectKey = false
			return nil
		}
		p.beforeValue()
		p.visitor.ConsumeString(t)
		p.afterValue()
		return nil
	case json.Number:
		p.beforeValue()
		if i, err := t.Int64(); err == nil {
			p.visitor.ConsumeInt64(i)
		} else if f, err := t.Float64(); err == nil {
			p.visitor.ConsumeFloat64(f)
		} else {
			return fmt.Errorf("valtree: malformed number %q", t.String())
		}
		p.afterValue()
		return nil
	case float64:
		p.beforeValue()
		p.visitor.ConsumeFloat64(t)
		p.afterValue()
		return nil
	case bool:
		p.beforeValue()
		p.visitor.ConsumeBool(t)
		p.afterValue()
		return nil
	case nil:
		p.beforeValue()
		p.visitor.ConsumeNull()
		p.afterValue()
		return nil
	default:
		return fmt.Errorf("valtree: unexpected token %T", tok)
	}
}
