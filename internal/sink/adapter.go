package sink

import (
	"fmt"
	"time"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/valtree"
)

// Adapter implements valtree.Visitor and is the one piece of code coupling
// the streaming parser to a stream's sink (spec.md §4.3). It rebuilds one
// generic value per top-level JSON object via treeBuilder and converts the
// completed value into a logging.Event, handed to OnEvent.
type Adapter struct {
	tree         *treeBuilder
	OnEvent      func(logging.Event)
	OnFailed     func(error)
	shouldAbort  bool
}

// NewAdapter builds an Adapter that calls onEvent for each reconstructed
// event record.
func NewAdapter(onEvent func(logging.Event)) *Adapter {
	a := &Adapter{OnEvent: onEvent}
	a.tree = newTreeBuilder(a.completed)
	return a
}

func (a *Adapter) completed(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	e, err := eventFromMap(m)
	if err != nil {
		a.shouldAbort = true
		if a.OnFailed != nil {
			a.OnFailed(err)
		}
		return
	}
	if a.OnEvent != nil {
		a.OnEvent(e)
	}
}

func (a *Adapter) Begin()  {}
func (a *Adapter) Finish() {}
func (a *Adapter) Failed(err error) {
	a.shouldAbort = true
	if a.OnFailed != nil {
		a.OnFailed(err)
	}
}

func (a *Adapter) BeginStruct()  { a.tree.beginStruct() }
func (a *Adapter) FinishStruct() { a.tree.finishContainer() }

func (a *Adapter) BeginList()  { a.tree.beginList() }
func (a *Adapter) FinishList() { a.tree.finishContainer() }

func (a *Adapter) BeginAttribute(name string)  { a.tree.beginAttribute(name) }
func (a *Adapter) FinishAttribute(name string) { a.tree.finishAttribute(name) }

func (a *Adapter) ConsumeBool(v bool)       { a.tree.consume(v) }
func (a *Adapter) ConsumeInt64(v int64)     { a.tree.consume(v) }
func (a *Adapter) ConsumeUint64(v uint64)   { a.tree.consume(v) }
func (a *Adapter) ConsumeFloat64(v float64) { a.tree.consume(v) }
func (a *Adapter) ConsumeString(v string)   { a.tree.consume(v) }
func (a *Adapter) ConsumeNull()             { a.tree.consume(nil) }

func (a *Adapter) UnparsedData([]byte) {}

// ShouldContinue stops the parser once a fatal conversion error occurred.
func (a *Adapter) ShouldContinue() bool { return !a.shouldAbort }

var _ valtree.Visitor = (*Adapter)(nil)

// --- wire -> event conversion -------------------------------------------------

func strField(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

func floatField(m map[string]any, k string) float64 {
	switch v := m[k].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

func uintField(m map[string]any, k string) uint64 {
	switch v := m[k].(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case float64:
		return uint64(v)
	}
	return 0
}

func boolField(m map[string]any, k string) bool {
	v, _ := m[k].(bool)
	return v
}

func eventFromMap(m map[string]any) (logging.Event, error) {
	kind := strField(m, "kind")
	offset := floatField(m, "offset")
	switch kind {
	case "begin":
		return logging.Event{Kind: logging.EventBegin, Begin: logging.Begin{
			Offset:   offset,
			Session:  strField(m, "session"),
			Identity: strField(m, "identity"),
		}}, nil
	case "description":
		return logging.Event{Kind: logging.EventDescription, Description: logging.Description{
			Offset:      offset,
			Source:      logging.MakeID(strField(m, "source")),
			DisplayName: strField(m, "display_name"),
			Desc:        strField(m, "description"),
			Instance:    uintField(m, "instance"),
		}}, nil
	case "declare_state":
		return logging.Event{Kind: logging.EventDeclareState, DeclareState: logging.DeclareState{
			Offset:   offset,
			Source:   logging.MakeID(strField(m, "source")),
			StateTag: logging.MakeID(strField(m, "state_tag")),
			BeginTag: logging.MakeID(strField(m, "begin_tag")),
			EndTag:   logging.MakeID(strField(m, "end_tag")),
			Instance: uintField(m, "instance"),
		}}, nil
	case "active_state":
		return logging.Event{Kind: logging.EventActiveState, ActiveState: logging.ActiveState{
			Offset:   offset,
			Source:   logging.MakeID(strField(m, "source")),
			Tag:      logging.MakeID(strField(m, "tag")),
			Instance: uintField(m, "instance"),
		}}, nil
	case "message":
		sev, _ := logging.ParseSeverity(strField(m, "severity"))
		args, err := argsFromList(m["args"])
		if err != nil {
			return logging.Event{}, err
		}
		return logging.Event{Kind: logging.EventMessage, Message: logging.Message{
			Offset:   offset,
			Format:   strField(m, "format"),
			Severity: sev,
			Source:   logging.MakeID(strField(m, "source")),
			Tag:      logging.MakeID(strField(m, "tag")),
			Instance: uintField(m, "instance"),
			Args:     args,
		}}, nil
	case "interval":
		return logging.Event{Kind: logging.EventInterval, Interval: logging.Interval{
			Offset:   offset,
			Tag:      logging.MakeID(strField(m, "tag")),
			Instance: uintField(m, "instance"),
			Duration: int64(uintField(m, "duration")),
		}}, nil
	case "heartbeat":
		return logging.Event{Kind: logging.EventHeartbeat, Heartbeat: logging.Heartbeat{Offset: offset}}, nil
	case "finish":
		return logging.Event{Kind: logging.EventFinish, Finish: logging.Finish{
			Offset: offset,
			Clean:  boolField(m, "clean"),
		}}, nil
	default:
		return logging.Event{}, fmt.Errorf("valtree: unknown event kind %q", kind)
	}
}

func argsFromList(v any) ([]logging.Argument, error) {
	list, _ := v.([]any)
	out := make([]logging.Argument, 0, len(list))
	for _, item := range list {
		am, ok := item.(map[string]any)
		if !ok {
			continue
		}
		arg, err := argFromMap(am)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func argFromMap(m map[string]any) (logging.Argument, error) {
	name := logging.MakeID(strField(m, "name"))
	tag := strField(m, "tag")
	raw := m["value"]
	a := logging.Argument{Name: name}
	switch tag {
	case "bool", "b":
		a.Kind = logging.ArgBool
		a.Bool = asBool(raw)
	case "i64", "i", "int", "int64":
		a.Kind = logging.ArgInt64
		a.I64 = int64(asFloat(raw))
	case "u64", "u", "uint", "uint64":
		a.Kind = logging.ArgUint64
		a.U64 = uint64(asFloat(raw))
	case "f32", "f", "float", "float32":
		a.Kind = logging.ArgFloat32
		a.F32 = float32(asFloat(raw))
	case "duration", "dur", "d":
		a.Kind = logging.ArgDuration
		a.Dur = time.Duration(asFloat(raw) * float64(time.Second))
	case "string", "str", "s":
		a.Kind = logging.ArgString
		a.Str, _ = raw.(string)
	case "identifier", "id":
		a.Kind = logging.ArgIdentifier
		a.Ident = logging.MakeID(asString(raw))
	default:
		return logging.Argument{}, fmt.Errorf("valtree: unknown argument tag %q", tag)
	}
	return a, nil
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	default:
		return asFloat(v) != 0
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
