package sink

// node is a generic JSON-shaped value assembled from the flat valtree
// visitor stream: a map for a struct, a slice for a list, or a scalar.
type node struct {
	isStruct bool
	isList   bool
	fields   map[string]any
	items    []any
	scalar   any
	hasValue bool
}

func newStructNode() *node { return &node{isStruct: true, fields: map[string]any{}} }
func newListNode() *node   { return &node{isList: true} }

func (n *node) value() any {
	switch {
	case n.isStruct:
		return n.fields
	case n.isList:
		return n.items
	default:
		return n.scalar
	}
}

// treeBuilder reconstructs one nested Go value (map[string]any / []any /
// scalar) per top-level JSON object from the flat begin/finish/attribute
// events the parser emits, using a stack of in-progress nodes keyed by the
// current attribute name path (spec.md §4.3: "reassembles event records
// ... using a current-path stack").
type treeBuilder struct {
	stack     []*node
	nameStack []string
	done      func(v any)
}

func newTreeBuilder(done func(v any)) *treeBuilder {
	return &treeBuilder{done: done}
}

func (b *treeBuilder) pushName(name string) { b.nameStack = append(b.nameStack, name) }
func (b *treeBuilder) popName() string {
	n := b.nameStack[len(b.nameStack)-1]
	b.nameStack = b.nameStack[:len(b.nameStack)-1]
	return n
}

func (b *treeBuilder) beginStruct() { b.stack = append(b.stack, newStructNode()) }
func (b *treeBuilder) beginList()   { b.stack = append(b.stack, newListNode()) }

func (b *treeBuilder) finishContainer() {
	n := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.store(n.value())
}

func (b *treeBuilder) beginAttribute(name string) { b.pushName(name) }
func (b *treeBuilder) finishAttribute(string)      { b.popName() }

func (b *treeBuilder) consume(v any) { b.store(v) }

// store places v at the current position: as a named field of the parent
// struct, an appended item of the parent list, or (top level) reports the
// completed value via done.
func (b *treeBuilder) store(v any) {
	if len(b.stack) == 0 {
		b.done(v)
		return
	}
	parent := b.stack[len(b.stack)-1]
	if parent.isStruct {
		name := b.nameStack[len(b.nameStack)-1]
		parent.fields[name] = v
		return
	}
	parent.items = append(parent.items, v)
}
