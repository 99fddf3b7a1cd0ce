package valtree

// CombinedVisitor forwards every call to two visitors in order, aborting
// further forwarding to either once it reports ShouldContinue() == false
// (spec.md §4.3). It is used when a stream needs to be observed by more
// than one consumer without duplicating the parser.
type CombinedVisitor struct {
	first, second   Visitor
	firstDone, secondDone bool
}

// NewCombinedVisitor builds a CombinedVisitor forwarding to a then b.
func NewCombinedVisitor(a, b Visitor) *CombinedVisitor {
	return &CombinedVisitor{first: a, second: b}
}

func (c *CombinedVisitor) each(f func(Visitor)) {
	if !c.firstDone {
		f(c.first)
		if !c.first.ShouldContinue() {
			c.firstDone = true
		}
	}
	if !c.secondDone {
		f(c.second)
		if !c.second.ShouldContinue() {
			c.secondDone = true
		}
	}
}

func (c *CombinedVisitor) Begin()          { c.each(func(v Visitor) { v.Begin() }) }
func (c *CombinedVisitor) Finish()         { c.each(func(v Visitor) { v.Finish() }) }
func (c *CombinedVisitor) Failed(err error) { c.each(func(v Visitor) { v.Failed(err) }) }

func (c *CombinedVisitor) BeginStruct()  { c.each(func(v Visitor) { v.BeginStruct() }) }
func (c *CombinedVisitor) FinishStruct() { c.each(func(v Visitor) { v.FinishStruct() }) }

func (c *CombinedVisitor) BeginList()  { c.each(func(v Visitor) { v.BeginList() }) }
func (c *CombinedVisitor) FinishList() { c.each(func(v Visitor) { v.FinishList() }) }

func (c *CombinedVisitor) BeginAttribute(name string) {
	c.each(func(v Visitor) { v.BeginAttribute(name) })
}
func (c *CombinedVisitor) FinishAttribute(name string) {
	c.each(func(v Visitor) { v.FinishAttribute(name) })
}

func (c *CombinedVisitor) ConsumeBool(v bool)       { c.each(func(vi Visitor) { vi.ConsumeBool(v) }) }
func (c *CombinedVisitor) ConsumeInt64(v int64)     { c.each(func(vi Visitor) { vi.ConsumeInt64(v) }) }
func (c *CombinedVisitor) ConsumeUint64(v uint64)   { c.each(func(vi Visitor) { vi.ConsumeUint64(v) }) }
func (c *CombinedVisitor) ConsumeFloat64(v float64) { c.each(func(vi Visitor) { vi.ConsumeFloat64(v) }) }
func (c *CombinedVisitor) ConsumeString(v string)   { c.each(func(vi Visitor) { vi.ConsumeString(v) }) }
func (c *CombinedVisitor) ConsumeNull()             { c.each(func(v Visitor) { v.ConsumeNull() }) }

func (c *CombinedVisitor) UnparsedData(data []byte) {
	c.each(func(v Visitor) { v.UnparsedData(data) })
}

// ShouldContinue reports whether either child still wants events.
func (c *CombinedVisitor) ShouldContinue() bool {
	return !c.firstDone || !c.secondDone
}
