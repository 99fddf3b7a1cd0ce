package texttree

import "strings"

// laneTable tracks the ordered set of currently open stream lanes so the
// renderer can draw tree connectors addressed to one lane among its
// siblings (spec.md §4.6: "Lanes are assigned in stream-id order; when a
// stream finishes, its lane is closed and columns to its right are
// visually reflowed").
type laneTable struct {
	order []uint64
}

func (t *laneTable) open(id uint64) { t.order = append(t.order, id) }

func (t *laneTable) close(id uint64) {
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *laneTable) indexOf(id uint64) int {
	for i, v := range t.order {
		if v == id {
			return i
		}
	}
	return -1
}

// connIdle draws the idle vertical connector spanning every open lane.
func (t *laneTable) connIdle() string {
	var b strings.Builder
	b.WriteString("┊")
	for range t.order {
		b.WriteString(" │")
	}
	return b.String()
}

// connTop draws the connector used for a begin header, spanning lanes
// including the one just opened for that stream.
func (t *laneTable) connTop() string {
	var b strings.Builder
	b.WriteString("╵")
	for range t.order {
		b.WriteString("──")
	}
	b.WriteString("─┯─┤")
	return b.String()
}

// connAddressed draws the idle connector with lane id singled out using
// mid/left/right glyphs, shared shape for the message-row and
// finish-header connectors.
func (t *laneTable) connAddressed(id uint64, self, branch string) string {
	var b strings.Builder
	b.WriteString("┊")
	idx := t.indexOf(id)
	conn := true
	for i := range t.order {
		switch {
		case i == idx:
			b.WriteString(self)
			conn = false
		case conn:
			b.WriteString(" │")
		default:
			b.WriteString(branch)
		}
	}
	return b.String()
}

func (t *laneTable) connMessage(id uint64) string {
	return t.connAddressed(id, " ╵", "──") + "─┑"
}

func (t *laneTable) connFinishLeft(id uint64) string {
	return t.connAddressed(id, " ┕", "──") + "─┤"
}

func (t *laneTable) connFinishMid(id uint64) string {
	return t.connAddressed(id, "  ", "╭╯")
}
