// Package aggregate implements the time-windowed reducer over interval
// samples keyed by (tag, instance) described in spec.md §4.2. One Engine
// is owned by a single sink; it is not safe for concurrent use, matching
// the single-threaded-per-stream ownership model in spec.md §5.
package aggregate

import (
	"time"

	"github.com/eagine-core/log-server/internal/logging"
)

type key struct {
	tag      logging.ID
	instance uint64
}

type accumulator struct {
	sum      int64
	min      int64
	max      int64
	count    uint64
	windowAt time.Time // deadline for the current window
}

// Engine accumulates interval samples and yields a windowed Aggregate once
// per key each time its window expires.
type Engine struct {
	period time.Duration
	accs   map[key]*accumulator
	now    func() time.Time
}

// DefaultPeriod is the typical window length named in spec.md §4.2.
const DefaultPeriod = 120 * time.Second

// New creates an Engine with the given window period. A zero period uses
// DefaultPeriod.
func New(period time.Duration) *Engine {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Engine{period: period, accs: make(map[key]*accumulator), now: time.Now}
}

// Update folds one interval sample into its key's accumulator, then checks
// whether that key's window has expired. If so, it returns the completed
// Aggregate — which includes the sample just folded in — and starts a
// fresh window for that key. Otherwise it returns (Aggregate{}, false).
func (e *Engine) Update(i logging.Interval) (logging.Aggregate, bool) {
	k := key{tag: i.Tag, instance: i.Instance}
	now := e.now()
	a, ok := e.accs[k]
	if !ok {
		a = &accumulator{windowAt: now.Add(e.period)}
		e.accs[k] = a
	}

	e.fold(a, i)

	if !now.Before(a.windowAt) {
		out := logging.Aggregate{
			Tag:         i.Tag,
			Instance:    i.Instance,
			DurationSum: a.sum,
			Count:       a.count,
			Min:         a.min,
			Max:         a.max,
			HitInterval: int64(e.period),
		}
		e.reset(a, now)
		return out, true
	}

	return logging.Aggregate{}, false
}

func (e *Engine) fold(a *accumulator, i logging.Interval) {
	if a.count == 0 {
		a.min = i.Duration
		a.max = i.Duration
	} else {
		if i.Duration < a.min {
			a.min = i.Duration
		}
		if i.Duration > a.max {
			a.max = i.Duration
		}
	}
	a.sum += i.Duration
	a.count++
}

// SetClock overrides the engine's time source; used by tests to simulate
// window expiry without sleeping.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// reset zeroes the accumulator a and restarts its window timer, as
// named explicitly in spec.md §4.2.
func (e *Engine) reset(a *accumulator, now time.Time) {
	a.sum, a.min, a.max, a.count = 0, 0, 0, 0
	a.windowAt = now.Add(e.period)
}
