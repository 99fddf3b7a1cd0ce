package aggregate

import (
	"testing"
	"time"

	"github.com/eagine-core/log-server/internal/logging"
)

func sample(tag string, instance uint64, durMS int64) logging.Interval {
	return logging.Interval{
		Tag:      logging.MakeID(tag),
		Instance: instance,
		Duration: durMS * int64(time.Millisecond),
	}
}

func TestUpdateFoldsUntilWindowExpires(t *testing.T) {
	now := time.Unix(0, 0)
	e := New(10 * time.Second)
	e.SetClock(func() time.Time { return now })

	if _, ready := e.Update(sample("frame", 1, 10)); ready {
		t.Fatalf("window should not have expired yet")
	}
	if _, ready := e.Update(sample("frame", 1, 20)); ready {
		t.Fatalf("window should not have expired yet")
	}

	now = now.Add(10 * time.Second)
	agg, ready := e.Update(sample("frame", 1, 30))
	if !ready {
		t.Fatalf("expected window to expire exactly at boundary")
	}
	if agg.Count != 3 {
		t.Fatalf("count = %d, want 3", agg.Count)
	}
	wantSum := int64(60 * time.Millisecond)
	if agg.DurationSum != wantSum {
		t.Fatalf("sum = %d, want %d", agg.DurationSum, wantSum)
	}
	if agg.Min != int64(10*time.Millisecond) || agg.Max != int64(30*time.Millisecond) {
		t.Fatalf("min/max = %d/%d, want %d/%d", agg.Min, agg.Max, int64(10*time.Millisecond), int64(30*time.Millisecond))
	}
	avg := agg.Avg()
	if avg < float64(agg.Min) || avg > float64(agg.Max) {
		t.Fatalf("avg %f not within [min,max] = [%d,%d]", avg, agg.Min, agg.Max)
	}
}

func TestUpdateStartsFreshWindowAfterExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	e := New(time.Second)
	e.SetClock(func() time.Time { return now })

	e.Update(sample("x", 0, 5))
	now = now.Add(time.Second)
	first, ready := e.Update(sample("x", 0, 5))
	if !ready || first.Count != 2 {
		t.Fatalf("first window: ready=%v count=%d", ready, first.Count)
	}

	// Next sample starts a brand new window; it alone must not be ready.
	if _, ready := e.Update(sample("x", 0, 100)); ready {
		t.Fatalf("fresh window should not be immediately ready")
	}
}

func TestUpdateKeysByTagAndInstance(t *testing.T) {
	now := time.Unix(0, 0)
	e := New(time.Second)
	e.SetClock(func() time.Time { return now })

	e.Update(sample("a", 0, 1))
	e.Update(sample("a", 1, 1)) // distinct instance, independent window
	e.Update(sample("b", 0, 1)) // distinct tag, independent window

	now = now.Add(time.Second)
	agg, ready := e.Update(sample("a", 0, 1))
	if !ready || agg.Count != 2 {
		t.Fatalf("key (a,0): ready=%v count=%d, want ready count=2", ready, agg.Count)
	}
}

func TestAvgZeroCountIsZero(t *testing.T) {
	var agg logging.Aggregate
	if avg := agg.Avg(); avg != 0 {
		t.Fatalf("Avg() on empty aggregate = %f, want 0", avg)
	}
}
