package engine

import (
	"math"
	"sync"
	"testing"
	"time"

	"stepbox/diag"
)

// fakeClock is a manually advanced audio clock.
type fakeClock struct {
	mu sync.Mutex
	t  float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d float64) {
	c.mu.Lock()
	c.t += d
	c.mu.Unlock()
}

// newTestScheduler returns a scheduler whose internal ticker never fires,
// so tests flush ticks by calling Poll themselves.
func newTestScheduler(clk *fakeClock, opts ...SchedulerOption) *Scheduler {
	base := []SchedulerOption{WithPollInterval(time.Hour)}
	return NewScheduler(clk, diag.Nop(), append(base, opts...)...)
}

func TestTickIntervalLaw(t *testing.T) {
	for _, bpm := range []float64{60, 97, 120, 143.5, 200} {
		clk := &fakeClock{}
		s := newTestScheduler(clk)
		s.SetTempo(bpm)

		var times, beats []float64
		s.Start(func(tm, b float64) {
			times = append(times, tm)
			beats = append(beats, b)
		})
		clk.advance(2.0)
		s.Poll()
		s.Stop()

		if len(times) < 8 {
			t.Fatalf("bpm %v: only %d ticks emitted", bpm, len(times))
		}
		if times[0] != 0 {
			t.Errorf("bpm %v: first tick at %v, want 0", bpm, times[0])
		}
		if beats[0] != 0 {
			t.Errorf("bpm %v: first beat %v, want 0", bpm, beats[0])
		}
		want := 60 / (4 * bpm)
		for i := 1; i < len(times); i++ {
			if diff := times[i] - times[i-1]; math.Abs(diff-want) > 1e-9 {
				t.Fatalf("bpm %v: interval %v at tick %d, want %v", bpm, diff, i, want)
			}
			if db := beats[i] - beats[i-1]; math.Abs(db-0.25) > 1e-9 {
				t.Fatalf("bpm %v: beat delta %v at tick %d, want 0.25", bpm, db, i)
			}
		}
	}
}

func TestPollJitterDoesNotPerturbSchedule(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)
	s.SetTempo(120)

	var times []float64
	s.Start(func(tm, _ float64) { times = append(times, tm) })

	// wildly uneven polling: the emitted grid must not care
	for _, jitter := range []float64{0.003, 0.2, 0.011, 0.5, 0.001, 0.09, 0.31} {
		clk.advance(jitter)
		s.Poll()
	}
	s.Stop()

	const want = 60.0 / (4 * 120)
	for i := 1; i < len(times); i++ {
		if diff := times[i] - times[i-1]; math.Abs(diff-want) > 1e-9 {
			t.Fatalf("interval %v at tick %d, want %v", diff, i, want)
		}
	}
}

func TestSetTempoAffectsOnlySubsequentTicks(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)
	s.SetTempo(120)

	var times []float64
	s.Start(func(tm, _ float64) { times = append(times, tm) })
	clk.advance(1.0)
	s.Poll()

	changeIdx := len(times)
	s.SetTempo(60)
	clk.advance(1.0)
	s.Poll()
	s.Stop()

	if changeIdx < 2 || len(times) <= changeIdx+1 {
		t.Fatalf("not enough ticks around tempo change: %d/%d", changeIdx, len(times))
	}
	oldStep := 60.0 / (4 * 120)
	newStep := 60.0 / (4 * 60)
	// the tick computed before the change keeps its time
	if diff := times[changeIdx] - times[changeIdx-1]; math.Abs(diff-oldStep) > 1e-9 {
		t.Errorf("boundary interval %v, want old step %v", diff, oldStep)
	}
	for i := changeIdx + 1; i < len(times); i++ {
		if diff := times[i] - times[i-1]; math.Abs(diff-newStep) > 1e-9 {
			t.Fatalf("post-change interval %v at tick %d, want %v", diff, i, newStep)
		}
	}
}

func TestTempoClamp(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	s.SetTempo(500)
	if got := s.Tempo(); got != MaxBPM {
		t.Errorf("Tempo() = %v after SetTempo(500), want %v", got, float64(MaxBPM))
	}
	s.SetTempo(10)
	if got := s.Tempo(); got != MinBPM {
		t.Errorf("Tempo() = %v after SetTempo(10), want %v", got, float64(MinBPM))
	}
}

func TestStartWhileRunningIgnored(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	var first, second []float64
	s.Start(func(tm, _ float64) { first = append(first, tm) })
	clk.advance(0.5)
	s.Poll()

	beatBefore := s.CurrentBeat()
	s.Start(func(tm, _ float64) { second = append(second, tm) })
	if got := s.CurrentBeat(); got != beatBefore {
		t.Errorf("second Start reset beat: %v -> %v", beatBefore, got)
	}

	clk.advance(0.5)
	s.Poll()
	s.Stop()

	if len(second) != 0 {
		t.Errorf("second handler received %d ticks, want 0", len(second))
	}
	if len(first) == 0 {
		t.Error("first handler received no ticks")
	}
}

func TestStopIsIdempotentAndQuiesces(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	var times []float64
	s.Start(func(tm, _ float64) { times = append(times, tm) })
	clk.advance(0.5)
	s.Poll()
	if len(times) == 0 {
		t.Fatal("no ticks before stop")
	}

	s.Stop()
	s.Stop() // must not panic or block
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	if got := s.CurrentBeat(); got != 0 {
		t.Errorf("CurrentBeat() = %v after Stop, want 0", got)
	}

	n := len(times)
	clk.advance(1.0)
	s.Poll()
	if len(times) != n {
		t.Errorf("ticks delivered after Stop: %d -> %d", n, len(times))
	}
}

func TestHandlerPanicDoesNotCorruptClock(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)
	s.SetTempo(120)

	var times []float64
	calls := 0
	s.Start(func(tm, _ float64) {
		calls++
		if calls == 2 {
			panic("boom")
		}
		times = append(times, tm)
	})

	clk.advance(1.0)
	s.Poll() // pass ends at the panicking tick
	s.Poll() // and the schedule resumes unbroken
	s.Stop()

	if len(times) < 3 {
		t.Fatalf("only %d ticks recorded", len(times))
	}
	const step = 60.0 / (4 * 120)
	// the panicking tick was consumed, so the gap is exactly two steps
	if diff := times[1] - times[0]; math.Abs(diff-2*step) > 1e-9 {
		t.Errorf("gap after panic %v, want %v", diff, 2*step)
	}
	for i := 2; i < len(times); i++ {
		if diff := times[i] - times[i-1]; math.Abs(diff-step) > 1e-9 {
			t.Fatalf("interval %v at tick %d, want %v", diff, i, step)
		}
	}
}

func TestResetRebasesWithoutStopping(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	var times []float64
	s.Start(func(tm, _ float64) { times = append(times, tm) })

	clk.advance(5.0)
	s.Reset()
	s.Poll()
	s.Stop()

	if !timesStartAt(times, 5.0) {
		t.Errorf("first tick after Reset at %v, want 5.0", times)
	}
}

func timesStartAt(times []float64, want float64) bool {
	return len(times) > 0 && math.Abs(times[0]-want) < 1e-9
}

func TestBeatTimeConversions(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)
	s.SetTempo(120)

	if got := s.BeatToTime(4); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("BeatToTime(4) = %v at 120bpm, want 2", got)
	}
	if got := s.TimeToBeat(2); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("TimeToBeat(2) = %v at 120bpm, want 4", got)
	}
	for _, beat := range []float64{0, 0.25, 1, 7.75} {
		if got := s.TimeToBeat(s.BeatToTime(beat)); math.Abs(got-beat) > 1e-9 {
			t.Errorf("round trip of beat %v gave %v", beat, got)
		}
	}
}
