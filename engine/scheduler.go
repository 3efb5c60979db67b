package engine

import (
	"sync"
	"time"

	"stepbox/diag"
)

// TickHandler receives one tick: the logical time it is scheduled for
// (audio-clock seconds) and the fractional beat position.
type TickHandler func(scheduledTime, beat float64)

const (
	MinBPM = 60
	MaxBPM = 200

	// StepsPerBeat: a step is a 16th note, four per quarter-note beat.
	StepsPerBeat = 4

	defaultLookahead    = 0.1 // seconds
	defaultPollInterval = 25 * time.Millisecond
)

// Scheduler translates wall-clock time into an evenly spaced stream of
// 16th-note ticks. Polling only decides how many pending ticks to flush;
// the emitted schedule times are an arithmetic sequence with step
// 60/(4*tempo) governed solely by the tempo, so a late or jittery poll
// never perturbs the grid.
type Scheduler struct {
	clock Clock
	log   diag.Logger

	lookahead    float64
	pollInterval time.Duration

	mu       sync.Mutex
	tempo    float64
	running  bool
	nextTime float64
	beat     float64
	handler  TickHandler
	stopChan chan struct{}
}

type SchedulerOption func(*Scheduler)

// WithLookahead sets the window, in seconds, within which pending ticks
// are guaranteed to have been emitted.
func WithLookahead(seconds float64) SchedulerOption {
	return func(s *Scheduler) {
		if seconds > 0 {
			s.lookahead = seconds
		}
	}
}

// WithPollInterval sets how often the poll goroutine wakes up.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func NewScheduler(clock Clock, log diag.Logger, opts ...SchedulerOption) *Scheduler {
	if log == nil {
		log = diag.Nop()
	}
	s := &Scheduler{
		clock:        clock,
		log:          log,
		tempo:        120,
		lookahead:    defaultLookahead,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets the beat to zero, rebases the logical clock to now and
// begins delivering ticks to handler from the poll goroutine. Calling
// Start on a running scheduler is reported and ignored.
func (s *Scheduler) Start(handler TickHandler) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("scheduler already running, start ignored")
		return
	}
	s.running = true
	s.beat = 0
	s.nextTime = s.clock.Now()
	s.handler = handler
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go s.pollLoop(stop)
}

func (s *Scheduler) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll flushes every tick whose scheduled time falls inside the lookahead
// window. The internal ticker drives it, but it is exported so tests and
// audio-callback hosts can drive the clock themselves.
func (s *Scheduler) Poll() {
	for {
		s.mu.Lock()
		if !s.running || s.handler == nil {
			s.mu.Unlock()
			return
		}
		if s.nextTime >= s.clock.Now()+s.lookahead {
			s.mu.Unlock()
			return
		}
		t, b := s.nextTime, s.beat
		// advance before delivering: a panicking handler ends the pass
		// but can never leave the clock mid-tick
		s.nextTime += 60 / (s.tempo * StepsPerBeat)
		s.beat += 1.0 / StepsPerBeat
		handler := s.handler
		s.mu.Unlock()

		if !s.deliver(handler, t, b) {
			return
		}
	}
}

func (s *Scheduler) deliver(h TickHandler, t, b float64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick handler panicked", "panic", r, "time", t, "beat", b)
			ok = false
		}
	}()
	h(t, b)
	return true
}

// Stop quiesces the scheduler and resets its clock state. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
	s.stopChan = nil
	s.handler = nil
	s.beat = 0
	s.nextTime = 0
}

// SetTempo clamps to [MinBPM,MaxBPM] and applies to subsequent advances;
// the already computed next tick keeps its scheduled time.
func (s *Scheduler) SetTempo(bpm float64) {
	clamped := ClampBPM(bpm)
	if clamped != bpm {
		s.log.Warn("tempo clamped", "requested", bpm, "using", clamped)
	}
	s.mu.Lock()
	s.tempo = clamped
	s.mu.Unlock()
}

func (s *Scheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// CurrentBeat returns the fractional beat position of the next tick to be
// scheduled.
func (s *Scheduler) CurrentBeat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beat
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reset rebases the logical clock to now without stopping the poll loop.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.nextTime = s.clock.Now()
	s.mu.Unlock()
}

// BeatToTime converts a beat position to seconds at the current tempo.
func (s *Scheduler) BeatToTime(beat float64) float64 {
	return beat * 60 / s.Tempo()
}

// TimeToBeat converts seconds to a beat position at the current tempo.
func (s *Scheduler) TimeToBeat(t float64) float64 {
	return t * s.Tempo() / 60
}

// ClampBPM bounds a tempo to the supported [MinBPM,MaxBPM] range.
func ClampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}
