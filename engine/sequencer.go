package engine

import (
	"math"
	"sync"

	"stepbox/diag"
)

// Sequencer holds the transport state machine and the current pattern.
// On every scheduler tick it decides which (track, step) pairs fire and
// forwards trigger commands to the voice output.
//
// All operations are safe to call while playing: edits swap in a freshly
// derived Pattern value under the mutex, so a tick always observes a
// fully-formed pattern. Misuse (no pattern, unknown track, invalid
// transition) is reported through the diagnostics port and ignored; a
// live-performance tool must not die mid-set over a stray call.
type Sequencer struct {
	sched   *Scheduler
	out     VoiceOutput
	samples SampleStore // optional
	log     diag.Logger

	mu          sync.RWMutex
	pattern     *Pattern
	state       transportState
	beatOffset  float64 // beat the current run resumes from
	currentStep int
	soloed      map[string]struct{}
	fireBuf     []Trigger

	updates chan struct{}
}

type SequencerOption func(*Sequencer)

// WithSampleStore lets the sequencer skip triggers whose sample the
// output cannot voice.
func WithSampleStore(store SampleStore) SequencerOption {
	return func(s *Sequencer) {
		s.samples = store
	}
}

func NewSequencer(sched *Scheduler, out VoiceOutput, log diag.Logger, opts ...SequencerOption) *Sequencer {
	if log == nil {
		log = diag.Nop()
	}
	s := &Sequencer{
		sched:   sched,
		out:     out,
		log:     log,
		state:   stopped{},
		soloed:  make(map[string]struct{}),
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play starts playback from step 0, or from the captured position when
// paused. Without a loaded pattern it is a reported no-op.
func (s *Sequencer) Play() {
	s.mu.Lock()
	if s.pattern == nil {
		s.mu.Unlock()
		s.log.Warn("play ignored: no pattern loaded")
		return
	}
	switch st := s.state.(type) {
	case playing:
		s.mu.Unlock()
		s.log.Warn("play ignored: already playing")
		return
	case paused:
		s.beatOffset = st.pausedBeat
	case stopped:
		s.beatOffset = 0
	}
	now := s.sched.clock.Now()
	s.state = startPlaying(s.beatOffset, now)
	s.mu.Unlock()

	s.sched.Start(s.handleTick)
	s.notify()
}

// Pause captures the current beat position and stops the scheduler.
// A later Play resumes from the captured beat.
func (s *Sequencer) Pause() {
	s.mu.Lock()
	if _, ok := s.state.(playing); !ok {
		s.mu.Unlock()
		s.log.Warn("pause ignored: not playing", "status", s.state.status().String())
		return
	}
	captured := s.beatOffset + s.sched.CurrentBeat()
	s.state = pauseAt(captured)
	s.mu.Unlock()

	s.sched.Stop()
	s.notify()
}

// Stop halts playback and resets the step cursor to 0. Stopping while
// already stopped is a reported no-op.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if _, ok := s.state.(stopped); ok {
		s.mu.Unlock()
		s.log.Warn("stop ignored: already stopped")
		return
	}
	s.state = stopTransport()
	s.currentStep = 0
	s.beatOffset = 0
	s.mu.Unlock()

	s.sched.Stop()
	s.notify()
}

// Destroy forces the transport to stopped and releases the pattern.
func (s *Sequencer) Destroy() {
	s.sched.Stop()
	s.mu.Lock()
	s.state = stopTransport()
	s.pattern = nil
	s.currentStep = 0
	s.beatOffset = 0
	s.soloed = make(map[string]struct{})
	s.mu.Unlock()
	s.notify()
}

func (s *Sequencer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.status()
}

// CurrentStep is the 0-based step the playhead last landed on.
func (s *Sequencer) CurrentStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStep
}

func (s *Sequencer) Tempo() float64 {
	return s.sched.Tempo()
}

func (s *Sequencer) SetTempo(bpm float64) {
	s.sched.SetTempo(bpm)
	s.notify()
}

// SetPattern replaces the held pattern wholesale and resets the step
// cursor. Safe while playing; the next tick reads the new value.
func (s *Sequencer) SetPattern(p Pattern) {
	s.mu.Lock()
	s.pattern = &p
	s.currentStep = 0
	s.rebuildSoloSetLocked()
	s.mu.Unlock()
	s.notify()
}

// Pattern returns the current pattern value, if one is loaded.
func (s *Sequencer) Pattern() (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pattern == nil {
		return Pattern{}, false
	}
	return *s.pattern, true
}

func (s *Sequencer) ToggleStep(trackID string, step int) {
	s.edit("toggle step", false, func(p Pattern) (Pattern, bool) {
		return p.ToggleStep(trackID, step)
	})
}

func (s *Sequencer) SetStepVelocity(trackID string, step int, velocity float64) {
	s.edit("set step velocity", false, func(p Pattern) (Pattern, bool) {
		return p.SetStepVelocity(trackID, step, velocity)
	})
}

func (s *Sequencer) SetTrackVolume(trackID string, volume float64) {
	s.edit("set track volume", false, func(p Pattern) (Pattern, bool) {
		return p.SetTrackVolume(trackID, volume)
	})
}

func (s *Sequencer) ToggleMute(trackID string) {
	s.edit("toggle mute", false, func(p Pattern) (Pattern, bool) {
		return p.ToggleMute(trackID)
	})
}

func (s *Sequencer) ToggleSolo(trackID string) {
	s.edit("toggle solo", true, func(p Pattern) (Pattern, bool) {
		return p.ToggleSolo(trackID)
	})
}

func (s *Sequencer) AddTrack(t Track) {
	s.edit("add track", false, func(p Pattern) (Pattern, bool) {
		return p.AddTrack(t), true
	})
}

func (s *Sequencer) RemoveTrack(trackID string) {
	s.edit("remove track", true, func(p Pattern) (Pattern, bool) {
		return p.RemoveTrack(trackID)
	})
}

// edit applies a pattern-deriving operation and swaps the result in.
// reSolo rebuilds the solo-set cache for operations that can change it.
func (s *Sequencer) edit(op string, reSolo bool, apply func(Pattern) (Pattern, bool)) {
	s.mu.Lock()
	if s.pattern == nil {
		s.mu.Unlock()
		s.log.Warn("edit ignored: no pattern loaded", "op", op)
		return
	}
	next, ok := apply(*s.pattern)
	if !ok {
		s.mu.Unlock()
		s.log.Warn("edit ignored: unknown track", "op", op)
		return
	}
	s.pattern = &next
	if reSolo {
		s.rebuildSoloSetLocked()
	}
	s.mu.Unlock()
	s.notify()
}

// Updates signals UI refreshes: every tick and every accepted edit sends
// one (coalesced) notification.
func (s *Sequencer) Updates() <-chan struct{} {
	return s.updates
}

// handleTick is the scheduler callback. It must stay O(tracks) and
// allocation-light; the trigger buffer is reused between ticks.
func (s *Sequencer) handleTick(scheduledTime, beat float64) {
	s.mu.Lock()
	if _, ok := s.state.(playing); !ok {
		// the scheduler can drain a last poll pass after a transition;
		// ticks outside Playing never produce sound
		s.mu.Unlock()
		return
	}
	p := s.pattern
	if p == nil || p.Length <= 0 {
		s.mu.Unlock()
		return
	}
	stepInSequence := int(math.Floor((beat + s.beatOffset) * StepsPerBeat))
	step := stepInSequence % p.Length
	s.currentStep = step

	soloActive := len(s.soloed) > 0
	fires := s.fireBuf[:0]
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if t.Muted {
			continue // mute always wins, soloed or not
		}
		if soloActive {
			if _, ok := s.soloed[t.ID]; !ok {
				continue
			}
		}
		if step >= len(t.Steps) {
			continue
		}
		st := t.Steps[step]
		if !st.Active {
			continue
		}
		if s.samples != nil && !s.samples.Has(t.SampleID) {
			s.log.Debug("sample unavailable, trigger skipped", "sample", t.SampleID)
			continue
		}
		fires = append(fires, Trigger{
			SampleID: t.SampleID,
			Time:     scheduledTime,
			Gain:     t.Volume * st.Velocity,
		})
	}
	s.fireBuf = fires
	out := s.out
	s.mu.Unlock()

	for _, f := range fires {
		out.PlayVoice(f)
	}
	s.notify()
}

func (s *Sequencer) rebuildSoloSetLocked() {
	clear(s.soloed)
	if s.pattern == nil {
		return
	}
	for i := range s.pattern.Tracks {
		if s.pattern.Tracks[i].Soloed {
			s.soloed[s.pattern.Tracks[i].ID] = struct{}{}
		}
	}
}

// notify never blocks; a full channel means an update is already pending.
func (s *Sequencer) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
