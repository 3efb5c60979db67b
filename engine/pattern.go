package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// DefaultPatternLength is the classic 16-step grid.
	DefaultPatternLength = 16

	// DefaultVelocity is the velocity a freshly created step carries.
	DefaultVelocity = 0.8
)

// Step is one grid cell: whether it fires and how hard.
type Step struct {
	Active   bool    `yaml:"active"`
	Velocity float64 `yaml:"velocity"`
}

// TimeSignature of a pattern. Playback only derives the grid from the
// pattern length; the signature is metadata for display and persistence.
type TimeSignature struct {
	Numerator   int `yaml:"numerator"`
	Denominator int `yaml:"denominator"`
}

// Track is one instrument lane: a sample reference, its step row and mix
// controls. Tracks are value objects; edits go through the Pattern helpers
// which always build a new value.
type Track struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	SampleID string  `yaml:"sampleId"`
	Steps    []Step  `yaml:"steps"`
	Volume   float64 `yaml:"volume"`
	Muted    bool    `yaml:"muted"`
	Soloed   bool    `yaml:"soloed"`
	Color    string  `yaml:"color,omitempty"`
}

// Pattern is an ordered collection of tracks plus grid metadata. It is
// immutable: every edit helper returns a new Pattern and refreshes
// ModifiedAt; the receiver is never changed.
type Pattern struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Tracks     []Track       `yaml:"tracks"`
	Length     int           `yaml:"length"`
	TimeSig    TimeSignature `yaml:"timeSignature"`
	CreatedAt  time.Time     `yaml:"createdAt"`
	ModifiedAt time.Time     `yaml:"modifiedAt"`
}

// NewPattern creates an empty pattern with the defaults: 16 steps, 4/4.
func NewPattern(name string) Pattern {
	now := time.Now()
	return Pattern{
		ID:         newID("pat"),
		Name:       name,
		Length:     DefaultPatternLength,
		TimeSig:    TimeSignature{Numerator: 4, Denominator: 4},
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NewTrack creates a track with length inactive steps at the default
// velocity, full volume, unmuted and unsoloed.
func NewTrack(name, sampleID string, length int) Track {
	if length < 1 {
		length = DefaultPatternLength
	}
	steps := make([]Step, length)
	for i := range steps {
		steps[i] = Step{Velocity: DefaultVelocity}
	}
	return Track{
		ID:       newID("trk"),
		Name:     name,
		SampleID: sampleID,
		Steps:    steps,
		Volume:   1,
	}
}

// ToggleStep flips the active flag of one step. The bool is false when
// trackID is unknown. An out-of-range step index panics: the index comes
// from code, not from users, so it is a programming error.
func (p Pattern) ToggleStep(trackID string, step int) (Pattern, bool) {
	return p.withTrack(trackID, func(t Track) Track {
		steps := cloneSteps(t.Steps, step)
		steps[step].Active = !steps[step].Active
		t.Steps = steps
		return t
	})
}

// SetStepVelocity sets one step's velocity, clamped to [0,1].
func (p Pattern) SetStepVelocity(trackID string, step int, velocity float64) (Pattern, bool) {
	return p.withTrack(trackID, func(t Track) Track {
		steps := cloneSteps(t.Steps, step)
		steps[step].Velocity = clamp01(velocity)
		t.Steps = steps
		return t
	})
}

// SetTrackVolume sets a track's volume, clamped to [0,1].
func (p Pattern) SetTrackVolume(trackID string, volume float64) (Pattern, bool) {
	return p.withTrack(trackID, func(t Track) Track {
		t.Volume = clamp01(volume)
		return t
	})
}

// ToggleMute flips a track's mute flag.
func (p Pattern) ToggleMute(trackID string) (Pattern, bool) {
	return p.withTrack(trackID, func(t Track) Track {
		t.Muted = !t.Muted
		return t
	})
}

// ToggleSolo flips a track's solo flag.
func (p Pattern) ToggleSolo(trackID string) (Pattern, bool) {
	return p.withTrack(trackID, func(t Track) Track {
		t.Soloed = !t.Soloed
		return t
	})
}

// AddTrack appends a track, resizing its step row to the pattern length.
func (p Pattern) AddTrack(t Track) Pattern {
	t.Steps = resizeSteps(t.Steps, p.Length)
	t.Volume = clamp01(t.Volume)
	tracks := make([]Track, len(p.Tracks), len(p.Tracks)+1)
	copy(tracks, p.Tracks)
	p.Tracks = append(tracks, t)
	return p.touch()
}

// RemoveTrack deletes a track by id. The bool is false when it is unknown.
func (p Pattern) RemoveTrack(trackID string) (Pattern, bool) {
	idx := p.trackIndex(trackID)
	if idx < 0 {
		return p, false
	}
	tracks := make([]Track, 0, len(p.Tracks)-1)
	tracks = append(tracks, p.Tracks[:idx]...)
	tracks = append(tracks, p.Tracks[idx+1:]...)
	p.Tracks = tracks
	return p.touch(), true
}

// SetName renames the pattern.
func (p Pattern) SetName(name string) Pattern {
	p.Name = name
	return p.touch()
}

// SetLength changes the step count, resizing every track row. Truncated
// steps are dropped; new steps come in inactive at the default velocity.
func (p Pattern) SetLength(length int) Pattern {
	if length < 1 {
		length = 1
	}
	tracks := make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		t.Steps = resizeSteps(t.Steps, length)
		tracks[i] = t
	}
	p.Tracks = tracks
	p.Length = length
	return p.touch()
}

// FindTrack returns the track with the given id.
func (p Pattern) FindTrack(trackID string) (Track, bool) {
	idx := p.trackIndex(trackID)
	if idx < 0 {
		return Track{}, false
	}
	return p.Tracks[idx], true
}

// withTrack builds a new pattern with one track replaced by mutate's
// result. Untouched tracks share their step storage with the old value,
// which is safe because no code path writes through a held Pattern.
func (p Pattern) withTrack(trackID string, mutate func(Track) Track) (Pattern, bool) {
	idx := p.trackIndex(trackID)
	if idx < 0 {
		return p, false
	}
	tracks := make([]Track, len(p.Tracks))
	copy(tracks, p.Tracks)
	tracks[idx] = mutate(tracks[idx])
	p.Tracks = tracks
	return p.touch(), true
}

func (p Pattern) trackIndex(trackID string) int {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			return i
		}
	}
	return -1
}

func (p Pattern) touch() Pattern {
	p.ModifiedAt = time.Now()
	return p
}

// cloneSteps copies a step row, bounds-checking the index about to be
// written. Indexing past the row is a logic bug, so it fails fast.
func cloneSteps(steps []Step, idx int) []Step {
	if idx < 0 || idx >= len(steps) {
		panic(fmt.Sprintf("engine: step index %d out of range [0,%d)", idx, len(steps)))
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func resizeSteps(steps []Step, length int) []Step {
	out := make([]Step, length)
	n := copy(out, steps)
	for i := n; i < length; i++ {
		out[i] = Step{Velocity: DefaultVelocity}
	}
	for i := range out {
		out[i].Velocity = clamp01(out[i].Velocity)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func newID(prefix string) string {
	var b [4]byte
	rand.Read(b[:])
	return prefix + "-" + hex.EncodeToString(b[:])
}
