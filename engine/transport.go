package engine

// Status reports which transport state the sequencer is in.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// transportState is the tagged transport variant. The sequencer holds
// exactly one of the concrete states below at any time; transitions swap
// the whole value, never mutate fields in place.
type transportState interface {
	status() Status
}

type stopped struct{}

type playing struct {
	startBeat float64 // beat the run began at (non-zero after resume)
	startTime float64 // audio-clock seconds when playback started
}

type paused struct {
	pausedBeat float64 // beat position captured at pause
}

func (stopped) status() Status { return StatusStopped }
func (playing) status() Status { return StatusPlaying }
func (paused) status() Status  { return StatusPaused }

// Pure transition constructors. Whether a transition applies is the
// sequencer's call; these only build the next state value.

func startPlaying(startBeat, startTime float64) transportState {
	return playing{startBeat: startBeat, startTime: startTime}
}

func pauseAt(beat float64) transportState {
	return paused{pausedBeat: beat}
}

func stopTransport() transportState {
	return stopped{}
}
