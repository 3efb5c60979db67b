package engine

// Trigger is one voice-trigger command: play sampleID at the given
// audio-clock time with the given gain.
type Trigger struct {
	SampleID string
	Time     float64 // seconds, up to one lookahead window ahead of now
	Gain     float64 // 0..1, track volume * step velocity
}

// VoiceOutput renders triggers. Implementations must tolerate Time values
// slightly in the past (a tick flushed late is still played).
type VoiceOutput interface {
	PlayVoice(t Trigger)
	Close() error
}

// SampleStore answers whether a sample can be voiced at all. Absence is
// not an error, just a reason not to bother triggering.
type SampleStore interface {
	Has(sampleID string) bool
}
