package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"stepbox/diag"
	"stepbox/engine"
)

// Mixer sums scheduled sample voices into interleaved stereo float32
// little-endian PCM and doubles as the engine's audio clock: time is the
// number of frames rendered so far divided by the sample rate. That makes
// trigger times land sample-accurately no matter when the device pulls.
type Mixer struct {
	bank *Bank
	rate int
	log  diag.Logger

	mu     sync.Mutex
	frames int64 // absolute frames rendered since start
	voices []*mixVoice
}

// mixVoice is one in-flight trigger: a PCM slice playing from an absolute
// start frame at a fixed gain.
type mixVoice struct {
	pcm   []float32
	pos   int
	start int64
	gain  float32
}

func NewMixer(bank *Bank, sampleRate int, log diag.Logger) *Mixer {
	if log == nil {
		log = diag.Nop()
	}
	return &Mixer{bank: bank, rate: sampleRate, log: log}
}

func (m *Mixer) SampleRate() int { return m.rate }

// Now implements engine.Clock.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frames) / float64(m.rate)
}

// Has implements engine.SampleStore.
func (m *Mixer) Has(id string) bool { return m.bank.Has(id) }

// PlayVoice implements engine.VoiceOutput. A start time already in the
// past snaps to the next rendered frame.
func (m *Mixer) PlayVoice(t engine.Trigger) {
	pcm := m.bank.lookup(t.SampleID)
	if pcm == nil {
		m.log.Debug("sample not in bank", "sample", t.SampleID)
		return
	}
	gain := t.Gain
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	start := int64(t.Time * float64(m.rate))
	m.mu.Lock()
	if start < m.frames {
		start = m.frames
	}
	m.voices = append(m.voices, &mixVoice{pcm: pcm, start: start, gain: float32(gain)})
	m.mu.Unlock()
}

func (m *Mixer) Close() error { return nil }

// Read renders the next len(p)/8 frames; it implements io.Reader for the
// audio device. Each frame is two float32 samples (stereo, mono doubled).
func (m *Mixer) Read(p []byte) (int, error) {
	const frameBytes = 8
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < frames; i++ {
		abs := m.frames + int64(i)
		var sum float32
		for _, v := range m.voices {
			if abs < v.start || v.pos >= len(v.pcm) {
				continue
			}
			sum += v.pcm[v.pos] * v.gain
			v.pos++
		}
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		bits := math.Float32bits(sum)
		off := i * frameBytes
		binary.LittleEndian.PutUint32(p[off:], bits)
		binary.LittleEndian.PutUint32(p[off+4:], bits)
	}
	m.frames += int64(frames)

	// drop exhausted voices
	live := m.voices[:0]
	for _, v := range m.voices {
		if v.pos < len(v.pcm) {
			live = append(live, v)
		}
	}
	m.voices = live

	return frames * frameBytes, nil
}
