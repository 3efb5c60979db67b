package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"stepbox/diag"
	"stepbox/engine"
)

func frameAt(buf []byte, frame int) (left, right float32) {
	off := frame * 8
	left = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	right = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))
	return
}

func newTestMixer(t *testing.T) *Mixer {
	t.Helper()
	bank := NewBank()
	bank.Register("click", []float32{1, 0.5, 0.25})
	return NewMixer(bank, 100, diag.Nop())
}

func TestMixerRendersScheduledVoice(t *testing.T) {
	m := newTestMixer(t)
	m.PlayVoice(engine.Trigger{SampleID: "click", Time: 0.1, Gain: 0.5})

	buf := make([]byte, 20*8)
	n, err := m.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}

	// silence before the scheduled frame
	for f := 0; f < 10; f++ {
		if l, r := frameAt(buf, f); l != 0 || r != 0 {
			t.Fatalf("frame %d = %v/%v before start", f, l, r)
		}
	}
	want := []float32{0.5, 0.25, 0.125}
	for i, w := range want {
		l, r := frameAt(buf, 10+i)
		if l != w || r != w {
			t.Errorf("frame %d = %v/%v, want %v on both channels", 10+i, l, r, w)
		}
	}
	if l, _ := frameAt(buf, 13); l != 0 {
		t.Errorf("frame 13 = %v after voice end", l)
	}
}

func TestMixerClockTracksRenderedFrames(t *testing.T) {
	m := newTestMixer(t)
	if got := m.Now(); got != 0 {
		t.Fatalf("Now() = %v before rendering", got)
	}
	buf := make([]byte, 20*8)
	if _, err := m.Read(buf); err != nil {
		t.Fatal(err)
	}
	if got := m.Now(); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("Now() = %v after 20 frames at 100Hz, want 0.2", got)
	}
}

func TestPastStartSnapsToCurrentFrame(t *testing.T) {
	m := newTestMixer(t)
	buf := make([]byte, 10*8)
	if _, err := m.Read(buf); err != nil { // advance the clock to 0.1
		t.Fatal(err)
	}

	m.PlayVoice(engine.Trigger{SampleID: "click", Time: 0.05, Gain: 1})
	if _, err := m.Read(buf); err != nil {
		t.Fatal(err)
	}
	if l, _ := frameAt(buf, 0); l != 1 {
		t.Errorf("late voice did not start on the next frame: %v", l)
	}
}

func TestVoicesSumAndClamp(t *testing.T) {
	bank := NewBank()
	bank.Register("loud", []float32{0.9})
	m := NewMixer(bank, 100, diag.Nop())
	m.PlayVoice(engine.Trigger{SampleID: "loud", Time: 0, Gain: 1})
	m.PlayVoice(engine.Trigger{SampleID: "loud", Time: 0, Gain: 1})

	buf := make([]byte, 8)
	if _, err := m.Read(buf); err != nil {
		t.Fatal(err)
	}
	if l, _ := frameAt(buf, 0); l != 1 {
		t.Errorf("summed frame = %v, want clamp to 1", l)
	}
}

func TestUnknownSampleIsIgnored(t *testing.T) {
	m := newTestMixer(t)
	m.PlayVoice(engine.Trigger{SampleID: "nope", Time: 0, Gain: 1})

	buf := make([]byte, 8)
	if _, err := m.Read(buf); err != nil {
		t.Fatal(err)
	}
	if l, _ := frameAt(buf, 0); l != 0 {
		t.Errorf("unknown sample produced output: %v", l)
	}
}

func TestMixerImplementsEnginePorts(t *testing.T) {
	m := newTestMixer(t)
	var _ engine.Clock = m
	var _ engine.VoiceOutput = m
	var _ engine.SampleStore = m
	if !m.Has("click") || m.Has("nope") {
		t.Error("Has() does not reflect the bank")
	}
}
