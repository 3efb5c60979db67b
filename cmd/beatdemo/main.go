package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"stepbox/audio"
	"stepbox/diag"
	"stepbox/engine"
)

const (
	sampleRate = 44100
	playFor    = 8 * time.Second
)

// beatdemo plays a four-on-the-floor pattern through the audio backend
// using generated click samples, so the whole engine can be heard without
// any MIDI hardware or sample files.
func main() {
	log, err := diag.NewZap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	bank := audio.NewBank()
	bank.Register("kick", click(60, 0.25))
	bank.Register("snare", click(220, 0.12))
	bank.Register("clhat", click(3000, 0.03))

	mixer := audio.NewMixer(bank, sampleRate, log)
	dev, err := audio.Open(mixer)
	if err != nil {
		fmt.Printf("Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	sched := engine.NewScheduler(mixer, log)
	seq := engine.NewSequencer(sched, mixer, log, engine.WithSampleStore(mixer))
	defer seq.Destroy()

	seq.SetTempo(120)
	seq.SetPattern(demoPattern())

	fmt.Println("stepbox beatdemo: playing for", playFor)
	seq.Play()
	time.Sleep(playFor)
	seq.Stop()
}

func demoPattern() engine.Pattern {
	p := engine.NewPattern("beatdemo")
	p = p.AddTrack(engine.NewTrack("Kick", "kick", p.Length))
	p = p.AddTrack(engine.NewTrack("Snare", "snare", p.Length))
	p = p.AddTrack(engine.NewTrack("ClHat", "clhat", p.Length))

	for step := 0; step < p.Length; step += 4 {
		p, _ = p.ToggleStep(p.Tracks[0].ID, step)
	}
	for step := 4; step < p.Length; step += 8 {
		p, _ = p.ToggleStep(p.Tracks[1].ID, step)
	}
	for step := 0; step < p.Length; step += 2 {
		p, _ = p.ToggleStep(p.Tracks[2].ID, step)
	}
	return p
}

// click renders an exponentially decaying sine burst; enough of a drum
// stand-in to hear the groove.
func click(freq, duration float64) []float32 {
	n := int(duration * sampleRate)
	pcm := make([]float32, n)
	for i := range pcm {
		t := float64(i) / sampleRate
		env := math.Exp(-t * 8 / duration)
		pcm[i] = float32(math.Sin(2*math.Pi*freq*t) * env * 0.8)
	}
	return pcm
}
