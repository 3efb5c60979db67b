package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stepbox/audio"
	"stepbox/config"
	"stepbox/diag"
	"stepbox/engine"
	"stepbox/midi"
	"stepbox/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so diagnostics go to a file.
	log := diag.Nop()
	if logPath, err := config.LogPath(); err == nil {
		if fileLog, err := diag.NewZapFile(logPath); err == nil {
			log = fileLog
		}
	}

	var (
		out   engine.VoiceOutput
		store engine.SampleStore
		clock engine.Clock
	)
	switch cfg.Backend {
	case config.BackendAudio:
		bank := audio.NewBank()
		if cfg.Audio.SamplesDir != "" {
			if err := bank.LoadRawDir(cfg.Audio.SamplesDir); err != nil {
				fmt.Printf("Error loading samples: %v\n", err)
				os.Exit(1)
			}
		}
		mixer := audio.NewMixer(bank, cfg.Audio.SampleRate, log)
		dev, err := audio.Open(mixer)
		if err != nil {
			fmt.Printf("Error opening audio device: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()
		out, store, clock = mixer, mixer, mixer

	default:
		c := engine.NewSystemClock()
		o := midi.NewOutput(cfg.MIDI.PortName, cfg.MIDI.Channel, midi.GetKit(cfg.MIDI.Kit), c, log)
		defer o.Close()
		out, store, clock = o, o, c
	}

	sched := engine.NewScheduler(clock, log)
	seq := engine.NewSequencer(sched, out, log, engine.WithSampleStore(store))
	defer seq.Destroy()

	seq.SetTempo(cfg.UI.LastTempo)
	seq.SetPattern(defaultPattern())

	patternsDir := cfg.PatternsDir
	if patternsDir == "" {
		patternsDir, err = engine.DefaultPatternsDir()
		if err != nil {
			fmt.Printf("Error resolving patterns dir: %v\n", err)
			os.Exit(1)
		}
	}

	m := tui.NewModel(seq, patternsDir)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultPattern seeds the session with a basic four-track house groove.
func defaultPattern() engine.Pattern {
	p := engine.NewPattern("init")
	p = p.AddTrack(engine.NewTrack("Kick", "kick", p.Length))
	p = p.AddTrack(engine.NewTrack("Snare", "snare", p.Length))
	p = p.AddTrack(engine.NewTrack("ClHat", "clhat", p.Length))
	p = p.AddTrack(engine.NewTrack("Clap", "clap", p.Length))

	for step := 0; step < p.Length; step += 4 {
		p, _ = p.ToggleStep(p.Tracks[0].ID, step)
	}
	for step := 4; step < p.Length; step += 8 {
		p, _ = p.ToggleStep(p.Tracks[1].ID, step)
	}
	for step := 2; step < p.Length; step += 4 {
		p, _ = p.ToggleStep(p.Tracks[2].ID, step)
	}
	return p
}
