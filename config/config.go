package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Backend selects which voice output drives playback.
type Backend string

const (
	BackendMIDI  Backend = "midi"
	BackendAudio Backend = "audio"
)

// MIDIConfig defines the MIDI voice-output backend.
type MIDIConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  uint8  `json:"channel,omitempty"` // 1-16
	Kit      string `json:"kit,omitempty"`
}

// AudioConfig defines the PCM voice-output backend.
type AudioConfig struct {
	SampleRate int    `json:"sampleRate,omitempty"`
	SamplesDir string `json:"samplesDir,omitempty"` // raw float32 samples
}

// UIConfig stores UI preferences.
type UIConfig struct {
	LastTempo float64 `json:"lastTempo,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	Backend     Backend     `json:"backend,omitempty"`
	MIDI        MIDIConfig  `json:"midi,omitempty"`
	Audio       AudioConfig `json:"audio,omitempty"`
	UI          UIConfig    `json:"ui,omitempty"`
	PatternsDir string      `json:"patternsDir,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendMIDI,
		MIDI: MIDIConfig{
			Channel: 10,
			Kit:     "gm",
		},
		Audio: AudioConfig{
			SampleRate: 44100,
		},
		UI: UIConfig{
			LastTempo: 120,
		},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepbox"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the diagnostics log file path.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stepbox.log"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path; a missing file
// yields defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.MIDI.Channel == 0 {
		c.MIDI.Channel = def.MIDI.Channel
	}
	if c.MIDI.Kit == "" {
		c.MIDI.Kit = def.MIDI.Kit
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.UI.LastTempo == 0 {
		c.UI.LastTempo = def.UI.LastTempo
	}
}
