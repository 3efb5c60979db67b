package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PatternInfo describes a saved pattern file, for listing.
type PatternInfo struct {
	Path      string
	Name      string // parsed from the filename, empty if unnamed
	Timestamp time.Time
}

const saveTimestampLayout = "2006-01-02_15-04-05"

// DefaultPatternsDir returns ~/.config/stepbox/patterns.
func DefaultPatternsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepbox", "patterns"), nil
}

// SavePattern writes p as a timestamped YAML file under dir and returns
// the written path.
func SavePattern(dir string, p Pattern) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create patterns dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal pattern: %w", err)
	}
	name := time.Now().Format(saveTimestampLayout)
	if p.Name != "" {
		name += "_" + sanitizeFilename(p.Name)
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write pattern: %w", err)
	}
	return path, nil
}

// LoadPattern reads one pattern file. Velocities and volumes are
// re-clamped on the way in: files are a construction boundary.
func LoadPattern(path string) (Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pattern{}, fmt.Errorf("read pattern: %w", err)
	}
	var p Pattern
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pattern{}, fmt.Errorf("parse pattern: %w", err)
	}
	return normalizePattern(p), nil
}

// ListPatterns returns saved patterns in dir, newest first. A missing
// directory is an empty list, not an error.
func ListPatterns(dir string) ([]PatternInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []PatternInfo{}, nil
		}
		return nil, err
	}

	var infos []PatternInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".yaml")
		if len(base) < len(saveTimestampLayout) {
			continue
		}
		ts, err := time.Parse(saveTimestampLayout, base[:len(saveTimestampLayout)])
		if err != nil {
			continue // not a timestamped save
		}
		name := ""
		if len(base) > len(saveTimestampLayout)+1 {
			name = base[len(saveTimestampLayout)+1:]
		}
		infos = append(infos, PatternInfo{
			Path:      filepath.Join(dir, entry.Name()),
			Name:      name,
			Timestamp: ts,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

func normalizePattern(p Pattern) Pattern {
	if p.Length < 1 {
		p.Length = DefaultPatternLength
	}
	if p.TimeSig.Numerator < 1 || p.TimeSig.Denominator < 1 {
		p.TimeSig = TimeSignature{Numerator: 4, Denominator: 4}
	}
	for i := range p.Tracks {
		t := &p.Tracks[i]
		t.Volume = clamp01(t.Volume)
		t.Steps = resizeSteps(t.Steps, p.Length)
		if t.ID == "" {
			t.ID = newID("trk")
		}
	}
	if p.ID == "" {
		p.ID = newID("pat")
	}
	return p
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
