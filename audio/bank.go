package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Bank holds decoded mono PCM keyed by sample ID. Decoding audio formats
// is out of scope here; callers register frames that are already PCM,
// either directly or from raw float32 files on disk.
type Bank struct {
	mu      sync.RWMutex
	samples map[string][]float32
}

func NewBank() *Bank {
	return &Bank{samples: make(map[string][]float32)}
}

// Register stores pcm under id, copying the slice so later caller writes
// cannot reach the mixer.
func (b *Bank) Register(id string, pcm []float32) {
	frames := make([]float32, len(pcm))
	copy(frames, pcm)
	b.mu.Lock()
	b.samples[id] = frames
	b.mu.Unlock()
}

// Has reports whether a sample is registered.
func (b *Bank) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.samples[id]
	return ok
}

// IDs returns the registered sample IDs, sorted.
func (b *Bank) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.samples))
	for id := range b.samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Bank) lookup(id string) []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples[id]
}

// LoadRaw registers one .raw file (mono float32 little-endian frames)
// under its base filename.
func (b *Bank) LoadRaw(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("sample %s: size %d is not a whole number of float32 frames", path, len(data))
	}
	pcm := make([]float32, len(data)/4)
	for i := range pcm {
		pcm[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	id := strings.TrimSuffix(filepath.Base(path), ".raw")
	b.Register(id, pcm)
	return nil
}

// LoadRawDir registers every .raw file in dir. A missing directory is
// fine; an empty bank just never voices anything.
func (b *Bank) LoadRawDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".raw") {
			continue
		}
		if err := b.LoadRaw(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
