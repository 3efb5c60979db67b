package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeRaw(t *testing.T, path string, pcm []float32) {
	t.Helper()
	buf := make([]byte, len(pcm)*4)
	for i, s := range pcm {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBankRegisterCopies(t *testing.T) {
	b := NewBank()
	pcm := []float32{1, 2, 3}
	b.Register("kick", pcm)
	pcm[0] = 99

	if got := b.lookup("kick"); got[0] != 1 {
		t.Errorf("registered pcm aliases the caller's slice: %v", got)
	}
	if !b.Has("kick") || b.Has("snare") {
		t.Error("Has() wrong")
	}
}

func TestBankLoadRaw(t *testing.T) {
	dir := t.TempDir()
	want := []float32{0.5, -0.25, 1}
	writeRaw(t, filepath.Join(dir, "kick.raw"), want)
	writeRaw(t, filepath.Join(dir, "snare.raw"), []float32{0.1})
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewBank()
	if err := b.LoadRawDir(dir); err != nil {
		t.Fatalf("LoadRawDir: %v", err)
	}
	if got := b.IDs(); !reflect.DeepEqual(got, []string{"kick", "snare"}) {
		t.Fatalf("IDs() = %v", got)
	}
	if got := b.lookup("kick"); !reflect.DeepEqual(got, want) {
		t.Errorf("kick pcm = %v, want %v", got, want)
	}
}

func TestLoadRawDirMissingIsFine(t *testing.T) {
	b := NewBank()
	if err := b.LoadRawDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing dir: %v", err)
	}
	if got := b.IDs(); len(got) != 0 {
		t.Errorf("IDs() = %v", got)
	}
}
