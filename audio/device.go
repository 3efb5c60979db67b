package audio

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// Device owns the oto context and player pulling audio from a Mixer.
type Device struct {
	player *oto.Player
}

// Open creates the audio device and starts pulling from the mixer.
func Open(m *Mixer) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   m.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	player := ctx.NewPlayer(m)
	player.Play()
	return &Device{player: player}, nil
}

func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("cannot close audio player: %w", err)
	}
	return nil
}
