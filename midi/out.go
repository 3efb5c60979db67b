package midi

import (
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"stepbox/diag"
	"stepbox/engine"
)

// gateTime is how long a triggered drum note is held before NoteOff.
const gateTime = 50 * time.Millisecond

// Output is a voice-output backend that sends triggers to a MIDI port,
// translating sample IDs to notes through a drum kit table. The port is
// opened lazily on first use so the engine can start before the hardware
// is plugged in.
type Output struct {
	portName string
	channel  uint8 // 0-based MIDI channel
	kit      Kit
	clock    engine.Clock
	log      diag.Logger

	mu     sync.Mutex
	sender func(gomidi.Message) error
}

// NewOutput creates a MIDI output on the named port. channel is the human
// 1-16 channel number; an empty portName picks the first available port.
func NewOutput(portName string, channel uint8, kit Kit, clock engine.Clock, log diag.Logger) *Output {
	if channel < 1 || channel > 16 {
		channel = 10 // GM percussion channel
	}
	if log == nil {
		log = diag.Nop()
	}
	return &Output{
		portName: portName,
		channel:  channel - 1,
		kit:      kit,
		clock:    clock,
		log:      log,
	}
}

// Has reports whether the kit can voice the given sample.
func (o *Output) Has(sampleID string) bool {
	_, ok := o.kit.Notes[sampleID]
	return ok
}

// PlayVoice schedules a NoteOn at the trigger's time and a NoteOff one
// gate later. Triggers whose time already passed fire immediately.
func (o *Output) PlayVoice(t engine.Trigger) {
	note, ok := o.kit.Notes[t.SampleID]
	if !ok {
		o.log.Debug("no kit note for sample", "sample", t.SampleID, "kit", o.kit.Name)
		return
	}
	send := o.getSender()
	if send == nil {
		return
	}

	gain := t.Gain
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	velocity := uint8(gain * 127)

	fire := func() {
		if err := send(gomidi.NoteOn(o.channel, note, velocity)); err != nil {
			o.log.Error("note on failed", "note", note, "err", err)
			return
		}
		time.AfterFunc(gateTime, func() {
			send(gomidi.NoteOff(o.channel, note))
		})
	}

	delay := time.Duration((t.Time - o.clock.Now()) * float64(time.Second))
	if delay <= 0 {
		fire()
		return
	}
	time.AfterFunc(delay, fire)
}

// getSender returns the port sender, lazily opening the port.
func (o *Output) getSender() func(gomidi.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sender != nil {
		return o.sender
	}

	ports := gomidi.GetOutPorts()
	for _, port := range ports {
		if o.portName == "" || port.String() == o.portName {
			sender, err := gomidi.SendTo(port)
			if err != nil {
				o.log.Error("cannot open MIDI port", "port", port.String(), "err", err)
				return nil
			}
			o.log.Info("MIDI port opened", "port", port.String())
			o.sender = sender
			return sender
		}
	}
	o.log.Warn("MIDI port not found", "want", o.portName, "available", len(ports))
	return nil
}

// Close releases the MIDI driver.
func (o *Output) Close() error {
	o.mu.Lock()
	o.sender = nil
	o.mu.Unlock()
	gomidi.CloseDriver()
	return nil
}
