// Package midisink plays fired transits as chords on a MIDI output port.
package midisink

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the default driver

	"github.com/starchime/starchime/internal/scheduler"
)

const channel = 0

// Sink sends the four dyads of each fired transit as one chord: note-on for
// every dyad, hold, note-off for every dyad.
type Sink struct {
	out      drivers.Out
	send     func(midi.Message) error
	duration time.Duration
}

// New opens a MIDI output port. An empty portName selects the first
// available port; otherwise the name is matched as a substring.
func New(portName string, noteDuration time.Duration) (*Sink, error) {
	var out drivers.Out
	var err error

	if portName != "" {
		out, err = midi.FindOutPort(portName)
		if err != nil {
			return nil, fmt.Errorf("no MIDI output port matching %q: %w", portName, err)
		}
	} else {
		ports := midi.GetOutPorts()
		if len(ports) == 0 {
			return nil, fmt.Errorf("no MIDI output ports found; connect a synth or create a virtual port")
		}
		out = ports[0]
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("opening MIDI port %s: %w", out.String(), err)
	}

	return &Sink{out: out, send: send, duration: noteDuration}, nil
}

// PortNames lists the available MIDI output port names.
func PortNames() []string {
	ports := midi.GetOutPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}

// Close releases the MIDI driver.
func (s *Sink) Close() {
	midi.CloseDriver()
}

// Port returns the name of the opened output port.
func (s *Sink) Port() string { return s.out.String() }

// Name implements sinks.Sink.
func (s *Sink) Name() string { return "midi" }

// HandleTransit plays the chord. When the context expires before the hold
// finishes, the note-offs are still sent so no notes hang.
func (s *Sink) HandleTransit(ctx context.Context, f *scheduler.Firing) error {
	for _, d := range f.Dyads {
		if err := s.send(midi.NoteOn(channel, uint8(d.Note), uint8(d.Velocity))); err != nil {
			return fmt.Errorf("MIDI note on: %w", err)
		}
	}

	hold := time.NewTimer(s.duration)
	select {
	case <-ctx.Done():
		hold.Stop()
	case <-hold.C:
	}

	var firstErr error
	for _, d := range f.Dyads {
		if err := s.send(midi.NoteOff(channel, uint8(d.Note))); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("MIDI note off: %w", err)
		}
	}
	return firstErr
}
