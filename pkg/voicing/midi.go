package voicing

import (
	"errors"
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// renderOptions holds the settings applied by RenderOption functions.
type renderOptions struct {
	tempo         float64
	beatsPerChord uint32
	octave        int
}

// RenderOption configures WriteSMF.
type RenderOption func(*renderOptions)

// WithTempo sets the tempo in beats per minute.
func WithTempo(bpm float64) RenderOption {
	return func(o *renderOptions) { o.tempo = bpm }
}

// WithBeatsPerChord sets how many quarter notes each chord is held.
func WithBeatsPerChord(beats uint32) RenderOption {
	return func(o *renderOptions) { o.beatsPerChord = beats }
}

// WithOctave sets the octave of every chord root.
func WithOctave(octave int) RenderOption {
	return func(o *renderOptions) { o.octave = octave }
}

// ErrInvalidOctave is returned by WriteSMF for an octave whose C lies outside
// the MIDI note range.
var ErrInvalidOctave = errors.New("voicing: octave out of midi range")

const (
	// minOctave and maxOctave bound the octaves whose C is a MIDI note.
	minOctave = -1
	maxOctave = 9

	// clock is the resolution of rendered files in ticks per quarter note.
	clock = smf.MetricTicks(960)

	channel  = 0
	velocity = 90
)

// WriteSMF renders the chord symbols as a single-track Standard MIDI File on w,
// one block chord after another. Every symbol is parsed before anything is
// written.
func WriteSMF(w io.Writer, symbols []string, opts ...RenderOption) error {
	options := &renderOptions{
		tempo:         120,
		beatsPerChord: 4,
		octave:        4,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.beatsPerChord == 0 {
		return fmt.Errorf("beats per chord must be positive")
	}
	if options.octave < minOctave || options.octave > maxOctave {
		return fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidOctave, options.octave, minOctave, maxOctave)
	}

	voiced := make([][]uint8, 0, len(symbols))
	for _, symbol := range symbols {
		c, err := Parse(symbol)
		if err != nil {
			return err
		}
		voiced = append(voiced, c.Notes(options.octave))
	}

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(options.tempo))
	hold := clock.Ticks4th() * options.beatsPerChord
	// rest carries the time of chords with no playable notes.
	var rest uint32
	for _, notes := range voiced {
		if len(notes) == 0 {
			rest += hold
			continue
		}
		for i, n := range notes {
			var delta uint32
			if i == 0 {
				delta, rest = rest, 0
			}
			tr.Add(delta, midi.NoteOn(channel, n, velocity))
		}
		for i, n := range notes {
			var delta uint32
			if i == 0 {
				delta = hold
			}
			tr.Add(delta, midi.NoteOff(channel, n))
		}
	}
	tr.Close(rest)

	s := smf.New()
	s.TimeFormat = clock
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write midi file: %w", err)
	}
	return nil
}
