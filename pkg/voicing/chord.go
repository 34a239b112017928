// Package voicing turns chord symbols such as "Am7" or "F/C" into MIDI notes
// and renders progressions as Standard MIDI Files.
package voicing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSymbol is returned when a chord symbol cannot be parsed.
var ErrInvalidSymbol = errors.New("voicing: invalid chord symbol")

var letterOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// qualities maps a chord suffix to its intervals in semitones above the root.
var qualities = map[string][]int{
	"":      {0, 4, 7},
	"maj":   {0, 4, 7},
	"M":     {0, 4, 7},
	"m":     {0, 3, 7},
	"min":   {0, 3, 7},
	"-":     {0, 3, 7},
	"dim":   {0, 3, 6},
	"°":     {0, 3, 6},
	"aug":   {0, 4, 8},
	"+":     {0, 4, 8},
	"sus2":  {0, 2, 7},
	"sus4":  {0, 5, 7},
	"sus":   {0, 5, 7},
	"5":     {0, 7},
	"6":     {0, 4, 7, 9},
	"m6":    {0, 3, 7, 9},
	"7":     {0, 4, 7, 10},
	"maj7":  {0, 4, 7, 11},
	"M7":    {0, 4, 7, 11},
	"m7":    {0, 3, 7, 10},
	"min7":  {0, 3, 7, 10},
	"-7":    {0, 3, 7, 10},
	"mM7":   {0, 3, 7, 11},
	"m7b5":  {0, 3, 6, 10},
	"ø":     {0, 3, 6, 10},
	"dim7":  {0, 3, 6, 9},
	"°7":    {0, 3, 6, 9},
	"7sus4": {0, 5, 7, 10},
	"add9":  {0, 4, 7, 14},
	"9":     {0, 4, 7, 10, 14},
	"maj9":  {0, 4, 7, 11, 14},
	"m9":    {0, 3, 7, 10, 14},
}

// Chord is a parsed chord symbol.
type Chord struct {
	Symbol    string
	Root      int // pitch class, 0 = C
	Bass      int // pitch class of the bass note, -1 unless a slash chord
	Intervals []int
}

// Parse reads a chord symbol made of a root letter, an optional '#' or 'b',
// a quality suffix and an optional "/bass" note.
func Parse(symbol string) (Chord, error) {
	body, bassText, slash := strings.Cut(symbol, "/")

	root, rest, err := parseNote(body)
	if err != nil {
		return Chord{}, fmt.Errorf("%w %q: %v", ErrInvalidSymbol, symbol, err)
	}

	intervals, ok := qualities[rest]
	if !ok {
		return Chord{}, fmt.Errorf("%w %q: unknown quality %q", ErrInvalidSymbol, symbol, rest)
	}

	bass := -1
	if slash {
		var tail string
		bass, tail, err = parseNote(bassText)
		if err != nil || tail != "" {
			return Chord{}, fmt.Errorf("%w %q: bad bass note %q", ErrInvalidSymbol, symbol, bassText)
		}
	}

	return Chord{Symbol: symbol, Root: root, Bass: bass, Intervals: intervals}, nil
}

// parseNote reads a note letter and accidental from the front of s and returns
// its pitch class and the remainder of s.
func parseNote(s string) (int, string, error) {
	if s == "" {
		return 0, "", errors.New("missing root")
	}
	offset, ok := letterOffsets[s[0]]
	if !ok {
		return 0, "", fmt.Errorf("invalid note letter %q", s[0])
	}
	s = s[1:]
	if s != "" {
		switch s[0] {
		case '#':
			offset++
			s = s[1:]
		case 'b':
			offset--
			s = s[1:]
		}
	}
	return (offset + 12) % 12, s, nil
}

// Notes voices the chord with its root in the given octave (C4 = 60) and the
// bass of a slash chord one octave below. Notes outside 0..127 are dropped.
func (c Chord) Notes(octave int) []uint8 {
	base := (octave+1)*12 + c.Root
	notes := make([]uint8, 0, len(c.Intervals)+1)
	if c.Bass >= 0 {
		if n := octave*12 + c.Bass; n >= 0 && n <= 127 {
			notes = append(notes, uint8(n))
		}
	}
	for _, interval := range c.Intervals {
		if n := base + interval; n >= 0 && n <= 127 {
			notes = append(notes, uint8(n))
		}
	}
	return notes
}
