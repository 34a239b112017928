package voicing

import (
	"errors"
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		symbol string
		notes  []uint8
	}{
		{symbol: "C", notes: []uint8{60, 64, 67}},
		{symbol: "Am", notes: []uint8{69, 72, 76}},
		{symbol: "F#dim", notes: []uint8{66, 69, 72}},
		{symbol: "Bb7", notes: []uint8{70, 74, 77, 80}},
		{symbol: "Cb", notes: []uint8{71, 75, 78}},
		{symbol: "Dm7b5", notes: []uint8{62, 65, 68, 72}},
		{symbol: "C/G", notes: []uint8{55, 60, 64, 67}},
		{symbol: "Gsus4", notes: []uint8{67, 72, 74}},
	}

	for _, tc := range testCases {
		t.Run(tc.symbol, func(t *testing.T) {
			c, err := Parse(tc.symbol)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := c.Notes(4); !slices.Equal(got, tc.notes) {
				t.Errorf("expected notes %v, got %v", tc.notes, got)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, symbol := range []string{"", "H", "Cxyz", "C/", "C/Gm", "c"} {
		if _, err := Parse(symbol); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Parse(%q): expected ErrInvalidSymbol, got %v", symbol, err)
		}
	}
}

func TestNotesRange(t *testing.T) {
	c, err := Parse("G9")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range c.Notes(9) {
		if n > 127 {
			t.Errorf("note %d out of midi range", n)
		}
	}
	if len(c.Notes(9)) >= len(c.Intervals) {
		t.Errorf("expected out of range notes to be dropped, got %v", c.Notes(9))
	}
}
