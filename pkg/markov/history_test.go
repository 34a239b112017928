package markov

import (
	"reflect"
	"testing"
)

func TestNewHistory(t *testing.T) {
	testCases := []struct {
		name   string
		chords []string
		want   []string
	}{
		{name: "nil is empty", chords: nil, want: []string{}},
		{name: "shorter than max", chords: chordsOf("C F"), want: chordsOf("C F")},
		{name: "exactly max", chords: chordsOf("C F G"), want: chordsOf("C F G")},
		{name: "longer than max keeps most recent", chords: chordsOf("C F G Am Dm"), want: chordsOf("G Am Dm")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHistory(tc.chords)
			if got := h.Chords(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Chords() = %v, want %v", got, tc.want)
			}
			if h.Len() != len(tc.want) {
				t.Errorf("Len() = %d, want %d", h.Len(), len(tc.want))
			}
		})
	}
}

func TestHistoryIsValueKey(t *testing.T) {
	src := chordsOf("C F")
	a := NewHistory(src)
	src[0] = "Am"
	b := NewHistory(chordsOf("C F"))

	if a != b {
		t.Errorf("expected %v and %v to be equal", a, b)
	}

	m := map[History[string]]int{a: 1}
	if m[b] != 1 {
		t.Error("expected an equal history to find the same map entry")
	}

	if NewHistory(chordsOf("C")) == NewHistory(chordsOf("C C")) {
		t.Error("histories of different length must not be equal")
	}
	if NewHistory[string](nil) != NewHistory([]string{}) {
		t.Error("nil and empty histories must be equal")
	}
}

func TestHistorySuffix(t *testing.T) {
	h := NewHistory(chordsOf("C F G"))
	want := [][]string{chordsOf("F G"), chordsOf("G"), {}, {}}
	for i, w := range want {
		h = h.Suffix()
		if got := h.Chords(); !reflect.DeepEqual(got, w) {
			t.Errorf("suffix %d: got %v, want %v", i+1, got, w)
		}
	}
	if h != NewHistory[string](nil) {
		t.Error("suffix chain should end at the empty history")
	}
}

func TestHistoryLast(t *testing.T) {
	if _, ok := NewHistory[string](nil).Last(); ok {
		t.Error("empty history should have no last chord")
	}
	if last, ok := NewHistory(chordsOf("C F")).Last(); !ok || last != "F" {
		t.Errorf("Last() = %q, %v; want \"F\", true", last, ok)
	}
}

func TestHistoryRepeats(t *testing.T) {
	testCases := []struct {
		history string
		want    bool
	}{
		{"", false},
		{"X", false},
		{"X X", false},
		{"X X X", true},
		{"Y X X", false},
		{"X X Y", false},
		{"X Y Y", false},
		{"X Y X", false},
	}

	for _, tc := range testCases {
		t.Run("["+tc.history+"]", func(t *testing.T) {
			if got := NewHistory(chordsOf(tc.history)).repeats(); got != tc.want {
				t.Errorf("repeats() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHistoryString(t *testing.T) {
	if got := NewHistory(chordsOf("C Am")).String(); got != "[C Am]" {
		t.Errorf("String() = %q, want %q", got, "[C Am]")
	}
	if got := NewHistory([]int{1, 4, 5}).String(); got != "[1 4 5]" {
		t.Errorf("String() = %q, want %q", got, "[1 4 5]")
	}
}
