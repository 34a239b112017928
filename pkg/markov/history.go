package markov

import (
	"fmt"
	"strings"
)

// MaxHistoryLength is the longest chord history tracked by a Table.
const MaxHistoryLength = 3

// History is an immutable, ordered run of up to MaxHistoryLength chords. It is
// a plain value, so two histories holding the same chords in the same order
// compare equal and can be used directly as map keys.
type History[C comparable] struct {
	chords [MaxHistoryLength]C
	n      int
}

// NewHistory builds a History from chords. Only the most recent
// MaxHistoryLength chords are kept; a nil slice yields the empty history.
// The input slice is copied and never retained.
func NewHistory[C comparable](chords []C) History[C] {
	if len(chords) > MaxHistoryLength {
		chords = chords[len(chords)-MaxHistoryLength:]
	}
	var h History[C]
	h.n = copy(h.chords[:], chords)
	return h
}

// Len returns the number of chords in the history.
func (h History[C]) Len() int {
	return h.n
}

// Chords returns a fresh slice with the chords of the history, oldest first.
func (h History[C]) Chords() []C {
	out := make([]C, h.n)
	copy(out, h.chords[:h.n])
	return out
}

// Last returns the most recent chord. ok is false for the empty history.
func (h History[C]) Last() (c C, ok bool) {
	if h.n == 0 {
		return c, false
	}
	return h.chords[h.n-1], true
}

// Suffix drops the oldest chord. The suffix of the empty history is itself.
func (h History[C]) Suffix() History[C] {
	if h.n == 0 {
		return h
	}
	var s History[C]
	s.n = copy(s.chords[:], h.chords[1:h.n])
	return s
}

// repeats reports whether the history is long enough to be checked for
// repetition and its trailing chords are all equal to their predecessors. The
// scan runs backwards from the last chord and stops at the first unequal pair.
func (h History[C]) repeats() bool {
	same := false
	if h.n > 2 {
		for i := h.n - 1; i > 0; i-- {
			same = h.chords[i] == h.chords[i-1]
			if !same {
				break
			}
		}
	}
	return same
}

// String renders the history as a bracketed, space separated list.
func (h History[C]) String() string {
	parts := make([]string, h.n)
	for i := 0; i < h.n; i++ {
		parts[i] = fmt.Sprint(h.chords[i])
	}
	return "[" + strings.Join(parts, " ") + "]"
}
