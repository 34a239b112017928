package markov

import (
	"math"
	"testing"
)

func TestStats(t *testing.T) {
	table := NewTable[string]()
	table.TrainProgression(chordsOf("C F G C"))

	s := table.Stats()
	if s.Histories != 7 {
		t.Errorf("Histories = %d, want 7", s.Histories)
	}
	if s.Observations != 10 {
		t.Errorf("Observations = %d, want 10", s.Observations)
	}
	if s.Vocabulary != 3 {
		t.Errorf("Vocabulary = %d, want 3", s.Vocabulary)
	}
	if want := [MaxHistoryLength + 1]int{1, 3, 2, 1}; s.ByLength != want {
		t.Errorf("ByLength = %v, want %v", s.ByLength, want)
	}

	// Only the empty history has more than one candidate: C 1/2, F 1/4, G 1/4.
	want := 1.5 * math.Ln2 / 7
	if math.Abs(s.MeanEntropy-want) > 1e-9 {
		t.Errorf("MeanEntropy = %v, want %v", s.MeanEntropy, want)
	}
}

func TestStatsEmpty(t *testing.T) {
	if s := NewTable[string]().Stats(); s != (TableStats{}) {
		t.Errorf("expected zero stats for an empty table, got %+v", s)
	}
}
