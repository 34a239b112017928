package markov

import (
	"gonum.org/v1/gonum/stat"
)

// TableStats holds aggregated statistics for a single Table.
type TableStats struct {
	Histories    int                       // The number of distinct histories
	Observations int                       // The total length of all continuation lists
	Vocabulary   int                       // The number of distinct chords seen as continuations
	ByLength     [MaxHistoryLength + 1]int // The number of histories of each length
	MeanEntropy  float64                   // Mean entropy, in nats, of each history's continuations
}

// Stats returns a snapshot of statistics for the table.
func (t *Table[C]) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s TableStats
	vocab := make(map[C]struct{})
	var entropySum float64
	counts := make(map[C]int)
	var dist []float64

	for h, list := range t.entries {
		s.Histories++
		s.Observations += len(list)
		s.ByLength[h.Len()]++

		clear(counts)
		for _, c := range list {
			counts[c]++
			vocab[c] = struct{}{}
		}
		dist = dist[:0]
		for _, n := range counts {
			dist = append(dist, float64(n)/float64(len(list)))
		}
		entropySum += stat.Entropy(dist)
	}

	s.Vocabulary = len(vocab)
	if s.Histories > 0 {
		s.MeanEntropy = entropySum / float64(s.Histories)
	}
	return s
}
