package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
)

// ErrEmptyTable is returned by SampleNext when no continuation exists even for
// the empty history, meaning the table was never trained.
var ErrEmptyTable = errors.New("markov: no continuations trained for the empty history")

// tableOptions holds the settings applied by TableOption functions.
type tableOptions struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// TableOption configures a Table at construction time.
type TableOption func(*tableOptions)

// WithSeed makes the table draw from a PCG source seeded with seed, so the
// sequence of sampled chords is reproducible.
func WithSeed(seed uint64) TableOption {
	return func(o *tableOptions) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand injects the random source used for sampling. The table takes
// ownership of r; it must not be shared with other goroutines.
func WithRand(r *rand.Rand) TableOption {
	return func(o *tableOptions) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithLogger sets the logger used for training and sampling diagnostics.
func WithLogger(logger *slog.Logger) TableOption {
	return func(o *tableOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Table maps chord histories to the chords observed to follow them. Every
// continuation list keeps duplicates in insertion order; a chord seen k times
// after a history is k times as likely to be sampled for it.
//
// A Table is safe for concurrent use.
type Table[C comparable] struct {
	mu      sync.Mutex
	entries map[History[C]][]C
	rng     *rand.Rand
	logger  *slog.Logger
}

// NewTable returns an empty table. Without WithSeed or WithRand the random
// source is seeded from the runtime's global generator.
func NewTable[C comparable](opts ...TableOption) *Table[C] {
	options := &tableOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if options.logger == nil {
		options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Table[C]{
		entries: make(map[History[C]][]C),
		rng:     options.rng,
		logger:  options.logger,
	}
}

// SetLogger replaces the table's logger. By default all logs are discarded.
func (t *Table[C]) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
}

// MaxHistoryLength returns the longest history the table keys on.
func (t *Table[C]) MaxHistoryLength() int {
	return MaxHistoryLength
}

// Train records that chord followed history, then records the same chord for
// every shorter suffix of history down to the empty one.
//
// An observation whose history ends in three or more identical chords and
// whose chord repeats them again is dropped at that level and not propagated,
// which keeps the table from learning endless runs of one chord.
func (t *Table[C]) Train(history []C, chord C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.train(NewHistory(history), chord)
}

func (t *Table[C]) train(h History[C], chord C) {
	for {
		if last, ok := h.Last(); ok && h.repeats() && chord == last {
			return
		}
		t.entries[h] = append(t.entries[h], chord)
		if h.Len() == 0 {
			return
		}
		h = h.Suffix()
	}
}

// SampleNext picks a chord to follow history. If history has never been
// trained, its oldest chord is dropped until a trained suffix is found. The
// choice is uniform over the continuation list, so frequent continuations win
// proportionally more often.
//
// When debug is set, the candidates, the selection and its probability are
// logged at info level.
func (t *Table[C]) SampleNext(history []C, debug bool) (C, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := NewHistory(history)
	for {
		candidates := t.entries[h]
		if len(candidates) > 0 {
			chosen := candidates[t.rng.IntN(len(candidates))]
			if debug {
				t.logger.Info("Sampled next chord",
					slog.String("history", h.String()),
					slog.String("candidates", fmt.Sprint(candidates)),
					slog.String("selected", fmt.Sprint(chosen)),
					slog.String("probability", fmt.Sprintf("%.2f%%", probability(candidates, chosen)*100)),
				)
			}
			return chosen, nil
		}
		if h.Len() == 0 {
			var zero C
			return zero, ErrEmptyTable
		}
		t.logger.Debug("Backing off to shorter history", slog.String("history", h.String()))
		h = h.Suffix()
	}
}

// Continuations returns a copy of the continuation list stored for exactly
// history, or nil if there is none. No backoff is applied.
func (t *Table[C]) Continuations(history []C) []C {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.entries[NewHistory(history)]
	if list == nil {
		return nil
	}
	out := make([]C, len(list))
	copy(out, list)
	return out
}

// Len returns the number of distinct histories in the table.
func (t *Table[C]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Range calls fn for every history and a copy of its continuation list, in no
// particular order, until fn returns false. fn must not call back into t.
func (t *Table[C]) Range(fn func(History[C], []C) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h, list := range t.entries {
		cp := make([]C, len(list))
		copy(cp, list)
		if !fn(h, cp) {
			return
		}
	}
}

// Merge appends every continuation list of other to the matching list of t.
// No suffix propagation or repetition suppression is applied, since other's
// lists were already built by training.
func (t *Table[C]) Merge(other *Table[C]) {
	var entries []rawEntry[C]
	other.Range(func(h History[C], list []C) bool {
		entries = append(entries, rawEntry[C]{history: h, chords: list})
		return true
	})
	for _, e := range entries {
		t.appendRaw(e.history, e.chords)
	}
}

// rawEntry is a history with continuations waiting to be appended to a table.
type rawEntry[C comparable] struct {
	history History[C]
	chords  []C
}

// appendRaw adds continuations to exactly h, bypassing suffix propagation and
// repetition suppression. It is used when restoring persisted tables.
func (t *Table[C]) appendRaw(h History[C], chords []C) {
	if len(chords) == 0 {
		return
	}
	t.mu.Lock()
	t.entries[h] = append(t.entries[h], chords...)
	t.mu.Unlock()
}

// probability is the share of list taken by c.
func probability[C comparable](list []C, c C) float64 {
	if len(list) == 0 {
		return 0
	}
	n := 0
	for _, v := range list {
		if v == c {
			n++
		}
	}
	return float64(n) / float64(len(list))
}
