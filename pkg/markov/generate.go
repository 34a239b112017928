package markov

import (
	"context"
	"fmt"
	"log/slog"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	length int
	debug  bool
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithLength sets the number of chords to generate, not counting the seed.
func WithLength(n int) GenerateOption {
	return func(o *generateOptions) { o.length = n }
}

// WithDebug enables the per-step sampling report of SampleNext.
func WithDebug(debug bool) GenerateOption {
	return func(o *generateOptions) { o.debug = debug }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		length: 8,
		debug:  false,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Generate builds a progression by repeatedly sampling the next chord from a
// sliding window of the last MaxHistoryLength chords. The window starts with
// the tail of seed, which may be empty. The returned slice holds only the
// generated chords.
func (t *Table[C]) Generate(ctx context.Context, seed []C, opts ...GenerateOption) ([]C, error) {
	options := newGenerateOptions(opts)

	window := NewHistory(seed).Chords()
	out := make([]C, 0, max(options.length, 0))

	for len(out) < options.length {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := t.SampleNext(window, options.debug)
		if err != nil {
			return nil, fmt.Errorf("failed to sample chord %d of %d: %w", len(out)+1, options.length, err)
		}
		out = append(out, next)
		window = slide(window, next)
	}

	t.log().DebugContext(ctx, "Generation completed",
		slog.Int("seed_length", len(seed)),
		slog.Int("generated_length", len(out)),
	)

	return out, nil
}

// slide appends next to window and drops chords older than MaxHistoryLength.
func slide[C comparable](window []C, next C) []C {
	window = append(window, next)
	if len(window) > MaxHistoryLength {
		window = window[len(window)-MaxHistoryLength:]
	}
	return window
}
