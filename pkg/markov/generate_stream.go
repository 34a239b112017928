package markov

import (
	"context"
	"log/slog"
)

// GenerateStream works like Generate but delivers chords one at a time over a
// read-only channel. The channel is closed once generation is complete, the
// context is cancelled, or sampling fails. ErrEmptyTable is returned up front
// when the table has no entry for the empty history.
func (t *Table[C]) GenerateStream(ctx context.Context, seed []C, opts ...GenerateOption) (<-chan C, error) {
	if t.Continuations(nil) == nil {
		return nil, ErrEmptyTable
	}

	options := newGenerateOptions(opts)
	window := NewHistory(seed).Chords()
	chordChan := make(chan C)

	go func() {
		defer close(chordChan)

		for generated := 0; generated < options.length; generated++ {
			select {
			case <-ctx.Done():
				t.log().DebugContext(ctx, "Generation stream cancelled by context")
				return
			default:
				// continue
			}

			next, err := t.SampleNext(window, options.debug)
			if err != nil {
				t.log().ErrorContext(ctx, "failed to sample next chord for stream",
					slog.Int("generated_length", generated),
					slog.Any("error", err),
				)
				return
			}

			select {
			case <-ctx.Done():
				return
			case chordChan <- next:
			}
			window = slide(window, next)
		}
	}()

	return chordChan, nil
}
