package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxProgressionLength prevents runaway progressions from taking up a large amount of memory.
const maxProgressionLength = 4096

// TrainProgression trains the table on a whole progression. Each chord is
// recorded as following the up to MaxHistoryLength chords before it, so the
// first chord is trained against the empty history.
func (t *Table[C]) TrainProgression(progression []C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, chord := range progression {
		start := max(0, i-MaxHistoryLength)
		t.train(NewHistory(progression[start:i]), chord)
	}
}

// TrainReader tokenizes a chord chart from r, decodes every chord with codec
// and trains t on each progression. It returns the number of progressions
// trained. A chord the codec rejects aborts training; progressions already
// trained stay in the table.
func TrainReader[C comparable](ctx context.Context, t *Table[C], tokenizer Tokenizer, codec Codec[C], r io.Reader) (int, error) {
	stream := tokenizer.NewStream(r)

	var progression []C
	var count int

	flush := func() {
		if len(progression) > 0 {
			t.TrainProgression(progression)
			count++
			progression = progression[:0]
		}
	}

	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, fmt.Errorf("tokenizer error: %w", err)
		}

		if token.EOP || len(progression) >= maxProgressionLength {
			flush()
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if token.EOP {
				continue
			}
		}

		chord, err := codec.Decode(token.Text)
		if err != nil {
			return count, fmt.Errorf("could not decode chord '%s': %w", token.Text, err)
		}
		progression = append(progression, chord)
	}
	flush()

	t.log().InfoContext(ctx, "Training completed",
		slog.Int("progressions_processed", count),
		slog.Int("histories", t.Len()),
	)

	return count, nil
}

// log returns the current logger.
func (t *Table[C]) log() *slog.Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logger
}
