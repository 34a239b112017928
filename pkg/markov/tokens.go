package markov

import "io"

// Token is a single unit read from a chord chart: either a chord symbol or a
// marker ending the current progression.
type Token struct {
	Text string
	EOP  bool
}

// Tokenizer defines how chord charts are split into tokens and how generated
// chords are joined back into text, keeping training and output independent of
// any one chart format.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Join renders a progression of chord symbols as text.
	Join(chords []string) string
}

// StreamTokenizer is a stateful tokenizer over a stream of chord chart text.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}
