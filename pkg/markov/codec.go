package markov

import (
	"errors"
	"strings"
)

// Codec converts chords to and from their text form. It is used whenever a
// table leaves memory: tokenized training, SQLite storage and JSON export.
type Codec[C comparable] interface {
	Encode(C) (string, error)
	Decode(string) (C, error)
}

// ErrInvalidChord is returned by codecs for text that cannot name a chord.
var ErrInvalidChord = errors.New("markov: invalid chord text")

// StringCodec is the identity codec for tables of chord symbols. It rejects
// empty symbols and symbols containing whitespace, since stored histories are
// space separated.
type StringCodec struct{}

// Encode returns c unchanged after validating it.
func (StringCodec) Encode(c string) (string, error) {
	if c == "" || strings.ContainsAny(c, " \t\r\n") {
		return "", ErrInvalidChord
	}
	return c, nil
}

// Decode returns s unchanged after validating it.
func (StringCodec) Decode(s string) (string, error) {
	return StringCodec{}.Encode(s)
}
