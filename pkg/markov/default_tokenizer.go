package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// DefaultTokenizer reads plain-text chord charts. Each line is a progression
// and an explicit end-of-progression token (";" by default) may split a line
// into several. Bar lines and commas only separate chords.
type DefaultTokenizer struct {
	separator  string
	tokenRegex *regexp.Regexp
	eopRegex   *regexp.Regexp
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining chords in output.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithTokenRegex sets the regex used to find tokens in a line.
// Default: `[^\s|,;]+|;`
func WithTokenRegex(tokenRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.tokenRegex = regexp.MustCompile(tokenRegex)
	}
}

// WithEOPRegex sets the regex deciding whether a token ends a progression.
// Default: `^;$`
func WithEOPRegex(eopRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.eopRegex = regexp.MustCompile(eopRegex)
	}
}

// NewDefaultTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Any run of characters that is not whitespace, a bar line, a comma or
		// a semicolon, OR a lone semicolon.
		tokenRegex: regexp.MustCompile(`[^\s|,;]+|;`),
		eopRegex:   regexp.MustCompile(`^;$`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Join Returns the chords joined with the configured separator.
func (t *DefaultTokenizer) Join(chords []string) string {
	return strings.Join(chords, t.separator)
}

// maxLineLength bounds a single chart line. It leaves room for several
// maximum-length progressions on one line.
const maxLineLength = 4 * 1024 * 1024

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &DefaultStreamTokenizer{
		scanner:    scanner,
		tokenRegex: t.tokenRegex,
		eopRegex:   t.eopRegex,
	}
}

// DefaultStreamTokenizer is the default implementation of StreamTokenizer. It
// scans line by line and emits an EOP token at the end of every line that
// left a progression open.
type DefaultStreamTokenizer struct {
	scanner    *bufio.Scanner
	buffer     []Token
	tokenRegex *regexp.Regexp
	eopRegex   *regexp.Regexp
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns a nil Token and io.EOF. Any other error indicates a problem
// reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (*Token, error) {
	for len(s.buffer) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		open := false
		for _, text := range s.tokenRegex.FindAllString(s.scanner.Text(), -1) {
			eop := s.eopRegex.MatchString(text)
			s.buffer = append(s.buffer, Token{Text: text, EOP: eop})
			open = !eop
		}
		if open {
			s.buffer = append(s.buffer, Token{EOP: true})
		}
	}

	token := s.buffer[0]
	s.buffer = s.buffer[1:]
	return &token, nil
}
