package idl

import (
	"fmt"
	"strings"
)

// Scanner tokenizes varlink IDL source lazily: each call to Next
// advances past exactly one token. Whitespace is insignificant except
// as a token separator; a leading UTF-8 BOM is accepted and skipped.
type Scanner struct {
	src string
	pos int
}

// NewScanner returns a Scanner positioned at the start of src.
func NewScanner(src string) *Scanner {
	src = strings.TrimPrefix(src, "\ufeff")
	return &Scanner{src: src}
}

const punctChars = "()[]?:,"

// Next returns the next token, or a *SyntaxError if the source contains
// a byte that cannot start any valid token.
func (s *Scanner) Next() (Token, error) {
	s.skipWhitespace()
	if s.pos >= len(s.src) {
		return Token{Kind: TokEOF, Offset: s.pos}, nil
	}

	start := s.pos
	c := s.src[s.pos]

	switch {
	case c == '#':
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.pos++
		}
		text := strings.TrimSpace(s.src[start+1 : s.pos])
		return Token{Kind: TokComment, Text: text, Offset: start, Length: s.pos - start}, nil

	case c == '-':
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '>' {
			s.pos += 2
			return Token{Kind: TokPunct, Text: "->", Offset: start, Length: 2}, nil
		}
		return Token{}, s.errAt(start, "unexpected character %q", c)

	case strings.IndexByte(punctChars, c) >= 0:
		s.pos++
		return Token{Kind: TokPunct, Text: string(c), Offset: start, Length: 1}, nil

	case isIdentStart(c):
		for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
			s.pos++
		}
		return Token{Kind: TokIdent, Text: s.src[start:s.pos], Offset: start, Length: s.pos - start}, nil

	default:
		return Token{}, s.errAt(start, "unexpected character %q", c)
	}
}

// ScanDotname reads a reverse-DNS interface name: letters, digits,
// dots and hyphens, stopping at the first character that cannot be
// part of one. Unlike Next, it is not a general-purpose token
// production; it exists because Dotname is the one place the varlink
// grammar allows '.' and '-' inside a name.
func (s *Scanner) ScanDotname() (Token, error) {
	s.skipWhitespace()
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isIdentPart(c) || c == '.' || c == '-' {
			s.pos++
			continue
		}
		break
	}
	if s.pos == start {
		return Token{}, s.errAt(start, "expected an interface name")
	}
	return Token{Kind: TokIdent, Text: s.src[start:s.pos], Offset: start, Length: s.pos - start}, nil
}

func (s *Scanner) skipWhitespace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *Scanner) errAt(offset int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Kind:    ExpectedToken,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
		Source:  s.src,
	}
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
