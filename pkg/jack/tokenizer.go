package jack

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// MaxInt is the largest integer constant the language allows.
const MaxInt = 32767

var (
	ErrUnterminatedString  = errors.New("unterminated string constant")
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrIntegerRange        = errors.New("integer constant out of range")
)

type tokenizer struct {
	src  []rune
	pos  int
	line int

	buf     []rune
	bufLine int

	tokens []Token
}

// Tokenize splits Jack source into tokens, dropping whitespace and both
// comment styles.
func Tokenize(src string) ([]Token, error) {
	t := &tokenizer{src: []rune(src), line: 1}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.tokens, nil
}

func (t *tokenizer) peek() rune {
	if t.pos >= len(t.src) {
		return 0
	}
	return t.src[t.pos]
}

func (t *tokenizer) peek2() rune {
	if t.pos+1 >= len(t.src) {
		return 0
	}
	return t.src[t.pos+1]
}

func (t *tokenizer) advance() rune {
	r := t.src[t.pos]
	t.pos++
	if r == '\n' {
		t.line++
	}
	return r
}

func (t *tokenizer) run() error {
	for t.pos < len(t.src) {
		r := t.peek()
		switch {
		case r == '/' && t.peek2() == '/':
			if err := t.flush(); err != nil {
				return err
			}
			t.skipLineComment()
		case r == '/' && t.peek2() == '*':
			if err := t.flush(); err != nil {
				return err
			}
			if err := t.skipBlockComment(); err != nil {
				return err
			}
		case r == '"':
			if err := t.flush(); err != nil {
				return err
			}
			if err := t.scanString(); err != nil {
				return err
			}
		case isSymbol(r):
			if err := t.flush(); err != nil {
				return err
			}
			t.emit(SYMBOL, string(t.advance()), t.line)
		case unicode.IsSpace(r):
			if err := t.flush(); err != nil {
				return err
			}
			t.advance()
		default:
			if len(t.buf) == 0 {
				t.bufLine = t.line
			}
			t.buf = append(t.buf, t.advance())
		}
	}
	return t.flush()
}

func (t *tokenizer) emit(typ TokenType, lexeme string, line int) {
	t.tokens = append(t.tokens, Token{Type: typ, Lexeme: lexeme, Line: line})
}

// flush classifies the pending word as keyword, integer or identifier.
func (t *tokenizer) flush() error {
	if len(t.buf) == 0 {
		return nil
	}
	word := string(t.buf)
	t.buf = t.buf[:0]

	switch {
	case keywords[word]:
		t.emit(KEYWORD, word, t.bufLine)
	case isDigits(word):
		n, err := strconv.ParseUint(word, 10, 32)
		if err != nil || n > MaxInt {
			return fmt.Errorf("%w: %s on line %d", ErrIntegerRange, word, t.bufLine)
		}
		t.emit(INTEGER, strconv.FormatUint(n, 10), t.bufLine)
	default:
		t.emit(IDENTIFIER, word, t.bufLine)
	}
	return nil
}

func (t *tokenizer) skipLineComment() {
	for t.pos < len(t.src) && t.peek() != '\n' {
		t.advance()
	}
}

func (t *tokenizer) skipBlockComment() error {
	startLine := t.line
	t.advance()
	t.advance()
	for t.pos < len(t.src) {
		if t.peek() == '*' && t.peek2() == '/' {
			t.advance()
			t.advance()
			return nil
		}
		t.advance()
	}
	return fmt.Errorf("%w (opened on line %d)", ErrUnterminatedComment, startLine)
}

func (t *tokenizer) scanString() error {
	startLine := t.line
	t.advance()
	start := t.pos
	for t.pos < len(t.src) {
		switch t.peek() {
		case '"':
			t.emit(STRING, string(t.src[start:t.pos]), startLine)
			t.advance()
			return nil
		case '\n':
			return fmt.Errorf("%w on line %d", ErrUnterminatedString, startLine)
		}
		t.advance()
	}
	return fmt.Errorf("%w on line %d", ErrUnterminatedString, startLine)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
