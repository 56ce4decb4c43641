package jack

import (
	"fmt"
	"strings"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	KEYWORD    // reserved word
	SYMBOL     // one of {}()[].,;+-*/&|<>=~
	INTEGER    // decimal constant 0..32767
	STRING     // string constant, quotes removed
	IDENTIFIER // class, subroutine or variable name
)

var tokenNames = [...]string{
	EOF:        "EOF",
	KEYWORD:    "keyword",
	SYMBOL:     "symbol",
	INTEGER:    "integerConstant",
	STRING:     "stringConstant",
	IDENTIFIER: "identifier",
}

// String returns the XML element name used for the token type.
func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit. Two tokens are the same token when Type
// and Lexeme match; Line is only carried for diagnostics.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

func (t Token) String() string {
	if t.Type == STRING {
		return fmt.Sprintf("%q", t.Lexeme)
	}
	return t.Lexeme
}

// Is reports whether t is the given keyword or symbol.
func (t Token) Is(typ TokenType, lexeme string) bool {
	return t.Type == typ && t.Lexeme == lexeme
}

// XML renders the token as a single element line.
func (t Token) XML() string {
	return fmt.Sprintf("<%s> %s </%s>", t.Type, escapeXML(t.Lexeme), t.Type)
}

var keywords = map[string]bool{
	"class":       true,
	"constructor": true,
	"function":    true,
	"method":      true,
	"field":       true,
	"static":      true,
	"var":         true,
	"int":         true,
	"char":        true,
	"boolean":     true,
	"void":        true,
	"true":        true,
	"false":       true,
	"null":        true,
	"this":        true,
	"let":         true,
	"do":          true,
	"if":          true,
	"else":        true,
	"while":       true,
	"return":      true,
}

const symbols = "{}()[].,;+-*/&|<>=~"

func isSymbol(r rune) bool {
	return strings.ContainsRune(symbols, r)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// TokensXML renders the token stream wrapped in a <tokens> element.
func TokensXML(tokens []Token) string {
	lines := make([]string, 0, len(tokens)+2)
	lines = append(lines, "<tokens>")
	for _, t := range tokens {
		lines = append(lines, t.XML())
	}
	lines = append(lines, "</tokens>")
	return strings.Join(lines, "\n")
}
