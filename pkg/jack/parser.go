package jack

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parser builds a Class from the flat token slice produced by Tokenize.
//
// Grammar:
//
//	class          = "class" IDENT "{" classVarDec* subroutineDec* "}"
//	classVarDec    = ("static" | "field") type IDENT ("," IDENT)* ";"
//	type           = "int" | "char" | "boolean" | IDENT
//	subroutineDec  = ("constructor" | "function" | "method") ("void" | type) IDENT
//	                 "(" parameterList ")" subroutineBody
//	parameterList  = (type IDENT ("," type IDENT)*)?
//	subroutineBody = "{" varDec* statement* "}"
//	varDec         = "var" type IDENT ("," IDENT)* ";"
//	statement      = let | if | while | do | return
//	expression     = term (op term)*
//	term           = call | INTEGER | STRING | keywordConst | IDENT "[" expression "]"
//	                 | IDENT | "(" expression ")" | ("-" | "~") term
//	call           = (IDENT ".")? IDENT "(" expressionList ")"
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseError reports the token at which matching failed together with the
// whole token stream.
type ParseError struct {
	Index  int
	Token  Token
	Tokens []Token
	Msg    string
}

func (e *ParseError) Error() string {
	remaining := make([]string, 0, len(e.Tokens)-min(e.Index, len(e.Tokens)))
	for _, t := range e.Tokens[min(e.Index, len(e.Tokens)):] {
		remaining = append(remaining, t.String())
	}
	if e.Token.Type == EOF {
		return fmt.Sprintf("invalid token at end of input [@%d]: %s", e.Index, e.Msg)
	}
	return fmt.Sprintf("invalid token %s on line %d [@%d]: %s\n  |> %s",
		e.Token, e.Token.Line, e.Index, e.Msg, strings.Join(remaining, " "))
}

// Parse parses a complete class. Tokens after the closing brace are an
// error.
func Parse(tokens []Token) (*Class, error) {
	return NewParser(tokens).ParseClass()
}

func (p *Parser) fail(format string, args ...any) error {
	return &ParseError{
		Index:  p.pos,
		Token:  p.peek(),
		Tokens: p.tokens,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// accept consumes the current token if it is the given keyword or symbol.
func (p *Parser) accept(tt TokenType, lexeme string) bool {
	if p.peek().Is(tt, lexeme) {
		p.pos++
		return true
	}
	return false
}

// expect is accept that fails when the token does not match.
func (p *Parser) expect(tt TokenType, lexeme string) error {
	if !p.accept(tt, lexeme) {
		return p.fail("expected %s %q", tt, lexeme)
	}
	return nil
}

func (p *Parser) expectIdent() (string, error) {
	if tok := p.peek(); tok.Type == IDENTIFIER {
		p.pos++
		return tok.Lexeme, nil
	}
	return "", p.fail("expected identifier")
}

// acceptOneOf consumes the current keyword or symbol if it is in set.
func (p *Parser) acceptOneOf(tt TokenType, set ...string) (string, bool) {
	tok := p.peek()
	if tok.Type != tt {
		return "", false
	}
	for _, s := range set {
		if tok.Lexeme == s {
			p.pos++
			return s, true
		}
	}
	return "", false
}

func (p *Parser) ParseClass() (*Class, error) {
	if err := p.expect(KEYWORD, "class"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, "{"); err != nil {
		return nil, err
	}

	c := &Class{Name: name}
	for {
		dec, err := p.parseClassVarDec()
		if err != nil {
			return nil, err
		}
		if dec == nil {
			break
		}
		c.VarDecs = append(c.VarDecs, dec)
	}
	for {
		sub, err := p.parseSubroutineDec()
		if err != nil {
			return nil, err
		}
		if sub == nil {
			break
		}
		c.Subroutines = append(c.Subroutines, sub)
	}

	if err := p.expect(SYMBOL, "}"); err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, p.fail("unexpected token after class body")
	}
	return c, nil
}

// parseType returns ok=false without consuming when no type is present.
func (p *Parser) parseType() (Type, bool) {
	if kw, ok := p.acceptOneOf(KEYWORD, "int", "char", "boolean"); ok {
		return Type{Name: kw, Builtin: true}, true
	}
	if tok := p.peek(); tok.Type == IDENTIFIER {
		p.pos++
		return Type{Name: tok.Lexeme}, true
	}
	return Type{}, false
}

func (p *Parser) expectType() (Type, error) {
	t, ok := p.parseType()
	if !ok {
		return Type{}, p.fail("expected type")
	}
	return t, nil
}

// parseNameList parses IDENT ("," IDENT)* ";".
func (p *Parser) parseNameList() ([]string, error) {
	var names []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.accept(SYMBOL, ",") {
			break
		}
	}
	if err := p.expect(SYMBOL, ";"); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Parser) parseClassVarDec() (*ClassVarDec, error) {
	kind, ok := p.acceptOneOf(KEYWORD, "static", "field")
	if !ok {
		return nil, nil
	}
	typ, err := p.expectType()
	if err != nil {
		return nil, err
	}
	names, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	return &ClassVarDec{Kind: kind, Type: typ, Names: names}, nil
}

func (p *Parser) parseSubroutineDec() (*SubroutineDec, error) {
	kind, ok := p.acceptOneOf(KEYWORD, "constructor", "function", "method")
	if !ok {
		return nil, nil
	}

	var ret Type
	if p.accept(KEYWORD, "void") {
		ret = Type{Name: "void", Builtin: true}
	} else {
		var err error
		if ret, err = p.expectType(); err != nil {
			return nil, err
		}
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, "("); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseSubroutineBody()
	if err != nil {
		return nil, err
	}

	return &SubroutineDec{Kind: kind, ReturnType: ret, Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseParameterList() ([]Parameter, error) {
	var params []Parameter
	typ, ok := p.parseType()
	if !ok {
		return nil, nil
	}
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, Parameter{Type: typ, Name: name})
		if !p.accept(SYMBOL, ",") {
			return params, nil
		}
		if typ, err = p.expectType(); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseSubroutineBody() (*SubroutineBody, error) {
	if err := p.expect(SYMBOL, "{"); err != nil {
		return nil, err
	}

	body := &SubroutineBody{}
	for p.accept(KEYWORD, "var") {
		typ, err := p.expectType()
		if err != nil {
			return nil, err
		}
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		body.VarDecs = append(body.VarDecs, &VarDec{Type: typ, Names: names})
	}

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	body.Statements = stmts

	if err := p.expect(SYMBOL, "}"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseStatements() ([]Statement, error) {
	var stmts []Statement
	for {
		var (
			s   Statement
			err error
		)
		switch tok := p.peek(); {
		case tok.Is(KEYWORD, "let"):
			s, err = p.parseLet()
		case tok.Is(KEYWORD, "if"):
			s, err = p.parseIf()
		case tok.Is(KEYWORD, "while"):
			s, err = p.parseWhile()
		case tok.Is(KEYWORD, "do"):
			s, err = p.parseDo()
		case tok.Is(KEYWORD, "return"):
			s, err = p.parseReturn()
		default:
			return stmts, nil
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

func (p *Parser) parseLet() (Statement, error) {
	p.advance()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	s := &LetStatement{Name: name}
	if p.accept(SYMBOL, "[") {
		if s.Index, err = p.expectExpression(); err != nil {
			return nil, err
		}
		if err := p.expect(SYMBOL, "]"); err != nil {
			return nil, err
		}
	}
	if err := p.expect(SYMBOL, "="); err != nil {
		return nil, err
	}
	if s.Value, err = p.expectExpression(); err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, ";"); err != nil {
		return nil, err
	}
	return s, nil
}

// parseCondition parses "(" expression ")".
func (p *Parser) parseCondition() (*Expression, error) {
	if err := p.expect(SYMBOL, "("); err != nil {
		return nil, err
	}
	cond, err := p.expectExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, ")"); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseBlock parses "{" statement* "}".
func (p *Parser) parseBlock() ([]Statement, error) {
	if err := p.expect(SYMBOL, "{"); err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, "}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseIf() (Statement, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	s := &IfStatement{Cond: cond}
	if s.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if p.accept(KEYWORD, "else") {
		s.HasElse = true
		if s.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *Parser) parseWhile() (Statement, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStatement{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDo() (Statement, error) {
	p.advance()
	call, err := p.parseSubroutineCall()
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, p.fail("expected subroutine call")
	}
	if err := p.expect(SYMBOL, ";"); err != nil {
		return nil, err
	}
	return &DoStatement{Call: call}, nil
}

func (p *Parser) parseReturn() (Statement, error) {
	p.advance()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(SYMBOL, ";"); err != nil {
		return nil, err
	}
	return &ReturnStatement{Value: value}, nil
}

// parseExpression returns nil, nil when no term starts at the current
// token.
func (p *Parser) parseExpression() (*Expression, error) {
	first, err := p.parseTerm()
	if err != nil || first == nil {
		return nil, err
	}

	e := &Expression{First: first}
	for {
		op, ok := p.acceptOneOf(SYMBOL, "+", "-", "*", "/", "&", "|", "<", ">", "=")
		if !ok {
			return e, nil
		}
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, p.fail("expected term after %q", op)
		}
		e.Rest = append(e.Rest, OpTerm{Op: op, Term: t})
	}
}

func (p *Parser) expectExpression() (*Expression, error) {
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, p.fail("expected expression")
	}
	return e, nil
}

// parseTerm returns nil, nil when the current token cannot start a term.
func (p *Parser) parseTerm() (Term, error) {
	call, err := p.parseSubroutineCall()
	if err != nil {
		return nil, err
	}
	if call != nil {
		return call, nil
	}

	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.pos++
		n, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, p.fail("invalid integer constant")
		}
		return &IntegerConstant{Value: n}, nil

	case STRING:
		p.pos++
		return &StringConstant{Value: tok.Lexeme}, nil

	case KEYWORD:
		if kw, ok := p.acceptOneOf(KEYWORD, "true", "false", "null", "this"); ok {
			return &KeywordConstant{Value: kw}, nil
		}

	case IDENTIFIER:
		p.pos++
		if !p.accept(SYMBOL, "[") {
			return &VarTerm{Name: tok.Lexeme}, nil
		}
		index, err := p.expectExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(SYMBOL, "]"); err != nil {
			return nil, err
		}
		return &ArrayAccess{Name: tok.Lexeme, Index: index}, nil

	case SYMBOL:
		if p.accept(SYMBOL, "(") {
			e, err := p.expectExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(SYMBOL, ")"); err != nil {
				return nil, err
			}
			return &ParenTerm{Expr: e}, nil
		}
		if op, ok := p.acceptOneOf(SYMBOL, "-", "~"); ok {
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, p.fail("expected term after unary %q", op)
			}
			return &UnaryTerm{Op: op, Term: t}, nil
		}
	}

	return nil, nil
}

// parseSubroutineCall returns nil, nil unless the tokens start with
// IDENT "." or IDENT "(".
func (p *Parser) parseSubroutineCall() (*SubroutineCall, error) {
	first, second := p.peek(), p.peekAt(1)
	if first.Type != IDENTIFIER {
		return nil, nil
	}

	call := &SubroutineCall{}
	switch {
	case second.Is(SYMBOL, "."):
		call.Receiver = first.Lexeme
		call.ReceiverKind = VarReceiver
		if r := []rune(first.Lexeme); unicode.IsUpper(r[0]) {
			call.ReceiverKind = ClassReceiver
		}
		p.pos += 2
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		call.Name = name
	case second.Is(SYMBOL, "("):
		call.Name = first.Lexeme
		p.pos++
	default:
		return nil, nil
	}

	if err := p.expect(SYMBOL, "("); err != nil {
		return nil, err
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	call.Args = args
	if err := p.expect(SYMBOL, ")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseExpressionList() ([]*Expression, error) {
	first, err := p.parseExpression()
	if err != nil || first == nil {
		return nil, err
	}
	args := []*Expression{first}
	for p.accept(SYMBOL, ",") {
		e, err := p.expectExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return args, nil
}
