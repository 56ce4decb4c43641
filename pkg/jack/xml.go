package jack

import (
	"fmt"
	"strconv"
	"strings"
)

// xmlWriter accumulates one element per line, without indentation.
type xmlWriter struct {
	lines []string
}

func (w *xmlWriter) open(tag string)  { w.lines = append(w.lines, "<"+tag+">") }
func (w *xmlWriter) close(tag string) { w.lines = append(w.lines, "</"+tag+">") }

func (w *xmlWriter) token(typ TokenType, lexeme string) {
	w.lines = append(w.lines, Token{Type: typ, Lexeme: lexeme}.XML())
}

func (w *xmlWriter) keyword(s string)    { w.token(KEYWORD, s) }
func (w *xmlWriter) symbol(s string)     { w.token(SYMBOL, s) }
func (w *xmlWriter) identifier(s string) { w.token(IDENTIFIER, s) }

func (w *xmlWriter) typ(t Type) {
	if t.Builtin {
		w.keyword(t.Name)
	} else {
		w.identifier(t.Name)
	}
}

func (w *xmlWriter) names(names []string) {
	for i, n := range names {
		if i > 0 {
			w.symbol(",")
		}
		w.identifier(n)
	}
	w.symbol(";")
}

func (w *xmlWriter) String() string {
	return strings.Join(w.lines, "\n")
}

// XML serializes the class in source order. An empty subroutine body has
// no <statements> element, while if and while blocks always have one.
func (c *Class) XML() string {
	w := &xmlWriter{}
	w.class(c)
	return w.String()
}

func (w *xmlWriter) class(c *Class) {
	w.open("class")
	w.keyword("class")
	w.identifier(c.Name)
	w.symbol("{")
	for _, v := range c.VarDecs {
		w.open("classVarDec")
		w.keyword(v.Kind)
		w.typ(v.Type)
		w.names(v.Names)
		w.close("classVarDec")
	}
	for _, s := range c.Subroutines {
		w.subroutine(s)
	}
	w.symbol("}")
	w.close("class")
}

func (w *xmlWriter) subroutine(s *SubroutineDec) {
	w.open("subroutineDec")
	w.keyword(s.Kind)
	w.typ(s.ReturnType)
	w.identifier(s.Name)
	w.symbol("(")
	w.open("parameterList")
	for i, p := range s.Params {
		if i > 0 {
			w.symbol(",")
		}
		w.typ(p.Type)
		w.identifier(p.Name)
	}
	w.close("parameterList")
	w.symbol(")")

	w.open("subroutineBody")
	w.symbol("{")
	for _, v := range s.Body.VarDecs {
		w.open("varDec")
		w.keyword("var")
		w.typ(v.Type)
		w.names(v.Names)
		w.close("varDec")
	}
	if len(s.Body.Statements) > 0 {
		w.statements(s.Body.Statements)
	}
	w.symbol("}")
	w.close("subroutineBody")

	w.close("subroutineDec")
}

func (w *xmlWriter) statements(stmts []Statement) {
	w.open("statements")
	for _, s := range stmts {
		w.statement(s)
	}
	w.close("statements")
}

func (w *xmlWriter) block(stmts []Statement) {
	w.symbol("{")
	w.statements(stmts)
	w.symbol("}")
}

func (w *xmlWriter) statement(s Statement) {
	switch s := s.(type) {
	case *LetStatement:
		w.open("letStatement")
		w.keyword("let")
		w.identifier(s.Name)
		if s.Index != nil {
			w.symbol("[")
			w.expression(s.Index)
			w.symbol("]")
		}
		w.symbol("=")
		w.expression(s.Value)
		w.symbol(";")
		w.close("letStatement")

	case *IfStatement:
		w.open("ifStatement")
		w.keyword("if")
		w.symbol("(")
		w.expression(s.Cond)
		w.symbol(")")
		w.block(s.Then)
		if s.HasElse {
			w.keyword("else")
			w.block(s.Else)
		}
		w.close("ifStatement")

	case *WhileStatement:
		w.open("whileStatement")
		w.keyword("while")
		w.symbol("(")
		w.expression(s.Cond)
		w.symbol(")")
		w.block(s.Body)
		w.close("whileStatement")

	case *DoStatement:
		w.open("doStatement")
		w.keyword("do")
		w.call(s.Call)
		w.symbol(";")
		w.close("doStatement")

	case *ReturnStatement:
		w.open("returnStatement")
		w.keyword("return")
		if s.Value != nil {
			w.expression(s.Value)
		}
		w.symbol(";")
		w.close("returnStatement")

	default:
		panic(fmt.Sprintf("jack: unknown statement %T", s))
	}
}

func (w *xmlWriter) expression(e *Expression) {
	w.open("expression")
	w.term(e.First)
	for _, ot := range e.Rest {
		w.symbol(ot.Op)
		w.term(ot.Term)
	}
	w.close("expression")
}

func (w *xmlWriter) term(t Term) {
	w.open("term")
	switch t := t.(type) {
	case *IntegerConstant:
		w.token(INTEGER, strconv.Itoa(t.Value))
	case *StringConstant:
		w.token(STRING, t.Value)
	case *KeywordConstant:
		w.keyword(t.Value)
	case *VarTerm:
		w.identifier(t.Name)
	case *ArrayAccess:
		w.identifier(t.Name)
		w.symbol("[")
		w.expression(t.Index)
		w.symbol("]")
	case *ParenTerm:
		w.symbol("(")
		w.expression(t.Expr)
		w.symbol(")")
	case *UnaryTerm:
		w.symbol(t.Op)
		w.term(t.Term)
	case *SubroutineCall:
		w.call(t)
	default:
		panic(fmt.Sprintf("jack: unknown term %T", t))
	}
	w.close("term")
}

func (w *xmlWriter) call(c *SubroutineCall) {
	if c.ReceiverKind != NoReceiver {
		w.identifier(c.Receiver)
		w.symbol(".")
	}
	w.identifier(c.Name)
	w.symbol("(")
	w.open("expressionList")
	for i, a := range c.Args {
		if i > 0 {
			w.symbol(",")
		}
		w.expression(a)
	}
	w.close("expressionList")
	w.symbol(")")
}
