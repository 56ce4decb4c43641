package jack

import (
	"fmt"
	"strings"
)

//  Program structure

// Class is the root of every parsed file.
//
//	class Main { field int x; function void main() { return; } }
//	      ^^^^   ^^^^^^^^^^^^  ^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
//	      Name   VarDecs       Subroutines
type Class struct {
	Name        string
	VarDecs     []*ClassVarDec
	Subroutines []*SubroutineDec
}

// Type is a declared variable or return type. Builtin is set for the
// keyword types int, char, boolean and void; otherwise Name is a class.
type Type struct {
	Name    string
	Builtin bool
}

func (t Type) String() string { return t.Name }

// ClassVarDec declares one or more static or field variables.
//
//	field int x, y;
//	^^^^^ ^^^ ^^^^
//	Kind  Type Names
type ClassVarDec struct {
	Kind  string
	Type  Type
	Names []string
}

// SubroutineDec is a constructor, function or method.
type SubroutineDec struct {
	Kind       string
	ReturnType Type
	Name       string
	Params     []Parameter
	Body       *SubroutineBody
}

type Parameter struct {
	Type Type
	Name string
}

type SubroutineBody struct {
	VarDecs    []*VarDec
	Statements []Statement
}

// VarDec declares subroutine locals: var Type a, b;
type VarDec struct {
	Type  Type
	Names []string
}

//  Statements

// Statement is implemented by let, if, while, do and return.
type Statement interface {
	stmtNode()
	String() string
}

// LetStatement assigns Value to Name, or to Name[Index] when Index is set.
type LetStatement struct {
	Name  string
	Index *Expression
	Value *Expression
}

func (*LetStatement) stmtNode() {}
func (s *LetStatement) String() string {
	if s.Index != nil {
		return fmt.Sprintf("let %s[%s] = %s", s.Name, s.Index, s.Value)
	}
	return fmt.Sprintf("let %s = %s", s.Name, s.Value)
}

// IfStatement has an optional else branch; HasElse distinguishes an empty
// else block from no else at all.
type IfStatement struct {
	Cond    *Expression
	Then    []Statement
	Else    []Statement
	HasElse bool
}

func (*IfStatement) stmtNode() {}
func (s *IfStatement) String() string {
	if s.HasElse {
		return fmt.Sprintf("if (%s) {%d} else {%d}", s.Cond, len(s.Then), len(s.Else))
	}
	return fmt.Sprintf("if (%s) {%d}", s.Cond, len(s.Then))
}

type WhileStatement struct {
	Cond *Expression
	Body []Statement
}

func (*WhileStatement) stmtNode() {}
func (s *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) {%d}", s.Cond, len(s.Body))
}

type DoStatement struct {
	Call *SubroutineCall
}

func (*DoStatement) stmtNode()        {}
func (s *DoStatement) String() string { return "do " + s.Call.String() }

// ReturnStatement's Value is nil for a bare return.
type ReturnStatement struct {
	Value *Expression
}

func (*ReturnStatement) stmtNode() {}
func (s *ReturnStatement) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

//  Expressions

// Expression is a flat chain of terms. There is no precedence: operators
// apply strictly left to right.
//
//	1 + 2 * 3
//	^ ^^^^^^^^^
//	| Rest: [{+ 2} {* 3}]
//	First
type Expression struct {
	First Term
	Rest  []OpTerm
}

type OpTerm struct {
	Op   string
	Term Term
}

func (e *Expression) String() string {
	var sb strings.Builder
	sb.WriteString(e.First.String())
	for _, ot := range e.Rest {
		fmt.Fprintf(&sb, " %s %s", ot.Op, ot.Term)
	}
	return sb.String()
}

// Term is implemented by every operand node.
type Term interface {
	termNode()
	String() string
}

type IntegerConstant struct {
	Value int
}

func (*IntegerConstant) termNode()        {}
func (t *IntegerConstant) String() string { return fmt.Sprintf("%d", t.Value) }

type StringConstant struct {
	Value string
}

func (*StringConstant) termNode()        {}
func (t *StringConstant) String() string { return fmt.Sprintf("%q", t.Value) }

// KeywordConstant is true, false, null or this.
type KeywordConstant struct {
	Value string
}

func (*KeywordConstant) termNode()        {}
func (t *KeywordConstant) String() string { return t.Value }

type VarTerm struct {
	Name string
}

func (*VarTerm) termNode()        {}
func (t *VarTerm) String() string { return t.Name }

// ArrayAccess reads Name[Index].
type ArrayAccess struct {
	Name  string
	Index *Expression
}

func (*ArrayAccess) termNode()        {}
func (t *ArrayAccess) String() string { return fmt.Sprintf("%s[%s]", t.Name, t.Index) }

// ParenTerm is a parenthesised sub-expression.
type ParenTerm struct {
	Expr *Expression
}

func (*ParenTerm) termNode()        {}
func (t *ParenTerm) String() string { return "(" + t.Expr.String() + ")" }

// UnaryTerm applies - or ~ to Term.
type UnaryTerm struct {
	Op   string
	Term Term
}

func (*UnaryTerm) termNode()        {}
func (t *UnaryTerm) String() string { return t.Op + t.Term.String() }

type ReceiverKind int

const (
	NoReceiver ReceiverKind = iota
	ClassReceiver
	VarReceiver
)

// SubroutineCall is name(args), Receiver.name(args). A receiver starting
// with an upper case letter is taken to be a class name.
//
//	Output.printInt(x)
//	^^^^^^ ^^^^^^^^ ^
//	|      Name     Args
//	Receiver (ClassReceiver)
type SubroutineCall struct {
	Receiver     string
	ReceiverKind ReceiverKind
	Name         string
	Args         []*Expression
}

func (*SubroutineCall) termNode() {}
func (c *SubroutineCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	name := c.Name
	if c.ReceiverKind != NoReceiver {
		name = c.Receiver + "." + c.Name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}
