package vm

import (
	"fmt"
	"strings"
)

// Base registers of the pointer segments.
const (
	regSP   = "@SP"
	regLCL  = "@1"
	regARG  = "@2"
	regTHIS = "@3"
	regTHAT = "@4"
	regTemp = 5

	frameReg  = "@13"
	returnReg = "@14"
)

// StackBase is where the bootstrap code points SP.
const StackBase = 256

// Context carries the counters and names that translation threads from one
// command to the next.
type Context struct {
	FileName        string
	LabelID         int
	ReturnID        int
	CurrentFunction string
}

func NewContext(fileName string) *Context {
	return &Context{FileName: fileName}
}

var (
	pushD       = []string{"@SP", "A=M", "M=D", "@SP", "M=M+1"}
	getOperand1 = []string{"@SP", "A=M", "A=A-1"}
	getOperand2 = []string{
		"@SP", "A=M", "A=A-1", "A=A-1", "D=M",
		"@SP", "A=M", "A=A-1",
	}
	saveResult1 = concat(
		[]string{"@SP", "A=M", "A=A-1", "M=0"},
		[]string{"@SP", "M=M-1"},
		pushD,
	)
	saveResult2 = concat(
		[]string{"@SP", "A=M", "A=A-1", "A=A-1", "M=0"},
		[]string{"@SP", "A=M", "A=A-1", "M=0"},
		[]string{"@SP", "M=M-1", "M=M-1"},
		pushD,
	)
)

var binaryOps = map[Kind]string{
	Add: "D=D+M",
	Sub: "D=D-M",
	And: "D=D&M",
	Or:  "D=D|M",
}

var unaryOps = map[Kind]string{
	Neg: "D=-M",
	Not: "D=!M",
}

var compareJumps = map[Kind]string{
	Eq: "D;JEQ",
	Gt: "D;JGT",
	Lt: "D;JLT",
}

// Translate expands one command into Hack assembly lines and advances ctx.
// The first line is always a comment naming the command.
func Translate(ctx *Context, cmd Command) []string {
	out := []string{"// " + cmd.String()}

	switch cmd.Kind {
	case Add, Sub, And, Or:
		return concat(out, getOperand2, []string{binaryOps[cmd.Kind]}, saveResult2)

	case Neg, Not:
		return concat(out, getOperand1, []string{unaryOps[cmd.Kind]}, saveResult1)

	case Eq, Gt, Lt:
		id := ctx.LabelID
		ctx.LabelID++
		trueLabel := fmt.Sprintf("TRUE_%05d", id)
		falseLabel := fmt.Sprintf("FALSE_%05d", id)
		endLabel := fmt.Sprintf("END_IF_%05d", id)
		return concat(out, getOperand2,
			[]string{
				"D=D-M",
				"@" + trueLabel, compareJumps[cmd.Kind],
				"(" + falseLabel + ")", "D=0", "@" + endLabel, "0;JMP",
				"(" + trueLabel + ")", "D=-1",
				"(" + endLabel + ")",
			},
			saveResult2,
		)

	case Push:
		load := "D=M"
		if cmd.Segment == Constant {
			load = "D=A"
		}
		return concat(out, segmentAddress(ctx, cmd.Segment, cmd.Index), []string{load}, pushD)

	case Pop:
		// The value is captured in D before the address is computed, so an
		// empty address sequence stores it back into the vacated slot.
		return concat(out,
			[]string{"@SP", "A=M-1", "D=M", "M=0"},
			segmentAddress(ctx, cmd.Segment, cmd.Index),
			[]string{"M=D", "@SP", "M=M-1"},
		)

	case Label:
		return append(out, "("+scopedLabel(ctx, cmd.Name)+")")

	case Goto:
		return append(out, "@"+scopedLabel(ctx, cmd.Name), "0;JMP")

	case IfGoto:
		return append(out,
			"@SP", "A=M-1", "D=M", "M=0",
			"@SP", "M=M-1",
			"@"+scopedLabel(ctx, cmd.Name), "D;JNE",
		)

	case Call:
		return append(out, translateCall(ctx, cmd.Name, cmd.Count)...)

	case Function:
		ctx.CurrentFunction = cmd.Name
		out = append(out, fmt.Sprintf("(%s.%s)", ctx.FileName, cmd.Name))
		for i := 0; i < cmd.Count; i++ {
			out = concat(out, []string{"@0", "D=A"}, pushD)
		}
		return out

	case Return:
		return concat(out,
			[]string{regLCL, "D=M", frameReg, "M=D"},
			frameOffset(5), []string{"D=M", returnReg, "M=D"},
			[]string{"@SP", "A=M-1", "D=M", regARG, "A=M", "M=D"},
			[]string{regARG, "D=M+1", "@SP", "M=D"},
			[]string{frameReg, "A=M-1", "D=M", regTHAT, "M=D"},
			frameOffset(2), []string{"D=M", regTHIS, "M=D"},
			frameOffset(3), []string{"D=M", regARG, "M=D"},
			frameOffset(4), []string{"D=M", regLCL, "M=D"},
			[]string{"@R14", "A=M", "0;JMP"},
		)
	}

	return out
}

func translateCall(ctx *Context, name string, nArgs int) []string {
	returnLabel := fmt.Sprintf("%s.%s$ret.%d", ctx.FileName, ctx.CurrentFunction, ctx.ReturnID)
	ctx.ReturnID++

	// The callee lives in the file named by the prefix of its dotted name.
	declaringFile, _, _ := strings.Cut(name, ".")

	out := concat([]string{"@" + returnLabel, "D=A"}, pushD)
	for _, reg := range []string{regLCL, regARG, regTHIS, regTHAT} {
		out = concat(out, []string{reg, "D=M"}, pushD)
	}
	out = append(out, "@SP", "D=M", regARG, "M=D")
	out = append(out, repeat("M=M-1", 5+nArgs)...)
	out = append(out, "@SP", "D=M", regLCL, "M=D")
	out = append(out, fmt.Sprintf("@%s.%s", declaringFile, name), "0;JMP")
	return append(out, "("+returnLabel+")")
}

// frameOffset points A at frame-n, where frame is the saved LCL in R13.
func frameOffset(n int) []string {
	return concat([]string{frameReg, "A=M"}, repeat("A=A-1", n))
}

// segmentAddress leaves the target address (or, for constant, the value)
// in A. Out-of-range pointer and temp indices produce no instructions.
func segmentAddress(ctx *Context, seg Segment, idx int) []string {
	switch seg {
	case Argument:
		return concat([]string{regARG, "A=M"}, repeat("A=A+1", idx))
	case Local:
		return concat([]string{regLCL, "A=M"}, repeat("A=A+1", idx))
	case This:
		return concat([]string{regTHIS, "A=M"}, repeat("A=A+1", idx))
	case That:
		return concat([]string{regTHAT, "A=M"}, repeat("A=A+1", idx))
	case Static:
		return []string{fmt.Sprintf("@%s.%d", ctx.FileName, idx)}
	case Constant:
		return []string{fmt.Sprintf("@%d", idx)}
	case Pointer:
		switch idx {
		case 0:
			return []string{regTHIS}
		case 1:
			return []string{regTHAT}
		}
	case Temp:
		if idx <= 7 {
			return concat([]string{fmt.Sprintf("@%d", regTemp)}, repeat("A=A+1", idx))
		}
	}
	return nil
}

// scopedLabel qualifies a branch label with the enclosing function so the
// same label name can appear in several functions of one file. Labels are
// function-scoped: inside a function, goto and if-goto only reach labels
// declared in that function. Labels outside any function stay bare and
// are not visible from function bodies.
func scopedLabel(ctx *Context, name string) string {
	if ctx.CurrentFunction == "" {
		return name
	}
	return ctx.CurrentFunction + "$" + name
}

// Translate expands every command of the program using ctx.
func (p *Program) Translate(ctx *Context) []string {
	ctx.FileName = p.FileName
	ctx.CurrentFunction = ""

	out := []string{"// body"}
	for _, cmd := range p.Commands {
		out = append(out, Translate(ctx, cmd)...)
	}
	return out
}

// Bootstrap returns the prologue that initialises SP and calls Sys.init.
func Bootstrap() []string {
	prologue := []string{"// init", fmt.Sprintf("@%d", StackBase), "D=A", "@SP", "M=D"}
	sys := &Context{FileName: "Sys", CurrentFunction: "Init"}
	return concat(prologue, Translate(sys, Command{Kind: Call, Name: "Sys.init"}))
}

// Halt returns the terminal infinite loop.
func Halt() []string {
	return []string{"// end", "(END)", "@END", "0;JMP"}
}

// Combine translates the programs in order into one assembly text. Branch
// and return counters carry over from one program to the next so that
// generated labels stay unique across files. With bootstrap set the output
// is wrapped in Bootstrap and Halt.
func Combine(programs []*Program, bootstrap bool) string {
	var out []string
	if bootstrap {
		out = Bootstrap()
	}

	ctx := &Context{}
	for _, p := range programs {
		out = append(out, p.Translate(ctx)...)
	}

	if bootstrap {
		out = append(out, Halt()...)
	}
	return strings.Join(out, "\n")
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func concat(parts ...[]string) []string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
