package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownSegment = errors.New("unknown segment")
	ErrBadOperand     = errors.New("bad operand")
)

// MaxIndex is the largest segment index or constant a command may carry.
const MaxIndex = 0x7FFF

type Kind int

const (
	Add Kind = iota
	Sub
	Neg
	Eq
	Gt
	Lt
	And
	Or
	Not
	Push
	Pop
	Label
	Goto
	IfGoto
	Function
	Call
	Return
)

var kindNames = [...]string{
	Add:      "add",
	Sub:      "sub",
	Neg:      "neg",
	Eq:       "eq",
	Gt:       "gt",
	Lt:       "lt",
	And:      "and",
	Or:       "or",
	Not:      "not",
	Push:     "push",
	Pop:      "pop",
	Label:    "label",
	Goto:     "goto",
	IfGoto:   "if-goto",
	Function: "function",
	Call:     "call",
	Return:   "return",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsArithmetic reports whether k is one of the nine stack arithmetic or
// comparison commands.
func (k Kind) IsArithmetic() bool {
	return k <= Not
}

type Segment int

const (
	Argument Segment = iota
	Local
	Static
	Constant
	This
	That
	Pointer
	Temp
)

var segmentNames = [...]string{
	Argument: "argument",
	Local:    "local",
	Static:   "static",
	Constant: "constant",
	This:     "this",
	That:     "that",
	Pointer:  "pointer",
	Temp:     "temp",
}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", int(s))
}

func ParseSegment(name string) (Segment, bool) {
	for i, n := range segmentNames {
		if n == name {
			return Segment(i), true
		}
	}
	return 0, false
}

// Command is one stack machine instruction. Segment and Index are set for
// push and pop, Name for the control and function commands, and Count for
// function (locals) and call (arguments).
type Command struct {
	Kind    Kind
	Segment Segment
	Index   int
	Name    string
	Count   int
	Line    int
}

func (c Command) String() string {
	switch c.Kind {
	case Push, Pop:
		return fmt.Sprintf("%s %s %d", c.Kind, c.Segment, c.Index)
	case Label, Goto, IfGoto:
		return fmt.Sprintf("%s %s", c.Kind, c.Name)
	case Function, Call:
		return fmt.Sprintf("%s %s %d", c.Kind, c.Name, c.Count)
	default:
		return c.Kind.String()
	}
}

// Program is the parsed content of one .vm file.
type Program struct {
	FileName string
	Commands []Command
}

// Parse reads VM source. fileName is the stem used to qualify statics and
// generated labels. Any malformed line aborts parsing.
func Parse(fileName, src string) (*Program, error) {
	p := &Program{FileName: fileName}

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, err := parseCommand(fields)
		if err != nil {
			return nil, fmt.Errorf("%s.vm line %d %q: %w", fileName, lineNo, strings.TrimSpace(raw), err)
		}
		cmd.Line = lineNo
		p.Commands = append(p.Commands, cmd)
	}

	return p, nil
}

func parseCommand(fields []string) (Command, error) {
	kind, ok := kindByName[fields[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	cmd := Command{Kind: kind}
	args := fields[1:]

	switch {
	case kind.IsArithmetic() || kind == Return:
		if len(args) != 0 {
			return cmd, fmt.Errorf("%w: %s takes no operands", ErrBadOperand, kind)
		}

	case kind == Push || kind == Pop:
		if len(args) != 2 {
			return cmd, fmt.Errorf("%w: %s expects segment and index", ErrBadOperand, kind)
		}
		seg, ok := ParseSegment(args[0])
		if !ok {
			return cmd, fmt.Errorf("%w %q", ErrUnknownSegment, args[0])
		}
		idx, err := parseNumber(args[1])
		if err != nil {
			return cmd, err
		}
		cmd.Segment, cmd.Index = seg, idx

	case kind == Label || kind == Goto || kind == IfGoto:
		if len(args) != 1 {
			return cmd, fmt.Errorf("%w: %s expects a label", ErrBadOperand, kind)
		}
		cmd.Name = args[0]

	case kind == Function || kind == Call:
		if len(args) != 2 {
			return cmd, fmt.Errorf("%w: %s expects a name and a count", ErrBadOperand, kind)
		}
		n, err := parseNumber(args[1])
		if err != nil {
			return cmd, err
		}
		cmd.Name, cmd.Count = args[0], n
	}

	return cmd, nil
}

func parseNumber(tok string) (int, error) {
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil || n > MaxIndex {
		return 0, fmt.Errorf("%w %q: want an integer in 0..%d", ErrBadOperand, tok, MaxIndex)
	}
	return int(n), nil
}
