package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAddress is the largest value an A-instruction can load.
const MaxAddress = 0x7FFF

type Assembler struct {
	symbols *SymbolTable
}

type lineKind int

const (
	lineEmpty lineKind = iota
	lineLabel
	lineA
	lineC
)

type parsedLine struct {
	lineNo  int
	kind    lineKind
	label   string
	operand string
	dest    string
	comp    string
	jump    string
}

func NewAssembler() *Assembler {
	return &Assembler{
		symbols: NewSymbolTable(),
	}
}

// Assemble translates Hack assembly into machine words. The returned map
// ties each instruction address to its 1-based source line.
func Assemble(code string) ([]uint16, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Symbols() *SymbolTable {
	return a.symbols
}

func (a *Assembler) Assemble(code string) ([]uint16, map[uint16]int, error) {
	lines := strings.Split(code, "\n")
	parsed := make([]parsedLine, 0, len(lines))
	for i, raw := range lines {
		parsed = append(parsed, parseLine(raw, i+1))
	}

	a.pass1(parsed)
	return a.pass2(parsed)
}

// pass1 binds every (LABEL) to the address of the instruction after it.
func (a *Assembler) pass1(lines []parsedLine) {
	var address uint16
	for _, p := range lines {
		switch p.kind {
		case lineLabel:
			a.symbols.Define(p.label, address)
		case lineA, lineC:
			address++
		}
	}
}

func (a *Assembler) pass2(lines []parsedLine) ([]uint16, map[uint16]int, error) {
	program := make([]uint16, 0, len(lines))
	sourceMap := make(map[uint16]int)

	for _, p := range lines {
		var instr Instruction
		switch p.kind {
		case lineA:
			addr, err := a.resolveOperand(p.operand, p.lineNo)
			if err != nil {
				return nil, nil, err
			}
			instr = AInstruction{Address: addr}
		case lineC:
			instr = CInstruction{Dest: p.dest, Comp: p.comp, Jump: p.jump}
		default:
			continue
		}

		sourceMap[uint16(len(program))] = p.lineNo
		program = append(program, instr.Encode())
	}

	return program, sourceMap, nil
}

func (a *Assembler) resolveOperand(operand string, lineNo int) (uint16, error) {
	if value, err := strconv.ParseUint(operand, 10, 32); err == nil {
		if value > MaxAddress {
			return 0, fmt.Errorf("address %s out of range on line %d", operand, lineNo)
		}
		return uint16(value), nil
	}
	return a.symbols.Resolve(operand), nil
}

// parseLine classifies one source line. Lines that are neither labels nor
// instructions come back as lineEmpty and are skipped, including label
// lines missing a parenthesis such as "(LOOP".
func parseLine(raw string, lineNo int) parsedLine {
	p := parsedLine{lineNo: lineNo}

	line := stripWhitespace(stripComments(raw))
	switch {
	case line == "":
	case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") && len(line) > 2:
		p.kind = lineLabel
		p.label = line[1 : len(line)-1]
	case strings.HasPrefix(line, "@") && len(line) > 1:
		p.kind = lineA
		p.operand = line[1:]
	case strings.Contains(line, "="):
		p.kind = lineC
		p.dest, p.comp, _ = strings.Cut(line, "=")
		p.comp, p.jump, _ = strings.Cut(p.comp, ";")
	case strings.Contains(line, ";"):
		p.kind = lineC
		p.comp, p.jump, _ = strings.Cut(line, ";")
	}

	return p
}

func stripComments(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func stripWhitespace(line string) string {
	return strings.Join(strings.Fields(line), "")
}
