package cpu

import (
	"errors"
	"fmt"
)

const (
	ROMSize = 32768
	RAMSize = 32768

	ScreenBase   uint16 = 16384
	ScreenWords         = 8192
	KeyboardAddr uint16 = 24576
)

// ErrStepLimit is returned by Run when the program has not halted within
// the step budget.
var ErrStepLimit = errors.New("step limit reached before halt")

// C-instruction bit layout.
const (
	bitA  = 1 << 12
	bitZX = 1 << 11
	bitNX = 1 << 10
	bitZY = 1 << 9
	bitNY = 1 << 8
	bitF  = 1 << 7
	bitNO = 1 << 6

	destA = 1 << 5
	destD = 1 << 4
	destM = 1 << 3

	jumpLT = 1 << 2
	jumpEQ = 1 << 1
	jumpGT = 1 << 0
)

// CPU is a Hack computer: instruction ROM, data RAM with memory mapped
// screen and keyboard, and the A, D and PC registers.
type CPU struct {
	ROM [ROMSize]uint16
	RAM [RAMSize]uint16

	A  uint16
	D  uint16
	PC uint16

	Halted bool
	Steps  uint64

	programLen int
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load copies a program into ROM and resets the registers. RAM is left
// untouched so callers can preset it.
func (c *CPU) Load(program []uint16) error {
	if len(program) > ROMSize {
		return fmt.Errorf("program too large for ROM: %d words > %d", len(program), ROMSize)
	}
	c.ROM = [ROMSize]uint16{}
	copy(c.ROM[:], program)
	c.programLen = len(program)
	c.Reset()
	return nil
}

func (c *CPU) Reset() {
	c.A, c.D, c.PC = 0, 0, 0
	c.Halted = false
	c.Steps = 0
}

func (c *CPU) ProgramLen() int {
	return c.programLen
}

func (c *CPU) ReadMem(addr uint16) uint16 {
	return c.RAM[addr&0x7FFF]
}

func (c *CPU) WriteMem(addr uint16, val uint16) {
	c.RAM[addr&0x7FFF] = val
}

// SetKey publishes the code of the key currently held, or 0 for none.
func (c *CPU) SetKey(code uint16) {
	c.RAM[KeyboardAddr] = code
}

// Step executes one instruction. Running past the end of the program or
// entering a single-instruction jump loop halts the CPU.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if int(c.PC) >= c.programLen {
		c.Halted = true
		return
	}

	instr := c.ROM[c.PC]
	c.Steps++

	if instr&0x8000 == 0 {
		c.A = instr
		c.PC++
		return
	}

	oldA := c.A
	y := oldA
	if instr&bitA != 0 {
		y = c.ReadMem(oldA)
	}
	out := alu(c.D, y, instr)

	if instr&destM != 0 {
		c.WriteMem(oldA, out)
	}
	if instr&destA != 0 {
		c.A = out
	}
	if instr&destD != 0 {
		c.D = out
	}

	if !jumps(out, instr) {
		c.PC++
		return
	}

	target := oldA & 0x7FFF
	if instr&0x7 == 0x7 && target+1 == c.PC && c.ROM[target] == target {
		// (END) @END 0;JMP
		c.PC = target
		c.Halted = true
		return
	}
	c.PC = target
}

// Run steps until the CPU halts or maxSteps instructions have executed.
// A non-positive maxSteps means no limit.
func (c *CPU) Run(maxSteps int) (int, error) {
	n := 0
	for !c.Halted {
		if maxSteps > 0 && n >= maxSteps {
			return n, ErrStepLimit
		}
		c.Step()
		n++
	}
	return n, nil
}

func alu(x, y, instr uint16) uint16 {
	if instr&bitZX != 0 {
		x = 0
	}
	if instr&bitNX != 0 {
		x = ^x
	}
	if instr&bitZY != 0 {
		y = 0
	}
	if instr&bitNY != 0 {
		y = ^y
	}

	var out uint16
	if instr&bitF != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if instr&bitNO != 0 {
		out = ^out
	}
	return out
}

func jumps(out, instr uint16) bool {
	v := int16(out)
	return (instr&jumpLT != 0 && v < 0) ||
		(instr&jumpEQ != 0 && v == 0) ||
		(instr&jumpGT != 0 && v > 0)
}
