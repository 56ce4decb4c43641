package asm

import "fmt"

// Comp codes are the a-bit followed by c1..c6.
var compCodes = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"M":   0b1110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"!M":  0b1110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"-M":  0b1110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"M+1": 0b1110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"M-1": 0b1110010,
	"D+A": 0b0000010,
	"D+M": 0b1000010,
	"D-A": 0b0010011,
	"D-M": 0b1010011,
	"A-D": 0b0000111,
	"M-D": 0b1000111,
	"D&A": 0b0000000,
	"D&M": 0b1000000,
	"D|A": 0b0010101,
	"D|M": 0b1010101,
}

var destCodes = map[string]uint16{
	"M":   0b001,
	"D":   0b010,
	"DM":  0b011,
	"MD":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"MA":  0b101,
	"AD":  0b110,
	"DA":  0b110,
	"ADM": 0b111,
	"AMD": 0b111,
	"DAM": 0b111,
	"DMA": 0b111,
	"MAD": 0b111,
	"MDA": 0b111,
}

var jumpCodes = map[string]uint16{
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

// Instruction is a single Hack machine instruction.
type Instruction interface {
	Encode() uint16
	String() string
}

// AInstruction loads a 15-bit constant into the A register.
type AInstruction struct {
	Address uint16
}

func (i AInstruction) Encode() uint16 {
	return i.Address & 0x7FFF
}

func (i AInstruction) String() string {
	return FormatWord(i.Encode())
}

// CInstruction computes Comp, stores it into Dest and optionally jumps.
// Dest and Jump may be empty. Unknown mnemonics encode as zero bits.
type CInstruction struct {
	Dest string
	Comp string
	Jump string
}

func (i CInstruction) Encode() uint16 {
	return 0b111<<13 | compCodes[i.Comp]<<6 | destCodes[i.Dest]<<3 | jumpCodes[i.Jump]
}

func (i CInstruction) String() string {
	return FormatWord(i.Encode())
}

// FormatWord renders a word as 16 binary digits.
func FormatWord(w uint16) string {
	return fmt.Sprintf("%016b", w)
}
