package asm

import "strconv"

// FirstVariableAddress is where the assembler starts placing variables.
const FirstVariableAddress = 16

var predefinedSymbols = map[string]uint16{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": 16384,
	"KBD":    24576,
}

func init() {
	for i := 0; i < 16; i++ {
		predefinedSymbols["R"+strconv.Itoa(i)] = uint16(i)
	}
}

// SymbolTable maps symbols to RAM or ROM addresses. Once a symbol is bound
// its address never changes.
type SymbolTable struct {
	addrs map[string]uint16
	next  uint16
}

// NewSymbolTable returns a table seeded with the predefined registers and
// I/O pointers.
func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{
		addrs: make(map[string]uint16, len(predefinedSymbols)),
		next:  FirstVariableAddress,
	}
	for name, addr := range predefinedSymbols {
		s.addrs[name] = addr
	}
	return s
}

// Define binds name to addr unless it is already bound. It reports whether
// the binding was added.
func (s *SymbolTable) Define(name string, addr uint16) bool {
	if _, ok := s.addrs[name]; ok {
		return false
	}
	s.addrs[name] = addr
	return true
}

func (s *SymbolTable) Lookup(name string) (uint16, bool) {
	addr, ok := s.addrs[name]
	return addr, ok
}

// Resolve returns the address bound to name, allocating the next free
// variable slot if the name has not been seen yet.
func (s *SymbolTable) Resolve(name string) uint16 {
	if addr, ok := s.addrs[name]; ok {
		return addr
	}
	addr := s.next
	s.addrs[name] = addr
	s.next++
	return addr
}

func (s *SymbolTable) NextVariableAddress() uint16 {
	return s.next
}
