package asm

import (
	"fmt"
	"strings"
	"testing"
)

// smallProgram sums 1..100 into a variable.
const smallProgram = `
@i
M=1
@sum
M=0
(LOOP)
@i
D=M
@100
D=D-A
@END
D;JGT
@i
D=M
@sum
M=D+M
@i
M=M+1
@LOOP
0;JMP
(END)
@END
0;JMP
`

// largeProgram repeats a labelled block many times with distinct labels
// and variables.
func largeProgram(blocks int) string {
	var sb strings.Builder
	for i := 0; i < blocks; i++ {
		fmt.Fprintf(&sb, "(BLOCK_%d)\n@v%d\nM=M+1\nD=M\n@BLOCK_%d\nD;JLT\n", i, i, i)
	}
	return sb.String()
}

func BenchmarkAssembleSmall(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(smallProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssembleLarge(b *testing.B) {
	src := largeProgram(2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(src); err != nil {
			b.Fatal(err)
		}
	}
}
