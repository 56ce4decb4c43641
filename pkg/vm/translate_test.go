package vm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gohack/pkg/asm"
	"gohack/pkg/cpu"
)

func mustParse(t *testing.T, fileName, src string) *Program {
	t.Helper()
	p, err := Parse(fileName, src)
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", fileName, err)
	}
	return p
}

// simulate translates, assembles and runs the programs. Without bootstrap
// SP starts at 256 and setup may preset further registers.
func simulate(t *testing.T, programs []*Program, bootstrap bool, setup func(c *cpu.CPU)) *cpu.CPU {
	t.Helper()

	text := Combine(programs, bootstrap)
	if !bootstrap {
		text += "\n" + strings.Join(Halt(), "\n")
	}
	words, _, err := asm.Assemble(text)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	c := cpu.NewCPU()
	if err := c.Load(words); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.RAM[0] = StackBase
	if setup != nil {
		setup(c)
	}
	if _, err := c.Run(1_000_000); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return c
}

func TestArithmeticSimulation(t *testing.T) {
	const a, b = 17, 5

	tests := []struct {
		op   string
		want int16
	}{
		{"add", a + b},
		{"sub", a - b},
		{"and", a & b},
		{"or", a | b},
		{"eq", 0},
		{"gt", -1},
		{"lt", 0},
		{"neg", -a},
		{"not", ^int16(a)},
	}

	for _, tc := range tests {
		src := "push constant 17\n"
		if tc.op != "neg" && tc.op != "not" {
			src += "push constant 5\n"
		}
		src += tc.op + "\n"

		c := simulate(t, []*Program{mustParse(t, "Test", src)}, false, nil)
		if got := int16(c.RAM[256]); got != tc.want {
			t.Errorf("%s: RAM[256] = %d; want %d", tc.op, got, tc.want)
		}
		if c.RAM[0] != 257 {
			t.Errorf("%s: SP = %d; want 257", tc.op, c.RAM[0])
		}
	}
}

func TestComparisonTrueBranches(t *testing.T) {
	tests := []struct {
		src  string
		want int16
	}{
		{"push constant 4\npush constant 4\neq", -1},
		{"push constant 3\npush constant 4\neq", 0},
		{"push constant 3\npush constant 4\nlt", -1},
		{"push constant 4\npush constant 3\ngt", -1},
		{"push constant 4\npush constant 4\ngt", 0},
		{"push constant 1\npush constant 2\neq\npush constant 2\npush constant 2\neq\nand", 0},
	}
	for _, tc := range tests {
		c := simulate(t, []*Program{mustParse(t, "Cmp", tc.src)}, false, nil)
		if got := int16(c.RAM[256]); got != tc.want {
			t.Errorf("%q: RAM[256] = %d; want %d", tc.src, got, tc.want)
		}
	}
}

func TestPushAddPopLocal(t *testing.T) {
	src := "push constant 7\npush constant 8\nadd\npop local 0"
	c := simulate(t, []*Program{mustParse(t, "Basic", src)}, false, func(c *cpu.CPU) {
		c.RAM[1] = 300
	})

	if c.RAM[300] != 15 {
		t.Errorf("RAM[LCL+0] = %d; want 15", c.RAM[300])
	}
	if c.RAM[0] != 256 {
		t.Errorf("SP = %d; want 256", c.RAM[0])
	}
}

func TestSegments(t *testing.T) {
	src := `push constant 10
pop local 0
push constant 21
pop argument 2
push constant 36
pop this 6
push constant 42
pop that 5
push constant 510
pop temp 6
push constant 7
pop static 3
push local 0
push that 5
add
push argument 2
sub
push this 6
push this 6
add
sub
push temp 6
add
push static 3
add
push constant 3030
pop pointer 0
push constant 3040
pop pointer 1
push pointer 1
`
	c := simulate(t, []*Program{mustParse(t, "Seg", src)}, false, func(c *cpu.CPU) {
		c.RAM[1] = 300
		c.RAM[2] = 400
		c.RAM[3] = 3000
		c.RAM[4] = 3010
	})

	checks := []struct {
		addr int
		want uint16
	}{
		{300, 10},
		{402, 21},
		{3006, 36},
		{3015, 42},
		{11, 510},
		{16, 7},    // Seg.3 is the first variable
		{256, 476}, // 10+42-21-(36+36)+510+7
		{257, 3040},
		{3, 3030},
		{4, 3040},
		{0, 258},
	}
	for _, tc := range checks {
		if c.RAM[tc.addr] != tc.want {
			t.Errorf("RAM[%d] = %d; want %d", tc.addr, c.RAM[tc.addr], tc.want)
		}
	}
}

func TestOutOfRangeSegmentIndexes(t *testing.T) {
	ctx := NewContext("Foo")
	got := Translate(ctx, Command{Kind: Push, Segment: Pointer, Index: 5})
	want := concat([]string{"// push pointer 5", "D=M"}, pushD)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("push pointer 5 mismatch (-want +got)\n%s", diff)
	}

	// pop temp 8 has no address, so the value lands back in its own slot.
	c := simulate(t, []*Program{mustParse(t, "Foo", "push constant 9\npop temp 8")}, false, nil)
	if c.RAM[256] != 9 || c.RAM[0] != 256 {
		t.Errorf("RAM[256]=%d SP=%d; want 9, 256", c.RAM[256], c.RAM[0])
	}
}

func TestIfGoto(t *testing.T) {
	src := `push constant %s
if-goto SKIP
push constant 1
label SKIP
push constant 2
`
	taken := simulate(t, []*Program{mustParse(t, "Br", strings.Replace(src, "%s", "5", 1))}, false, nil)
	if taken.RAM[0] != 257 || taken.RAM[256] != 2 {
		t.Errorf("taken: SP=%d RAM[256]=%d; want 257, 2", taken.RAM[0], taken.RAM[256])
	}

	notTaken := simulate(t, []*Program{mustParse(t, "Br", strings.Replace(src, "%s", "0", 1))}, false, nil)
	if notTaken.RAM[0] != 258 || notTaken.RAM[256] != 1 || notTaken.RAM[257] != 2 {
		t.Errorf("not taken: SP=%d stack=%v; want 258, [1 2]", notTaken.RAM[0], notTaken.RAM[256:258])
	}
}

func TestFunctionZeroesLocals(t *testing.T) {
	c := simulate(t, []*Program{mustParse(t, "F", "function F.f 3")}, false, func(c *cpu.CPU) {
		c.RAM[256], c.RAM[257], c.RAM[258] = 9, 9, 9
	})
	if c.RAM[0] != 259 {
		t.Errorf("SP = %d; want 259", c.RAM[0])
	}
	for i := 256; i < 259; i++ {
		if c.RAM[i] != 0 {
			t.Errorf("RAM[%d] = %d; want 0", i, c.RAM[i])
		}
	}
}

func TestCallReturnRestoresFrame(t *testing.T) {
	src := `push constant 3
push constant 4
call Main.add 2
label DONE
goto DONE
function Main.add 1
push argument 0
push argument 1
add
pop local 0
push local 0
return
`
	c := simulate(t, []*Program{mustParse(t, "Main", src)}, false, func(c *cpu.CPU) {
		c.RAM[1] = 300
		c.RAM[2] = 400
		c.RAM[3] = 3000
		c.RAM[4] = 4000
	})

	want := map[int]uint16{0: 257, 1: 300, 2: 400, 3: 3000, 4: 4000, 256: 7}
	for addr, v := range want {
		if c.RAM[addr] != v {
			t.Errorf("RAM[%d] = %d; want %d", addr, c.RAM[addr], v)
		}
	}
}

func TestCombineWithBootstrap(t *testing.T) {
	mainVM := `function Main.double 0
push argument 0
push argument 0
add
return
`
	sysVM := `function Sys.init 0
push constant 21
call Main.double 1
pop static 0
label HALT
goto HALT
`
	programs := []*Program{mustParse(t, "Main", mainVM), mustParse(t, "Sys", sysVM)}
	c := simulate(t, programs, true, nil)

	if c.RAM[16] != 42 {
		t.Errorf("RAM[16] (Sys.0) = %d; want 42", c.RAM[16])
	}
}

func TestCombineLayout(t *testing.T) {
	out := Combine([]*Program{mustParse(t, "A", "eq"), mustParse(t, "B", "eq")}, true)
	lines := strings.Split(out, "\n")

	wantHead := []string{"// init", "@256", "D=A", "@SP", "M=D", "// call Sys.init 0", "@Sys.Init$ret.0", "D=A"}
	if diff := cmp.Diff(wantHead, lines[:len(wantHead)]); diff != "" {
		t.Errorf("prologue mismatch (-want +got)\n%s", diff)
	}
	if diff := cmp.Diff(Halt(), lines[len(lines)-4:]); diff != "" {
		t.Errorf("epilogue mismatch (-want +got)\n%s", diff)
	}

	for _, label := range []string{"(TRUE_00000)", "(TRUE_00001)", "(END_IF_00001)", "@Sys.Sys.init"} {
		if !strings.Contains(out, label) {
			t.Errorf("output missing %s", label)
		}
	}
	if strings.Count(out, "// body") != 2 {
		t.Errorf("expected one body marker per program")
	}
}

func TestTranslateAdvancesContext(t *testing.T) {
	ctx := NewContext("Foo")

	Translate(ctx, Command{Kind: Function, Name: "Foo.bar", Count: 0})
	if ctx.CurrentFunction != "Foo.bar" {
		t.Errorf("CurrentFunction = %q; want Foo.bar", ctx.CurrentFunction)
	}

	first := Translate(ctx, Command{Kind: Call, Name: "Baz.qux", Count: 1})
	second := Translate(ctx, Command{Kind: Call, Name: "Baz.qux", Count: 1})
	if first[1] != "@Foo.Foo.bar$ret.0" || second[1] != "@Foo.Foo.bar$ret.1" {
		t.Errorf("return labels = %s, %s", first[1], second[1])
	}
	if last := first[len(first)-1]; last != "(Foo.Foo.bar$ret.0)" {
		t.Errorf("last line = %s", last)
	}
	if got := strings.Count(strings.Join(first, "\n"), "M=M-1"); got != 6 {
		t.Errorf("ARG adjust count = %d; want 6", got)
	}

	Translate(ctx, Command{Kind: Lt})
	Translate(ctx, Command{Kind: Gt})
	if ctx.LabelID != 2 || ctx.ReturnID != 2 {
		t.Errorf("LabelID=%d ReturnID=%d; want 2, 2", ctx.LabelID, ctx.ReturnID)
	}

	got := Translate(ctx, Command{Kind: Goto, Name: "LOOP"})
	if got[1] != "@Foo.bar$LOOP" {
		t.Errorf("goto target = %s; want @Foo.bar$LOOP", got[1])
	}
}

func TestLabelsAreFunctionScoped(t *testing.T) {
	src := `label SHARED
function Main.f 0
label LOOP
goto SHARED
function Main.g 0
label LOOP
if-goto LOOP
`
	out := strings.Join(mustParse(t, "Main", src).Translate(NewContext("Main")), "\n")

	for _, want := range []string{"(SHARED)", "@Main.f$SHARED", "(Main.f$LOOP)", "(Main.g$LOOP)", "@Main.g$LOOP"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
	if strings.Contains(out, "(Main.f$SHARED)") {
		t.Errorf("top-level label was redeclared inside Main.f")
	}

	// The function-scoped goto does not bind to the top-level label, so
	// the assembler treats its target as a variable.
	a := asm.NewAssembler()
	if _, _, err := a.Assemble(out); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if addr, ok := a.Symbols().Lookup("Main.f$SHARED"); !ok || addr != 16 {
		t.Errorf("Lookup(Main.f$SHARED) = %d, %v; want 16, true", addr, ok)
	}
}
