package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gohack/pkg/asm"
	"gohack/pkg/cpu"
	"gohack/pkg/workspace"
)

const mainVM = `function Main.double 0
push argument 0
push argument 0
add
return
`

const sysVM = `function Sys.init 0
push constant 21
call Main.double 1
pop static 0
label HALT
goto HALT
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func run(t *testing.T, words []uint16) *cpu.CPU {
	t.Helper()
	c := cpu.NewCPU()
	if err := c.Load(words); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := c.Run(100000); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return c
}

func TestAssemble(t *testing.T) {
	ws := workspace.New()
	_ = ws.Write("Add.asm", []byte("@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"))
	_ = ws.Write("Empty.asm", []byte("// nothing\n"))

	written, err := Assemble(ws)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Add.hack", "Empty.hack"}, written); diff != "" {
		t.Errorf("written mismatch. (-expect +got)\n%s", diff)
	}

	hack, _ := ws.Read("Add.hack")
	want := strings.Join([]string{
		"0000000000000010",
		"1110110000010000",
		"0000000000000011",
		"1110000010010000",
		"0000000000000000",
		"1110001100001000",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, string(hack)); diff != "" {
		t.Errorf("Add.hack mismatch. (-expect +got)\n%s", diff)
	}
}

func TestAssembleReportsFile(t *testing.T) {
	ws := workspace.New()
	_ = ws.Write("Big.asm", []byte("@40000"))
	_, err := Assemble(ws)
	if err == nil || !strings.HasPrefix(err.Error(), "Big.asm: ") {
		t.Errorf("error = %v; want it prefixed with the file name", err)
	}
}

func TestTranslateRunsOnCPU(t *testing.T) {
	ws := workspace.New()
	_ = ws.Write("Sys.vm", []byte(sysVM))
	_ = ws.Write("Main.vm", []byte(mainVM))

	if err := Translate(ws, "Prog.asm", true); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if _, err := Assemble(ws); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	text, _ := ws.Read("Prog.asm")
	if !strings.HasPrefix(string(text), "// init\n@256") {
		t.Errorf("translation does not start with the bootstrap:\n%.40s", text)
	}

	hack, _ := ws.Read("Prog.hack")
	words, err := asm.ParseHack(string(hack))
	if err != nil {
		t.Fatalf("ParseHack failed: %v", err)
	}
	if c := run(t, words); c.RAM[16] != 42 {
		t.Errorf("RAM[16] (Sys.0) = %d; want 42", c.RAM[16])
	}

	programs, err := ParseVM(ws)
	if err != nil {
		t.Fatal(err)
	}
	if programs[0].FileName != "Main" || programs[1].FileName != "Sys" {
		t.Errorf("unit order = %s, %s; want Main, Sys", programs[0].FileName, programs[1].FileName)
	}
}

func TestDottedHostNames(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj.v2")
	if err := os.Mkdir(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, proj, map[string]string{"Main.vm": mainVM, "Sys.vm": sysVM})

	ws := workspace.New()
	if err := ws.LoadFrom(proj, ".vm"); err != nil {
		t.Fatalf("LoadFrom(%s) failed: %v", proj, err)
	}
	if err := Translate(ws, "proj.v2.asm", true); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	written, err := Assemble(ws)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if diff := cmp.Diff([]string{"proj.v2.hack"}, written); diff != "" {
		t.Errorf("written mismatch (-want +got)\n%s", diff)
	}

	src := filepath.Join(root, "my-prog.test.asm")
	writeFiles(t, root, map[string]string{"my-prog.test.asm": "@7\nD=A\n@0\nM=D\n"})
	single := workspace.New()
	if err := single.LoadFrom(src, ".asm"); err != nil {
		t.Fatalf("LoadFrom(%s) failed: %v", src, err)
	}
	written, err = Assemble(single)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if diff := cmp.Diff([]string{"my-prog.test.hack"}, written); diff != "" {
		t.Errorf("written mismatch (-want +got)\n%s", diff)
	}
}

func TestTranslateParseError(t *testing.T) {
	ws := workspace.New()
	_ = ws.Write("Bad.vm", []byte("push constant 1\nfrobnicate\n"))
	if err := Translate(ws, "Bad.asm", false); err == nil {
		t.Fatal("expected parse error")
	}
	if names := ws.List(".asm"); len(names) != 0 {
		t.Errorf("output written despite error: %v", names)
	}
}

func TestAnalyze(t *testing.T) {
	ws := workspace.New()
	_ = ws.Write("Main.jack", []byte("class Main { function void main() { return; } }"))

	written, err := Analyze(ws, true)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if diff := cmp.Diff([]string{"MainT.xml", "Main.xml"}, written); diff != "" {
		t.Errorf("written mismatch. (-expect +got)\n%s", diff)
	}

	tokens, _ := ws.Read("MainT.xml")
	if !strings.HasPrefix(string(tokens), "<tokens>\n<keyword> class </keyword>") {
		t.Errorf("MainT.xml = %.60q", tokens)
	}
	tree, _ := ws.Read("Main.xml")
	if !strings.HasPrefix(string(tree), "<class>\n<keyword> class </keyword>\n<identifier> Main </identifier>") {
		t.Errorf("Main.xml = %.80q", tree)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := map[string]string{
		"tokenizer": `class Main { field String s; /* open`,
		"parser":    "class Main { function void main() { return } }",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			ws := workspace.New()
			_ = ws.Write("Main.jack", []byte(src))
			if _, err := Analyze(ws, false); err == nil || !strings.HasPrefix(err.Error(), "Main.jack: ") {
				t.Errorf("error = %v; want it prefixed with the file name", err)
			}
		})
	}
}

func TestLoadProgram(t *testing.T) {
	dir := t.TempDir()
	vmDir := filepath.Join(dir, "Double")
	if err := os.Mkdir(vmDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, vmDir, map[string]string{"Main.vm": mainVM, "Sys.vm": sysVM})
	writeFiles(t, dir, map[string]string{
		"Add.asm":  "@5\nD=A\n@0\nM=D\n",
		"Add.hack": "0000000000000101\n1110110000010000\n0000000000000000\n1110001100001000\n",
		"Seven.vm": "push constant 7\npop static 0\n",
		"notes.md": "hi",
	})

	tests := map[string]struct {
		path      string
		bootstrap bool
		addr      int
		want      uint16
	}{
		"hack":           {"Add.hack", false, 0, 5},
		"asm":            {"Add.asm", false, 0, 5},
		"vm directory":   {"Double", true, 16, 42},
		"vm single file": {"Seven.vm", false, 16, 7},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			words, err := LoadProgram(filepath.Join(dir, tt.path), tt.bootstrap)
			if err != nil {
				t.Fatalf("LoadProgram failed: %v", err)
			}
			c := run(t, words)
			if c.RAM[tt.addr] != tt.want {
				t.Errorf("RAM[%d] = %d; want %d", tt.addr, c.RAM[tt.addr], tt.want)
			}
		})
	}

	if _, err := LoadProgram(filepath.Join(dir, "notes.md"), false); err == nil {
		t.Error("expected error for an unknown extension")
	}
	if _, err := LoadProgram(filepath.Join(dir, "missing.asm"), false); err == nil {
		t.Error("expected error for a missing file")
	}
}
