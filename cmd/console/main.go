package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"gohack/pkg/asm"
	"gohack/pkg/config"
	"gohack/pkg/cpu"
	"gohack/pkg/pipeline"
	"gohack/pkg/vm"
	"gohack/pkg/workspace"
)

const (
	historyFile = ".gohack_history"
	prompt      = "vm> "
	unitName    = "Repl"
)

const helpText = `Enter VM commands (push constant 7, add, call Main.f 1, ...).
Each command is appended to the session and the whole session is re-run.

  :stack        show the stack
  :ram a[:b]    show RAM cells
  :asm          show the assembly of the last command
  :load path    load .vm functions from a file or directory
  :undo         drop the last command
  :reset        clear the session
  :quit         exit`

// Initial segment pointers, as the standard VM test scripts set them.
var segmentBases = map[uint16]uint16{
	0: vm.StackBase,
	1: 300,
	2: 400,
	3: 3000,
	4: 3010,
}

// session holds the commands entered so far and the machine that ran them.
type session struct {
	commands []vm.Command
	library  []*vm.Program
	maxSteps int
	machine  *cpu.CPU
	blocks   [][]string
	lastAsm  []string
}

func newSession(maxSteps int) *session {
	return &session{maxSteps: maxSteps, machine: cpu.NewCPU()}
}

// assemble translates the session unit followed by a halt loop and then
// the loaded library, so library functions only run when called. It also
// returns the assembly of each session command exactly as it appears in
// the text.
func (s *session) assemble() (string, [][]string) {
	ctx := vm.NewContext(unitName)
	lines := []string{"// body"}
	blocks := make([][]string, len(s.commands))
	for i, cmd := range s.commands {
		blocks[i] = vm.Translate(ctx, cmd)
		lines = append(lines, blocks[i]...)
	}
	lines = append(lines, vm.Halt()...)
	for _, p := range s.library {
		lines = append(lines, p.Translate(ctx)...)
	}
	return strings.Join(lines, "\n"), blocks
}

func (s *session) rerun() error {
	text, blocks := s.assemble()
	words, _, err := asm.Assemble(text)
	if err != nil {
		return err
	}

	m := cpu.NewCPU()
	if err := m.Load(words); err != nil {
		return err
	}
	for addr, v := range segmentBases {
		m.RAM[addr] = v
	}
	if _, err := m.Run(s.maxSteps); err != nil {
		return err
	}
	s.machine = m
	s.blocks = blocks
	return nil
}

// exec parses one VM command, appends it and re-runs the session. On
// failure the command is dropped again.
func (s *session) exec(line string) error {
	p, err := vm.Parse(unitName, line)
	if err != nil {
		return err
	}
	if len(p.Commands) == 0 {
		return nil
	}

	s.commands = append(s.commands, p.Commands...)
	if err := s.rerun(); err != nil {
		s.commands = s.commands[:len(s.commands)-len(p.Commands)]
		return err
	}

	s.lastAsm = nil
	for _, block := range s.blocks[len(s.blocks)-len(p.Commands):] {
		s.lastAsm = append(s.lastAsm, block...)
	}
	return nil
}

// load adds the .vm files at path to the library.
func (s *session) load(path string) (int, error) {
	ws := workspace.New()
	if err := ws.LoadFrom(path, ".vm"); err != nil {
		return 0, err
	}
	programs, err := pipeline.ParseVM(ws)
	if err != nil {
		return 0, err
	}
	s.library = append(s.library, programs...)
	return len(programs), s.rerun()
}

func (s *session) undo() error {
	if len(s.commands) == 0 {
		return errors.New("nothing to undo")
	}
	s.commands = s.commands[:len(s.commands)-1]
	return s.rerun()
}

func (s *session) reset() {
	s.commands, s.library, s.blocks, s.lastAsm = nil, nil, nil, nil
	s.machine = cpu.NewCPU()
}

// stack returns the values between the stack base and SP, bottom first.
func (s *session) stack() []int16 {
	sp := s.machine.RAM[0]
	if sp < vm.StackBase {
		return nil
	}
	out := make([]int16, 0, sp-vm.StackBase)
	for addr := uint16(vm.StackBase); addr < sp; addr++ {
		out = append(out, int16(s.machine.RAM[addr]))
	}
	return out
}

func formatStack(values []int16) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// meta runs a ':' command and writes its output to w. It reports false
// when the session should end.
func (s *session) meta(w io.Writer, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return false
	case ":help":
		fmt.Fprintln(w, helpText)
	case ":stack":
		fmt.Fprintln(w, formatStack(s.stack()))
	case ":asm":
		fmt.Fprintln(w, strings.Join(s.lastAsm, "\n"))
	case ":reset":
		s.reset()
	case ":undo":
		if err := s.undo(); err != nil {
			fmt.Fprintln(w, err)
			return true
		}
		fmt.Fprintln(w, formatStack(s.stack()))
	case ":ram":
		if len(fields) != 2 {
			fmt.Fprintln(w, "usage: :ram a[:b]")
			return true
		}
		lo, hi, err := parseRange(fields[1])
		if err != nil {
			fmt.Fprintln(w, err)
			return true
		}
		for addr := lo; addr <= hi; addr++ {
			fmt.Fprintf(w, "RAM[%d] = %d\n", addr, int16(s.machine.RAM[addr]))
		}
	case ":load":
		if len(fields) != 2 {
			fmt.Fprintln(w, "usage: :load path")
			return true
		}
		n, err := s.load(fields[1])
		if err != nil {
			fmt.Fprintln(w, err)
			return true
		}
		fmt.Fprintf(w, "loaded %d file(s)\n", n)
	default:
		fmt.Fprintf(w, "unknown command %s. Type :help for help.\n", fields[0])
	}
	return true
}

func parseRange(s string) (int, int, error) {
	loStr, hiStr, found := strings.Cut(s, ":")
	if !found {
		hiStr = loStr
	}
	lo, err1 := strconv.Atoi(loStr)
	hi, err2 := strconv.Atoi(hiStr)
	if err1 != nil || err2 != nil || lo < 0 || hi >= cpu.RAMSize || lo > hi {
		return 0, 0, fmt.Errorf("invalid RAM range %q", s)
	}
	return lo, hi, nil
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gohack-console: ")

	envFile := flag.String("env", "", "dotenv file with GOHACK_* settings")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}

	s := newSession(cfg.MaxSteps)
	for _, path := range flag.Args() {
		n, err := s.load(path)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", path, err)
		}
		fmt.Printf("loaded %d file(s) from %s\n", n, path)
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	fmt.Println("Hack VM console. Type :help for commands, Ctrl+D to exit.")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			log.Printf("reading input: %v", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if !s.meta(os.Stdout, line) {
				return
			}
			continue
		}

		if err := s.exec(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(formatStack(s.stack()))
	}
}
