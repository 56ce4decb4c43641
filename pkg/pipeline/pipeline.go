// Package pipeline runs the toolchain stages over files held in a
// workspace: assembly to .hack, VM translation to assembly, and Jack
// analysis to XML.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gohack/pkg/asm"
	"gohack/pkg/jack"
	"gohack/pkg/utils"
	"gohack/pkg/vm"
	"gohack/pkg/workspace"
)

// Assemble translates every .asm file in ws into a .hack file of the same
// stem and returns the names written.
func Assemble(ws *workspace.Workspace) ([]string, error) {
	var out []string
	for _, name := range ws.List(".asm") {
		src, err := ws.Read(name)
		if err != nil {
			return nil, err
		}
		words, _, err := asm.Assemble(string(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		target := utils.Stem(name) + ".hack"
		if err := ws.Write(target, []byte(asm.Render(words)+"\n")); err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, nil
}

// ParseVM parses every .vm file in ws in name order.
func ParseVM(ws *workspace.Workspace) ([]*vm.Program, error) {
	names := ws.List(".vm")
	programs := make([]*vm.Program, 0, len(names))
	for _, name := range names {
		src, err := ws.Read(name)
		if err != nil {
			return nil, err
		}
		p, err := vm.Parse(utils.Stem(name), string(src))
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// Translate combines every .vm file in ws into one assembly file named
// target.
func Translate(ws *workspace.Workspace, target string, bootstrap bool) error {
	programs, err := ParseVM(ws)
	if err != nil {
		return err
	}
	return ws.Write(target, []byte(vm.Combine(programs, bootstrap)+"\n"))
}

// Analyze writes <Name>.xml for every .jack file in ws, plus the
// <Name>T.xml token dump when tokensXML is set.
func Analyze(ws *workspace.Workspace, tokensXML bool) ([]string, error) {
	var out []string
	for _, name := range ws.List(".jack") {
		src, err := ws.Read(name)
		if err != nil {
			return nil, err
		}
		stem := utils.Stem(name)

		tokens, err := jack.Tokenize(string(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if tokensXML {
			if err := ws.Write(stem+"T.xml", []byte(jack.TokensXML(tokens)+"\n")); err != nil {
				return nil, err
			}
			out = append(out, stem+"T.xml")
		}

		class, err := jack.Parse(tokens)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := ws.Write(stem+".xml", []byte(class.XML()+"\n")); err != nil {
			return nil, err
		}
		out = append(out, stem+".xml")
	}
	return out, nil
}

// LoadProgram produces machine words for path: a .hack file is read as is,
// a .asm file is assembled, and a .vm file or a directory of .vm files is
// translated and assembled.
func LoadProgram(path string, bootstrap bool) ([]uint16, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	if info.IsDir() {
		ext = ".vm"
	}

	switch ext {
	case ".hack":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return asm.ParseHack(string(raw))

	case ".asm":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		words, _, err := asm.Assemble(string(raw))
		return words, err

	case ".vm":
		ws := workspace.New()
		if err := ws.LoadFrom(path, ".vm"); err != nil {
			return nil, err
		}
		programs, err := ParseVM(ws)
		if err != nil {
			return nil, err
		}
		words, _, err := asm.Assemble(vm.Combine(programs, bootstrap))
		return words, err
	}

	return nil, fmt.Errorf("don't know how to run %s", path)
}
