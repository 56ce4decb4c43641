package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gohack/pkg/jack"
)

const testSource = `class Main {
  function void main() {
    var int x;
    let x = 10 + 20;
    do Output.printInt(x);
    return;
  }
}
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	if err := dump(os.Stdout, src); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dump prints every analysis stage of src: tokens, an AST outline and
// the XML tree.
func dump(w io.Writer, src string) error {
	tokens, err := jack.Tokenize(src)
	if err != nil {
		return fmt.Errorf("tokenize error: %w", err)
	}

	fmt.Fprintf(w, "Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Fprintf(w, "  %4d  %-16s %s\n", tok.Line, tok.Type, tok)
	}
	fmt.Fprintln(w)

	class, err := jack.Parse(tokens)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintln(w, "AST")
	fmt.Fprintf(w, "  class %s\n", class.Name)
	for _, v := range class.VarDecs {
		fmt.Fprintf(w, "    %s %s %s\n", v.Kind, v.Type, strings.Join(v.Names, ", "))
	}
	for _, sub := range class.Subroutines {
		params := make([]string, len(sub.Params))
		for i, p := range sub.Params {
			params[i] = p.Type.String() + " " + p.Name
		}
		fmt.Fprintf(w, "    %s %s %s(%s)\n", sub.Kind, sub.ReturnType, sub.Name, strings.Join(params, ", "))
		for _, v := range sub.Body.VarDecs {
			fmt.Fprintf(w, "      var %s %s\n", v.Type, strings.Join(v.Names, ", "))
		}
		printStatements(w, sub.Body.Statements, "      ")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "XML")
	fmt.Fprintln(w, class.XML())
	return nil
}

func printStatements(w io.Writer, stmts []jack.Statement, indent string) {
	for _, s := range stmts {
		fmt.Fprintf(w, "%s%s\n", indent, s)
		switch s := s.(type) {
		case *jack.IfStatement:
			printStatements(w, s.Then, indent+"  ")
			if s.HasElse {
				fmt.Fprintf(w, "%selse\n", indent)
				printStatements(w, s.Else, indent+"  ")
			}
		case *jack.WhileStatement:
			printStatements(w, s.Body, indent+"  ")
		}
	}
}
