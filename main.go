//go:build !js

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gohack/pkg/config"
	"gohack/pkg/cpu"
	"gohack/pkg/pipeline"
	"gohack/pkg/utils"
	"gohack/pkg/workspace"
)

type app struct {
	envFile string
	verbose bool
	cfg     config.Config
	out     io.Writer
}

func (a *app) logf(format string, args ...any) {
	if a.verbose || a.cfg.Verbose {
		log.Printf(format, args...)
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gohack: ")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "gohack",
		Short:        "Hack assembler, VM translator, Jack analyzer and emulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env", "", "dotenv file with GOHACK_* settings (default "+config.DefaultEnvFile+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(a.asmCmd(), a.vmCmd(), a.jackCmd(), a.buildCmd(), a.runCmd())
	return root
}

// persist writes the dirty workspace files into dir and reports them.
func (a *app) persist(ws *workspace.Workspace, dir string) error {
	written, err := ws.PersistTo(dir)
	for _, path := range written {
		fmt.Fprintf(a.out, "wrote %s\n", path)
	}
	return err
}

func sourceDir(input string) (string, error) {
	full, parent, err := utils.GetPathInfo(input)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return full, nil
	}
	return parent, nil
}

func (a *app) asmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "asm <file.asm|dir>",
		Short: "Assemble Hack assembly into .hack machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := sourceDir(args[0])
			if err != nil {
				return err
			}
			ws := workspace.New()
			if err := ws.LoadFrom(args[0], ".asm"); err != nil {
				return err
			}
			a.logf("assembling %d file(s) from %s", len(ws.List(".asm")), args[0])
			if _, err := pipeline.Assemble(ws); err != nil {
				return err
			}
			return a.persist(ws, dir)
		},
	}
}

// bootstrapFlag returns the --bootstrap value, falling back to the
// configured default when the flag was not given.
func (a *app) bootstrapFlag(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("bootstrap") {
		v, _ := cmd.Flags().GetBool("bootstrap")
		return v
	}
	return a.cfg.Bootstrap
}

// translate loads the VM sources at input and writes the combined
// assembly into ws. It returns the output directory and file name.
func (a *app) translate(ws *workspace.Workspace, input string, bootstrap bool) (string, string, error) {
	dir, name, err := utils.OutputTarget(input, ".asm")
	if err != nil {
		return "", "", err
	}
	if err := ws.LoadFrom(input, ".vm"); err != nil {
		return "", "", err
	}
	a.logf("translating %s (bootstrap=%t)", strings.Join(ws.List(".vm"), ", "), bootstrap)
	if err := pipeline.Translate(ws, name, bootstrap); err != nil {
		return "", "", err
	}
	return dir, name, nil
}

func (a *app) vmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm <file.vm|dir>",
		Short: "Translate VM code into Hack assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspace.New()
			dir, _, err := a.translate(ws, args[0], a.bootstrapFlag(cmd))
			if err != nil {
				return err
			}
			return a.persist(ws, dir)
		},
	}
	cmd.Flags().Bool("bootstrap", true, "emit SP init, call Sys.init and the halt loop (default from "+config.KeyBootstrap+")")
	return cmd
}

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <file.vm|dir>",
		Short: "Translate VM code and assemble it into .hack machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspace.New()
			dir, _, err := a.translate(ws, args[0], a.bootstrapFlag(cmd))
			if err != nil {
				return err
			}
			if _, err := pipeline.Assemble(ws); err != nil {
				return err
			}
			return a.persist(ws, dir)
		},
	}
	cmd.Flags().Bool("bootstrap", true, "emit SP init, call Sys.init and the halt loop (default from "+config.KeyBootstrap+")")
	return cmd
}

func (a *app) jackCmd() *cobra.Command {
	var (
		outDir string
		tokens bool
	)
	cmd := &cobra.Command{
		Use:   "jack <file.jack|dir>",
		Short: "Tokenize and parse Jack classes into XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := sourceDir(args[0])
			if err != nil {
				return err
			}
			if outDir != "" {
				dir = outDir
			}
			ws := workspace.New()
			if err := ws.LoadFrom(args[0], ".jack"); err != nil {
				return err
			}
			a.logf("analyzing %s", strings.Join(ws.List(".jack"), ", "))
			if _, err := pipeline.Analyze(ws, tokens || a.cfg.TokensXML); err != nil {
				return err
			}
			return a.persist(ws, dir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: next to the sources)")
	cmd.Flags().BoolVarP(&tokens, "tokens", "t", false, "also write <Name>T.xml token dumps")
	return cmd
}

type runOptions struct {
	maxSteps   int
	ramRanges  []string
	screenshot string
	snapshot   string
	resume     string
}

func (a *app) runCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file.hack|file.asm|file.vm|dir]",
		Short: "Run a program headlessly on the Hack emulator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-steps") {
				opts.maxSteps = a.cfg.MaxSteps
			}
			return a.run(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "instruction budget, 0 for none (default from "+config.KeyMaxSteps+")")
	cmd.Flags().StringArrayVar(&opts.ramRanges, "ram", nil, "print RAM[a..b] after the run, as a:b or a single address")
	cmd.Flags().StringVar(&opts.screenshot, "screenshot", "", "save the screen as a PNG")
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "save the machine state to a zip file")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "restore the machine state from a zip file before running")
	cmd.Flags().Bool("bootstrap", true, "bootstrap VM programs (default from "+config.KeyBootstrap+")")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string, opts *runOptions) error {
	if len(args) == 0 && opts.resume == "" {
		return errors.New("run needs a program or --resume")
	}

	vm := cpu.NewCPU()
	if len(args) == 1 {
		words, err := pipeline.LoadProgram(args[0], a.bootstrapFlag(cmd))
		if err != nil {
			return err
		}
		if err := vm.Load(words); err != nil {
			return err
		}
		a.logf("loaded %d words from %s", len(words), args[0])
	}
	if opts.resume != "" {
		if err := vm.RestoreFromFile(opts.resume); err != nil {
			return fmt.Errorf("resume from %s: %w", opts.resume, err)
		}
		a.logf("resumed at PC=%d after %d steps", vm.PC, vm.Steps)
	}

	steps, runErr := vm.Run(opts.maxSteps)
	if runErr != nil && !errors.Is(runErr, cpu.ErrStepLimit) {
		return runErr
	}

	state := "halted"
	if runErr != nil {
		state = "stopped at step limit"
	}
	fmt.Fprintf(a.out, "%s after %d steps: A=%d D=%d PC=%d SP=%d\n",
		state, steps, vm.A, int16(vm.D), vm.PC, vm.RAM[0])

	for _, r := range opts.ramRanges {
		lo, hi, err := parseRange(r)
		if err != nil {
			return err
		}
		for addr := lo; addr <= hi; addr++ {
			fmt.Fprintf(a.out, "RAM[%d] = %d\n", addr, int16(vm.RAM[addr]))
		}
	}

	if opts.screenshot != "" {
		if err := vm.SaveScreenshot(opts.screenshot, a.cfg.Scale); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s\n", filepath.Clean(opts.screenshot))
	}
	if opts.snapshot != "" {
		if err := vm.HibernateToFile(opts.snapshot); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s\n", filepath.Clean(opts.snapshot))
	}
	return runErr
}

// parseRange accepts "a:b" or "a" with addresses inside RAM.
func parseRange(s string) (int, int, error) {
	loStr, hiStr, found := strings.Cut(s, ":")
	if !found {
		hiStr = loStr
	}
	lo, err := strconv.Atoi(loStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid RAM range %q", s)
	}
	hi, err := strconv.Atoi(hiStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid RAM range %q", s)
	}
	if lo < 0 || hi >= cpu.RAMSize || lo > hi {
		return 0, 0, fmt.Errorf("RAM range %q outside 0:%d", s, cpu.RAMSize-1)
	}
	return lo, hi, nil
}
