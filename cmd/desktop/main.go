package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gohack/pkg/config"
	"gohack/pkg/cpu"
	"gohack/pkg/pipeline"
	"gohack/pkg/utils"
)

// Hack keyboard codes for non-printing keys.
const (
	keyNewline   = 128
	keyBackspace = 129
	keyLeft      = 130
	keyUp        = 131
	keyRight     = 132
	keyDown      = 133
	keyHome      = 134
	keyEnd       = 135
	keyPageUp    = 136
	keyPageDown  = 137
	keyInsert    = 138
	keyDelete    = 139
	keyEscape    = 140
	keyF1        = 141
)

var specialKeys = map[ebiten.Key]uint16{
	ebiten.KeyEnter:      keyNewline,
	ebiten.KeyBackspace:  keyBackspace,
	ebiten.KeyArrowLeft:  keyLeft,
	ebiten.KeyArrowUp:    keyUp,
	ebiten.KeyArrowRight: keyRight,
	ebiten.KeyArrowDown:  keyDown,
	ebiten.KeyHome:       keyHome,
	ebiten.KeyEnd:        keyEnd,
	ebiten.KeyPageUp:     keyPageUp,
	ebiten.KeyPageDown:   keyPageDown,
	ebiten.KeyInsert:     keyInsert,
	ebiten.KeyDelete:     keyDelete,
	ebiten.KeyEscape:     keyEscape,
}

var shiftedDigits = []byte(")!@#$%^&*(")

// keyCode maps a held key to the value the Hack keyboard register shows,
// or 0 when the key has no Hack code.
func keyCode(k ebiten.Key, shift bool) uint16 {
	if code, ok := specialKeys[k]; ok {
		return code
	}
	switch {
	case k >= ebiten.KeyA && k <= ebiten.KeyZ:
		if shift {
			return uint16('A' + (k - ebiten.KeyA))
		}
		return uint16('a' + (k - ebiten.KeyA))
	case k >= ebiten.KeyDigit0 && k <= ebiten.KeyDigit9:
		if shift {
			return uint16(shiftedDigits[k-ebiten.KeyDigit0])
		}
		return uint16('0' + (k - ebiten.KeyDigit0))
	case k >= ebiten.KeyF1 && k <= ebiten.KeyF12:
		return uint16(keyF1 + (k - ebiten.KeyF1))
	case k == ebiten.KeySpace:
		return ' '
	}
	return 0
}

type Game struct {
	mu            sync.Mutex
	vm            *cpu.CPU
	stepsPerFrame int
	screenImg     *ebiten.Image // reused 512×256 canvas
}

func newGame(vm *cpu.CPU, stepsPerFrame int) *Game {
	return &Game{vm: vm, stepsPerFrame: stepsPerFrame}
}

// advance publishes the held key and runs one frame worth of steps.
func (g *Game) advance(key uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.vm.SetKey(key)
	for i := 0; i < g.stepsPerFrame; i++ {
		if g.vm.Halted {
			break
		}
		g.vm.Step()
	}
}

func heldKey() uint16 {
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	for _, k := range inpututil.AppendPressedKeys(nil) {
		if code := keyCode(k, shift); code != 0 {
			return code
		}
	}
	return 0
}

func (g *Game) Update() error {
	g.advance(heldKey())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(cpu.ScreenWidth, cpu.ScreenHeight)
	}

	g.mu.Lock()
	pixels := g.vm.GetFramebufferRGBA()
	halted, steps := g.vm.Halted, g.vm.Steps
	g.mu.Unlock()

	g.screenImg.WritePixels(pixels)
	screen.DrawImage(g.screenImg, nil)

	if halted {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("halted after %d steps", steps), 4, cpu.ScreenHeight-16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.ScreenWidth, cpu.ScreenHeight
}

// snapshot writes the machine state to path under the game lock.
func (g *Game) snapshot(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vm.HibernateToFile(path)
}

// startSnapshotter saves the machine state every interval while stop is
// open, skipping intervals in which the CPU did not run.
func startSnapshotter(g *Game, path string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastSteps uint64
	for {
		select {
		case <-ticker.C:
			g.mu.Lock()
			steps := g.vm.Steps
			g.mu.Unlock()
			if steps == lastSteps {
				continue
			}
			if err := g.snapshot(path); err != nil {
				log.Printf("snapshot failed: %v", err)
				continue
			}
			lastSteps = steps
		case <-stop:
			return
		}
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gohack-desktop: ")

	envFile := flag.String("env", "", "dotenv file with GOHACK_* settings")
	snapshotPath := flag.String("snapshot", "", "periodically save the machine state to this zip file")
	resumePath := flag.String("resume", "", "restore the machine state from a zip file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}

	vm := cpu.NewCPU()
	title := "Hack"
	if flag.NArg() > 0 {
		fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		words, err := pipeline.LoadProgram(fullPath, cfg.Bootstrap)
		if err != nil {
			log.Fatalf("Failed to load program: %v", err)
		}
		if err := vm.Load(words); err != nil {
			log.Fatal(err)
		}
		title = "Hack - " + utils.Stem(fullPath)
	}
	if *resumePath != "" {
		if err := vm.RestoreFromFile(*resumePath); err != nil {
			log.Fatalf("Failed to resume: %v", err)
		}
	}
	if vm.ProgramLen() == 0 {
		fmt.Fprintln(os.Stderr, "usage: desktop [-env file] [-snapshot out.zip] [-resume in.zip] <file.hack|file.asm|file.vm|dir>")
		os.Exit(2)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cpu.ScreenWidth*cfg.Scale, cpu.ScreenHeight*cfg.Scale)
	ebiten.SetWindowTitle(title)

	game := newGame(vm, cfg.StepsPerFrame)

	stop := make(chan struct{})
	if *snapshotPath != "" {
		go startSnapshotter(game, *snapshotPath, 3*time.Second, stop)
	}

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}

	// Final snapshot after the window closes.
	close(stop)
	if *snapshotPath != "" {
		if err := game.snapshot(*snapshotPath); err != nil {
			log.Fatal(err)
		}
	}
}
