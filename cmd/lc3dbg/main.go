// Command lc3dbg is a graphical debugger: registers, disassembly and
// memory windows, display output, breakpoints, and single stepping.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/edsim/lc3kit/emulator"
	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/machine"
)

const (
	screenWidth  = 640
	screenHeight = 480

	disasmRows = 16
	memoryRows = 8

	// Instructions executed per frame while free-running, roughly a
	// 1 MHz machine at 60 fps.
	stepsPerFrame = 16000

	consoleLimit = 512 // Display output characters kept on screen.
)

type debugger struct {
	emu *emulator.Emulator

	running bool
	status  string
	console string
}

func (dbg *debugger) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	// Typed characters feed the keyboard device.
	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r < 0x80 {
			dbg.emu.Keyboard.Push(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		dbg.emu.Keyboard.Push('\n')
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF2):
		if err := dbg.emu.Reset(); err != nil {
			return err
		}
		dbg.running = false
		dbg.console = ""
		dbg.status = "reset"
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		dbg.running = !dbg.running
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		pc := dbg.emu.PC
		if dbg.emu.Breakpoint(pc) {
			dbg.emu.ClearBreakpoint(pc)
		} else {
			dbg.emu.SetBreakpoint(pc)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF10):
		switch dbg.emu.Step() {
		case machine.OutcomeHalted:
			dbg.status = "halted"
		case machine.OutcomeDoubleFault:
			dbg.status = fmt.Sprintf("double fault at x%04X", uint16(dbg.emu.PC))
		default:
			dbg.status = "stopped"
		}
	}

	if dbg.running {
		steps := 0
		reason := dbg.emu.RunUntil(func(m *machine.Machine) bool {
			steps++
			return steps >= stepsPerFrame || dbg.emu.Breakpoint(m.PC)
		})
		if reason != machine.StopPredicate || dbg.emu.Breakpoint(dbg.emu.PC) {
			dbg.running = false
		}
		dbg.report(reason)
	}

	dbg.drain()
	return nil
}

// report records the last stop condition for the status line.
func (dbg *debugger) report(reason machine.StopReason) {
	switch reason {
	case machine.StopHalted:
		dbg.status = "halted"
	case machine.StopDoubleFault:
		dbg.status = fmt.Sprintf("double fault at x%04X", uint16(dbg.emu.PC))
	default:
		if dbg.emu.Breakpoint(dbg.emu.PC) {
			dbg.status = fmt.Sprintf("breakpoint at x%04X", uint16(dbg.emu.PC))
		} else if dbg.running {
			dbg.status = "running"
		} else {
			dbg.status = "stopped"
		}
	}
}

// drain moves pending display output into the console panel.
func (dbg *debugger) drain() {
	for {
		ch, ok := dbg.emu.Output.Read()
		if !ok {
			break
		}
		dbg.console += string(rune(ch))
	}
	if len(dbg.console) > consoleLimit {
		dbg.console = dbg.console[len(dbg.console)-consoleLimit:]
	}
}

func (dbg *debugger) Draw(screen *ebiten.Image) {
	view := dbg.emu.Snapshot()

	ebitenutil.DebugPrintAt(screen, view.String(), 8, 8)

	var code strings.Builder
	for n, line := range dbg.emu.Disassemble(view.PC, disasmRows) {
		addr := view.PC + isa.Word(n)
		marker := ' '
		if dbg.emu.Breakpoint(addr) {
			marker = '*'
		}
		if label := dbg.emu.LabelAt(addr); label != "" {
			fmt.Fprintf(&code, "%18v:\n", label)
		}
		fmt.Fprintf(&code, "%c x%04X  %v\n", marker, uint16(addr), line)
	}
	ebitenutil.DebugPrintAt(screen, code.String(), 200, 8)

	var mem strings.Builder
	fmt.Fprintf(&mem, "stack (r6 x%04X):\n", uint16(view.Reg[6]))
	for n, word := range dbg.emu.Window(view.Reg[6], memoryRows) {
		fmt.Fprintf(&mem, "x%04X: x%04X\n", uint16(view.Reg[6]+isa.Word(n)), uint16(word))
	}
	ebitenutil.DebugPrintAt(screen, mem.String(), 8, 180)

	ebitenutil.DebugPrintAt(screen, "display:\n"+dbg.console, 8, 336)

	help := fmt.Sprintf("%v | F2 reset  F5 run/pause  F9 breakpoint  F10 step  Esc quit", dbg.status)
	ebitenutil.DebugPrintAt(screen, help, 8, screenHeight-16)
}

func (dbg *debugger) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	var assemble bool
	var verbose bool

	flag.BoolVar(&assemble, "a", false, "Treat the input as assembly source")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one image file", os.Args[0])
	}
	path := flag.Arg(0)

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	emu := emulator.New()
	emu.Verbose = verbose

	if assemble {
		err = emu.LoadSource(inf)
	} else {
		err = emu.LoadObject(inf)
	}
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	dbg := &debugger{emu: emu, status: "stopped"}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("lc3dbg: " + path)
	if err := ebiten.RunGame(dbg); err != nil {
		log.Fatal(err)
	}
}
