// Package emulator ties a machine to its devices, the loaded image,
// and breakpoints: the control surface the front ends drive.
package emulator

import (
	"io"
	"maps"
	"slices"

	"github.com/edsim/lc3kit/asm"
	"github.com/edsim/lc3kit/device"
	"github.com/edsim/lc3kit/disasm"
	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/machine"
	"github.com/edsim/lc3kit/obj"
)

// Emulator is one execution session: machine, devices, image,
// symbols, breakpoints.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.
	*machine.Machine

	Keyboard *device.Buffer // Default keyboard; front ends may replace Machine.Keyboard.
	Output   *device.Buffer // Default display sink; front ends may replace Machine.Display.

	Image   *obj.Image      // Currently loaded image, reloaded on Reset.
	Symbols asm.SymbolTable // Symbol listing from assembly; may be nil.

	breakpoints map[isa.Word]struct{}
}

// New creates an emulator with buffered keyboard and display devices.
func New() (emu *Emulator) {
	emu = &Emulator{
		Machine:     machine.New(),
		Keyboard:    &device.Buffer{},
		Output:      &device.Buffer{},
		breakpoints: map[isa.Word]struct{}{},
	}
	emu.Machine.Keyboard = emu.Keyboard
	emu.Machine.Display = emu.Output
	return
}

// LoadImage loads an image and retains it for Reset.
func (emu *Emulator) LoadImage(img *obj.Image) (err error) {
	emu.Machine.Verbose = emu.Verbose

	err = emu.Machine.Load(img)
	if err != nil {
		return
	}
	emu.Image = img
	return
}

// LoadObject reads a big-endian object stream and loads it.
func (emu *Emulator) LoadObject(r io.Reader) (err error) {
	img, err := obj.Read(r)
	if err != nil {
		return
	}
	return emu.LoadImage(img)
}

// LoadSource assembles source text and loads the result, retaining
// the symbol table for the debugger.
func (emu *Emulator) LoadSource(r io.Reader) (err error) {
	a := asm.Assembler{Verbose: emu.Verbose}
	img, symbols, err := a.Assemble(r)
	if err != nil {
		return
	}
	emu.Symbols = symbols
	return emu.LoadImage(img)
}

// Reset restores the initial machine state and reloads the retained
// image. Breakpoints survive a reset.
func (emu *Emulator) Reset() (err error) {
	emu.Machine.Verbose = emu.Verbose
	emu.Machine.Reset()

	if emu.Image != nil {
		err = emu.Machine.Load(emu.Image)
	}
	return
}

// Run steps until a breakpoint, the halted state, or a double fault.
func (emu *Emulator) Run() machine.StopReason {
	emu.Machine.Verbose = emu.Verbose

	return emu.RunUntil(func(m *machine.Machine) bool {
		_, hit := emu.breakpoints[m.PC]
		return hit
	})
}

// SetBreakpoint arms a breakpoint; Run stops before executing addr.
func (emu *Emulator) SetBreakpoint(addr isa.Word) {
	emu.breakpoints[addr] = struct{}{}
}

// ClearBreakpoint disarms a breakpoint.
func (emu *Emulator) ClearBreakpoint(addr isa.Word) {
	delete(emu.breakpoints, addr)
}

// Breakpoint reports whether a breakpoint is armed at addr.
func (emu *Emulator) Breakpoint(addr isa.Word) bool {
	_, hit := emu.breakpoints[addr]
	return hit
}

// Breakpoints lists the armed breakpoints in address order.
func (emu *Emulator) Breakpoints() []isa.Word {
	return slices.Sorted(maps.Keys(emu.breakpoints))
}

// LabelAt names the symbol resolved to addr, if the loaded image came
// with a symbol table.
func (emu *Emulator) LabelAt(addr isa.Word) string {
	for _, name := range slices.Sorted(maps.Keys(emu.Symbols)) {
		if emu.Symbols[name] == addr {
			return name
		}
	}
	return ""
}

// Disassemble renders count words of memory starting at addr, one
// assembler line per word.
func (emu *Emulator) Disassemble(addr isa.Word, count int) (lines []string) {
	lines = make([]string, count)
	for n, word := range emu.Window(addr, count) {
		lines[n] = disasm.Format(word)
	}
	return
}
