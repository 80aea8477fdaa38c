package machine

import (
	"log"

	"github.com/edsim/lc3kit/device"
	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/obj"
)

// Machine is one emulated processor with its memory and devices. The
// zero value is not ready to run; use New, or call Reset before the
// first Step.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	Reg [8]isa.Word // General-purpose registers R0-R7.
	PC  isa.Word    // Address of the next instruction.

	Mem [isa.MEMORY_SIZE]isa.Word // Memory arena, device registers included.

	SavedSSP isa.Word // Supervisor stack pointer while in user mode.
	SavedUSP isa.Word // User stack pointer while in supervisor mode.

	Keyboard device.Keyboard // Input collaborator; may be nil.
	Display  device.Display  // Output collaborator; may be nil.

	halted  bool
	faulted bool
}

// New creates a machine in its post-reset state.
func New() (m *Machine) {
	m = &Machine{}
	m.Reset()
	return
}

// Reset restores the defined initial state: registers zero, PC at the
// entry address, memory cleared, supervisor mode at priority zero with
// the Z flag set, both stack banks at their bases.
func (m *Machine) Reset() {
	clear(m.Reg[:])
	clear(m.Mem[:])

	m.PC = isa.DEFAULT_ORIGIN
	m.Mem[isa.ADDR_MCR] = isa.MCR_RUN
	m.Mem[isa.ADDR_PSR] = isa.FLAG_Z

	m.SavedSSP = isa.INITIAL_SSP
	m.SavedUSP = isa.INITIAL_USP
	m.Reg[6] = isa.INITIAL_SSP

	m.halted = false
	m.faulted = false

	if m.Verbose {
		log.Printf("machine: reset, pc x%04X", uint16(m.PC))
	}
}

// Load places an image into memory and points the PC at its origin.
func (m *Machine) Load(img *obj.Image) (err error) {
	if int(img.Origin)+len(img.Words) > isa.MEMORY_SIZE {
		err = ErrImageOverflow
		return
	}

	copy(m.Mem[img.Origin:], img.Words)
	m.PC = img.Origin

	if m.Verbose {
		log.Printf("machine: loaded %v words at x%04X", len(img.Words), uint16(img.Origin))
	}

	return
}

// Halted reports whether the machine has reached the terminal halted
// state.
func (m *Machine) Halted() bool {
	return m.halted
}

// user reports whether the processor is in user mode.
func (m *Machine) user() bool {
	return m.Mem[isa.ADDR_PSR]&isa.PSR_USER != 0
}

// priority returns the current processor priority level.
func (m *Machine) priority() isa.Word {
	return (m.Mem[isa.ADDR_PSR] & isa.PSR_PRIORITY_MASK) >> isa.PSR_PRIORITY_SHIFT
}

func (m *Machine) setPriority(level isa.Word) {
	psr := m.Mem[isa.ADDR_PSR] &^ isa.PSR_PRIORITY_MASK
	m.Mem[isa.ADDR_PSR] = psr | (level << isa.PSR_PRIORITY_SHIFT)
}

// setFlags recomputes the N/Z/P condition codes from a result word.
// Exactly one flag is set afterwards.
func (m *Machine) setFlags(result isa.Word) {
	psr := m.Mem[isa.ADDR_PSR] &^ isa.FLAG_MASK
	switch {
	case result == 0:
		psr |= isa.FLAG_Z
	case result&0x8000 != 0:
		psr |= isa.FLAG_N
	default:
		psr |= isa.FLAG_P
	}
	m.Mem[isa.ADDR_PSR] = psr
}

// accessible reports whether the current privilege level may touch
// addr. Supervisor mode sees everything; user mode only user space.
func (m *Machine) accessible(addr isa.Word) bool {
	if !m.user() {
		return true
	}
	return addr >= isa.USER_SPACE_START && addr <= isa.USER_SPACE_END
}

// read returns the word at addr, routing device register addresses to
// their collaborators instead of the arena.
func (m *Machine) read(addr isa.Word) isa.Word {
	switch addr {
	case isa.ADDR_KBSR:
		status := m.Mem[isa.ADDR_KBSR] & isa.KBSR_IE
		if m.Keyboard != nil && m.Keyboard.Ready() {
			status |= isa.KBSR_READY
		}
		return status
	case isa.ADDR_KBDR:
		if m.Keyboard != nil {
			if ch, ok := m.Keyboard.Read(); ok {
				m.Mem[isa.ADDR_KBDR] = isa.Word(ch)
			}
		}
		return m.Mem[isa.ADDR_KBDR]
	case isa.ADDR_DSR:
		// The emulated display has no latency: always ready.
		return isa.DSR_READY
	}

	return m.Mem[addr]
}

// write stores value at addr, intercepting the device registers.
// Status registers are read-only from the instruction stream except
// for the keyboard interrupt-enable bit.
func (m *Machine) write(addr, value isa.Word) {
	switch addr {
	case isa.ADDR_KBSR:
		m.Mem[isa.ADDR_KBSR] = value & isa.KBSR_IE
		return
	case isa.ADDR_KBDR, isa.ADDR_DSR:
		return
	case isa.ADDR_DDR:
		if m.Display != nil {
			if err := m.Display.Put(byte(value)); err != nil && m.Verbose {
				log.Printf("machine: display: %v", err)
			}
		}
		return
	case isa.ADDR_MCR:
		m.Mem[isa.ADDR_MCR] = value
		if value&isa.MCR_RUN == 0 {
			m.halted = true
		}
		return
	}

	m.Mem[addr] = value
}
