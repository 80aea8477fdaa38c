package machine

import (
	"fmt"
	"strings"

	"github.com/edsim/lc3kit/isa"
)

// View is a read-only copy of the architectural state, taken between
// steps. Front ends render from a View; they never reach into a
// Machine another front end is driving.
type View struct {
	Reg         [8]isa.Word
	PC          isa.Word
	PSR         isa.Word
	Halted      bool
	DoubleFault bool
}

// Snapshot copies the registers and status for a front end.
func (m *Machine) Snapshot() View {
	return View{
		Reg:         m.Reg,
		PC:          m.PC,
		PSR:         m.Mem[isa.ADDR_PSR],
		Halted:      m.halted,
		DoubleFault: m.faulted,
	}
}

// Window copies count words of memory starting at addr, wrapping at
// the top of the address space. The copy bypasses device intercepts so
// observing memory never perturbs the devices.
func (m *Machine) Window(addr isa.Word, count int) (words []isa.Word) {
	words = make([]isa.Word, count)
	for n := range words {
		words[n] = m.Mem[addr+isa.Word(n)]
	}
	return
}

// User reports whether the view was taken in user mode.
func (v View) User() bool {
	return v.PSR&isa.PSR_USER != 0
}

// Priority returns the processor priority level of the view.
func (v View) Priority() isa.Word {
	return (v.PSR & isa.PSR_PRIORITY_MASK) >> isa.PSR_PRIORITY_SHIFT
}

// CC names the condition code that is set: "N", "Z" or "P".
func (v View) CC() string {
	switch {
	case v.PSR&isa.FLAG_N != 0:
		return "N"
	case v.PSR&isa.FLAG_P != 0:
		return "P"
	default:
		return "Z"
	}
}

// String renders the view as a register dump.
func (v View) String() string {
	var b strings.Builder
	for n, reg := range v.Reg {
		fmt.Fprintf(&b, "r%d: x%04X\n", n, uint16(reg))
	}
	fmt.Fprintf(&b, "pc: x%04X\n", uint16(v.PC))
	mode := "supervisor"
	if v.User() {
		mode = "user"
	}
	fmt.Fprintf(&b, "psr: x%04X (%v, pl%d, %v)\n", uint16(v.PSR), mode, v.Priority(), v.CC())
	return b.String()
}
