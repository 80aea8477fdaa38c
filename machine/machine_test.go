package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edsim/lc3kit/device"
	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/obj"
)

// loaded builds a reset machine with words placed at origin and the PC
// pointing at them.
func loaded(origin isa.Word, words ...isa.Word) *Machine {
	m := New()
	copy(m.Mem[origin:], words)
	m.PC = origin
	return m
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	m := New()
	m.Reg[0] = 0x1234
	m.Mem[0x3000] = 0xBEEF
	m.halted = true
	m.Reset()

	assert.Equal(isa.Word(0), m.Reg[0])
	assert.Equal(isa.Word(0), m.Mem[0x3000])
	assert.Equal(isa.Word(isa.DEFAULT_ORIGIN), m.PC)
	assert.Equal(isa.Word(isa.INITIAL_SSP), m.Reg[6])
	assert.Equal(isa.Word(isa.FLAG_Z), m.Mem[isa.ADDR_PSR])
	assert.Equal(isa.Word(isa.MCR_RUN), m.Mem[isa.ADDR_MCR])
	assert.False(m.Halted())
}

func TestLoadImage(t *testing.T) {
	assert := assert.New(t)

	m := New()
	err := m.Load(&obj.Image{
		Origin: 0x3000,
		Words:  []isa.Word{0x1021, 0xF025},
	})
	assert.NoError(err)
	assert.Equal(isa.Word(0x3000), m.PC)
	assert.Equal(isa.Word(0x1021), m.Mem[0x3000])
	assert.Equal(isa.Word(0xF025), m.Mem[0x3001])

	err = m.Load(&obj.Image{
		Origin: 0xFFFF,
		Words:  []isa.Word{1, 2},
	})
	assert.ErrorIs(err, ErrImageOverflow)
}

func TestArithmetic(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		name  string
		word  isa.Word
		setup func(m *Machine)
		want  isa.Word
		flag  isa.Word
	}{
		{"ADD R0, R1, #5", 0x1065, func(m *Machine) { m.Reg[1] = 2 }, 7, isa.FLAG_P},
		{"ADD R0, R1, #-1", 0x107F, func(m *Machine) { m.Reg[1] = 1 }, 0, isa.FLAG_Z},
		{"ADD R0, R1, R2", 0x1042, func(m *Machine) { m.Reg[1] = 0x7FFF; m.Reg[2] = 1 }, 0x8000, isa.FLAG_N},
		{"AND R0, R1, #0", 0x5060, func(m *Machine) { m.Reg[1] = 0xFFFF }, 0, isa.FLAG_Z},
		{"AND R0, R1, R2", 0x5042, func(m *Machine) { m.Reg[1] = 0x0FF0; m.Reg[2] = 0x00FF }, 0x00F0, isa.FLAG_P},
		{"NOT R0, R1", 0x907F, func(m *Machine) { m.Reg[1] = 0x00FF }, 0xFF00, isa.FLAG_N},
	} {
		m := loaded(0x3000, test.word)
		test.setup(m)

		assert.Equal(OutcomeStepped, m.Step(), test.name)
		assert.Equal(test.want, m.Reg[0], test.name)
		assert.Equal(test.flag, m.Mem[isa.ADDR_PSR]&isa.FLAG_MASK, test.name)
		assert.Equal(isa.Word(0x3001), m.PC, test.name)
	}
}

func TestLoadsAndStores(t *testing.T) {
	assert := assert.New(t)

	t.Run("LD", func(t *testing.T) {
		m := loaded(0x3000, 0x2001) // LD R0, #1 -> mem[x3002]
		m.Mem[0x3002] = 0x00AA
		m.Step()
		assert.Equal(isa.Word(0x00AA), m.Reg[0])
		assert.Equal(isa.Word(isa.FLAG_P), m.Mem[isa.ADDR_PSR]&isa.FLAG_MASK)
	})

	t.Run("LDI", func(t *testing.T) {
		m := loaded(0x3000, 0xA001) // LDI R0, #1 -> mem[mem[x3002]]
		m.Mem[0x3002] = 0x4000
		m.Mem[0x4000] = 0x8001
		m.Step()
		assert.Equal(isa.Word(0x8001), m.Reg[0])
		assert.Equal(isa.Word(isa.FLAG_N), m.Mem[isa.ADDR_PSR]&isa.FLAG_MASK)
	})

	t.Run("LDR", func(t *testing.T) {
		m := loaded(0x3000, 0x6043) // LDR R0, R1, #3
		m.Reg[1] = 0x4000
		m.Mem[0x4003] = 0x0042
		m.Step()
		assert.Equal(isa.Word(0x0042), m.Reg[0])
	})

	t.Run("LEA does not touch the flags", func(t *testing.T) {
		m := loaded(0x3000, 0xE005) // LEA R0, #5
		m.Mem[isa.ADDR_PSR] = isa.FLAG_N
		m.Step()
		assert.Equal(isa.Word(0x3006), m.Reg[0])
		assert.Equal(isa.Word(isa.FLAG_N), m.Mem[isa.ADDR_PSR]&isa.FLAG_MASK)
	})

	t.Run("ST", func(t *testing.T) {
		m := loaded(0x3000, 0x3002) // ST R0, #2 -> mem[x3003]
		m.Reg[0] = 0xCAFE
		m.Step()
		assert.Equal(isa.Word(0xCAFE), m.Mem[0x3003])
	})

	t.Run("STI", func(t *testing.T) {
		m := loaded(0x3000, 0xB001) // STI R0, #1 -> mem[mem[x3002]]
		m.Mem[0x3002] = 0x4000
		m.Reg[0] = 0x1111
		m.Step()
		assert.Equal(isa.Word(0x1111), m.Mem[0x4000])
	})

	t.Run("STR", func(t *testing.T) {
		m := loaded(0x3000, 0x703F) // STR R0, R0, #-1
		m.Reg[0] = 0x4000
		m.Step()
		assert.Equal(isa.Word(0x4000), m.Mem[0x3FFF])
	})

	t.Run("address arithmetic wraps", func(t *testing.T) {
		m := loaded(0xFFFF, 0x6040) // LDR R0, R1, #0
		m.Reg[1] = 0xFFF0
		m.Mem[0xFFF0] = 0x0007
		m.Step()
		assert.Equal(isa.Word(0x0007), m.Reg[0])
		assert.Equal(isa.Word(0x0000), m.PC)
	})
}

func TestBranchAndJump(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		name string
		word isa.Word
		flag isa.Word
		want isa.Word
	}{
		{"BRz taken", 0x0405, isa.FLAG_Z, 0x3006},
		{"BRz not taken", 0x0405, isa.FLAG_P, 0x3001},
		{"BRnzp always", 0x0E05, isa.FLAG_N, 0x3006},
		{"BR never (NOP)", 0x0005, isa.FLAG_P, 0x3001},
		{"BRn backward", 0x09FE, isa.FLAG_N, 0x2FFF},
	} {
		m := loaded(0x3000, test.word)
		m.Mem[isa.ADDR_PSR] = test.flag
		m.Step()
		assert.Equal(test.want, m.PC, test.name)
	}

	t.Run("JMP", func(t *testing.T) {
		m := loaded(0x3000, 0xC080) // JMP R2
		m.Reg[2] = 0x5000
		m.Step()
		assert.Equal(isa.Word(0x5000), m.PC)
	})

	t.Run("JSR", func(t *testing.T) {
		m := loaded(0x3000, 0x4805) // JSR #5
		m.Step()
		assert.Equal(isa.Word(0x3006), m.PC)
		assert.Equal(isa.Word(0x3001), m.Reg[7])
	})

	t.Run("JSRR R7 reads the target before linking", func(t *testing.T) {
		m := loaded(0x3000, 0x41C0) // JSRR R7
		m.Reg[7] = 0x5000
		m.Step()
		assert.Equal(isa.Word(0x5000), m.PC)
		assert.Equal(isa.Word(0x3001), m.Reg[7])
	})
}

func TestDisplay(t *testing.T) {
	assert := assert.New(t)

	display := &device.Buffer{}
	m := loaded(0x3000, 0xB001) // STI R0, #1 -> mem[mem[x3002]]
	m.Mem[0x3002] = isa.ADDR_DDR
	m.Display = display
	m.Reg[0] = isa.Word('A')

	// Status is ready before any output.
	assert.Equal(isa.Word(isa.DSR_READY), m.read(isa.ADDR_DSR))

	// Writing the data register forwards one character.
	m.Step()
	ch, ok := display.Read()
	assert.True(ok)
	assert.Equal(byte('A'), ch)

	// Still ready afterwards, and the data register itself stays
	// clear: it is write-only.
	assert.Equal(isa.Word(isa.DSR_READY), m.read(isa.ADDR_DSR))
	assert.Equal(isa.Word(0), m.Mem[isa.ADDR_DDR])
}

func TestKeyboard(t *testing.T) {
	assert := assert.New(t)

	kbd := &device.Buffer{}
	m := New()
	m.Keyboard = kbd

	// Not ready with nothing buffered.
	assert.Equal(isa.Word(0), m.read(isa.ADDR_KBSR)&isa.KBSR_READY)

	kbd.Push('x')
	assert.Equal(isa.Word(isa.KBSR_READY), m.read(isa.ADDR_KBSR)&isa.KBSR_READY)
	assert.Equal(isa.Word('x'), m.read(isa.ADDR_KBDR))

	// Consuming the character clears readiness; the data register
	// latches the last character.
	assert.Equal(isa.Word(0), m.read(isa.ADDR_KBSR)&isa.KBSR_READY)
	assert.Equal(isa.Word('x'), m.read(isa.ADDR_KBDR))

	// Only the interrupt-enable bit of the status register is writable.
	m.write(isa.ADDR_KBSR, 0xFFFF)
	assert.Equal(isa.Word(isa.KBSR_IE), m.Mem[isa.ADDR_KBSR])
}

func TestTrapDispatch(t *testing.T) {
	assert := assert.New(t)

	m := loaded(0x3000, 0xF021) // TRAP x21 (OUT)
	m.Mem[isa.TRAP_TABLE|isa.TRAP_OUT] = 0x0400
	psr := m.Mem[isa.ADDR_PSR]

	assert.Equal(OutcomeStepped, m.Step())
	assert.Equal(isa.Word(0x0400), m.PC)
	assert.Equal(isa.Word(isa.INITIAL_SSP-2), m.Reg[6])
	assert.Equal(isa.Word(0x3001), m.Mem[m.Reg[6]])
	assert.Equal(psr, m.Mem[m.Reg[6]+1])
}

func TestTrapFromUserMode(t *testing.T) {
	assert := assert.New(t)

	m := loaded(0x3000, 0xF021)
	m.Mem[isa.TRAP_TABLE|isa.TRAP_OUT] = 0x0400
	m.Mem[isa.ADDR_PSR] = isa.FLAG_Z | isa.PSR_USER
	m.Reg[6] = isa.INITIAL_USP

	m.Step()

	// The stack banks switched: pushes went to the supervisor stack
	// and the user pointer was saved.
	assert.Equal(isa.Word(isa.INITIAL_USP), m.SavedUSP)
	assert.Equal(isa.Word(isa.INITIAL_SSP-2), m.Reg[6])
	assert.False(m.user())
	assert.Equal(isa.Word(isa.FLAG_Z|isa.PSR_USER), m.Mem[isa.INITIAL_SSP-1])
}

func TestRTIRoundTrip(t *testing.T) {
	assert := assert.New(t)

	// A user program traps; the handler returns with RTI. The machine
	// must land on the instruction after the trap, back in user mode,
	// on the user stack.
	m := loaded(0x3000, 0xF021, 0x1021) // TRAP x21; ADD R0, R0, #1
	m.Mem[isa.TRAP_TABLE|isa.TRAP_OUT] = 0x0400
	m.Mem[0x0400] = 0x8000 // RTI
	m.Mem[isa.ADDR_PSR] = isa.FLAG_Z | isa.PSR_USER
	m.Reg[6] = isa.INITIAL_USP

	m.Step() // trap
	m.Step() // RTI

	assert.Equal(isa.Word(0x3001), m.PC)
	assert.True(m.user())
	assert.Equal(isa.Word(isa.INITIAL_USP), m.Reg[6])
	assert.Equal(isa.Word(isa.INITIAL_SSP), m.SavedSSP)

	m.Step() // ADD
	assert.Equal(isa.Word(1), m.Reg[0])
}

func TestPrivilegeViolation(t *testing.T) {
	assert := assert.New(t)

	m := loaded(0x3000, 0x8000) // RTI in user mode
	m.Mem[isa.EXCEPTION_TABLE|isa.VEC_PRIVILEGE] = 0x0400
	m.Mem[isa.ADDR_PSR] = isa.FLAG_Z | isa.PSR_USER
	m.Reg[6] = isa.INITIAL_USP

	assert.Equal(OutcomeStepped, m.Step())
	assert.Equal(isa.Word(0x0400), m.PC)
	assert.False(m.user())
	// The pushed PC is the address after the faulting instruction.
	assert.Equal(isa.Word(0x3001), m.Mem[isa.INITIAL_SSP-2])
}

func TestIllegalOpcode(t *testing.T) {
	assert := assert.New(t)

	m := loaded(0x3000, 0xD000) // reserved opcode
	m.Mem[isa.EXCEPTION_TABLE|isa.VEC_ILLEGAL] = 0x0400

	assert.Equal(OutcomeStepped, m.Step())
	assert.Equal(isa.Word(0x0400), m.PC)
	assert.Equal(isa.Word(0x3001), m.Mem[isa.INITIAL_SSP-2])
}

func TestAccessViolation(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		name string
		word isa.Word
		base isa.Word
	}{
		{"load below user space", 0x6040, 0x0000},   // LDR R0, R1, #0
		{"load from device page", 0x6040, 0xFE00},   // LDR R0, R1, #0
		{"store into system space", 0x7040, 0x0200}, // STR R0, R1, #0
		{"store into control page", 0x7040, 0xFFFE}, // STR R0, R1, #0
	} {
		m := loaded(0x3000, test.word)
		m.Mem[isa.EXCEPTION_TABLE|isa.VEC_ACCESS] = 0x0400
		m.Mem[isa.ADDR_PSR] = isa.FLAG_Z | isa.PSR_USER
		m.Reg[6] = isa.INITIAL_USP
		m.Reg[1] = test.base

		assert.Equal(OutcomeStepped, m.Step(), test.name)
		assert.Equal(isa.Word(0x0400), m.PC, test.name)
		assert.False(m.user(), test.name)
	}

	t.Run("supervisor mode is unrestricted", func(t *testing.T) {
		m := loaded(0x3000, 0x6040) // LDR R0, R1, #0
		m.Reg[1] = 0x0200
		m.Mem[0x0200] = 0x1234
		m.Step()
		assert.Equal(isa.Word(0x1234), m.Reg[0])
	})
}

func TestKeyboardInterrupt(t *testing.T) {
	assert := assert.New(t)

	setup := func(level isa.Word, enable bool, pending bool) *Machine {
		m := loaded(0x3000, 0x1020) // ADD R0, R0, #0
		m.Mem[isa.EXCEPTION_TABLE|isa.VEC_KEYBOARD] = 0x0400
		m.setPriority(level)
		if enable {
			m.Mem[isa.ADDR_KBSR] = isa.KBSR_IE
		}
		kbd := &device.Buffer{}
		if pending {
			kbd.Push('k')
		}
		m.Keyboard = kbd
		return m
	}

	t.Run("taken when the device outranks the processor", func(t *testing.T) {
		m := setup(0, true, true)
		m.Step()
		assert.Equal(isa.Word(0x0400), m.PC)
		assert.Equal(isa.Word(isa.KEYBOARD_PRIORITY), m.priority())
		// Returns to the instruction after the one that completed.
		assert.Equal(isa.Word(0x3001), m.Mem[isa.INITIAL_SSP-2])
	})

	t.Run("not taken at equal priority", func(t *testing.T) {
		m := setup(isa.KEYBOARD_PRIORITY, true, true)
		m.Step()
		assert.Equal(isa.Word(0x3001), m.PC)
	})

	t.Run("not taken with interrupts disabled", func(t *testing.T) {
		m := setup(0, false, true)
		m.Step()
		assert.Equal(isa.Word(0x3001), m.PC)
	})

	t.Run("not taken with no character pending", func(t *testing.T) {
		m := setup(0, true, false)
		m.Step()
		assert.Equal(isa.Word(0x3001), m.PC)
	})
}

func TestHalt(t *testing.T) {
	assert := assert.New(t)

	t.Run("HALT trap", func(t *testing.T) {
		m := loaded(0x3000, 0xF025)
		assert.Equal(OutcomeHalted, m.Step())
		assert.True(m.Halted())
	})

	t.Run("clearing the run bit", func(t *testing.T) {
		m := loaded(0x3000, 0xB001) // STI R0, #1 -> mem[mem[x3002]]
		m.Mem[0x3002] = isa.ADDR_MCR
		m.Reg[0] = 0
		assert.Equal(OutcomeHalted, m.Step())
		assert.True(m.Halted())
	})

	t.Run("stepping a halted machine is a no-op", func(t *testing.T) {
		m := loaded(0x3000, 0xF025, 0x1021)
		m.Step()
		pc := m.PC
		assert.Equal(OutcomeHalted, m.Step())
		assert.Equal(pc, m.PC)
	})
}

func TestDoubleFault(t *testing.T) {
	assert := assert.New(t)

	m := loaded(0x3000, 0xF021)
	m.Reg[6] = 1 // no room for the two pushes

	assert.Equal(OutcomeDoubleFault, m.Step())

	// Terminal: further steps do nothing.
	pc := m.PC
	assert.Equal(OutcomeDoubleFault, m.Step())
	assert.Equal(pc, m.PC)
	assert.True(m.Snapshot().DoubleFault)
}

func TestRunUntil(t *testing.T) {
	assert := assert.New(t)

	t.Run("runs to the halt", func(t *testing.T) {
		// Count to five, then halt.
		m := loaded(0x3000,
			0x1025, // ADD R0, R0, #5
			0xF025, // HALT
		)
		reason := m.RunUntil(func(*Machine) bool { return false })
		assert.Equal(StopHalted, reason)
		assert.Equal(isa.Word(5), m.Reg[0])
	})

	t.Run("stops on the predicate", func(t *testing.T) {
		m := loaded(0x3000,
			0x1021, // ADD R0, R0, #1
			0x0FFE, // BRnzp #-2
		)
		reason := m.RunUntil(func(m *Machine) bool { return m.Reg[0] == 3 })
		assert.Equal(StopPredicate, reason)
		assert.Equal(isa.Word(3), m.Reg[0])
	})

	t.Run("reports the double fault", func(t *testing.T) {
		m := loaded(0x3000, 0xF021)
		m.Reg[6] = 0
		reason := m.RunUntil(func(*Machine) bool { return false })
		assert.Equal(StopDoubleFault, reason)
	})
}

func TestSnapshot(t *testing.T) {
	assert := assert.New(t)

	m := New()
	m.Reg[3] = 0x1234
	m.PC = 0x3456

	v := m.Snapshot()
	assert.Equal(isa.Word(0x1234), v.Reg[3])
	assert.Equal(isa.Word(0x3456), v.PC)
	assert.False(v.User())
	assert.Equal(isa.Word(0), v.Priority())
	assert.Equal("Z", v.CC())
	assert.Contains(v.String(), "r3: x1234")
	assert.Contains(v.String(), "pc: x3456")

	// Mutating the snapshot leaves the machine alone.
	v.Reg[3] = 0
	assert.Equal(isa.Word(0x1234), m.Reg[3])
}

func TestWindow(t *testing.T) {
	assert := assert.New(t)

	m := New()
	m.Mem[0xFFFF] = 0x00AA
	m.Mem[0x0000] = 0x00BB

	words := m.Window(0xFFFF, 2)
	assert.Equal([]isa.Word{0x00AA, 0x00BB}, words)

	// Observation does not consume device input.
	kbd := &device.Buffer{}
	kbd.Push('q')
	m.Keyboard = kbd
	m.Window(isa.ADDR_KBDR, 1)
	assert.True(kbd.Ready())
}
