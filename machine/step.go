package machine

import (
	"log"

	"github.com/edsim/lc3kit/isa"
)

// Outcome reports what a single Step did.
type Outcome int

//go:generate go tool stringer -linecomment -type=Outcome
const (
	OutcomeStepped     = Outcome(0) // stepped
	OutcomeHalted      = Outcome(1) // halted
	OutcomeDoubleFault = Outcome(2) // double fault
)

// StopReason reports why a RunUntil loop returned.
type StopReason int

//go:generate go tool stringer -linecomment -type=StopReason
const (
	StopPredicate   = StopReason(0) // stop predicate
	StopHalted      = StopReason(1) // halted
	StopDoubleFault = StopReason(2) // double fault
)

// Step advances the machine by exactly one instruction: fetch at PC,
// increment PC, decode, execute, then take a pending interrupt if one
// outranks the current priority. Stepping a halted or faulted machine
// is a no-op that reports the terminal condition.
func (m *Machine) Step() Outcome {
	if m.halted {
		return OutcomeHalted
	}
	if m.faulted {
		return OutcomeDoubleFault
	}

	word := m.read(m.PC)
	m.PC++
	inst := isa.Decode(word)

	if m.Verbose {
		log.Printf("machine: x%04X: x%04X %v", uint16(m.PC-1), uint16(word), inst.Op)
	}

	m.execute(inst)

	if m.halted {
		return OutcomeHalted
	}
	if !m.faulted {
		m.pollInterrupt()
	}
	if m.faulted {
		return OutcomeDoubleFault
	}
	return OutcomeStepped
}

// RunUntil steps repeatedly until the machine halts, double faults, or
// the stop predicate holds. The predicate is consulted after every
// step, so a requested stop is at most one instruction away.
func (m *Machine) RunUntil(stop func(*Machine) bool) StopReason {
	for {
		switch m.Step() {
		case OutcomeHalted:
			return StopHalted
		case OutcomeDoubleFault:
			return StopDoubleFault
		}
		if stop(m) {
			return StopPredicate
		}
	}
}

// dispatch pushes PSR and PC onto the supervisor stack, enters
// supervisor mode, and jumps through the vector table entry at 'at'.
// If the stack pointer cannot absorb the two pushes the machine is in
// a double fault: the invariants needed to service the event are
// already gone.
func (m *Machine) dispatch(at isa.Word) {
	psr := m.Mem[isa.ADDR_PSR]
	if psr&isa.PSR_USER != 0 {
		m.SavedUSP = m.Reg[6]
		m.Reg[6] = m.SavedSSP
		m.Mem[isa.ADDR_PSR] = psr &^ isa.PSR_USER
	}

	if m.Reg[6] < 2 {
		m.faulted = true
		if m.Verbose {
			log.Printf("machine: double fault dispatching x%04X", uint16(at))
		}
		return
	}

	m.Reg[6]--
	m.Mem[m.Reg[6]] = psr
	m.Reg[6]--
	m.Mem[m.Reg[6]] = m.PC

	m.PC = m.Mem[at]
}

// exception dispatches through the exception/interrupt vector table.
func (m *Machine) exception(vector isa.Word) {
	if m.Verbose {
		log.Printf("machine: exception x%02X", uint16(vector))
	}
	m.dispatch(isa.EXCEPTION_TABLE | vector)
}

// pollInterrupt takes the keyboard interrupt when a character is
// pending, the device's interrupt-enable bit is set, and the device
// priority strictly exceeds the processor priority.
func (m *Machine) pollInterrupt() {
	if m.Keyboard == nil || !m.Keyboard.Ready() {
		return
	}
	if m.Mem[isa.ADDR_KBSR]&isa.KBSR_IE == 0 {
		return
	}
	if isa.KEYBOARD_PRIORITY <= m.priority() {
		return
	}

	m.dispatch(isa.EXCEPTION_TABLE | isa.VEC_KEYBOARD)
	if !m.faulted {
		m.setPriority(isa.KEYBOARD_PRIORITY)
	}
}

// loadChecked reads addr on behalf of the instruction stream,
// raising the access violation exception on a user-mode touch outside
// user space.
func (m *Machine) loadChecked(addr isa.Word) (value isa.Word, ok bool) {
	if !m.accessible(addr) {
		m.exception(isa.VEC_ACCESS)
		return
	}
	return m.read(addr), true
}

// storeChecked writes addr on behalf of the instruction stream, with
// the same access check as loadChecked.
func (m *Machine) storeChecked(addr, value isa.Word) (ok bool) {
	if !m.accessible(addr) {
		m.exception(isa.VEC_ACCESS)
		return
	}
	m.write(addr, value)
	return true
}

// execute applies one decoded instruction's effect. The PC has already
// been incremented, so PC-relative arithmetic uses it directly.
func (m *Machine) execute(inst isa.Instruction) {
	switch inst.Op {
	case isa.OP_ADD, isa.OP_AND:
		op2 := m.Reg[inst.SR2]
		if inst.Imm {
			op2 = isa.Word(inst.Imm5)
		}
		var result isa.Word
		if inst.Op == isa.OP_ADD {
			result = m.Reg[inst.SR1] + op2
		} else {
			result = m.Reg[inst.SR1] & op2
		}
		m.Reg[inst.DR] = result
		m.setFlags(result)

	case isa.OP_NOT:
		result := ^m.Reg[inst.SR1]
		m.Reg[inst.DR] = result
		m.setFlags(result)

	case isa.OP_LD:
		value, ok := m.loadChecked(m.PC + isa.Word(inst.PCOff9))
		if !ok {
			return
		}
		m.Reg[inst.DR] = value
		m.setFlags(value)

	case isa.OP_LDI:
		addr, ok := m.loadChecked(m.PC + isa.Word(inst.PCOff9))
		if !ok {
			return
		}
		value, ok := m.loadChecked(addr)
		if !ok {
			return
		}
		m.Reg[inst.DR] = value
		m.setFlags(value)

	case isa.OP_LDR:
		value, ok := m.loadChecked(m.Reg[inst.BaseR] + isa.Word(inst.Off6))
		if !ok {
			return
		}
		m.Reg[inst.DR] = value
		m.setFlags(value)

	case isa.OP_LEA:
		m.Reg[inst.DR] = m.PC + isa.Word(inst.PCOff9)

	case isa.OP_ST:
		m.storeChecked(m.PC+isa.Word(inst.PCOff9), m.Reg[inst.DR])

	case isa.OP_STI:
		addr, ok := m.loadChecked(m.PC + isa.Word(inst.PCOff9))
		if !ok {
			return
		}
		m.storeChecked(addr, m.Reg[inst.DR])

	case isa.OP_STR:
		m.storeChecked(m.Reg[inst.BaseR]+isa.Word(inst.Off6), m.Reg[inst.DR])

	case isa.OP_BR:
		if inst.NZP&m.Mem[isa.ADDR_PSR]&isa.FLAG_MASK != 0 {
			m.PC += isa.Word(inst.PCOff9)
		}

	case isa.OP_JMP:
		m.PC = m.Reg[inst.BaseR]

	case isa.OP_JSR:
		// R7 is written after the target read so JSRR R7 still works.
		returnTo := m.PC
		if inst.Imm {
			m.PC += isa.Word(inst.PCOff11)
		} else {
			m.PC = m.Reg[inst.BaseR]
		}
		m.Reg[7] = returnTo

	case isa.OP_RTI:
		if m.user() {
			m.exception(isa.VEC_PRIVILEGE)
			return
		}
		m.PC = m.Mem[m.Reg[6]]
		m.Reg[6]++
		psr := m.Mem[m.Reg[6]]
		m.Reg[6]++
		m.Mem[isa.ADDR_PSR] = psr
		if psr&isa.PSR_USER != 0 {
			m.SavedSSP = m.Reg[6]
			m.Reg[6] = m.SavedUSP
		}

	case isa.OP_TRAP:
		if inst.Vector == isa.TRAP_HALT {
			// The halt trap is terminal at the engine level.
			m.halted = true
			return
		}
		m.dispatch(isa.TRAP_TABLE | inst.Vector)

	case isa.OP_RES:
		m.exception(isa.VEC_ILLEGAL)
	}
}
