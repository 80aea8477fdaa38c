package isa

// Instruction is the decoded form of one machine word: a tagged
// variant over the opcode set. Each opcode defines which fields carry
// meaning; Decode leaves every other field zero so that instructions
// compare equal after an Encode/Decode round trip.
//
// DR names the register in bits 11:9. It is the destination of the
// arithmetic and load opcodes and the source of ST/STI/STR, which the
// encoding does not distinguish.
type Instruction struct {
	Op    Opcode
	DR    Register // Bits 11:9 (destination, store source, or unused).
	SR1   Register // Bits 8:6 for ADD/AND/NOT.
	SR2   Register // Bits 2:0 for register-mode ADD/AND.
	BaseR Register // Bits 8:6 for JMP/JSRR/LDR/STR.

	// Imm selects the immediate/PC-relative form where an opcode has
	// a mode bit: ADD/AND bit 5, JSR bit 11.
	Imm bool

	Imm5    int16 // Sign-extended 5-bit immediate (ADD/AND).
	Off6    int16 // Sign-extended 6-bit base offset (LDR/STR).
	PCOff9  int16 // Sign-extended 9-bit PC-relative offset.
	PCOff11 int16 // Sign-extended 11-bit PC-relative offset (JSR).

	NZP    Word // BR condition mask, bits 11:9.
	Vector Word // TRAP vector, bits 7:0.
	Raw    Word // Original word, kept only for OP_RES.
}

// Decode translates a machine word to its structured form. It is
// total: words the architecture leaves undefined (opcode 13) yield the
// OP_RES variant carrying the raw word, never an error.
func Decode(word Word) (inst Instruction) {
	inst.Op = Opcode(word >> 12)

	switch inst.Op {
	case OP_BR:
		inst.NZP = fieldBits(word, 9, 11)
		inst.PCOff9 = int16(SignExtend(fieldBits(word, 0, 8), 9))
	case OP_ADD, OP_AND:
		inst.DR = Register(fieldBits(word, 9, 11))
		inst.SR1 = Register(fieldBits(word, 6, 8))
		if fieldBits(word, 5, 5) != 0 {
			inst.Imm = true
			inst.Imm5 = int16(SignExtend(fieldBits(word, 0, 4), 5))
		} else {
			inst.SR2 = Register(fieldBits(word, 0, 2))
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		inst.DR = Register(fieldBits(word, 9, 11))
		inst.PCOff9 = int16(SignExtend(fieldBits(word, 0, 8), 9))
	case OP_LDR, OP_STR:
		inst.DR = Register(fieldBits(word, 9, 11))
		inst.BaseR = Register(fieldBits(word, 6, 8))
		inst.Off6 = int16(SignExtend(fieldBits(word, 0, 5), 6))
	case OP_JSR:
		if fieldBits(word, 11, 11) != 0 {
			inst.Imm = true
			inst.PCOff11 = int16(SignExtend(fieldBits(word, 0, 10), 11))
		} else {
			inst.BaseR = Register(fieldBits(word, 6, 8))
		}
	case OP_JMP:
		inst.BaseR = Register(fieldBits(word, 6, 8))
	case OP_NOT:
		inst.DR = Register(fieldBits(word, 9, 11))
		inst.SR1 = Register(fieldBits(word, 6, 8))
	case OP_RTI:
		// No operands.
	case OP_TRAP:
		inst.Vector = fieldBits(word, 0, 7)
	case OP_RES:
		inst.Raw = word
	}

	return
}

// Encode translates a structured instruction to its canonical machine
// word. It is total over the representable instructions; operand
// fields are masked to their declared widths.
func Encode(inst Instruction) (word Word) {
	word = Word(inst.Op) << 12

	switch inst.Op {
	case OP_BR:
		word |= (inst.NZP & 0b111) << 9
		word |= Word(inst.PCOff9) & 0x1FF
	case OP_ADD, OP_AND:
		word |= Word(inst.DR&7) << 9
		word |= Word(inst.SR1&7) << 6
		if inst.Imm {
			word |= 1 << 5
			word |= Word(inst.Imm5) & 0x1F
		} else {
			word |= Word(inst.SR2 & 7)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		word |= Word(inst.DR&7) << 9
		word |= Word(inst.PCOff9) & 0x1FF
	case OP_LDR, OP_STR:
		word |= Word(inst.DR&7) << 9
		word |= Word(inst.BaseR&7) << 6
		word |= Word(inst.Off6) & 0x3F
	case OP_JSR:
		if inst.Imm {
			word |= 1 << 11
			word |= Word(inst.PCOff11) & 0x7FF
		} else {
			word |= Word(inst.BaseR&7) << 6
		}
	case OP_JMP:
		word |= Word(inst.BaseR&7) << 6
	case OP_NOT:
		word |= Word(inst.DR&7) << 9
		word |= Word(inst.SR1&7) << 6
		word |= 0b111111
	case OP_RTI:
		// No operands.
	case OP_TRAP:
		word |= inst.Vector & 0xFF
	case OP_RES:
		// Reserved patterns re-encode to the word they came from.
		word = inst.Raw | Word(OP_RES)<<12
	}

	return
}
