package isa

import (
	"fmt"
	"strings"
)

func nzpSuffix(nzp Word) string {
	var b strings.Builder
	if nzp&FLAG_N != 0 {
		b.WriteByte('n')
	}
	if nzp&FLAG_Z != 0 {
		b.WriteByte('z')
	}
	if nzp&FLAG_P != 0 {
		b.WriteByte('p')
	}
	return b.String()
}

// String renders the instruction in assembler syntax, with PC-relative
// targets as numeric offsets. Reserved patterns render as a .FILL of
// the raw word so a rendered listing stays valid assembler input.
func (inst Instruction) String() string {
	switch inst.Op {
	case OP_BR:
		return fmt.Sprintf("BR%v #%d", nzpSuffix(inst.NZP), inst.PCOff9)
	case OP_ADD, OP_AND:
		if inst.Imm {
			return fmt.Sprintf("%v R%d, R%d, #%d", inst.Op, inst.DR, inst.SR1, inst.Imm5)
		}
		return fmt.Sprintf("%v R%d, R%d, R%d", inst.Op, inst.DR, inst.SR1, inst.SR2)
	case OP_NOT:
		return fmt.Sprintf("NOT R%d, R%d", inst.DR, inst.SR1)
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return fmt.Sprintf("%v R%d, #%d", inst.Op, inst.DR, inst.PCOff9)
	case OP_LDR, OP_STR:
		return fmt.Sprintf("%v R%d, R%d, #%d", inst.Op, inst.DR, inst.BaseR, inst.Off6)
	case OP_JSR:
		if inst.Imm {
			return fmt.Sprintf("JSR #%d", inst.PCOff11)
		}
		return fmt.Sprintf("JSRR R%d", inst.BaseR)
	case OP_JMP:
		return fmt.Sprintf("JMP R%d", inst.BaseR)
	case OP_RTI:
		return "RTI"
	case OP_TRAP:
		return fmt.Sprintf("TRAP x%02X", uint16(inst.Vector))
	}

	return fmt.Sprintf(".FILL x%04X", uint16(inst.Raw))
}
