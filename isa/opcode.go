package isa

// Opcode is the 4-bit operation selector in an instruction's top bits.
type Opcode uint8

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_BR   = Opcode(0)  // BR
	OP_ADD  = Opcode(1)  // ADD
	OP_LD   = Opcode(2)  // LD
	OP_ST   = Opcode(3)  // ST
	OP_JSR  = Opcode(4)  // JSR
	OP_AND  = Opcode(5)  // AND
	OP_LDR  = Opcode(6)  // LDR
	OP_STR  = Opcode(7)  // STR
	OP_RTI  = Opcode(8)  // RTI
	OP_NOT  = Opcode(9)  // NOT
	OP_LDI  = Opcode(10) // LDI
	OP_STI  = Opcode(11) // STI
	OP_JMP  = Opcode(12) // JMP
	OP_RES  = Opcode(13) // RES
	OP_LEA  = Opcode(14) // LEA
	OP_TRAP = Opcode(15) // TRAP
)

// SetsFlags reports whether the opcode recomputes the N/Z/P condition
// codes. LEA does not; the address it materializes is not a loaded
// value.
func (op Opcode) SetsFlags() bool {
	switch op {
	case OP_ADD, OP_AND, OP_NOT, OP_LD, OP_LDI, OP_LDR:
		return true
	}
	return false
}
