package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value Word
		bits  uint
		want  int16
	}){
		{0b00000, 5, 0},
		{0b01111, 5, 15},
		{0b10000, 5, -16},
		{0b11111, 5, -1},
		{0x0FF, 9, 255},
		{0x1FF, 9, -1},
		{0x100, 9, -256},
		{0x3FF, 11, 1023},
		{0x400, 11, -1024},
		{0x20, 6, -32},
	}

	for _, entry := range table {
		assert.Equal(entry.want, int16(SignExtend(entry.value, entry.bits)),
			"value %#x bits %v", entry.value, entry.bits)
	}
}

func TestDecodeTotality(t *testing.T) {
	assert := assert.New(t)

	counts := map[Opcode]int{}
	for w := 0; w < MEMORY_SIZE; w++ {
		inst := Decode(Word(w))
		counts[inst.Op]++
		if inst.Op == OP_RES {
			assert.Equal(Word(w), inst.Raw)
		}
	}

	// Every opcode owns exactly its 4096-word slice of the space.
	for op, count := range counts {
		assert.Equal(4096, count, "opcode %v", op)
	}
	assert.Equal(16, len(counts))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	table := []Instruction{
		{Op: OP_BR, NZP: 0b111, PCOff9: -1},
		{Op: OP_BR, NZP: 0b100, PCOff9: 255},
		{Op: OP_BR, NZP: 0b001, PCOff9: -256},
		{Op: OP_ADD, DR: 0, SR1: 0, SR2: 7},
		{Op: OP_ADD, DR: 3, SR1: 2, Imm: true, Imm5: -16},
		{Op: OP_ADD, DR: 7, SR1: 7, Imm: true, Imm5: 15},
		{Op: OP_AND, DR: 1, SR1: 4, SR2: 2},
		{Op: OP_AND, DR: 5, SR1: 5, Imm: true, Imm5: 0},
		{Op: OP_LD, DR: 2, PCOff9: 100},
		{Op: OP_LDI, DR: 6, PCOff9: -100},
		{Op: OP_LDR, DR: 1, BaseR: 6, Off6: -32},
		{Op: OP_LDR, DR: 1, BaseR: 6, Off6: 31},
		{Op: OP_LEA, DR: 0, PCOff9: 1},
		{Op: OP_ST, DR: 4, PCOff9: -2},
		{Op: OP_STI, DR: 3, PCOff9: 17},
		{Op: OP_STR, DR: 2, BaseR: 5, Off6: 5},
		{Op: OP_JSR, Imm: true, PCOff11: -1024},
		{Op: OP_JSR, Imm: true, PCOff11: 1023},
		{Op: OP_JSR, BaseR: 3},
		{Op: OP_JMP, BaseR: 7},
		{Op: OP_JMP, BaseR: 0},
		{Op: OP_NOT, DR: 6, SR1: 1},
		{Op: OP_RTI},
		{Op: OP_TRAP, Vector: TRAP_HALT},
		{Op: OP_TRAP, Vector: 0xFF},
		{Op: OP_RES, Raw: 0xD123},
	}

	for _, inst := range table {
		word := Encode(inst)
		assert.Equal(inst.Op, Opcode(word>>12), "%+v", inst)
		assert.Equal(inst, Decode(word), "%+v", inst)
	}
}

func TestDecodeEncodeCanonical(t *testing.T) {
	assert := assert.New(t)

	// Canonical words: operand fields in place, mode and padding bits
	// as the encoder emits them.
	words := []Word{
		0x0E05, // BRnzp #5
		0x1042, // ADD R0, R1, R2
		0x1070, // ADD R0, R1, #-16
		0x2BFF, // LD R5, #-1
		0x3601, // ST R3, #1
		0x4800, // JSR #0
		0x4FFF, // JSR #-1
		0x40C0, // JSRR R3
		0x5123, // AND R0, R4, #3
		0x6581, // LDR R2, R6, #1
		0x7FBF, // STR R7, R6, #-1
		0x8000, // RTI
		0x9D7F, // NOT R6, R5
		0xA200, // LDI R1, #0
		0xB3FE, // STI R1, #-2
		0xC1C0, // RET
		0xD000, // reserved
		0xDEAD, // reserved
		0xE3FD, // LEA R1, #-3
		0xF025, // TRAP x25
	}

	for _, word := range words {
		assert.Equal(word, Encode(Decode(word)), "word %#04x", word)
	}
}

func TestOpcodeFlags(t *testing.T) {
	assert := assert.New(t)

	setters := map[Opcode]bool{
		OP_ADD: true, OP_AND: true, OP_NOT: true,
		OP_LD: true, OP_LDI: true, OP_LDR: true,
	}
	for op := Opcode(0); op < 16; op++ {
		assert.Equal(setters[op], op.SetsFlags(), "opcode %v", op)
	}
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for name, value := range Defines() {
		defines[name] = value
	}

	assert.Equal("xFE00", defines["KBSR"])
	assert.Equal("xFE06", defines["DDR"])
	assert.Equal("xFFFE", defines["MCR"])
	assert.Equal("x3000", defines["USER_SPACE"])
}
