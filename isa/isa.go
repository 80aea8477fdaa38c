package isa

// Word is the machine's atomic unit: memory cells, registers and
// instructions are all 16-bit words. Arithmetic wraps modulo 2^16.
type Word uint16

// Register is a general-purpose register index, R0 through R7.
type Register uint8

// SignExtend interprets the low 'bits' bits of value as a
// two's-complement quantity and extends the sign to the full word.
func SignExtend(value Word, bits uint) Word {
	if value&(1<<(bits-1)) != 0 {
		value |= ^Word(0) << bits
	}
	return value
}

// fieldBits extracts bits lo through hi (inclusive) of a word.
func fieldBits(word Word, lo, hi uint) Word {
	return (word >> lo) & (1<<(hi-lo+1) - 1)
}
