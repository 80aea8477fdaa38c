package isa

import (
	"fmt"
	"iter"
	"maps"

	"github.com/edsim/lc3kit/internal"
)

const (
	MEMORY_SIZE = 1 << 16 // Words of addressable memory.
)

// Memory-mapped device register addresses.
const (
	ADDR_KBSR = Word(0xFE00) // Keyboard status; bit 15 ready, bit 14 interrupt enable.
	ADDR_KBDR = Word(0xFE02) // Keyboard data; reading consumes the pending character.
	ADDR_DSR  = Word(0xFE04) // Display status; bit 15 ready.
	ADDR_DDR  = Word(0xFE06) // Display data; writing emits one character.
	ADDR_PSR  = Word(0xFFFC) // Processor status word.
	ADDR_MCR  = Word(0xFFFE) // Machine control; clearing bit 15 halts.
)

// Address space layout.
const (
	TRAP_TABLE       = Word(0x0000) // Trap vector table, 256 entries.
	EXCEPTION_TABLE  = Word(0x0100) // Exception/interrupt vector table, 256 entries.
	USER_SPACE_START = Word(0x3000) // First address user mode may touch.
	USER_SPACE_END   = Word(0xFDFF) // Last address user mode may touch.
	DEFAULT_ORIGIN   = Word(0x3000) // Entry address after reset.
	INITIAL_SSP      = Word(0x3000) // Supervisor stack base (grows down).
	INITIAL_USP      = Word(0xFE00) // User stack base (grows down).
)

// Exception and interrupt vectors, indexes into EXCEPTION_TABLE.
const (
	VEC_PRIVILEGE = Word(0x00) // Privileged instruction in user mode.
	VEC_ILLEGAL   = Word(0x01) // Reserved opcode executed.
	VEC_ACCESS    = Word(0x02) // User-mode access outside user space.
	VEC_KEYBOARD  = Word(0x80) // Keyboard interrupt.

	KEYBOARD_PRIORITY = Word(4) // Priority the keyboard interrupt runs at.
)

// Trap vectors assigned by the architecture, indexes into TRAP_TABLE.
const (
	TRAP_GETC  = Word(0x20) // Read one character, no echo.
	TRAP_OUT   = Word(0x21) // Write one character.
	TRAP_PUTS  = Word(0x22) // Write a word-per-character string.
	TRAP_IN    = Word(0x23) // Prompt and read one character.
	TRAP_PUTSP = Word(0x24) // Write a packed byte-per-character string.
	TRAP_HALT  = Word(0x25) // Halt the machine.
)

// Processor status word layout.
const (
	PSR_USER           = Word(1 << 15) // Set while running in user mode.
	PSR_PRIORITY_SHIFT = 8             // Bits 10:8 hold the priority level.
	PSR_PRIORITY_MASK  = Word(0b111 << PSR_PRIORITY_SHIFT)

	FLAG_N = Word(0b100) // Last result was negative.
	FLAG_Z = Word(0b010) // Last result was zero.
	FLAG_P = Word(0b001) // Last result was positive.

	FLAG_MASK = FLAG_N | FLAG_Z | FLAG_P
)

// Device register status bits.
const (
	KBSR_READY = Word(1 << 15)
	KBSR_IE    = Word(1 << 14)
	DSR_READY  = Word(1 << 15)
	MCR_RUN    = Word(1 << 15)
)

var _addr_defines = map[string]string{
	"KBSR": fmt.Sprintf("x%04X", uint16(ADDR_KBSR)),
	"KBDR": fmt.Sprintf("x%04X", uint16(ADDR_KBDR)),
	"DSR":  fmt.Sprintf("x%04X", uint16(ADDR_DSR)),
	"DDR":  fmt.Sprintf("x%04X", uint16(ADDR_DDR)),
	"PSR":  fmt.Sprintf("x%04X", uint16(ADDR_PSR)),
	"MCR":  fmt.Sprintf("x%04X", uint16(ADDR_MCR)),
}

var _layout_defines = map[string]string{
	"TRAP_TABLE":      fmt.Sprintf("x%04X", uint16(TRAP_TABLE)),
	"EXCEPTION_TABLE": fmt.Sprintf("x%04X", uint16(EXCEPTION_TABLE)),
	"USER_SPACE":      fmt.Sprintf("x%04X", uint16(USER_SPACE_START)),
	"INITIAL_SSP":     fmt.Sprintf("x%04X", uint16(INITIAL_SSP)),
	"INITIAL_USP":     fmt.Sprintf("x%04X", uint16(INITIAL_USP)),
}

// Defines yields the architecture constant table as name/value pairs,
// in assembler literal syntax. The assembler installs these as
// predefined symbols so source text and the engine share one table.
func Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_addr_defines), maps.All(_layout_defines))
}
