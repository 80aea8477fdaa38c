// Package isa models the LC-3 instruction set architecture.
//
// The machine operates on 16-bit words: 8 general-purpose registers
// (R0-R7), a program counter, a processor status word with N/Z/P
// condition codes, a privilege bit and a 3-bit priority level, and a
// flat 64Ki-word address space with memory-mapped device registers.
//
// Every instruction is a single word whose top 4 bits select the
// opcode. Decode covers all 65536 word values; patterns the
// architecture leaves undefined decode to the OP_RES variant rather
// than failing. Encode and Decode are pure functions and safe for
// concurrent use.
package isa
