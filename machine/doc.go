// Package machine implements the LC-3 machine state and execution
// engine.
//
// A Machine owns the register file, the program counter, the processor
// status word (memory-mapped at isa.ADDR_PSR), the banked stack
// pointers, and the 64Ki-word memory arena. Device registers are fixed
// addresses inside the arena whose reads and writes are intercepted
// and routed to the keyboard and display collaborators.
//
// The engine advances strictly one instruction per Step call and never
// blocks: device readiness is polled synchronously. Anomalous
// conditions (illegal opcode, privilege violation, access violation)
// are not errors; they are architectural exceptions dispatched through
// the vector tables exactly as a trap is. The only terminal conditions
// the engine itself reports are the halted state and the double fault.
//
// A Machine is exclusively owned by its driving front end. There is no
// internal locking; concurrent observers must work from Snapshot
// copies taken between steps.
package machine
