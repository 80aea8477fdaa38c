// Package asm assembles LC-3 source text into load images.
//
// Assembly is split the way the pipeline consumes it: Parse turns
// source text into a statement list, and Resolve runs the two-pass
// address assignment and code generation over that list. Assemble
// chains the two.
//
// Beyond the architecture's directives (.ORIG, .FILL, .BLKW, .STRINGZ,
// .END) the assembler accepts .EQU constant definitions, .MACRO/.ENDM
// macro definitions, $( ... ) compile-time expressions evaluated as
// Starlark, and the predefined device and layout symbols from
// isa.Defines. Inside a macro body '@' prefixes a label with the macro
// name and invocation line, keeping labels unique across expansions.
package asm
