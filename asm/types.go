package asm

import "github.com/edsim/lc3kit/isa"

// Kind discriminates the statement forms the resolver accepts.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	KindInstruction = Kind(0) // instruction
	KindLabel       = Kind(1) // label
	KindOrigin      = Kind(2) // .ORIG
	KindFill        = Kind(3) // .FILL
	KindBlock       = Kind(4) // .BLKW
	KindString      = Kind(5) // .STRINGZ
)

// Statement is one parsed line of source, the unit the resolver
// consumes. Numeric operands are already folded into Inst or Value; a
// symbolic operand is carried in Sym and resolved in pass two.
type Statement struct {
	LineNo int    // Source line number, for error reporting.
	Text   string // Source text with the comment stripped.
	Label  string // Label defined at this statement, if any.

	Kind  Kind
	Inst  isa.Instruction // KindInstruction.
	Sym   string          // Unresolved label operand (PC-relative or .FILL).
	Value int32           // Numeric operand for .ORIG/.FILL/.BLKW.
	Str   []byte          // KindString payload, terminator excluded.
}

// size is the number of words the statement occupies in the image.
func (st *Statement) size() int {
	switch st.Kind {
	case KindLabel, KindOrigin:
		return 0
	case KindBlock:
		return int(st.Value)
	case KindString:
		return len(st.Str) + 1
	default:
		return 1
	}
}

// SymbolTable maps label names to their resolved addresses. It is
// built in pass one and only consulted afterwards.
type SymbolTable map[string]isa.Word
