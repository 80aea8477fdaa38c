package asm

import (
	"io"
	"log"

	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/obj"
)

// Resolve runs the two-pass resolution over a statement list: pass one
// assigns an address to every label, pass two resolves symbolic
// operands against the table and encodes the words. No image is
// produced on error.
func (a *Assembler) Resolve(stmts []Statement) (img *obj.Image, symbols SymbolTable, err error) {
	if len(stmts) == 0 || stmts[0].Kind != KindOrigin {
		err = ErrOriginMissing
		return
	}
	origin := isa.Word(stmts[0].Value)

	// Pass one: assign addresses.
	symbols = SymbolTable{}
	defined := map[string]int{}
	addr := int(origin)
	for n := range stmts {
		st := &stmts[n]
		if n > 0 && st.Kind == KindOrigin {
			err = &ErrSyntax{LineNo: st.LineNo, Line: st.Text, Err: ErrOriginDuplicate}
			return
		}
		if st.Label != "" {
			if first, ok := defined[st.Label]; ok {
				err = ErrLabelDuplicate{Label: st.Label, First: first, Second: st.LineNo}
				return
			}
			defined[st.Label] = st.LineNo
			symbols[st.Label] = isa.Word(addr)
		}
		addr += st.size()
	}
	if addr > isa.MEMORY_SIZE {
		err = ErrImageTooBig
		return
	}

	// Pass two: resolve and emit.
	words := make([]isa.Word, 0, addr-int(origin))
	pc := origin
	for n := range stmts {
		st := &stmts[n]
		var emitted []isa.Word
		emitted, err = a.emit(st, pc, symbols)
		if err != nil {
			err = &ErrSyntax{LineNo: st.LineNo, Line: st.Text, Err: err}
			return
		}
		words = append(words, emitted...)
		pc += isa.Word(len(emitted))
	}

	img = &obj.Image{Origin: origin, Words: words}
	return
}

// emit produces the words for one statement placed at address pc.
func (a *Assembler) emit(st *Statement, pc isa.Word, symbols SymbolTable) (words []isa.Word, err error) {
	switch st.Kind {
	case KindLabel, KindOrigin:
		return

	case KindFill:
		value := isa.Word(st.Value)
		if st.Sym != "" {
			var ok bool
			if value, ok = symbols[st.Sym]; !ok {
				err = ErrSymbolMissing(st.Sym)
				return
			}
		}
		words = []isa.Word{value}

	case KindBlock:
		words = make([]isa.Word, st.Value)

	case KindString:
		words = make([]isa.Word, 0, len(st.Str)+1)
		for _, ch := range st.Str {
			words = append(words, isa.Word(ch))
		}
		words = append(words, 0)

	case KindInstruction:
		inst := st.Inst
		if st.Sym != "" {
			target, ok := symbols[st.Sym]
			if !ok {
				err = ErrSymbolMissing(st.Sym)
				return
			}
			// The offset is relative to the already-incremented PC.
			off := int32(target) - int32(pc) - 1
			bits := uint(9)
			if inst.Op == isa.OP_JSR {
				bits = 11
			}
			if !fitsSigned(off, bits) {
				err = ErrRange{Value: off, Bits: bits}
				return
			}
			if bits == 11 {
				inst.PCOff11 = int16(off)
			} else {
				inst.PCOff9 = int16(off)
			}
		}

		word := isa.Encode(inst)
		if a.Verbose {
			log.Printf("asm: x%04X: x%04X", uint16(pc), uint16(word))
		}
		words = []isa.Word{word}
	}

	return
}

// Assemble parses and resolves source text in one call.
func (a *Assembler) Assemble(input io.Reader) (img *obj.Image, symbols SymbolTable, err error) {
	stmts, err := a.Parse(input)
	if err != nil {
		return
	}
	return a.Resolve(stmts)
}
