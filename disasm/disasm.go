// Package disasm recovers instruction text from load images.
package disasm

import (
	"fmt"
	"io"
	"iter"

	"github.com/edsim/lc3kit/isa"
	"github.com/edsim/lc3kit/obj"
)

// Instructions yields (address, decoded instruction) pairs over the
// image, in image order. The sequence is lazy and restartable. There
// are no error states: reserved patterns decode to the OP_RES variant
// and are yielded like any other word.
func Instructions(img *obj.Image) iter.Seq2[isa.Word, isa.Instruction] {
	return func(yield func(isa.Word, isa.Instruction) bool) {
		for n, word := range img.Words {
			if !yield(img.Origin+isa.Word(n), isa.Decode(word)) {
				return
			}
		}
	}
}

// Format renders one word as assembler text. A word that would not
// re-encode to itself from its mnemonic form (non-canonical operand
// bits, or the branch-never pattern, which is how character and table
// data usually decodes) renders as a .FILL of the raw word instead.
func Format(word isa.Word) string {
	inst := isa.Decode(word)
	if isa.Encode(inst) != word || (inst.Op == isa.OP_BR && inst.NZP == 0) {
		return fmt.Sprintf(".FILL x%04X", uint16(word))
	}
	return inst.String()
}

// Listing writes the image one line per word: address, raw value, and
// the Format rendering.
func Listing(w io.Writer, img *obj.Image) error {
	for n, word := range img.Words {
		addr := img.Origin + isa.Word(n)
		_, err := fmt.Fprintf(w, "x%04X  x%04X  %v\n", uint16(addr), uint16(word), Format(word))
		if err != nil {
			return err
		}
	}
	return nil
}

// Source writes the image back as assembler source. Assembling the
// output reproduces the identical word sequence.
func Source(w io.Writer, img *obj.Image) error {
	if _, err := fmt.Fprintf(w, "\t.ORIG x%04X\n", uint16(img.Origin)); err != nil {
		return err
	}
	for _, word := range img.Words {
		if _, err := fmt.Fprintf(w, "\t%v\n", Format(word)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "\t.END")
	return err
}
