// Package obj reads and writes load images: an origin address followed
// by a contiguous word sequence, serialized as big-endian 16-bit words.
// The assembler produces images, the machine loader and the
// disassembler consume them.
package obj

import (
	"encoding/binary"
	"io"

	"github.com/edsim/lc3kit/isa"
)

// Image is one loadable unit: Words are placed in memory starting at
// Origin.
type Image struct {
	Origin isa.Word
	Words  []isa.Word
}

// Read parses a big-endian load image. The first word is the origin;
// everything that follows is payload. A short trailing byte is an
// ErrTruncated.
func Read(r io.Reader) (img *Image, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return
	}
	if len(raw) < 2 {
		err = ErrNoOrigin
		return
	}
	if len(raw)%2 != 0 {
		err = ErrTruncated
		return
	}

	img = &Image{
		Origin: isa.Word(binary.BigEndian.Uint16(raw)),
	}
	for at := 2; at < len(raw); at += 2 {
		img.Words = append(img.Words, isa.Word(binary.BigEndian.Uint16(raw[at:])))
	}

	return
}

// Write serializes the image in the same big-endian layout Read
// expects.
func (img *Image) Write(w io.Writer) (err error) {
	buf := make([]byte, 2+2*len(img.Words))
	binary.BigEndian.PutUint16(buf, uint16(img.Origin))
	for n, word := range img.Words {
		binary.BigEndian.PutUint16(buf[2+2*n:], uint16(word))
	}

	_, err = w.Write(buf)
	return
}

// End returns the first address past the image payload.
func (img *Image) End() isa.Word {
	return img.Origin + isa.Word(len(img.Words))
}
