// Package device provides the I/O collaborators the execution engine
// depends on: a keyboard feeding the KBSR/KBDR registers and a display
// fed by DDR writes. The engine never blocks on a device; readiness is
// polled, never awaited.
package device

import (
	"io"
)

// Keyboard is the input collaborator behind the keyboard device
// registers.
type Keyboard interface {
	// Ready reports whether a character is available right now.
	Ready() bool
	// Read consumes and returns the pending character, if any.
	Read() (ch byte, ok bool)
}

// Display is the output collaborator behind the display data register.
// Put accepts exactly one character per call.
type Display interface {
	Put(ch byte) error
}

// Buffer is an in-memory character queue serving as both keyboard and
// display buffer. Tests and the graphical front end push characters
// into it; the machine drains it through the keyboard registers, or
// fills it through the display register for the front end to drain.
type Buffer struct {
	pending []byte
}

// Push appends characters for the machine to consume.
func (b *Buffer) Push(chars ...byte) {
	b.pending = append(b.pending, chars...)
}

// Put appends one character, satisfying Display.
func (b *Buffer) Put(ch byte) error {
	b.pending = append(b.pending, ch)
	return nil
}

func (b *Buffer) Ready() bool {
	return len(b.pending) > 0
}

func (b *Buffer) Read() (ch byte, ok bool) {
	if len(b.pending) == 0 {
		return
	}
	ch = b.pending[0]
	b.pending = b.pending[1:]
	ok = true
	return
}

// Stream is a keyboard pumped from an io.Reader by a background
// goroutine, so Ready never blocks even when the reader does. It is
// the terminal front end's keyboard.
type Stream struct {
	ch     chan byte
	latch  byte
	loaded bool
}

// NewStream starts draining r. The stream ends silently at the
// reader's EOF or first error.
func NewStream(r io.Reader) (s *Stream) {
	s = &Stream{
		ch: make(chan byte, 64),
	}

	go func() {
		defer close(s.ch)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				s.ch <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()

	return
}

func (s *Stream) Ready() bool {
	if s.loaded {
		return true
	}
	select {
	case ch, ok := <-s.ch:
		if ok {
			s.latch = ch
			s.loaded = true
		}
	default:
	}
	return s.loaded
}

func (s *Stream) Read() (ch byte, ok bool) {
	if !s.Ready() {
		return
	}
	ch = s.latch
	s.loaded = false
	ok = true
	return
}

// Writer is a display over an io.Writer, one character per Put.
type Writer struct {
	W io.Writer
}

func (w *Writer) Put(ch byte) (err error) {
	_, err = w.W.Write([]byte{ch})
	return
}
