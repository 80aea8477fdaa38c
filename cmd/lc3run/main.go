package main

import (
	"flag"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/edsim/lc3kit/device"
	"github.com/edsim/lc3kit/emulator"
	"github.com/edsim/lc3kit/machine"
)

// crlfDisplay writes display output to a terminal left in raw mode,
// expanding newlines by hand.
type crlfDisplay struct {
	out *os.File
}

func (d crlfDisplay) Put(ch byte) (err error) {
	if ch == '\n' {
		_, err = d.out.Write([]byte{'\r', '\n'})
		return
	}
	_, err = d.out.Write([]byte{ch})
	return
}

func main() {
	var assemble bool
	var verbose bool

	flag.BoolVar(&assemble, "a", false, "Treat the input as assembly source")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one image file", os.Args[0])
	}
	path := flag.Arg(0)

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	emu := emulator.New()
	emu.Verbose = verbose

	if assemble {
		err = emu.LoadSource(inf)
	} else {
		err = emu.LoadObject(inf)
	}
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	emu.Machine.Keyboard = device.NewStream(os.Stdin)
	emu.Machine.Display = crlfDisplay{out: os.Stdout}

	var state *term.State
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err = term.MakeRaw(fd)
		if err != nil {
			log.Fatalf("terminal: %v", err)
		}
	}

	reason := emu.Run()

	if state != nil {
		term.Restore(fd, state)
	}

	if reason == machine.StopDoubleFault {
		log.Fatalf("double fault at x%04X", uint16(emu.PC))
	}
}
