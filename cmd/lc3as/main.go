package main

import (
	"flag"
	"fmt"
	"log"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/edsim/lc3kit/asm"
	"github.com/edsim/lc3kit/disasm"
)

func main() {
	var output string
	var listing bool
	var symbols bool
	var verbose bool

	flag.StringVar(&output, "o", "", "Object file to write (default: source with .obj)")
	flag.BoolVar(&listing, "l", false, "Print a listing to stdout")
	flag.BoolVar(&symbols, "s", false, "Print the symbol table to stdout")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one source file", os.Args[0])
	}
	source := flag.Arg(0)

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	a := &asm.Assembler{Verbose: verbose}
	img, table, err := a.Assemble(inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if output == "" {
		output = strings.TrimSuffix(source, ".asm") + ".obj"
	}

	ouf, err := os.Create(output)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
	defer ouf.Close()

	if err = img.Write(ouf); err != nil {
		log.Fatalf("%v: %v", output, err)
	}

	if listing {
		if err = disasm.Listing(os.Stdout, img); err != nil {
			log.Fatal(err)
		}
	}

	if symbols {
		for _, name := range slices.Sorted(maps.Keys(table)) {
			fmt.Printf("x%04X  %v\n", uint16(table[name]), name)
		}
	}
}
