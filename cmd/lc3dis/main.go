package main

import (
	"flag"
	"log"
	"os"

	"github.com/edsim/lc3kit/disasm"
	"github.com/edsim/lc3kit/obj"
)

func main() {
	var source bool

	flag.BoolVar(&source, "s", false, "Emit reassemblable source instead of a listing")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one object file", os.Args[0])
	}
	path := flag.Arg(0)

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	img, err := obj.Read(inf)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	if source {
		err = disasm.Source(os.Stdout, img)
	} else {
		err = disasm.Listing(os.Stdout, img)
	}
	if err != nil {
		log.Fatal(err)
	}
}
