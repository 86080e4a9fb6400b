// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/translate"
)

// load reads a program, either as binary text or as assembly source.
func load(path string, assemble bool, defines map[string]string, verbose bool) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	if !assemble {
		prog, err = cpu.ReadProgram(inf)
		return
	}

	asm := &cpu.Assembler{Verbose: verbose}
	for name, value := range defines {
		asm.Predefine(name, value)
	}
	prog, err = asm.Parse(inf)

	return
}

func main() {
	var assemble bool
	var save bool
	var output string
	var verbose bool

	defines := map[string]string{}

	flag.BoolVar(&assemble, "a", false, "Assemble the program from mnemonic source")
	flag.BoolVar(&save, "s", false, "Print the program in binary form, do not execute")
	flag.StringVar(&output, "o", "-", "Output for printed values")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Func("D", "Predefine an assembler equate as NAME=VALUE", func(arg string) error {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || len(name) == 0 {
			return fmt.Errorf("%v", translate.From("'%v' is not NAME=VALUE", arg))
		}
		defines[name] = value
		return nil
	})

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: %v", os.Args[0], translate.From("usage: %v [flags] PROGRAM", os.Args[0]))
	}

	path := flag.Arg(0)

	if verbose {
		log.Printf("ls8: language %v", translate.Language())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Machine defines are visible to the assembler, but do not
	// override the command line.
	for name, value := range emu.Defines() {
		if _, ok := defines[name]; !ok {
			defines[name] = value
		}
	}

	prog, err := load(path, assemble, defines, verbose)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	var out io.Writer = os.Stdout
	if output != "-" {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		out = ouf
	}

	if save {
		err = prog.Format(out)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu.Program = prog
	emu.Cpu.Output = out

	err = emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	for done, err := emu.Tick(); !done; done, err = emu.Tick() {
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
	}
}
