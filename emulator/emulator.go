// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs an LS-8 program listing on a CPU.
package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/internal"
)

var _emulator_defines = map[string]string{
	// Programs this long or longer leave no room for the stack.
	"PROGRAM_LIMIT": fmt.Sprintf("%v", cpu.STACK_TOP),
}

// Emulator state. CPU + program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the CPU and load the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Program.Bytes)
	if err != nil {
		return
	}

	return
}

// LineNo returns the source line number of the current instruction,
// or 0 if it is not part of the program listing.
func (emu *Emulator) LineNo() int {
	lineno, _ := emu.Program.Debug(emu.Cpu.Pc)
	return lineno
}

// Ticks returns the instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Tick performs a single tick of the emulator.
// done is set once the program has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			var rt *ErrRuntime
			if !errors.As(err, &rt) {
				err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
			}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the program halts or faults.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
