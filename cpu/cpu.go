package cpu

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"
	"strings"
)

const (
	MEMORY_SIZE    = 256 // Bytes of addressable memory.
	REGISTER_COUNT = 8   // General purpose registers, including the stack pointer.
)

var _cpu_defines = map[string]string{
	"SP":          REG_SP.String(),
	"STACK_TOP":   fmt.Sprintf("%#x", STACK_TOP),
	"MEMORY_SIZE": fmt.Sprintf("%v", MEMORY_SIZE),
	"FL_EQ":       fmt.Sprintf("%#b", FL_EQ),
	"FL_GT":       fmt.Sprintf("%#b", FL_GT),
	"FL_LT":       fmt.Sprintf("%#b", FL_LT),
}

// Cpu is the simulation context for an LS-8 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   [MEMORY_SIZE]byte    // Main memory, holding program and stack.
	Register [REGISTER_COUNT]byte // Register bank. R7 is the stack pointer.
	Pc       byte                 // Address of the next instruction.
	Fl       byte                 // Result of the last CMP.

	Halted bool  // Set once HLT executes, or a fault occurs.
	Fault  error // Fatal error that stopped the processor.

	ProgramLength int // Bytes loaded by the last Load.
	Ticks         int // Instructions executed since reset.

	// Output receives PRN values. If nil, os.Stdout is used.
	Output io.Writer
}

// NewCpu creates a new CPU in its reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Output: os.Stdout,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Zeros memory and registers.
// - Points the stack pointer at STACK_TOP.
// - Clears the program counter, flags, halt state and statistics.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Register[REG_SP] = STACK_TOP
	cpu.Pc = 0
	cpu.Fl = 0
	cpu.Halted = false
	cpu.Fault = nil
	cpu.ProgramLength = 0
	cpu.Ticks = 0
}

// Load writes a program into memory starting at address 0.
func (cpu *Cpu) Load(program []byte) (err error) {
	switch {
	case len(program) == 0:
		err = ErrProgramEmpty
		return
	case len(program) > MEMORY_SIZE:
		err = ErrProgramTooLarge
		return
	}

	copy(cpu.Memory[:], program)
	cpu.ProgramLength = len(program)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", cpu.ProgramLength)
	}

	return
}

// Read returns the byte at address.
func (cpu *Cpu) Read(address byte) byte {
	return cpu.Memory[address]
}

// Write stores value at address.
func (cpu *Cpu) Write(address byte, value byte) {
	cpu.Memory[address] = value
}

// Get returns the value of a register.
func (cpu *Cpu) Get(r Reg) byte {
	return cpu.Register[r&REG_MASK]
}

// Set assigns the value of a register.
func (cpu *Cpu) Set(r Reg, value byte) {
	cpu.Register[r&REG_MASK] = value
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "fl",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "sp",
		"stack",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%02X (%v)", cpu.Pc, Opcode(cpu.Read(cpu.Pc)))
		case "fl":
			strval = fmt.Sprintf("%03b", cpu.Fl)
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6":
			strval = fmt.Sprintf("%02X", cpu.Register[reg[1]-'0'])
		case "sp":
			strval = fmt.Sprintf("%02X", cpu.Register[REG_SP])
		case "stack":
			strval = fmt.Sprintf("%02X", cpu.Peek())
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Trace returns a single line summary of the CPU state:
// the program counter, the three bytes at it, and the register bank.
func (cpu *Cpu) Trace() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "TRACE: %02X | %02X %02X %02X |",
		cpu.Pc,
		cpu.Read(cpu.Pc),
		cpu.Read(cpu.Pc+1),
		cpu.Read(cpu.Pc+2),
	)

	for _, value := range cpu.Register {
		fmt.Fprintf(&sb, " %02X", value)
	}

	return sb.String()
}

// Fetch decodes the instruction at the program counter.
func (cpu *Cpu) Fetch() (ins Instruction, err error) {
	ins.Opcode, err = Decode(cpu.Read(cpu.Pc))
	if err != nil {
		return
	}

	for n := range ins.Opcode.Operands() {
		ins.Operand[n] = cpu.Read(cpu.Pc + 1 + byte(n))
	}

	return
}

// Tick executes a single CPU instruction cycle.
//
// Returns ErrHalted once the processor has halted, and the same
// fault on every call after a fatal error.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Fault != nil {
		return cpu.Fault
	}

	if cpu.Halted {
		return ErrHalted
	}

	defer func() {
		if err != nil {
			cpu.Fault = err
			cpu.Halted = true
		}
	}()

	if cpu.Verbose {
		log.Print(cpu.Trace())
	}

	ins, err := cpu.Fetch()
	if err != nil {
		return
	}

	err = cpu.Execute(ins)
	if err != nil {
		return
	}

	if cpu.Halted && cpu.Verbose {
		log.Printf("cpu: halt at %02X after %d ticks", cpu.Pc, cpu.Ticks)
	}

	return
}

// Run ticks the CPU until it halts or faults.
func (cpu *Cpu) Run() (err error) {
	for {
		err = cpu.Tick()
		if errors.Is(err, ErrHalted) {
			return nil
		}
		if err != nil {
			return
		}
	}
}

// Execute executes a single decoded instruction.
//
// The program counter advances past the instruction unless the
// instruction redirects it. A failed instruction leaves the CPU state
// unchanged.
func (cpu *Cpu) Execute(ins Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(ins.Opcode), err)
		}
	}()

	op := ins.Opcode
	a, b := ins.A(), ins.B()

	next_pc := cpu.Pc + byte(op.Size())

	switch op {
	case LDI:
		cpu.Register[a] = ins.Operand[1]
	case PRN:
		out := cpu.Output
		if out == nil {
			out = os.Stdout
		}
		_, err = fmt.Fprintf(out, "%d\n", cpu.Register[a])
		if err != nil {
			err = errors.Join(ErrOutput, err)
			return
		}
	case HLT:
		cpu.Halted = true
		next_pc = cpu.Pc
	case PUSH:
		cpu.Push(cpu.Register[a])
	case POP:
		cpu.Register[a] = cpu.Pop()
	case CALL:
		target := cpu.Register[a]
		cpu.pushReturn(cpu.Pc + 2)
		next_pc = target
	case RET:
		next_pc = cpu.popReturn()
	case JMP:
		next_pc = cpu.Register[a]
	case JEQ:
		if cpu.Fl == FL_EQ {
			next_pc = cpu.Register[a]
		}
	case JNE:
		if cpu.Fl != FL_EQ {
			next_pc = cpu.Register[a]
		}
	case CMP:
		cpu.Fl = Compare(cpu.Register[a], cpu.Register[b])
	default:
		if !op.IsAlu() {
			err = ErrOpcodeDecode
			return
		}
		var output byte
		output, err = Alu(op, cpu.Register[a], cpu.Register[b])
		if err != nil {
			if !errors.Is(err, ErrOpcodeAlu) {
				err = errors.Join(ErrOpcodeAlu, err)
			}
			return
		}
		cpu.Register[a] = output
	}

	cpu.Pc = next_pc
	cpu.Ticks++

	return
}
