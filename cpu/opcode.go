package cpu

import (
	"errors"
	"fmt"
	"strings"
)

// Opcode is an LS-8 instruction byte.
//
// The upper two bits hold the number of operand bytes that follow.
type Opcode byte

const (
	LDI  = Opcode(0b10000010) // Load immediate.
	PRN  = Opcode(0b01000111) // Print register.
	HLT  = Opcode(0b00000001) // Halt.
	MUL  = Opcode(0b10100010) // Multiply.
	ADD  = Opcode(0b10100000) // Add.
	POP  = Opcode(0b01000110) // Pop register.
	PUSH = Opcode(0b01000101) // Push register.
	CALL = Opcode(0b01010000) // Call subroutine.
	RET  = Opcode(0b00010001) // Return from subroutine.
	JMP  = Opcode(0b01010100) // Jump.
	CMP  = Opcode(0b10100111) // Compare.
	JEQ  = Opcode(0b01010101) // Jump if equal.
	JNE  = Opcode(0b01010110) // Jump if not equal.
	AND  = Opcode(0b10101000) // Bitwise and.
	OR   = Opcode(0b10101010) // Bitwise or.
	XOR  = Opcode(0b10101011) // Bitwise exclusive or.
	NOT  = Opcode(0b01101001) // Bitwise not.
	SHL  = Opcode(0b10101100) // Shift left.
	SHR  = Opcode(0b10101101) // Shift right.
	MOD  = Opcode(0b10100100) // Modulo.
)

const (
	OPCODE_OPERANDS_MASK  = 0b11000000 // Mask of the operand count bits.
	OPCODE_OPERANDS_SHIFT = 6          // Shift of the operand count bits.
)

// opcodeName is the complete instruction set.
var opcodeName = map[Opcode]string{
	LDI:  "LDI",
	PRN:  "PRN",
	HLT:  "HLT",
	MUL:  "MUL",
	ADD:  "ADD",
	POP:  "POP",
	PUSH: "PUSH",
	CALL: "CALL",
	RET:  "RET",
	JMP:  "JMP",
	CMP:  "CMP",
	JEQ:  "JEQ",
	JNE:  "JNE",
	AND:  "AND",
	OR:   "OR",
	XOR:  "XOR",
	NOT:  "NOT",
	SHL:  "SHL",
	SHR:  "SHR",
	MOD:  "MOD",
}

// opcodeByName is the reverse of opcodeName.
var opcodeByName = func() map[string]Opcode {
	names := make(map[string]Opcode, len(opcodeName))
	for op, name := range opcodeName {
		names[name] = op
	}
	return names
}()

// Decode classifies an instruction byte.
func Decode(value byte) (op Opcode, err error) {
	op = Opcode(value)
	if !op.Valid() {
		err = errors.Join(ErrOpcode(op), ErrOpcodeDecode)
	}
	return
}

// ParseOpcode looks up an opcode by mnemonic, ignoring case.
func ParseOpcode(mnemonic string) (op Opcode, ok bool) {
	op, ok = opcodeByName[strings.ToUpper(mnemonic)]
	return
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeName[op]
	return ok
}

// Operands returns the number of operand bytes following the opcode.
func (op Opcode) Operands() int {
	return int((byte(op) & OPCODE_OPERANDS_MASK) >> OPCODE_OPERANDS_SHIFT)
}

// Size returns the length of the instruction in bytes.
func (op Opcode) Size() int {
	return op.Operands() + 1
}

// String returns the mnemonic, or the binary encoding for unknown opcodes.
func (op Opcode) String() string {
	name, ok := opcodeName[op]
	if !ok {
		return fmt.Sprintf("%08b", byte(op))
	}
	return name
}

// Reg is a register index.
type Reg byte

const (
	REG_R0 = Reg(0)
	REG_R1 = Reg(1)
	REG_R2 = Reg(2)
	REG_R3 = Reg(3)
	REG_R4 = Reg(4)
	REG_R5 = Reg(5)
	REG_R6 = Reg(6)
	REG_SP = Reg(7) // Stack pointer.

	REG_MASK = Reg(REGISTER_COUNT - 1)
)

// RegOf decodes an operand byte as a register index.
// Only the low three bits select the register.
func RegOf(operand byte) Reg {
	return Reg(operand) & REG_MASK
}

func (r Reg) String() string {
	return fmt.Sprintf("R%d", byte(r))
}

// Instruction is a decoded opcode and its operand bytes.
type Instruction struct {
	Opcode  Opcode
	Operand [2]byte
}

// A returns the first operand as a register.
func (ins Instruction) A() Reg {
	return RegOf(ins.Operand[0])
}

// B returns the second operand as a register.
func (ins Instruction) B() Reg {
	return RegOf(ins.Operand[1])
}

// Bytes returns the encoded instruction.
func (ins Instruction) Bytes() []byte {
	return append([]byte{byte(ins.Opcode)}, ins.Operand[:ins.Opcode.Operands()]...)
}

// String returns the assembly language representation of the instruction.
func (ins Instruction) String() string {
	op := ins.Opcode
	switch {
	case op == LDI:
		return fmt.Sprintf("%v %v,%d", op, ins.A(), ins.Operand[1])
	case op.Operands() == 2:
		return fmt.Sprintf("%v %v,%v", op, ins.A(), ins.B())
	case op.Operands() == 1:
		return fmt.Sprintf("%v %v", op, ins.A())
	}
	return op.String()
}
