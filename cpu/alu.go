package cpu

// Comparison flags held in the FL register.
const (
	FL_EQ = byte(0b001) // Equal.
	FL_GT = byte(0b010) // Greater than.
	FL_LT = byte(0b100) // Less than.
)

// OPCODE_ALU is the opcode bit that routes an instruction through the ALU.
const OPCODE_ALU = 0b00100000

// IsAlu returns true if the opcode is an ALU operation.
func (op Opcode) IsAlu() bool {
	return op.Valid() && (byte(op)&OPCODE_ALU) != 0
}

// Alu performs an arithmetic or logic operation on two register values.
// Results wrap to 8 bits. Single operand operations ignore b.
func Alu(op Opcode, a, b byte) (output byte, err error) {
	switch op {
	case ADD:
		output = a + b
	case MUL:
		output = a * b
	case AND:
		output = a & b
	case OR:
		output = a | b
	case XOR:
		output = a ^ b
	case NOT:
		output = ^a
	case SHL:
		output = a << b
	case SHR:
		output = a >> b
	case MOD:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		output = a % b
	default:
		err = ErrOpcodeAlu
	}

	return
}

// Compare returns the FL value for a comparison of a against b.
func Compare(a, b byte) (flags byte) {
	switch {
	case a == b:
		flags = FL_EQ
	case a > b:
		flags = FL_GT
	default:
		flags = FL_LT
	}

	return
}
