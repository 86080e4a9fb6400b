package cpu

const (
	STACK_TOP     = 0xF4 // Initial stack pointer.
	STACK_MODULUS = 0xF5 // Modulus applied to a moving stack pointer.
)

// stackStep returns the stack pointer moved by delta.
//
// The stack floats between the end of the loaded program and STACK_TOP.
// A candidate pointer that lands inside the loaded program is reset to
// the first byte past it.
func (cpu *Cpu) stackStep(delta int) byte {
	candidate := (int(cpu.Register[REG_SP]) + delta) % STACK_MODULUS
	if candidate < 0 {
		candidate += STACK_MODULUS
	}

	if candidate <= cpu.ProgramLength-1 {
		return byte(cpu.ProgramLength)
	}

	return byte(candidate)
}

// Push decrements the stack pointer, then stores value at it.
func (cpu *Cpu) Push(value byte) {
	cpu.Register[REG_SP] = cpu.stackStep(-1)
	cpu.Write(cpu.Register[REG_SP], value)
}

// Pop loads the value at the stack pointer, then increments it.
func (cpu *Cpu) Pop() (value byte) {
	value = cpu.Peek()
	cpu.Register[REG_SP] = cpu.stackStep(1)
	return
}

// Peek returns the value at the stack pointer.
func (cpu *Cpu) Peek() byte {
	return cpu.Read(cpu.Register[REG_SP])
}

// pushReturn stores a return address at the stack pointer, then
// decrements it. This is the CALL half of the call stack discipline.
func (cpu *Cpu) pushReturn(address byte) {
	cpu.Write(cpu.Register[REG_SP], address)
	cpu.Register[REG_SP] = cpu.stackStep(-1)
}

// popReturn increments the stack pointer, then loads the return address
// at it. This is the RET half of the call stack discipline.
func (cpu *Cpu) popReturn() byte {
	cpu.Register[REG_SP] = cpu.stackStep(1)
	return cpu.Read(cpu.Register[REG_SP])
}
