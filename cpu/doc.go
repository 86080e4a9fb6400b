// Package cpu implements the processor and assembler for the LS-8 system.
//
// The CPU consists of 256 bytes of memory shared by program and stack, a
// program counter (PC), eight 8-bit registers (R0-R6, with R7 serving as
// the stack pointer), a comparison flags register (FL) and an ALU. Each
// instruction is a single opcode byte whose upper two bits give the count
// of operand bytes that follow it.
//
// Programs are loaded from the binary text format, one base 2 byte per
// line, or assembled from a small mnemonic language supporting labels,
// equates, data directives and compile-time expression evaluation.
package cpu
