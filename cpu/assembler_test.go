package cpu

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program ...string) (prog *Program) {
	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Bytes))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("R7", asm.Equate["SP"])
	assert.Equal("0xf4", asm.Equate["STACK_TOP"])
	assert.Equal("256", asm.Equate["MEMORY_SIZE"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"; Multiply",
		"LDI R0,8",
		"  ldi r1, 9   ; lower case",
		"MUL R0,R1",
		"",
		"PRN R0",
		"HLT",
	)

	assert.Equal([]byte{
		0b10000010, 0, 8,
		0b10000010, 1, 9,
		0b10100010, 0, 1,
		0b01000111, 0,
		0b00000001,
	}, prog.Bytes)
	assert.Equal([]int{2, 2, 2, 3, 3, 3, 4, 4, 4, 6, 6, 7}, prog.Lines)
	assert.Equal("LDI R0,8", prog.Comments[0])
	assert.Equal("", prog.Comments[1])
	assert.Equal("ldi r1, 9", prog.Comments[3])
}

func TestAssemblerAllOpcodes(t *testing.T) {
	assert := assert.New(t)

	for op, name := range opcodeName {
		line := name
		switch op.Operands() {
		case 1:
			line += " R3"
		case 2:
			line += " R3,R4"
			if op == LDI {
				line = "LDI R3,4"
			}
		}

		prog := assemble(t, line)
		expected := append([]byte{byte(op)}, []byte{3, 4}[:op.Operands()]...)
		assert.Equal(expected, prog.Bytes, line)
	}
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"Start: LDI R0,End",
		"       LDI R1,Start",
		"Loop:",
		"       JMP R0",
		"A: B:  DB Loop, End",
		"End:   HLT",
	)

	assert.Equal([]byte{
		byte(LDI), 0, 10,
		byte(LDI), 1, 0,
		byte(JMP), 0,
		6, 10,
		byte(HLT),
	}, prog.Bytes)
}

func TestAssemblerEquates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("LIMIT", "7")

	program := []string{
		".equ COUNT 3",
		".equ BASE $(COUNT * 10 + LIMIT)",
		"LDI R0,COUNT",
		"LDI R1,BASE",
		"LDI R2,$(STACK_TOP - 4)",
		"LDI R3,'A'",
		"LDI R4,'\\n'",
		"LDI R5,-1",
		"PUSH SP",
		"LDI R6,LIMIT",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		byte(LDI), 0, 3,
		byte(LDI), 1, 37,
		byte(LDI), 2, 0xf0,
		byte(LDI), 3, 'A',
		byte(LDI), 4, '\n',
		byte(LDI), 5, 0xff,
		byte(PUSH), 7,
		byte(LDI), 6, 7,
	}, prog.Bytes)
	assert.Equal("3", asm.Equate["COUNT"])
	assert.Equal("37", asm.Equate["BASE"])
}

func TestAssemblerLabelExpression(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"Here: LDI R0,$(Here + 3)",
		"HLT",
	)

	assert.Equal([]byte{byte(LDI), 0, 3, byte(HLT)}, prog.Bytes)
}

func TestAssemblerData(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"DB 1, 0x02, 0b11",
		`DS "Hi\n"`,
		"ds \"a\" ; b",
	)

	assert.Equal([]byte{1, 2, 3, 'H', 'i', '\n', 'a'}, prog.Bytes)
	assert.Equal("DB 1, 0x02, 0b11", prog.Comments[0])
	assert.Equal("", prog.Comments[1])
}

func TestAssemblerErrors(t *testing.T) {
	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"unknown", []string{"NOP"}, ErrInstructionInvalid, 1},
		{"missing", []string{"HLT", "LDI R0"}, ErrOpcodeValueMissing, 2},
		{"extra", []string{"PRN R0,R1"}, ErrOpcodeExtraArgs, 1},
		{"extra_hlt", []string{"HLT R0"}, ErrOpcodeExtraArgs, 1},
		{"register", []string{"PRN R8"}, ErrRegisterInvalid, 1},
		{"register_value", []string{"ADD R0,5"}, ErrRegisterInvalid, 1},
		{"range", []string{"LDI R0,256"}, ErrValueRange, 1},
		{"range_negative", []string{"LDI R0,-129"}, ErrValueRange, 1},
		{"number", []string{"LDI R0,12abc"}, ErrParseNumber("12abc"), 1},
		{"label_missing", []string{"LDI R0,Nowhere", "HLT"}, ErrLabelMissing("Nowhere"), 1},
		{"label_duplicate", []string{"A: HLT", "A: HLT"}, ErrLabelDuplicate, 2},
		{"equate_syntax", []string{".equ A"}, ErrEquateSyntax, 1},
		{"equate_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate, 2},
		{"expression", []string{"LDI R0,$(1 +)"}, ErrParseExpression("1 +"), 1},
		{"expression_type", []string{"LDI R0,$(\"x\")"}, ErrParseExpression("\"x\""), 1},
		{"string", []string{"DS unquoted"}, ErrStringSyntax, 1},
		{"data_missing", []string{"DB"}, ErrOpcodeValueMissing, 1},
		{"too_large", []string{`DS "` + strings.Repeat("x", MEMORY_SIZE) + `"`, "HLT"}, ErrProgramTooLarge, 2},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			asm := &Assembler{}
			prog, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
			assert.Nil(prog)
			assert.ErrorIs(err, entry.err)

			syntax, ok := err.(ErrSyntax)
			if assert.True(ok) {
				assert.Equal(entry.lineno, syntax.LineNo)
			}
		})
	}
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("A: LDI R0,B\nB: HLT"))
	assert.NoError(err)

	prog, err := asm.Parse(strings.NewReader("A: HLT"))
	assert.NoError(err)
	assert.Equal([]byte{byte(HLT)}, prog.Bytes)
	assert.Equal(map[string]int{"A": 0}, asm.Label)
}

func TestAssemblerMatchesBinary(t *testing.T) {
	assert := assert.New(t)

	for _, name := range []string{"call"} {
		src, err := os.ReadFile(filepath.Join("..", "programs", name+".asm"))
		assert.NoError(err)
		bin, err := os.ReadFile(filepath.Join("..", "programs", name+".ls8"))
		assert.NoError(err)

		asm := &Assembler{}
		prog, err := asm.Parse(bytes.NewReader(src))
		assert.NoError(err, name)

		expected, err := ReadProgram(bytes.NewReader(bin))
		assert.NoError(err, name)

		if prog != nil && expected != nil {
			assert.Equal(expected.Bytes, prog.Bytes, name)
		}
	}
}

func TestAssemblerFormat(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "LDI R0,8", "PRN R0", "HLT")

	out := &bytes.Buffer{}
	assert.NoError(prog.Format(out))
	assert.Equal(strings.Join([]string{
		"10000010 # LDI R0,8",
		"00000000",
		"00001000",
		"01000111 # PRN R0",
		"00000000",
		"00000001 # HLT",
		"",
	}, "\n"), out.String())
}
