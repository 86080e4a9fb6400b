// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = func() map[string]string {
	equ := maps.Clone(_cpu_defines)
	equ["LINENO"] = "0"
	return equ
}()

var (
	reLabel    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.]*):`)
	reChar     = regexp.MustCompile(`'\\?[^']'`)
	reParen    = regexp.MustCompile(`\$\([^\$]*\)`)
	reRegister = regexp.MustCompile(`^[Rr]([0-7])$`)
	reName     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// link is a reference to a label that is resolved once all labels are known.
type link struct {
	Address int
	Label   string
	LineNo  int
	Line    string
}

// Assembler is a two pass assembler for LS-8 mnemonic source.
//
// Statements are one per line, with ';' starting a comment:
//
//	LABEL: MNEMONIC [OPERAND[, OPERAND]]
//	.equ NAME VALUE
//	DB VALUE[, VALUE...]
//	DS "TEXT"
//
// Register operands are R0-R7 (SP for R7). Values are numbers, 'c'
// character literals, labels, equates, or $(...) expressions.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.

	prog  *Program
	links []link
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// currentAddress is the address of the next emitted byte.
func (asm *Assembler) currentAddress() int {
	return len(asm.prog.Bytes)
}

// emit appends bytes from a source line to the program.
func (asm *Assembler) emit(lineno int, comment string, values ...byte) (err error) {
	for n, value := range values {
		if asm.currentAddress() == MEMORY_SIZE {
			err = ErrProgramTooLarge
			return
		}
		asm.prog.Bytes = append(asm.prog.Bytes, value)
		asm.prog.Lines = append(asm.prog.Lines, lineno)
		if n == 0 {
			asm.prog.Comments = append(asm.prog.Comments, comment)
		} else {
			asm.prog.Comments = append(asm.prog.Comments, "")
		}
	}
	return
}

// valueOf returns the byte value of a number.
// Negative values down to -128 are stored in two's complement.
func (asm *Assembler) valueOf(word string) (value byte, err error) {
	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xff || v64 < -0x80 {
		err = ErrValueRange
		return
	}

	value = byte(v64)

	return
}

// registerOf returns the register named by a word.
func (asm *Assembler) registerOf(word string) (reg Reg, err error) {
	match := reRegister.FindStringSubmatch(word)
	if match == nil {
		err = ErrRegisterInvalid
		return
	}

	reg = Reg(match[1][0] - '0')

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 0, 64)
		if perr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// charEval replaces 'x' character literals with their values.
func charEval(line string) string {
	return reChar.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\x00"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})
}

// parseLine assembles a single line of source.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Labels
	for {
		match := reLabel.FindStringSubmatchIndex(line)
		if match == nil {
			break
		}
		label := line[match[2]:match[3]]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.currentAddress()
		line = line[match[1]:]
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	// DS "TEXT"
	mnemonic := strings.Fields(line)[0]
	if strings.EqualFold(mnemonic, "ds") {
		var text string
		text, err = strconv.Unquote(strings.TrimSpace(line[len(mnemonic):]))
		if err != nil {
			err = ErrStringSyntax
			return
		}
		err = asm.emit(lineno, line, []byte(text)...)
		return
	}

	line = charEval(line)

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	words := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(words) == 0 {
		err = ErrInstructionInvalid
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	}

	for n, word := range words[1:] {
		equate, ok := asm.Equate[word]
		if ok {
			words[1+n] = equate
		}
	}

	return asm.parseWords(words, line, lineno)
}

// byteOf resolves a value operand, deferring labels to link time.
func (asm *Assembler) byteOf(word string, line string, lineno int) (value byte, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	_, is_number := err.(ErrParseNumber)
	if is_number && reName.MatchString(word) {
		err = nil
		asm.links = append(asm.links, link{
			Address: asm.currentAddress(),
			Label:   word,
			LineNo:  lineno,
			Line:    line,
		})
	}

	return
}

// parseWords evaluates the words of a statement.
func (asm *Assembler) parseWords(words []string, line string, lineno int) (err error) {
	if strings.EqualFold(words[0], "db") {
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for n, word := range words[1:] {
			var value byte
			value, err = asm.byteOf(word, line, lineno)
			if err != nil {
				return
			}
			comment := ""
			if n == 0 {
				comment = line
			}
			err = asm.emit(lineno, comment, value)
			if err != nil {
				return
			}
		}
		return
	}

	op, ok := ParseOpcode(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	switch {
	case len(args) < op.Operands():
		err = ErrOpcodeValueMissing
		return
	case len(args) > op.Operands():
		err = ErrOpcodeExtraArgs
		return
	}

	err = asm.emit(lineno, line, byte(op))
	if err != nil {
		return
	}

	for n, arg := range args {
		var value byte
		if op == LDI && n == 1 {
			value, err = asm.byteOf(arg, line, lineno)
		} else {
			var reg Reg
			reg, err = asm.registerOf(arg)
			value = byte(reg)
		}
		if err != nil {
			return
		}
		err = asm.emit(lineno, "", value)
		if err != nil {
			return
		}
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			prog = nil
			if _, ok := err.(ErrSyntax); !ok {
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
			}
		}
	}()

	asm.prog = &Program{}
	asm.links = asm.links[:0]
	asm.Label = make(map[string]int, 16)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(text)

		err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels.
	for _, ln := range asm.links {
		addr, ok := asm.Label[ln.Label]
		if !ok {
			err = ErrSyntax{LineNo: ln.LineNo, Line: ln.Line, Err: ErrLabelMissing(ln.Label)}
			return
		}
		if asm.Verbose {
			log.Printf("link %v = %#02x at %#02x", ln.Label, addr, ln.Address)
		}
		asm.prog.Bytes[ln.Address] = byte(addr)
	}

	prog = asm.prog

	return
}
