package cpu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Program is a memory image with its source listing.
type Program struct {
	Bytes    []byte   // Image, loaded at address 0.
	Lines    []int    // Source line number of each byte.
	Comments []string // Source comment of each byte, if any.
}

// ReadProgram parses the binary text format: one byte per line written
// in base 2, with an optional '#' comment. Lines that do not start
// with '0' or '1' are ignored.
func ReadProgram(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			prog = nil
		}
	}()

	prog = &Program{}

	for scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		if !strings.HasPrefix(line, "0") && !strings.HasPrefix(line, "1") {
			continue
		}

		text, comment, _ := strings.Cut(line, "#")
		text = strings.TrimSpace(text)

		value, perr := strconv.ParseUint(text, 2, 8)
		if perr != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: ErrParseBinary}
			return
		}

		if len(prog.Bytes) == MEMORY_SIZE {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: ErrProgramTooLarge}
			return
		}

		prog.Bytes = append(prog.Bytes, byte(value))
		prog.Lines = append(prog.Lines, lineno)
		prog.Comments = append(prog.Comments, strings.TrimSpace(comment))
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if len(prog.Bytes) == 0 {
		err = ErrProgramEmpty
		return
	}

	return
}

// Debug returns the source line of the byte at pc.
func (prog *Program) Debug(pc byte) (lineno int, ok bool) {
	if int(pc) < len(prog.Lines) {
		lineno = prog.Lines[pc]
		ok = true
	}

	return
}

// Format writes the program in the binary text format read by ReadProgram.
func (prog *Program) Format(w io.Writer) (err error) {
	bw := bufio.NewWriter(w)

	for n, value := range prog.Bytes {
		var comment string
		if n < len(prog.Comments) {
			comment = prog.Comments[n]
		}

		if len(comment) == 0 {
			_, err = fmt.Fprintf(bw, "%08b\n", value)
		} else {
			_, err = fmt.Fprintf(bw, "%08b # %v\n", value, comment)
		}
		if err != nil {
			return
		}
	}

	err = bw.Flush()

	return
}
