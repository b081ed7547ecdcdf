package ducky

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Error classes reported through [LineError]. Test with [errors.Is].
var (
	// ErrMissingArgument reports a DELAY or REPEAT without a usable number.
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidPriorState reports a REPEAT with nothing to repeat.
	ErrInvalidPriorState = errors.New("invalid prior state")

	// ErrUnknownCommand reports a first word outside the vocabulary.
	ErrUnknownCommand = errors.New("unknown command")
)

// The diagnostic messages. Each wraps one error class.
var (
	errDelayNumber   = &messageError{ErrMissingArgument, "DELAY requires a number"}
	errRepeatNumber  = &messageError{ErrMissingArgument, "REPEAT requires positive number"}
	errRepeatNoPrior = &messageError{ErrInvalidPriorState, "REPEAT without previous command"}
)

type messageError struct {
	class error
	msg   string
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.class }

// LineError reports a rejected script line.
type LineError struct {
	Line  int    // line number (1-indexed)
	Token string // first word of the line, as written
	Err   error  // wraps ErrMissingArgument, ErrInvalidPriorState or ErrUnknownCommand
}

// Message returns the error message without the line prefix.
func (e *LineError) Message() string {
	if errors.Is(e.Err, ErrUnknownCommand) {
		return fmt.Sprintf("Unknown command '%s'", e.Token)
	}
	return e.Err.Error()
}

// Error returns the message as "Line <n>: <message>".
func (e *LineError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Message())
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Decoder reads commands from a script.
//
// Unlike most decoders, errors are not sticky: after Decode reports a
// [*LineError] for a bad line, the next call continues with the following
// line. Only io.EOF and read errors end decoding.
type Decoder struct {
	r    *bufio.Reader
	line int // current line number (1-indexed)
	err  error

	// last is the most recent command, the subject of REPEAT.
	last    Command
	hasLast bool

	// repeat is the number of copies of last still to be returned.
	repeat int
	// repeatLine is the line of the REPEAT being expanded.
	repeatLine int
	// maxRepeat caps the copies of one REPEAT when positive.
	maxRepeat int
}

// NewDecoder creates a new Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// SetMaxRepeat caps the number of copies a single REPEAT expands to.
// A count above n yields n copies. A non-positive n, the default,
// means no cap.
func (d *Decoder) SetMaxRepeat(n int) {
	d.maxRepeat = n
}

// Decode reads the next Command.
// It returns a [*LineError] for a line that could not be understood,
// io.EOF when there are no more commands, or the underlying read error.
func (d *Decoder) Decode() (Command, error) {
	for {
		if d.repeat > 0 {
			d.repeat--
			c := d.last.Clone()
			c.Line = d.repeatLine
			return c, nil
		}
		if d.err != nil {
			return Command{}, d.err
		}
		raw, err := d.readLine()
		if err != nil {
			d.err = err
			if !errors.Is(err, io.EOF) {
				return Command{}, err
			}
			// The final line has no terminator; decode it and
			// report io.EOF on the next call.
		}
		c, ok, lerr := d.decodeLine(raw)
		if lerr != nil {
			return Command{}, lerr
		}
		if ok {
			return c, nil
		}
	}
}

// decodeLine interprets one raw line. It reports ok=false for lines that
// produce nothing: blanks, comments and a REPEAT whose copies are pending.
func (d *Decoder) decodeLine(raw string) (Command, bool, *LineError) {
	line := strings.TrimFunc(raw, IsSpace)
	if line == "" || strings.HasPrefix(line, "REM") {
		return Command{}, false, nil
	}
	fields := strings.FieldsFunc(line, IsSpace)
	if len(fields) == 0 {
		return Command{}, false, nil
	}
	cmd, rest := fields[0], fields[1:]
	fail := func(e error) (Command, bool, *LineError) {
		return Command{}, false, &LineError{Line: d.line, Token: cmd, Err: e}
	}

	switch strings.ToUpper(cmd) {
	case "STRING":
		return d.emit(Command{Kind: STRING, Args: []string{stringText(raw)}}), true, nil

	case "DELAY":
		ms, ok := leadingInt(first(rest))
		if !ok {
			return fail(errDelayNumber)
		}
		return d.emit(Command{Kind: DELAY, Args: []string{ms}}), true, nil

	case "REPEAT":
		digits, ok := leadingInt(first(rest))
		if !ok || digits == "0" || strings.HasPrefix(digits, "-") {
			return fail(errRepeatNumber)
		}
		if !d.hasLast {
			return fail(errRepeatNoPrior)
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			n = math.MaxInt
		}
		if d.maxRepeat > 0 && n > d.maxRepeat {
			n = d.maxRepeat
		}
		d.repeat = n
		d.repeatLine = d.line
		return Command{}, false, nil
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strings.ToUpper(f)
	}
	switch {
	case contains(parts, "GUI"):
		return d.emit(Command{Kind: MOD, Args: gui(parts, "GUI")}), true, nil
	case contains(parts, "WINDOWS"):
		return d.emit(Command{Kind: MOD, Args: gui(parts, "WINDOWS")}), true, nil
	case contains(parts, "CTRL", "CONTROL", "ALT", "SHIFT"):
		return d.emit(Command{Kind: MOD, Args: parts}), true, nil
	}
	if k, ok := LookupKey(parts[0]); ok {
		return d.emit(Command{Kind: k}), true, nil
	}
	return fail(ErrUnknownCommand)
}

// emit stamps c with the current line and records it for REPEAT.
func (d *Decoder) emit(c Command) Command {
	c.Line = d.line
	d.last = c.Clone()
	d.hasLast = true
	return c
}

// readLine reads the next line without its line terminator,
// updating the line counter. A "\r" is part of the terminator
// only when directly followed by "\n".
func (d *Decoder) readLine() (string, error) {
	d.line++
	s, err := d.r.ReadString('\n')
	if strings.HasSuffix(s, "\n") {
		s = strings.TrimSuffix(s[:len(s)-1], "\r")
	}
	return s, err
}

// stringText returns the text of a STRING line: everything after the
// command word with leading whitespace removed. Trailing and interior
// whitespace is kept.
func stringText(raw string) string {
	s := strings.TrimLeftFunc(raw, IsSpace)
	i := strings.IndexFunc(s, IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimLeftFunc(s[i:], IsSpace)
}

// gui builds the arguments of a GUI chord: "GUI" followed by parts
// without any drop tokens.
func gui(parts []string, drop string) []string {
	args := []string{"GUI"}
	for _, p := range parts {
		if p != drop {
			args = append(args, p)
		}
	}
	return args
}

// leadingInt returns the longest prefix of s that is an optionally
// signed decimal integer, in canonical form: no leading zeros, no plus
// sign, and no sign on zero. It fails only if s has no leading digits.
// The value may exceed any fixed-size integer.
func leadingInt(s string) (string, bool) {
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && '0' <= s[end] && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		return "0", true
	}
	if neg {
		digits = "-" + digits
	}
	return digits, true
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func contains(parts []string, names ...string) bool {
	for _, p := range parts {
		for _, n := range names {
			if p == n {
				return true
			}
		}
	}
	return false
}

// IsSpace reports whether r separates words in a script: Unicode
// whitespace or a byte order mark, so a script saved with one parses
// like one without.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
