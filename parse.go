package ducky

import (
	"errors"
	"io"
	"sort"
	"strings"
)

// Result is the outcome of parsing a whole script.
type Result struct {
	// Commands holds the understood commands in script order,
	// with REPEAT expanded in place.
	Commands []Command

	// Errors holds one entry per rejected line, in line order.
	Errors []*LineError
}

// Messages returns the diagnostics formatted as "Line <n>: <message>".
func (r Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// OK reports whether every line was understood.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// ErrorsOn returns the errors reported for the 1-based line.
func (r Result) ErrorsOn(line int) []*LineError {
	i := sort.Search(len(r.Errors), func(i int) bool { return r.Errors[i].Line >= line })
	j := i
	for j < len(r.Errors) && r.Errors[j].Line == line {
		j++
	}
	return r.Errors[i:j:j]
}

// ErrorLines returns the errors keyed by their 1-based line.
func (r Result) ErrorLines() map[int][]*LineError {
	m := make(map[int][]*LineError, len(r.Errors))
	for _, e := range r.Errors {
		m[e.Line] = append(m[e.Line], e)
	}
	return m
}

// Parse parses script text in a single pass. It never fails: lines that
// cannot be understood are reported in [Result.Errors] and skipped.
//
// Parse expands every REPEAT in full, so the result grows with the
// repeat counts in text. Use [ParseMaxRepeat] for untrusted input.
func Parse(text string) Result {
	return parse(NewDecoder(strings.NewReader(text)))
}

// ParseMaxRepeat is like [Parse] but expands each REPEAT to at most n
// copies. See [Decoder.SetMaxRepeat].
func ParseMaxRepeat(text string, n int) Result {
	dec := NewDecoder(strings.NewReader(text))
	dec.SetMaxRepeat(n)
	return parse(dec)
}

func parse(dec *Decoder) Result {
	var res Result
	for {
		c, err := dec.Decode()
		if err == nil {
			res.Commands = append(res.Commands, c)
			continue
		}
		var lerr *LineError
		if errors.As(err, &lerr) {
			res.Errors = append(res.Errors, lerr)
			continue
		}
		if !errors.Is(err, io.EOF) {
			// A strings.Reader only reports io.EOF.
			panic("internal error: unexpected read error: " + err.Error())
		}
		return res
	}
}

// SplitLines splits text into lines the way [Decoder] reads them:
// on "\n", dropping a "\r" directly before it. Line n of the script
// is element n-1.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
