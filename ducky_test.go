package ducky

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"kr.dev/diff"
)

func FuzzParse(f *testing.F) {
	f.Add("DELAY 500\nSTRING Hi\nENTER")
	f.Add("REPEAT 3\nTAB\nREPEAT 2\n")
	f.Add("GUI r\r\nCTRL ALT DELETE\r\nREM x\r\n")
	f.Add("\uFEFFstring  spaced  out \nFOO\n\n")
	f.Add("DELAY -12abc\nREPEAT 99999999999999999999\n")
	f.Fuzz(func(t *testing.T, input string) {
		res := ParseMaxRepeat(input, 100)

		// Line invariants
		prev := 0
		for _, c := range res.Commands {
			if c.Line <= 0 {
				t.Errorf("Line number <= 0: %d", c.Line)
			}
			if c.Line < prev {
				t.Errorf("Line number %d after %d", c.Line, prev)
			}
			prev = c.Line
			if c.Kind != STRING && c.Kind != DELAY && c.Kind != MOD && !c.Kind.IsKey() {
				t.Errorf("line %d: unexpected kind %v", c.Line, c.Kind)
			}
		}
		prev = 0
		for _, e := range res.Errors {
			if e.Line <= prev {
				t.Errorf("error line %d after %d", e.Line, prev)
			}
			prev = e.Line
			if !strings.HasPrefix(e.Error(), fmt.Sprintf("Line %d: ", e.Line)) {
				t.Errorf("error %q lacks its line prefix", e)
			}
		}

		// A line either errs or produces commands.
		for _, c := range res.Commands {
			if len(res.ErrorsOn(c.Line)) > 0 {
				t.Errorf("line %d both errs and produces %v", c.Line, c)
			}
		}
	})
}

func TestParse(t *testing.T) {
	cmd := func(line int, k Kind, args ...string) Command {
		if len(args) == 0 {
			args = nil
		}
		return Command{Kind: k, Args: args, Line: line}
	}

	tests := []struct {
		name       string
		input      string
		want       []Command
		wantErrors []string
	}{
		{
			name:  "basic",
			input: "DELAY 500\nSTRING Hi\nENTER",
			want: []Command{
				cmd(1, DELAY, "500"),
				cmd(2, STRING, "Hi"),
				cmd(3, ENTER),
			},
		},
		{
			name:       "delay without number",
			input:      "DELAY abc",
			wantErrors: []string{"Line 1: DELAY requires a number"},
		},
		{
			name:       "delay missing",
			input:      "DELAY",
			wantErrors: []string{"Line 1: DELAY requires a number"},
		},
		{
			name:  "delay leading digits",
			input: "DELAY 12abc\nDELAY 1.5\nDELAY +7\nDELAY -5\nDELAY -0\nDELAY 007",
			want: []Command{
				cmd(1, DELAY, "12"),
				cmd(2, DELAY, "1"),
				cmd(3, DELAY, "7"),
				cmd(4, DELAY, "-5"),
				cmd(5, DELAY, "0"),
				cmd(6, DELAY, "7"),
			},
		},
		{
			name:  "delay overflow",
			input: "DELAY 99999999999999999999\nDELAY -000123456789012345678901",
			want: []Command{
				cmd(1, DELAY, "99999999999999999999"),
				cmd(2, DELAY, "-123456789012345678901"),
			},
		},
		{
			name:       "repeat without previous",
			input:      "REPEAT 3",
			wantErrors: []string{"Line 1: REPEAT without previous command"},
		},
		{
			name:  "repeat copies",
			input: "TAB\nREPEAT 2\nENTER",
			want: []Command{
				cmd(1, TAB),
				cmd(2, TAB),
				cmd(2, TAB),
				cmd(3, ENTER),
			},
		},
		{
			name:  "repeat on last line",
			input: "ENTER\nREPEAT 2",
			want: []Command{
				cmd(1, ENTER),
				cmd(2, ENTER),
				cmd(2, ENTER),
			},
		},
		{
			name:  "repeat before blanks",
			input: "ENTER\nREPEAT 2\n\n  \nREM done\n",
			want: []Command{
				cmd(1, ENTER),
				cmd(2, ENTER),
				cmd(2, ENTER),
			},
		},
		{
			name:  "repeat before next command",
			input: "DOWN\nREPEAT 1\nSTRING ok\nREPEAT 1",
			want: []Command{
				cmd(1, DOWN),
				cmd(2, DOWN),
				cmd(3, STRING, "ok"),
				cmd(4, STRING, "ok"),
			},
		},
		{
			name:  "repeat signed and padded",
			input: "TAB\nREPEAT +002x",
			want: []Command{
				cmd(1, TAB),
				cmd(2, TAB),
				cmd(2, TAB),
			},
		},
		{
			name:  "repeat repeats last copy",
			input: "STRING a\nREPEAT 1\nREPEAT 1",
			want: []Command{
				cmd(1, STRING, "a"),
				cmd(2, STRING, "a"),
				cmd(3, STRING, "a"),
			},
		},
		{
			name:  "repeat bad count",
			input: "TAB\nREPEAT 0\nREPEAT -1\nREPEAT x\nREPEAT",
			want:  []Command{cmd(1, TAB)},
			wantErrors: []string{
				"Line 2: REPEAT requires positive number",
				"Line 3: REPEAT requires positive number",
				"Line 4: REPEAT requires positive number",
				"Line 5: REPEAT requires positive number",
			},
		},
		{
			name:       "repeat after rejected first line",
			input:      "FOO\nREPEAT 2",
			wantErrors: []string{"Line 1: Unknown command 'FOO'", "Line 2: REPEAT without previous command"},
		},
		{
			name:  "repeat skips rejected line",
			input: "TAB\nFOO\nREPEAT 1",
			want: []Command{
				cmd(1, TAB),
				cmd(3, TAB),
			},
			wantErrors: []string{"Line 2: Unknown command 'FOO'"},
		},
		{
			name:  "chord unfiltered",
			input: "CTRL ALT DELETE",
			want:  []Command{cmd(1, MOD, "CTRL", "ALT", "DELETE")},
		},
		{
			name:  "chord uppercased",
			input: "ctrl shift esc\ncontrol c",
			want: []Command{
				cmd(1, MOD, "CTRL", "SHIFT", "ESC"),
				cmd(2, MOD, "CONTROL", "C"),
			},
		},
		{
			name:  "gui",
			input: "GUI r\nr GUI\nGUI\nWINDOWS d\nwindows\nGUI WINDOWS x",
			want: []Command{
				cmd(1, MOD, "GUI", "R"),
				cmd(2, MOD, "GUI", "R"),
				cmd(3, MOD, "GUI"),
				cmd(4, MOD, "GUI", "D"),
				cmd(5, MOD, "GUI"),
				cmd(6, MOD, "GUI", "WINDOWS", "X"),
			},
		},
		{
			name:  "modifier alone",
			input: "SHIFT\nENTER CTRL",
			want: []Command{
				cmd(1, MOD, "SHIFT"),
				cmd(2, MOD, "ENTER", "CTRL"),
			},
		},
		{
			name:  "simple keys",
			input: "enter\nReturn\nTAB\nESC\nESCAPE\nSPACE\nCAPSLOCK\nMENU extra",
			want: []Command{
				cmd(1, ENTER),
				cmd(2, RETURN),
				cmd(3, TAB),
				cmd(4, ESC),
				cmd(5, ESCAPE),
				cmd(6, SPACE),
				cmd(7, CAPSLOCK),
				cmd(8, MENU),
			},
		},
		{
			name:  "string text",
			input: "STRING   two  spaces  \nstring lower\nSTRING\n\tSTRING\ttabbed",
			want: []Command{
				cmd(1, STRING, "two  spaces  "),
				cmd(2, STRING, "lower"),
				{Kind: STRING, Args: []string{""}, Line: 3},
				cmd(4, STRING, "tabbed"),
			},
		},
		{
			name:  "comments and blanks",
			input: "REM comment\n\n   \nREMARK too\n  REM indented\nENTER",
			want:  []Command{cmd(6, ENTER)},
		},
		{
			name:       "rem is case sensitive",
			input:      "rem lower",
			wantErrors: []string{"Line 1: Unknown command 'rem'"},
		},
		{
			name:       "unknown command",
			input:      "FOO bar\na\nWIN r",
			wantErrors: []string{"Line 1: Unknown command 'FOO'", "Line 2: Unknown command 'a'", "Line 3: Unknown command 'WIN'"},
		},
		{
			name:  "crlf",
			input: "STRING a\r\nENTER\r\n",
			want: []Command{
				cmd(1, STRING, "a"),
				cmd(2, ENTER),
			},
		},
		{
			name:  "lone carriage return",
			input: "STRING a\rb\n",
			want:  []Command{cmd(1, STRING, "a\rb")},
		},
		{
			name:  "byte order mark",
			input: "\uFEFFSTRING hi\n",
			want:  []Command{cmd(1, STRING, "hi")},
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input)
			diff.Test(t, t.Errorf, res.Commands, tt.want)
			got := res.Messages()
			if len(got) == 0 {
				got = nil
			}
			diff.Test(t, t.Errorf, got, tt.wantErrors)
			if res.OK() != (len(tt.wantErrors) == 0) {
				t.Errorf("OK() = %v with errors %q", res.OK(), got)
			}
		})
	}
}

func TestLineErrorClasses(t *testing.T) {
	tests := []struct {
		input string
		class error
		msg   string
	}{
		{"DELAY x", ErrMissingArgument, "DELAY requires a number"},
		{"TAB\nREPEAT 0", ErrMissingArgument, "REPEAT requires positive number"},
		{"REPEAT 1", ErrInvalidPriorState, "REPEAT without previous command"},
		{"Nope", ErrUnknownCommand, "Unknown command 'Nope'"},
	}
	for _, tt := range tests {
		res := Parse(tt.input)
		if len(res.Errors) != 1 {
			t.Fatalf("Parse(%q): %d errors, want 1", tt.input, len(res.Errors))
		}
		e := res.Errors[0]
		if !errors.Is(e, tt.class) {
			t.Errorf("Parse(%q): error %v is not %v", tt.input, e, tt.class)
		}
		if got := e.Message(); got != tt.msg {
			t.Errorf("Parse(%q): Message() = %q, want %q", tt.input, got, tt.msg)
		}
	}
}

func TestRepeatCopiesAreIndependent(t *testing.T) {
	res := Parse("CTRL c\nREPEAT 2\n")
	if len(res.Commands) != 3 {
		t.Fatalf("got %d commands, want 3", len(res.Commands))
	}
	res.Commands[1].Args[1] = "V"
	if got := res.Commands[0].Args[1]; got != "C" {
		t.Errorf("original changed to %q", got)
	}
	if got := res.Commands[2].Args[1]; got != "C" {
		t.Errorf("other copy changed to %q", got)
	}
}

func TestDecoderNotSticky(t *testing.T) {
	dec := NewDecoder(strings.NewReader("FOO\nENTER\nDELAY\nTAB"))

	var got []string
	for {
		c, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			got = append(got, "error: "+err.Error())
			continue
		}
		got = append(got, fmt.Sprintf("%d: %v", c.Line, c))
	}
	want := []string{
		"error: Line 1: Unknown command 'FOO'",
		"2: ENTER",
		"error: Line 3: DELAY requires a number",
		"4: TAB",
	}
	diff.Test(t, t.Errorf, got, want)

	// io.EOF is sticky.
	if _, err := dec.Decode(); err != io.EOF {
		t.Errorf("Decode after EOF = %v, want io.EOF", err)
	}
}

func TestDecoderReadError(t *testing.T) {
	boom := errors.New("boom")
	dec := NewDecoder(io.MultiReader(strings.NewReader("ENTER\n"), iotest.ErrReader(boom)))
	c, err := dec.Decode()
	if err != nil || c.Kind != ENTER {
		t.Fatalf("Decode = %v, %v; want ENTER", c, err)
	}
	if _, err := dec.Decode(); !errors.Is(err, boom) {
		t.Fatalf("Decode = %v, want %v", err, boom)
	}
	if _, err := dec.Decode(); !errors.Is(err, boom) {
		t.Fatalf("second Decode = %v, want sticky %v", err, boom)
	}
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"", "", false},
		{"abc", "", false},
		{"-", "", false},
		{"+", "", false},
		{"0", "0", true},
		{"-0", "0", true},
		{"000", "0", true},
		{"42", "42", true},
		{"42ms", "42", true},
		{"007", "7", true},
		{"3.9", "3", true},
		{"-8", "-8", true},
		{"+8", "8", true},
		{"--8", "", false},
		{"9223372036854775808", "9223372036854775808", true},
		{"-0099999999999999999999", "-99999999999999999999", true},
	}
	for _, tt := range tests {
		got, ok := leadingInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("leadingInt(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMaxRepeat(t *testing.T) {
	res := ParseMaxRepeat("TAB\nREPEAT 99999999999999999999\nENTER\nREPEAT 2\n", 3)
	var got []string
	for _, c := range res.Commands {
		got = append(got, fmt.Sprintf("%d: %v", c.Line, c))
	}
	want := []string{
		"1: TAB",
		"2: TAB",
		"2: TAB",
		"2: TAB",
		"3: ENTER",
		"4: ENTER",
		"4: ENTER",
	}
	diff.Test(t, t.Errorf, got, want)

	// Without a cap the count is used as written.
	if n := len(Parse("TAB\nREPEAT 5").Commands); n != 6 {
		t.Errorf("Parse: %d commands, want 6", n)
	}
}

func TestErrorsOn(t *testing.T) {
	res := Parse("FOO\nENTER\nDELAY\nBAR\n\nBAZ")
	for line, want := range map[int]string{1: "FOO", 3: "DELAY", 4: "BAR", 6: "BAZ"} {
		errs := res.ErrorsOn(line)
		if len(errs) != 1 || errs[0].Token != want {
			t.Errorf("ErrorsOn(%d) = %v, want one error on %s", line, errs, want)
		}
		if got := res.ErrorLines()[line]; len(got) != 1 || got[0] != errs[0] {
			t.Errorf("ErrorLines()[%d] = %v, want %v", line, got, errs)
		}
	}
	for _, line := range []int{0, 2, 5, 7} {
		if errs := res.ErrorsOn(line); len(errs) != 0 {
			t.Errorf("ErrorsOn(%d) = %v, want none", line, errs)
		}
	}
	if n := len(res.ErrorLines()); n != 4 {
		t.Errorf("ErrorLines: %d lines, want 4", n)
	}
}

func TestIsSpace(t *testing.T) {
	for _, r := range []rune{' ', '\t', '\u00a0', '\u2003', '\uFEFF'} {
		if !IsSpace(r) {
			t.Errorf("IsSpace(%U) = false", r)
		}
	}
	for _, r := range []rune{'a', '0', '\u200b'} {
		if IsSpace(r) {
			t.Errorf("IsSpace(%U) = true", r)
		}
	}
}

func TestStringText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"STRING hello", "hello"},
		{"STRING  hello world ", "hello world "},
		{"  STRING\t\tx", "x"},
		{"STRING", ""},
		{"STRING   ", ""},
		{"STRING a b", "a b"},
	}
	for _, tt := range tests {
		if got := stringText(tt.raw); got != tt.want {
			t.Errorf("stringText(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestKind(t *testing.T) {
	if got := ENTER.String(); got != "ENTER" {
		t.Errorf("ENTER.String() = %q", got)
	}
	if got := Kind(200).String(); got != "Kind(200)" {
		t.Errorf("Kind(200).String() = %q", got)
	}
	if STRING.IsKey() || MOD.IsKey() || !GUI.IsKey() || !ENTER.IsKey() {
		t.Errorf("IsKey misclassifies")
	}
	for _, k := range Keys() {
		got, ok := LookupKey(k.String())
		if !ok || got != k {
			t.Errorf("LookupKey(%q) = %v, %v; want %v", k.String(), got, ok, k)
		}
	}
	if _, ok := LookupKey("enter"); ok {
		t.Errorf("LookupKey is case insensitive")
	}
	if _, ok := LookupKey("STRING"); ok {
		t.Errorf("LookupKey(STRING) reports a key")
	}
}

func TestIsModifier(t *testing.T) {
	for _, s := range []string{"CTRL", "CONTROL", "ALT", "SHIFT", "GUI", "WINDOWS", "WIN"} {
		if !IsModifier(s) {
			t.Errorf("IsModifier(%q) = false", s)
		}
	}
	for _, s := range []string{"ctrl", "ENTER", "R", ""} {
		if IsModifier(s) {
			t.Errorf("IsModifier(%q) = true", s)
		}
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		c    Command
		want string
	}{
		{Command{Kind: STRING, Args: []string{"Hello, world "}}, "STRING Hello, world "},
		{Command{Kind: STRING, Args: []string{""}}, "STRING"},
		{Command{Kind: DELAY, Args: []string{"500"}}, "DELAY 500"},
		{Command{Kind: MOD, Args: []string{"GUI", "R"}}, "GUI R"},
		{Command{Kind: TAB}, "TAB"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestCommandEqual(t *testing.T) {
	a := Command{Kind: MOD, Args: []string{"GUI", "R"}, Line: 1}
	b := a.Clone()
	b.Line = 9
	if !a.Equal(b) {
		t.Errorf("Equal ignores lines: %v != %v", a, b)
	}
	b.Args[1] = "D"
	if a.Equal(b) || a.Args[1] != "R" {
		t.Errorf("Clone shares storage")
	}
	if got := a.Arg(5); got != "" {
		t.Errorf("Arg(5) = %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("a\r\nb\nc\rd\n")
	want := []string{"a", "b", "c\rd", ""}
	diff.Test(t, t.Errorf, got, want)
}

func ExampleParse() {
	const script = "" +
		"REM open the run dialog\n" +
		"GUI r\n" +
		"DELAY 500\n" +
		"STRING notepad\n" +
		"ENTER\n" +
		"DELAY soon\n"

	res := Parse(script)
	for _, c := range res.Commands {
		fmt.Printf("%d: %v\n", c.Line, c)
	}
	for _, msg := range res.Messages() {
		fmt.Println(msg)
	}

	// Output:
	// 2: GUI R
	// 3: DELAY 500
	// 4: STRING notepad
	// 5: ENTER
	// Line 6: DELAY requires a number
}

func ExampleDecoder() {
	dec := NewDecoder(strings.NewReader("TAB\nREPEAT 2\nBOGUS\nENTER\n"))
	for {
		c, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println(c.Line, c)
	}

	// Output:
	// 1 TAB
	// 2 TAB
	// 2 TAB
	// Line 3: Unknown command 'BOGUS'
	// 4 ENTER
}

func BenchmarkParse(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("lines=%d", n), func(b *testing.B) {
			var script strings.Builder
			for i := range n {
				switch i % 5 {
				case 0:
					script.WriteString("REM step\n")
				case 1:
					script.WriteString("STRING hello world\n")
				case 2:
					script.WriteString("DELAY 100\n")
				case 3:
					script.WriteString("CTRL ALT DELETE\n")
				case 4:
					script.WriteString("REPEAT 2\n")
				}
			}
			text := script.String()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				Parse(text)
			}
		})
	}
}
