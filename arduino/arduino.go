// Package arduino generates Arduino sketches that replay parsed DuckyScript
// through the Keyboard library of a USB capable board.
//
// A sketch is a fixed header, one statement block per command, and a fixed
// footer. The script "STRING Hello" followed by "ENTER" becomes:
//
//	#include <Keyboard.h>
//
//	void typeString(const char* s){ ... }
//
//	void setup(){
//	  delay(1000);
//	  Keyboard.begin();
//	  typeString("Hello");
//	  Keyboard.write(KEY_RETURN);
//	  Keyboard.end();
//	}
//
//	void loop(){}
//
// Generation never fails. A command with no Arduino equivalent becomes a
// comment such as "// Unknown: CAPSLOCK" and the rest of the sketch is
// generated as usual.
package arduino

import (
	"io"
	"strings"

	"blake.io/ducky"
)

const header = `#include <Keyboard.h>

void typeString(const char* s){
  while(*s){
    if(*s=='\n'){ Keyboard.write(KEY_RETURN); } else { Keyboard.write(*s); }
    delay(5);
    s++;
  }
}

void setup(){
  delay(1000);
  Keyboard.begin();
`

const footer = `  Keyboard.end();
}

void loop(){}
`

// Header returns the text preceding the generated statements.
func Header() string { return header }

// Footer returns the text following the generated statements.
func Footer() string { return footer }

// Generate returns the sketch for cmds.
func Generate(cmds []ducky.Command, opts Options) string {
	var b strings.Builder
	writeSketch(&b, cmds, opts)
	return b.String()
}

// WriteSketch writes the sketch for cmds to w.
func WriteSketch(w io.Writer, cmds []ducky.Command, opts Options) error {
	_, err := io.WriteString(w, Generate(cmds, opts))
	return err
}

// Statement returns the statement block for a single command,
// one indented line per statement, each ending in a newline.
func Statement(c ducky.Command) string {
	var b strings.Builder
	writeCommand(&b, c)
	return b.String()
}

// writeSketch ignores opts: no layout or board changes the output.
func writeSketch(b *strings.Builder, cmds []ducky.Command, _ Options) {
	b.WriteString(header)
	for _, c := range cmds {
		writeCommand(b, c)
	}
	b.WriteString(footer)
}

func writeCommand(b *strings.Builder, c ducky.Command) {
	switch c.Kind {
	case ducky.STRING:
		stmt(b, "typeString(", Quote(c.Arg(0)), ");")
	case ducky.DELAY:
		stmt(b, "delay(", c.Arg(0), ");")
	case ducky.MOD:
		writeChord(b, c.Args)
	default:
		if key, ok := keyMap[c.Kind]; ok {
			stmt(b, "Keyboard.write(", key, ");")
		} else {
			stmt(b, "// Unknown: ", c.Kind.String())
		}
	}
}

// writeChord presses every modifier among all but the last token,
// then presses the last token and releases everything.
func writeChord(b *strings.Builder, args []string) {
	var tokens []string
	for _, a := range args {
		if a != "" {
			tokens = append(tokens, a)
		}
	}
	var last string
	if n := len(tokens); n > 0 {
		last = tokens[n-1]
		for _, t := range tokens[:n-1] {
			if m, ok := modifierKey(t); ok {
				stmt(b, "Keyboard.press(", m, ");")
			}
		}
	}
	stmt(b, "Keyboard.press(", chordKey(last), ");")
	stmt(b, "delay(5);")
	stmt(b, "Keyboard.releaseAll();")
}

func stmt(b *strings.Builder, parts ...string) {
	b.WriteString("  ")
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteByte('\n')
}
