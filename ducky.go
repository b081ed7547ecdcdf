// Package ducky parses a subset of DuckyScript, the line based notation for
// scripted keystroke injection.
//
// A script is a sequence of lines. Each line holds one command: the first
// word names it and the rest are its arguments.
//
//	REM open the run dialog
//	GUI r
//	DELAY 500
//	STRING notepad
//	ENTER
//
// # Commands
//
// The supported vocabulary is:
//
//	REM text              comment, ignored
//	STRING text           type text verbatim, spaces included
//	DELAY ms              wait ms milliseconds
//	REPEAT n              repeat the previous command n more times
//	CTRL|ALT|SHIFT ... k  chord: hold the modifiers, press k, release all
//	GUI|WINDOWS ... k     chord with the GUI (Windows/Command) key
//	ENTER, TAB, ...       a simple named key, see [Keys]
//
// Command names are case insensitive except REM, which must be written in
// capitals. Any line starting with "REM" is a comment.
//
// # Chords
//
// A line mentioning GUI or WINDOWS becomes a [MOD] command whose first
// argument is "GUI", followed by the remaining words in order. A line
// mentioning CTRL, CONTROL, ALT or SHIFT becomes a [MOD] command carrying
// every word of the line unchanged. All words are uppercased.
//
//	GUI r            MOD [GUI R]
//	WINDOWS d        MOD [GUI D]
//	CTRL ALT DELETE  MOD [CTRL ALT DELETE]
//
// # Errors
//
// Parsing never stops on bad input. Rejected lines are reported as
// [LineError] values carrying the 1-based line number:
//
//	res := ducky.Parse(script)
//	for _, err := range res.Errors {
//		fmt.Println(err) // Line 3: DELAY requires a number
//	}
//	// res.Commands holds every line that was understood.
package ducky

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the type tag of a [Command].
type Kind uint8

// The list of command kinds.
const (
	// Invalid is the zero Kind. The parser never produces it.
	Invalid Kind = iota

	STRING // literal text
	DELAY  // pause in milliseconds
	MOD    // modifier chord

	keyBeg
	ENTER
	RETURN
	TAB
	ESC
	ESCAPE
	SPACE
	BACKSPACE
	DELETE
	UP
	DOWN
	LEFT
	RIGHT
	HOME
	END
	PAGEUP
	PAGEDOWN
	CAPSLOCK
	SCROLLLOCK
	NUMLOCK
	PAUSE
	INSERT
	PRINTSCREEN
	MENU
	APP
	WINDOWS
	GUI
	keyEnd
)

var kinds = [...]string{
	Invalid: "INVALID",

	STRING: "STRING",
	DELAY:  "DELAY",
	MOD:    "MOD",

	ENTER:       "ENTER",
	RETURN:      "RETURN",
	TAB:         "TAB",
	ESC:         "ESC",
	ESCAPE:      "ESCAPE",
	SPACE:       "SPACE",
	BACKSPACE:   "BACKSPACE",
	DELETE:      "DELETE",
	UP:          "UP",
	DOWN:        "DOWN",
	LEFT:        "LEFT",
	RIGHT:       "RIGHT",
	HOME:        "HOME",
	END:         "END",
	PAGEUP:      "PAGEUP",
	PAGEDOWN:    "PAGEDOWN",
	CAPSLOCK:    "CAPSLOCK",
	SCROLLLOCK:  "SCROLLLOCK",
	NUMLOCK:     "NUMLOCK",
	PAUSE:       "PAUSE",
	INSERT:      "INSERT",
	PRINTSCREEN: "PRINTSCREEN",
	MENU:        "MENU",
	APP:         "APP",
	WINDOWS:     "WINDOWS",
	GUI:         "GUI",
}

// String returns the script spelling of k, such as "ENTER".
// Kinds outside the vocabulary format as "Kind(n)".
func (k Kind) String() string {
	if int(k) < len(kinds) && kinds[k] != "" {
		return kinds[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsKey reports whether k is a simple named key.
func (k Kind) IsKey() bool { return keyBeg < k && k < keyEnd }

var keys map[string]Kind

func init() {
	keys = make(map[string]Kind, keyEnd-keyBeg-1)
	for k := keyBeg + 1; k < keyEnd; k++ {
		keys[kinds[k]] = k
	}
}

// LookupKey maps an uppercase key name to its simple key Kind.
func LookupKey(name string) (Kind, bool) {
	k, ok := keys[name]
	return k, ok
}

// Keys returns the simple key kinds in declaration order.
func Keys() []Kind {
	ks := make([]Kind, 0, keyEnd-keyBeg-1)
	for k := keyBeg + 1; k < keyEnd; k++ {
		ks = append(ks, k)
	}
	return ks
}

// IsModifier reports whether the uppercase token names a modifier key.
func IsModifier(token string) bool {
	switch token {
	case "CTRL", "CONTROL", "ALT", "SHIFT", "GUI", "WINDOWS", "WIN":
		return true
	}
	return false
}

// Command is a single parsed instruction.
//
// Commands are intended to be produced by [Decoder] or [Parse], not built
// manually, and are not modified after construction.
type Command struct {
	// Kind is the type tag.
	Kind Kind

	// Args depends on Kind: the literal text for STRING, the decimal
	// millisecond count for DELAY, and the modifier-then-key tokens for MOD.
	// Simple keys have no arguments.
	Args []string

	// Line is the 1-based source line the command came from.
	// Copies made by REPEAT carry the line of the REPEAT.
	Line int
}

// Arg returns the i-th argument, or the empty string if i is out of range.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Clone returns a copy of c that shares no storage with it.
func (c Command) Clone() Command {
	c.Args = slices.Clone(c.Args)
	return c
}

// Equal reports whether c and o have the same kind and arguments.
// Line numbers are ignored.
func (c Command) Equal(o Command) bool {
	return c.Kind == o.Kind && slices.Equal(c.Args, o.Args)
}

// String formats the command as script text.
// MOD commands print their tokens joined by spaces.
//
// For example, a DELAY of 500 formats as "DELAY 500", and
// MOD [GUI R] formats as "GUI R".
func (c Command) String() string {
	switch c.Kind {
	case STRING:
		if c.Arg(0) == "" {
			return "STRING"
		}
		return "STRING " + c.Arg(0)
	case MOD:
		return strings.Join(c.Args, " ")
	}
	if len(c.Args) == 0 {
		return c.Kind.String()
	}
	return c.Kind.String() + " " + strings.Join(c.Args, " ")
}
