package arduino

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"blake.io/ducky"
)

// keyMap maps simple keys to their Keyboard library expression.
// Keys missing here generate an "Unknown" comment.
var keyMap = map[ducky.Kind]string{
	ducky.ENTER:     "KEY_RETURN",
	ducky.RETURN:    "KEY_RETURN",
	ducky.TAB:       "KEY_TAB",
	ducky.ESC:       "KEY_ESC",
	ducky.ESCAPE:    "KEY_ESC",
	ducky.SPACE:     "' '",
	ducky.BACKSPACE: "KEY_BACKSPACE",
	ducky.DELETE:    "KEY_DELETE",
	ducky.UP:        "KEY_UP_ARROW",
	ducky.DOWN:      "KEY_DOWN_ARROW",
	ducky.LEFT:      "KEY_LEFT_ARROW",
	ducky.RIGHT:     "KEY_RIGHT_ARROW",
	ducky.HOME:      "KEY_HOME",
	ducky.END:       "KEY_END",
	ducky.PAGEUP:    "KEY_PAGE_UP",
	ducky.PAGEDOWN:  "KEY_PAGE_DOWN",
	ducky.MENU:      "KEY_MENU",
}

// KeyExpr returns the Keyboard library expression for a simple key.
func KeyExpr(k ducky.Kind) (string, bool) {
	key, ok := keyMap[k]
	return key, ok
}

func modifierKey(token string) (string, bool) {
	switch token {
	case "CTRL", "CONTROL":
		return "KEY_LEFT_CTRL", true
	case "ALT":
		return "KEY_LEFT_ALT", true
	case "SHIFT":
		return "KEY_LEFT_SHIFT", true
	case "GUI", "WINDOWS", "WIN":
		return "KEY_LEFT_GUI", true
	}
	return "", false
}

// chordKey maps the final token of a chord. A single character is
// pressed as itself, letters always in lowercase: a held SHIFT supplies
// the capital. Names go through keyMap; anything else presses Enter.
func chordKey(token string) string {
	if r, size := utf8.DecodeRuneInString(token); size > 0 && size == len(token) && r != utf8.RuneError {
		return QuoteChar(unicode.ToLower(r))
	}
	if k, ok := ducky.LookupKey(token); ok {
		if key, ok := keyMap[k]; ok {
			return key
		}
	}
	return "KEY_RETURN"
}

// Quote returns s as a C string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		writeEscaped(&b, s[i], '"')
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteChar returns r as a C character literal. Runes outside ASCII,
// which the Keyboard library cannot press, are written as their UTF-8
// bytes in a multi-character literal.
func QuoteChar(r rune) string {
	var b strings.Builder
	b.WriteByte('\'')
	var buf [utf8.UTFMax]byte
	for _, c := range buf[:utf8.EncodeRune(buf[:], r)] {
		writeEscaped(&b, c, '\'')
	}
	b.WriteByte('\'')
	return b.String()
}

func writeEscaped(b *strings.Builder, c, quote byte) {
	switch c {
	case quote, '\\':
		b.WriteByte('\\')
		b.WriteByte(c)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	default:
		if c < 0x20 || c == 0x7f {
			// Octal, unlike \x, stops after three digits.
			b.WriteByte('\\')
			s := strconv.FormatUint(uint64(c), 8)
			b.WriteString(strings.Repeat("0", 3-len(s)) + s)
			return
		}
		b.WriteByte(c)
	}
}
