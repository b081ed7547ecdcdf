package checks

import (
	"strings"
	"unicode"
)

// Split splits a check into its subject, operator and wanted value.
// The wanted value is the rest of the line after the operator, so it may
// contain spaces:
//
//	sketch contains typeString("Hello, world!");
//
// splits into "sketch", "contains" and `typeString("Hello, world!");`.
func Split(check string) (what, op, want string) {
	what, rest := cutField(check)
	op, want = cutField(rest)
	return what, op, strings.TrimSuffix(want, "\n")
}

// cutField slices s around the first run of whitespace,
// returning the text before and after the run.
func cutField(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
