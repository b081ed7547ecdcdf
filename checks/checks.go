// Package checks provides one-line assertions over generated text, used by
// the golden tests of the sketch generator and the HTML report.
//
// A check is written as "what op want":
//
//	sketch contains Keyboard.press(KEY_LEFT_GUI);
//	errors == Line 1: DELAY requires a number
//	#errors>li count 2
//
// Example usage with an HTML check:
//
//	body := `<ul id="errors"><li>Line 1: DELAY requires a number</li></ul>`
//	if msg := checks.HTML("#errors>li count 1", body); msg != "" {
//		log.Fatal(msg)
//	}
package checks

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericchiang/css"
	"golang.org/x/net/html"
)

// HTML checks the inner HTML of elements matching a CSS selector.
//
// It uses [Text] for comparison, supporting operators
// like ==, !=, ~, !~, contains, and !contains.
//
// An additional "count" operator compares the number of matched elements
// against the expected value.
//
// The check should contain: selector op want.
// For example:
//
//	#sketch contains typeString("Hi");
//	span.error count 1
//	#options>dd ~ ^leonardo$
//
// # Selectors
//
// Selectors must not contain spaces. CSS provides several combinators
// that can be used without spaces:
//
//   - "parent>child" selects direct children (e.g., "ul>li")
//   - "a~b" selects siblings of a that are b (general sibling)
//   - "a+b" selects the immediate sibling b after a (adjacent sibling)
//   - "a,b" selects elements matching either a or b
//
// # No Match Behavior
//
// If no elements match the selector, it returns an error saying
// "no elements match selector {selector}" (except for count operator,
// which returns 0 and only errors if the expected count is non-zero).
//
// Returns empty string on success, error message on failure.
func HTML(check, body string) string {
	selector, op, want := Split(check)
	msg, ok := Text(selector, op, "_", want)
	if !ok && op != "count" {
		return msg
	}

	sel, err := css.Parse(selector)
	if err != nil {
		return fmt.Sprintf("error parsing selector %q: %v", selector, err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return fmt.Sprintf("error parsing HTML: %v", err)
	}

	found := sel.Select(doc)

	if op == "count" {
		if want == "" {
			return "count operator requires non-empty want value"
		}
		got := strconv.Itoa(len(found))
		msg, _ := Text(selector, "==", got, want)
		return msg
	}

	if len(found) == 0 {
		return fmt.Sprintf("no elements match selector %q", selector)
	}

	got := innerHTML(found[0])
	msg, _ = Text(selector, op, got, want)
	return msg
}

// innerHTML returns the inner HTML of a node as a string.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// Text compares got against want using the specified operator op
// and returns a failure message when the comparison does not hold.
// An empty string means the check passed.
//
// Supported operators:
//   - "==": equality
//   - "!=": inequality
//   - "~": regex match
//   - "!~": regex non-match
//   - "contains": substring presence
//   - "!contains": substring absence
//
// If valid is false, the message indicates an error in the check itself.
// If valid is true, the message indicates a failed check.
func Text(what, op, got, want string) (msg string, valid bool) {
	o, ok := operators[op]
	if !ok {
		return fmt.Sprintf("unknown operator %q", op), false
	}
	if o.regex {
		if _, err := regexp.Compile(want); err != nil {
			return fmt.Sprintf("error compiling regex %#q: %v", want, err), false
		}
	} else if want == "" {
		return "non-regex comparison requires non-empty want value", false
	}
	if o.holds(got, want) {
		return "", true
	}
	return o.failure(what, got, want), true
}

type operator struct {
	regex   bool // want is a regular expression
	holds   func(got, want string) bool
	failure func(what, got, want string) string
}

var operators = map[string]operator{
	"==": {
		holds: func(got, want string) bool { return got == want },
		failure: func(what, got, want string) string {
			return fmt.Sprintf("%s = %#q, want %#q", what, got, want)
		},
	},
	"!=": {
		holds: func(got, want string) bool { return got != want },
		failure: func(what, _, want string) string {
			return fmt.Sprintf("%s == %#q (but should not)", what, want)
		},
	},
	"~": {
		regex: true,
		holds: matches,
		failure: func(what, got, want string) string {
			return fmt.Sprintf("%s does not match %#q (but should)\t%s", what, want, indentText(got))
		},
	},
	"!~": {
		regex: true,
		holds: func(got, want string) bool { return !matches(got, want) },
		failure: func(what, got, want string) string {
			return fmt.Sprintf("%s matches %#q (but should not)\t%s", what, want, indentText(got))
		},
	},
	"contains": {
		holds: strings.Contains,
		failure: func(what, got, want string) string {
			return fmt.Sprintf("%s does not contain %#q (but should)\t%s", what, want, indentText(got))
		},
	},
	"!contains": {
		holds: func(got, want string) bool { return !strings.Contains(got, want) },
		failure: func(what, got, want string) string {
			return fmt.Sprintf("%s contains %#q (but should not)\t%s", what, want, indentText(got))
		},
	},
}

// matches reports whether got matches the already validated pattern want.
func matches(got, want string) bool {
	return regexp.MustCompile(want).MatchString(got)
}

// indentText formats text for inclusion in error messages.
func indentText(text string) string {
	if text == "" {
		return "(empty)"
	}
	if text == "\n" {
		return "(blank line)"
	}
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return "(blank lines)"
	}
	text = strings.ReplaceAll(text, "\n", "\n\t")
	return text
}
