// Package report renders the outcome of translating a script as a
// self-contained HTML page: the script with rejected lines marked, the
// diagnostics, the options and the generated sketch.
//
// The page is built as a [html.Node] tree and has stable hooks for
// styling and testing:
//
//	dl#options     layout and board
//	pre#script     one span.line per script line, span.error on rejected lines
//	ul#errors      one li per diagnostic
//	pre#sketch     the generated sketch
package report

import (
	"io"
	"strconv"
	"strings"

	"blake.io/ducky"
	"blake.io/ducky/arduino"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the content of a report.
type Page struct {
	Title   string // defaults to "duckify"
	Script  string
	Result  ducky.Result
	Sketch  string
	Options arduino.Options
}

// New parses script and generates its sketch, returning the filled Page.
func New(title, script string, opts arduino.Options) Page {
	res := ducky.Parse(script)
	return Page{
		Title:   title,
		Script:  script,
		Result:  res,
		Sketch:  arduino.Generate(res.Commands, opts),
		Options: opts,
	}
}

const style = `body{font-family:sans-serif;margin:2em}
pre{background:#f6f8fa;padding:1em;overflow:auto}
span.error{background:#ffebe9}
#errors li{color:#cf222e}
dt{font-weight:bold}`

// Render writes p to w as an HTML document.
func Render(w io.Writer, p Page) error {
	return html.Render(w, document(p))
}

func document(p Page) *html.Node {
	title := p.Title
	if title == "" {
		title = "duckify"
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := elem(atom.Html)
	doc.AppendChild(root)

	head := elem(atom.Head)
	head.AppendChild(elem(atom.Meta, attr("charset", "utf-8")))
	head.AppendChild(withText(elem(atom.Title), title))
	head.AppendChild(withText(elem(atom.Style), style))
	root.AppendChild(head)

	body := elem(atom.Body)
	body.AppendChild(withText(elem(atom.H1), title))
	body.AppendChild(options(p.Options))
	body.AppendChild(withText(elem(atom.H2), "Script"))
	body.AppendChild(script(p.Script, p.Result))
	body.AppendChild(withText(elem(atom.H2), "Diagnostics"))
	body.AppendChild(diagnostics(p.Result))
	body.AppendChild(withText(elem(atom.H2), "Sketch"))
	body.AppendChild(withText(elem(atom.Pre, attr("id", "sketch")), p.Sketch))
	root.AppendChild(body)
	return doc
}

func options(o arduino.Options) *html.Node {
	dl := elem(atom.Dl, attr("id", "options"))
	dl.AppendChild(withText(elem(atom.Dt), "Layout"))
	dl.AppendChild(withText(elem(atom.Dd, attr("class", "layout")), string(o.Layout)))
	dl.AppendChild(withText(elem(atom.Dt), "Board"))
	dl.AppendChild(withText(elem(atom.Dd, attr("class", "board")), string(o.Board)))
	return dl
}

func script(text string, res ducky.Result) *html.Node {
	pre := elem(atom.Pre, attr("id", "script"))
	errLines := res.ErrorLines()
	for i, line := range ducky.SplitLines(text) {
		n := i + 1
		span := elem(atom.Span, attr("data-line", strconv.Itoa(n)))
		class := "line"
		if errs := errLines[n]; len(errs) > 0 {
			class += " error"
			msgs := make([]string, len(errs))
			for j, e := range errs {
				msgs[j] = e.Message()
			}
			span.Attr = append(span.Attr, attr("title", strings.Join(msgs, "\n")))
		}
		span.Attr = append(span.Attr, attr("class", class))
		pre.AppendChild(withText(span, line))
		pre.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
	}
	return pre
}

func diagnostics(res ducky.Result) *html.Node {
	ul := elem(atom.Ul, attr("id", "errors"))
	for _, e := range res.Errors {
		ul.AppendChild(withText(elem(atom.Li, attr("data-line", strconv.Itoa(e.Line))), e.Error()))
	}
	return ul
}

func elem(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func withText(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	return n
}
