/*
Command duckylsp is the Language Server Protocol (LSP) server for DuckyScript
files.

# Installation

To install the latest version of duckylsp, run:

	go install blake.io/ducky/cmd/duckylsp@latest

# Supported Features

duckylsp supports the following LSP features:

  - Diagnostics: the same messages as duckify, one per rejected line
  - Hover: the Arduino statements generated for the hovered line
  - Semantic Tokens: comments, commands, keys, modifiers, text and numbers
  - Completion: command, key and modifier names, fuzzy matched
  - Code Actions: "Replace with" quick fixes for unknown commands
  - Commands: "duckify.generate" returns the sketch for a document URI

While editing, each REPEAT expands to at most 1000 copies. The sketch
returned by "duckify.generate" expands every REPEAT in full.

The keyboard layout and board used for generation may be passed as
initialization options:

	{"layout": "de", "board": "proMicro"}

# Editor Setup

duckylsp communicates over stdin/stdout using the LSP protocol. Configure your
editor to run duckylsp as the language server for .ducky files.

Using nvim-lspconfig (Neovim 0.5+), add to your init.lua:

	vim.api.nvim_create_autocmd({'BufRead', 'BufNewFile'}, {
		pattern = '*.ducky',
		callback = function()
			vim.lsp.start({
				name = 'duckylsp',
				cmd = {'duckylsp'},
			})
		end,
	})

# Helix

Add to languages.toml:

	[[language]]
	name = "ducky"
	scope = "source.ducky"
	file-types = ["ducky"]
	roots = []
	language-servers = ["duckylsp"]

	[language-server.duckylsp]
	command = "duckylsp"
*/
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"blake.io/ducky"
	"blake.io/ducky/arduino"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// generateCommand is the workspace command returning a document's sketch.
const generateCommand = "duckify.generate"

func main() {
	s := newServer(os.Stdin, os.Stdout)
	if err := s.run(); err != nil {
		var e exitError
		if errors.As(err, &e) {
			os.Exit(e.code)
		}
		fmt.Fprintf(os.Stderr, "duckylsp: %v\n", err)
		os.Exit(1)
	}
}

// Server

type server struct {
	r        *bufio.Reader
	w        *bufio.Writer
	docs     map[string]*document
	opts     arduino.Options
	shutdown bool
}

func newServer(r io.Reader, w io.Writer) *server {
	return &server{
		r:    bufio.NewReader(r),
		w:    bufio.NewWriter(w),
		docs: make(map[string]*document),
		opts: arduino.DefaultOptions,
	}
}

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func (s *server) run() error {
	for {
		data, err := s.readMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var msg request
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(nil, codeParseError, err.Error())
			continue
		}
		if err := s.dispatch(&msg); err != nil {
			return err
		}
	}
}

func (s *server) dispatch(msg *request) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		s.shutdown = true
		return s.reply(msg.ID, nil)
	case "exit":
		if s.shutdown {
			return exitError{0}
		}
		return exitError{1}
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokens(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "$/cancelRequest", "workspace/didChangeConfiguration":
		return nil
	default:
		if msg.ID != nil {
			return s.sendError(msg.ID, codeMethodNotFound, fmt.Sprintf("unsupported method %q", msg.Method))
		}
		return nil
	}
}

// Handlers

func (s *server) handleInitialize(msg *request) error {
	var p struct {
		InitializationOptions struct {
			Layout string `json:"layout"`
			Board  string `json:"board"`
		} `json:"initializationOptions"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	if l := p.InitializationOptions.Layout; l != "" {
		layout, err := arduino.ParseLayout(l)
		if err != nil {
			return s.sendError(msg.ID, codeInvalidParams, err.Error())
		}
		s.opts.Layout = layout
	}
	if b := p.InitializationOptions.Board; b != "" {
		board, err := arduino.ParseBoard(b)
		if err != nil {
			return s.sendError(msg.ID, codeInvalidParams, err.Error())
		}
		s.opts.Board = board
	}

	// Static capabilities. Simple keys are reported as functions and
	// chord modifiers as enum members.
	const result = `{
		"capabilities": {
			"textDocumentSync": {"openClose": true, "change": 1},
			"hoverProvider": true,
			"completionProvider": {},
			"codeActionProvider": {"codeActionKinds": ["quickfix"]},
			"executeCommandProvider": {"commands": ["duckify.generate"]},
			"semanticTokensProvider": {
				"legend": {"tokenTypes": ["comment", "keyword", "function", "string", "number", "enumMember"], "tokenModifiers": []},
				"full": true
			}
		},
		"serverInfo": {"name": "duckylsp"}
	}`
	return s.reply(msg.ID, json.RawMessage(result))
}

func (s *server) handleDidOpen(msg *request) error {
	var p struct {
		TextDocument struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	doc := newDocument(p.TextDocument.URI, p.TextDocument.Text)
	s.docs[p.TextDocument.URI] = doc
	return s.publishDiagnostics(doc)
}

func (s *server) handleDidChange(msg *request) error {
	var p struct {
		TextDocument   textDocumentIdentifier `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	doc := s.docs[p.TextDocument.URI]
	if doc == nil || len(p.ContentChanges) == 0 {
		return nil
	}
	doc.setText(p.ContentChanges[len(p.ContentChanges)-1].Text)
	return s.publishDiagnostics(doc)
}

func (s *server) handleDidClose(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	delete(s.docs, p.TextDocument.URI)
	return nil
}

func (s *server) handleHover(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	doc := s.docs[p.TextDocument.URI]
	if doc == nil {
		return s.reply(msg.ID, nil)
	}
	code, ok := doc.hover(p.Position.Line)
	if !ok {
		return s.reply(msg.ID, nil)
	}
	return s.reply(msg.ID, struct {
		Contents markupContent `json:"contents"`
		Range    lspRange      `json:"range"`
	}{
		Contents: markupContent{Kind: "markdown", Value: "```cpp\n" + code + "```"},
		Range:    doc.lineSpan(p.Position.Line).toLSP(),
	})
}

func (s *server) handleSemanticTokens(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	var data []uint32
	if doc := s.docs[p.TextDocument.URI]; doc != nil {
		data = doc.semanticTokens()
	}
	if data == nil {
		data = []uint32{}
	}
	return s.reply(msg.ID, struct {
		Data []uint32 `json:"data"`
	}{Data: data})
}

func (s *server) handleCompletion(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	items := []completionItem{}
	if doc := s.docs[p.TextDocument.URI]; doc != nil {
		items = append(items, doc.complete(p.Position.Line, p.Position.Character)...)
	}
	return s.reply(msg.ID, struct {
		IsIncomplete bool             `json:"isIncomplete"`
		Items        []completionItem `json:"items"`
	}{Items: items})
}

func (s *server) handleCodeAction(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Range        lspRange               `json:"range"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	actions := []codeAction{}
	if doc := s.docs[p.TextDocument.URI]; doc != nil {
		actions = append(actions, doc.quickFixes(p.Range.Start.Line, p.Range.End.Line)...)
	}
	return s.reply(msg.ID, actions)
}

func (s *server) handleExecuteCommand(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p struct {
		Command   string   `json:"command"`
		Arguments []string `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	if p.Command != generateCommand {
		return s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("unknown command %q", p.Command))
	}
	if len(p.Arguments) != 1 {
		return s.sendError(msg.ID, codeInvalidParams, generateCommand+" takes a document URI")
	}
	doc := s.docs[p.Arguments[0]]
	if doc == nil {
		return s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("document %q is not open", p.Arguments[0]))
	}
	return s.reply(msg.ID, arduino.Generate(ducky.Parse(doc.text).Commands, s.opts))
}

func (s *server) publishDiagnostics(doc *document) error {
	diags := make([]diagnostic, len(doc.res.Errors))
	for i, e := range doc.res.Errors {
		diags[i] = diagnostic{
			Range:    doc.lineSpan(e.Line - 1).toLSP(),
			Severity: 1,
			Source:   "duckylsp",
			Message:  e.Message(),
		}
	}
	return s.notify("textDocument/publishDiagnostics", struct {
		URI         string       `json:"uri"`
		Diagnostics []diagnostic `json:"diagnostics"`
	}{
		URI:         doc.uri,
		Diagnostics: diags,
	})
}

// Protocol I/O

func (s *server) readMessage() ([]byte, error) {
	var contentLen int
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if k, v, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(k), "content-length") {
			contentLen, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	if contentLen == 0 {
		return nil, fmt.Errorf("missing Content-Length")
	}
	data := make([]byte, contentLen)
	_, err := io.ReadFull(s.r, data)
	return data, err
}

func (s *server) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "Content-Length: %d\r\n\r\n", len(data))
	s.w.Write(data)
	return s.w.Flush()
}

// reply sends a result. A nil result is sent as JSON null.
func (s *server) reply(id json.RawMessage, result any) error {
	return s.send(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(response{JSONRPC: "2.0", ID: id, Error: &responseError{Code: code, Message: message}})
}

func (s *server) notify(method string, params any) error {
	return s.send(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params})
}

// LSP Protocol Types

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *responseError  `json:"error,omitempty"`
}

// MarshalJSON omits the result of error responses, which must not have one.
func (r response) MarshalJSON() ([]byte, error) {
	type plain response
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *responseError  `json:"error"`
		}{r.JSONRPC, r.ID, r.Error})
	}
	return json.Marshal(plain(r))
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     position               `json:"position"`
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type diagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity"`
	Source   string   `json:"source,omitempty"`
	Message  string   `json:"message"`
}

type completionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Completion item kinds
const (
	completionKeyword  = 14
	completionConstant = 21
)

type textEdit struct {
	Range   lspRange `json:"range"`
	NewText string   `json:"newText"`
}

type codeAction struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Edit  struct {
		Changes map[string][]textEdit `json:"changes"`
	} `json:"edit"`
}

// Document

type document struct {
	uri   string
	text  string
	lines []string
	res   ducky.Result
	// cmds maps a 0-indexed line to the commands it produced.
	cmds map[int][]ducky.Command
	// errs maps a 0-indexed line to its diagnostics.
	errs map[int][]*ducky.LineError
}

// maxRepeat caps REPEAT expansion while editing. Generating a sketch
// reparses the text in full.
const maxRepeat = 1000

type span struct{ startLine, startChar, endLine, endChar int }

func (s span) toLSP() lspRange {
	return lspRange{
		Start: position{Line: s.startLine, Character: s.startChar},
		End:   position{Line: s.endLine, Character: s.endChar},
	}
}

func newDocument(uri, text string) *document {
	d := &document{
		uri:  uri,
		cmds: make(map[int][]ducky.Command),
		errs: make(map[int][]*ducky.LineError),
	}
	d.setText(text)
	return d
}

func (d *document) setText(text string) {
	d.text = text
	d.lines = ducky.SplitLines(text)
	d.res = ducky.ParseMaxRepeat(text, maxRepeat)
	clear(d.cmds)
	for _, c := range d.res.Commands {
		d.cmds[c.Line-1] = append(d.cmds[c.Line-1], c)
	}
	clear(d.errs)
	for _, e := range d.res.Errors {
		d.errs[e.Line-1] = append(d.errs[e.Line-1], e)
	}
}

// lineSpan returns the span of the whole 0-indexed line.
func (d *document) lineSpan(line int) span {
	n := 0
	if line >= 0 && line < len(d.lines) {
		n = utf16Len(d.lines[line])
	}
	return span{line, 0, line, n}
}

// hover returns the generated statements for the 0-indexed line.
func (d *document) hover(line int) (string, bool) {
	cmds := d.cmds[line]
	if len(cmds) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, c := range cmds {
		b.WriteString(arduino.Statement(c))
	}
	return b.String(), true
}

// vocabulary holds every word that may start a line.
var vocabulary = func() []string {
	words := []string{"REM", "STRING", "DELAY", "REPEAT", "CTRL", "CONTROL", "ALT", "SHIFT", "GUI", "WINDOWS"}
	for _, k := range ducky.Keys() {
		if k != ducky.GUI && k != ducky.WINDOWS {
			words = append(words, k.String())
		}
	}
	return words
}()

// chordWords are the words that may follow a modifier.
var chordWords = func() []string {
	words := []string{"CTRL", "CONTROL", "ALT", "SHIFT", "GUI", "WINDOWS", "WIN"}
	for _, k := range ducky.Keys() {
		if k != ducky.GUI && k != ducky.WINDOWS {
			words = append(words, k.String())
		}
	}
	return words
}()

// complete returns completions for the word under the cursor. Only the
// first word of a line and the words of a chord are completed.
func (d *document) complete(line, char int) []completionItem {
	if line < 0 || line >= len(d.lines) {
		return nil
	}
	before := utf16Prefix(d.lines[line], char)
	fields := fieldsAt(before)
	prefix := ""
	if n := len(fields); n > 0 && fields[n-1].end == utf16Len(before) {
		prefix = fields[n-1].text
		fields = fields[:n-1]
	}

	words := vocabulary
	kind := completionKeyword
	if len(fields) > 0 {
		if !ducky.IsModifier(strings.ToUpper(fields[0].text)) {
			return nil
		}
		words = chordWords
		kind = completionConstant
	}
	var items []completionItem
	for _, w := range words {
		if prefix == "" || fuzzy.MatchFold(prefix, w) {
			items = append(items, completionItem{Label: w, Kind: kind})
		}
	}
	return items
}

// quickFixes returns replacements for unknown commands on lines
// first through last (0-indexed, inclusive).
func (d *document) quickFixes(first, last int) []codeAction {
	var actions []codeAction
	for _, e := range d.res.Errors {
		line := e.Line - 1
		if line < first || line > last || !errors.Is(e, ducky.ErrUnknownCommand) {
			continue
		}
		fields := fieldsAt(d.lines[line])
		if len(fields) == 0 {
			continue
		}
		tok := fields[0]
		for _, s := range suggest(tok.text) {
			var a codeAction
			a.Title = fmt.Sprintf("Replace with '%s'", s)
			a.Kind = "quickfix"
			a.Edit.Changes = map[string][]textEdit{
				d.uri: {{Range: span{line, tok.start, line, tok.end}.toLSP(), NewText: s}},
			}
			actions = append(actions, a)
		}
	}
	return actions
}

// maxSuggestions bounds the quick fixes offered per unknown command.
const maxSuggestions = 3

// suggest returns the vocabulary words closest to an unknown token:
// words containing its letters in order first, then words within a
// small edit distance.
func suggest(token string) []string {
	ranks := fuzzy.RankFindFold(token, vocabulary)
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	if len(out) == 0 {
		upper := strings.ToUpper(token)
		type near struct {
			word string
			dist int
		}
		var nears []near
		for _, w := range vocabulary {
			if dist := fuzzy.LevenshteinDistance(upper, w); dist <= 2 {
				nears = append(nears, near{w, dist})
			}
		}
		sort.SliceStable(nears, func(i, j int) bool { return nears[i].dist < nears[j].dist })
		for _, n := range nears {
			out = append(out, n.word)
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func (d *document) semanticTokens() []uint32 {
	const (
		tokComment  = 0
		tokKeyword  = 1
		tokFunction = 2 // simple keys
		tokString   = 3 // STRING text
		tokNumber   = 4
		tokModifier = 5
	)
	var tokens []semToken
	for i, line := range d.lines {
		fields := fieldsAt(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0].text, "REM") {
			tokens = append(tokens, semToken{i, fields[0].start, utf16Len(line) - fields[0].start, tokComment})
			continue
		}
		if len(d.errs[i]) > 0 {
			continue
		}
		switch strings.ToUpper(fields[0].text) {
		case "STRING":
			tokens = append(tokens, semToken{i, fields[0].start, fields[0].end - fields[0].start, tokKeyword})
			if len(fields) > 1 {
				tokens = append(tokens, semToken{i, fields[1].start, utf16Len(line) - fields[1].start, tokString})
			}
			continue
		case "DELAY", "REPEAT":
			tokens = append(tokens, semToken{i, fields[0].start, fields[0].end - fields[0].start, tokKeyword})
			if len(fields) > 1 {
				tokens = append(tokens, semToken{i, fields[1].start, fields[1].end - fields[1].start, tokNumber})
			}
			continue
		}
		for _, f := range fields {
			upper := strings.ToUpper(f.text)
			typ := -1
			if ducky.IsModifier(upper) {
				typ = tokModifier
			} else if _, ok := ducky.LookupKey(upper); ok {
				typ = tokFunction
			}
			if typ >= 0 {
				tokens = append(tokens, semToken{i, f.start, f.end - f.start, typ})
			}
		}
	}

	if len(tokens) == 0 {
		return nil
	}
	data := make([]uint32, 0, len(tokens)*5)
	prevLine, prevChar := 0, 0
	for _, t := range tokens {
		deltaLine := t.line - prevLine
		deltaChar := t.start
		if deltaLine == 0 {
			deltaChar = t.start - prevChar
		}
		data = append(data, uint32(deltaLine), uint32(deltaChar), uint32(t.length), uint32(t.typ), 0)
		prevLine, prevChar = t.line, t.start
	}
	return data
}

type semToken struct {
	line, start, length, typ int
}

// Helpers

// field is a whitespace separated word with its UTF-16 column range.
type field struct {
	text       string
	start, end int
}

func fieldsAt(line string) []field {
	var fields []field
	col := 0
	start, startCol := -1, 0
	for i, r := range line {
		if ducky.IsSpace(r) {
			if start >= 0 {
				fields = append(fields, field{line[start:i], startCol, col})
				start = -1
			}
		} else if start < 0 {
			start, startCol = i, col
		}
		col += utf16Len(string(r))
	}
	if start >= 0 {
		fields = append(fields, field{line[start:], startCol, col})
	}
	return fields
}

// utf16Prefix returns the longest prefix of s spanning at most n UTF-16 units.
func utf16Prefix(s string, n int) string {
	col := 0
	for i, r := range s {
		w := utf16Len(string(r))
		if col+w > n {
			return s[:i]
		}
		col += w
	}
	return s
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
