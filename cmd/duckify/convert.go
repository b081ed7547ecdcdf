package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"blake.io/ducky"
	"blake.io/ducky/arduino"
	"blake.io/ducky/report"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// exampleScript is printed by convert --example.
const exampleScript = `REM Example DuckyScript
DELAY 500
STRING Hello, world!
ENTER
`

var commandConvert = &cli.Command{
	Name:      "convert",
	Usage:     "translate a script into a sketch",
	ArgsUsage: "<script|->",
	Description: `
Translate the script into an Arduino sketch. With no argument, or "-",
the script is read from stdin.

Lines that cannot be understood are reported on stderr and skipped; the
sketch is still written unless --strict is given.`,
	Flags: []cli.Flag{
		outputFlag,
		formatFlag,
		strictFlag,
		exampleFlag,
	},
	Action: convert,
}

var commandCheck = &cli.Command{
	Name:      "check",
	Usage:     "report diagnostics without generating a sketch",
	ArgsUsage: "<script|->",
	Action: func(ctx *cli.Context) error {
		s, err := loadSettings(ctx)
		if err != nil {
			return err
		}
		name, src, err := readScript(ctx)
		if err != nil {
			return err
		}
		res := ducky.Parse(src)
		printDiagnostics(ctx.App.ErrWriter, name, res, s.color)
		if !res.OK() {
			return &diagnosticsError{name: name, n: len(res.Errors)}
		}
		return nil
	},
}

func convert(ctx *cli.Context) error {
	if ctx.Bool(exampleFlag.Name) {
		_, err := io.WriteString(ctx.App.Writer, exampleScript)
		return err
	}
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	name, src, err := readScript(ctx)
	if err != nil {
		return err
	}

	res := ducky.Parse(src)
	printDiagnostics(ctx.App.ErrWriter, name, res, s.color)
	if s.strict && !res.OK() {
		return &diagnosticsError{name: name, n: len(res.Errors)}
	}

	out, err := render(s, name, src, res)
	if err != nil {
		return err
	}
	if file := ctx.String(outputFlag.Name); file != "" {
		return os.WriteFile(file, out, 0o644)
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}

// jsonOutput is the --format=json document.
type jsonOutput struct {
	Sketch   string        `json:"sketch"`
	Errors   []string      `json:"errors"`
	Commands []jsonCommand `json:"commands"`
}

type jsonCommand struct {
	Type string   `json:"type"`
	Args []string `json:"args"`
	Line int      `json:"line"`
}

func render(s settings, name, src string, res ducky.Result) ([]byte, error) {
	sketch := arduino.Generate(res.Commands, s.opts)
	switch s.format {
	case "json":
		out := jsonOutput{
			Sketch:   sketch,
			Errors:   res.Messages(),
			Commands: make([]jsonCommand, len(res.Commands)),
		}
		for i, c := range res.Commands {
			args := c.Args
			if args == nil {
				args = []string{}
			}
			out.Commands[i] = jsonCommand{Type: c.Kind.String(), Args: args, Line: c.Line}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "html":
		var buf bytes.Buffer
		err := report.Render(&buf, report.Page{
			Title:   name,
			Script:  src,
			Result:  res,
			Sketch:  sketch,
			Options: s.opts,
		})
		return buf.Bytes(), err
	}
	return []byte(sketch), nil
}

// readScript reads the script named by the first argument,
// or stdin if there is none or it is "-".
func readScript(ctx *cli.Context) (name, src string, err error) {
	if ctx.Args().Len() > 1 {
		return "", "", errors.New("too many arguments; want a single script")
	}
	name = ctx.Args().First()
	var data []byte
	if name == "" || name == "-" {
		name = "<stdin>"
		r := ctx.App.Reader
		if r == nil {
			r = os.Stdin
		}
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", "", err
	}
	return name, string(data), nil
}

// diagnosticsError reports that a script had diagnostics in strict mode.
type diagnosticsError struct {
	name string
	n    int
}

func (e *diagnosticsError) Error() string {
	return fmt.Sprintf("%s: %d line(s) could not be translated", e.name, e.n)
}

// printDiagnostics writes one line per error as "name: Line n: message".
func printDiagnostics(w io.Writer, name string, res ducky.Result, colorize bool) {
	nameColor := color.New(color.Bold)
	lineColor := color.New(color.FgRed)
	// The package default follows stdout; the caller decided for stderr.
	nameColor.EnableColor()
	lineColor.EnableColor()
	for _, e := range res.Errors {
		if !colorize {
			fmt.Fprintf(w, "%s: %s\n", name, e)
			continue
		}
		nameColor.Fprintf(w, "%s: ", name)
		lineColor.Fprintf(w, "Line %d:", e.Line)
		fmt.Fprintf(w, " %s\n", e.Message())
	}
}
