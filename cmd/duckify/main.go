/*
Command duckify translates DuckyScript into an Arduino sketch that types the
same keystrokes through an emulated USB keyboard.

# Usage

	duckify [global flags] convert [flags] <script|->
	duckify [global flags] check <script|->
	duckify [global flags] watch -o <sketch.ino|dir> <script>

convert writes the sketch to stdout, or to the file named by -o. The
--format flag selects the output: "ino" (the sketch), "json" (sketch,
diagnostics and parsed commands) or "html" (a report page).

check only reports diagnostics and fails if there are any.

watch regenerates the sketch every time the script is saved, until
interrupted. If -o names a directory the sketch is written there as
duckify_plus.ino.

Diagnostics are written to stderr as

	script.ducky: Line 3: DELAY requires a number

and do not stop generation unless --strict is given.

# Configuration

Global flags may also be set through the environment (DUCKIFY_LAYOUT,
DUCKIFY_BOARD, DUCKIFY_CONFIG) or a TOML file named by --config:

	[sketch]
	layout = "de"
	board = "proMicro"

	[output]
	format = "ino"
	strict = true

Flags win over the environment, which wins over the file.
*/
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	app.ErrWriter = colorable.NewColorableStderr()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "duckify: %v\n", err)
		os.Exit(1)
	}
}

var (
	layoutFlag = &cli.StringFlag{
		Name:    "layout",
		Usage:   "keyboard layout of the target host: us, de, uk",
		EnvVars: []string{"DUCKIFY_LAYOUT"},
	}
	boardFlag = &cli.StringFlag{
		Name:    "board",
		Usage:   "target board: leonardo, duemilanove, proMicro",
		EnvVars: []string{"DUCKIFY_BOARD"},
	}
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"DUCKIFY_CONFIG"},
	}
	colorFlag = &cli.StringFlag{
		Name:  "color",
		Usage: "colorize diagnostics: auto, always, never",
		Value: "auto",
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write the result to `FILE` instead of stdout",
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "output format: ino, json, html",
	}
	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "fail if the script has diagnostics",
	}
	exampleFlag = &cli.BoolFlag{
		Name:  "example",
		Usage: "print an example script and exit",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "duckify",
		Usage: "translate DuckyScript into an Arduino keyboard sketch",
		Flags: []cli.Flag{
			fresh(layoutFlag),
			fresh(boardFlag),
			fresh(configFlag),
			fresh(colorFlag),
		},
		Commands: []*cli.Command{
			commandConvert,
			commandCheck,
			commandWatch,
		},
	}
}

// fresh returns a copy of f. Flags record values read from the
// environment, so each App gets its own.
func fresh(f *cli.StringFlag) *cli.StringFlag {
	c := *f
	return &c
}
