package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"blake.io/ducky/arduino"
	"github.com/mattn/go-isatty"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// These settings ensure that TOML keys use the same names as the
// lowercased Go struct fields, and unknown keys are errors.
var tomlSettings = toml.Config{
	NormFieldName: toml.DefaultConfig.NormFieldName,
	FieldToKey:    toml.DefaultConfig.FieldToKey,
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// fileConfig is the layout of the --config file.
type fileConfig struct {
	Sketch struct {
		Layout string
		Board  string
	}
	Output struct {
		Format string
		Strict bool
	}
}

func loadConfig(file string, cfg *fileConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	var lerr *toml.LineError
	if errors.As(err, &lerr) {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// settings are the resolved options of one invocation.
type settings struct {
	opts   arduino.Options
	format string
	strict bool
	color  bool
}

// loadSettings merges flags, environment, config file and defaults,
// in that order of precedence.
func loadSettings(ctx *cli.Context) (settings, error) {
	var cfg fileConfig
	if file := ctx.String(configFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return settings{}, err
		}
	}

	pick := func(flag *cli.StringFlag, fromFile, def string) string {
		if ctx.IsSet(flag.Name) {
			return ctx.String(flag.Name)
		}
		if fromFile != "" {
			return fromFile
		}
		return def
	}

	var s settings
	var err error
	s.opts.Layout, err = arduino.ParseLayout(pick(layoutFlag, cfg.Sketch.Layout, string(arduino.DefaultOptions.Layout)))
	if err != nil {
		return settings{}, err
	}
	s.opts.Board, err = arduino.ParseBoard(pick(boardFlag, cfg.Sketch.Board, string(arduino.DefaultOptions.Board)))
	if err != nil {
		return settings{}, err
	}

	s.format = pick(formatFlag, cfg.Output.Format, "ino")
	switch s.format {
	case "ino", "json", "html":
	default:
		return settings{}, fmt.Errorf("unknown output format %q (want ino, json or html)", s.format)
	}

	s.strict = cfg.Output.Strict
	if ctx.IsSet(strictFlag.Name) {
		s.strict = ctx.Bool(strictFlag.Name)
	}

	switch mode := ctx.String(colorFlag.Name); mode {
	case "always":
		s.color = true
	case "never":
	case "auto", "":
		s.color = stderrIsTerminal()
	default:
		return settings{}, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
	}
	return s, nil
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
