package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"blake.io/ducky"
	"blake.io/ducky/arduino"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
)

// defaultSketchName is used when -o names a directory.
const defaultSketchName = "duckify_plus.ino"

var commandWatch = &cli.Command{
	Name:      "watch",
	Usage:     "regenerate the sketch whenever the script changes",
	ArgsUsage: "<script>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     outputFlag.Name,
			Aliases:  outputFlag.Aliases,
			Usage:    "write the sketch to `FILE`, or into it as " + defaultSketchName + " if it is a directory",
			Required: true,
		},
	},
	Action: func(ctx *cli.Context) error {
		s, err := loadSettings(ctx)
		if err != nil {
			return err
		}
		src := ctx.Args().First()
		if src == "" || src == "-" {
			return errors.New("watch needs a script file")
		}
		dst := ctx.String(outputFlag.Name)
		if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
			dst = filepath.Join(dst, defaultSketchName)
		}

		logger := log.New(ctx.App.ErrWriter, "duckify: ", 0)
		c, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
		defer stop()
		return watch(c, src, dst, s.opts, func(res ducky.Result, err error) {
			if err != nil {
				logger.Print(err)
				return
			}
			printDiagnostics(ctx.App.ErrWriter, src, res, s.color)
			logger.Printf("wrote %s (%d commands, %d diagnostics)", dst, len(res.Commands), len(res.Errors))
		})
	},
}

// watch builds dst from src once, then again on every change to src,
// until ctx is done. built is called after every build.
//
// The directory is watched rather than the file, so editors that save by
// replacing the file are followed.
func watch(ctx context.Context, src, dst string, opts arduino.Options, built func(ducky.Result, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(src)); err != nil {
		return fmt.Errorf("watch %s: %w", src, err)
	}

	build := func() {
		built(buildFile(src, dst, opts))
	}
	build()

	want := filepath.Clean(src)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != want {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				build()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", src, err)
		}
	}
}

func buildFile(src, dst string, opts arduino.Options) (ducky.Result, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return ducky.Result{}, err
	}
	res := ducky.Parse(string(data))
	if err := os.WriteFile(dst, []byte(arduino.Generate(res.Commands, opts)), 0o644); err != nil {
		return res, err
	}
	return res, nil
}
