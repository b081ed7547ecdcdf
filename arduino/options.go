package arduino

import (
	"fmt"
	"slices"
)

// Layout is a host keyboard layout.
type Layout string

// Supported layouts.
const (
	US Layout = "us"
	DE Layout = "de"
	UK Layout = "uk"
)

// Board is a target microcontroller board.
type Board string

// Supported boards. All of them run the Arduino Keyboard library.
const (
	Leonardo    Board = "leonardo"
	Duemilanove Board = "duemilanove"
	ProMicro    Board = "proMicro"
)

var (
	layouts = []Layout{US, DE, UK}
	boards  = []Board{Leonardo, Duemilanove, ProMicro}
)

// Layouts returns the supported layouts.
func Layouts() []Layout { return slices.Clone(layouts) }

// Boards returns the supported boards.
func Boards() []Board { return slices.Clone(boards) }

// ParseLayout returns the Layout named s.
func ParseLayout(s string) (Layout, error) {
	if l := Layout(s); slices.Contains(layouts, l) {
		return l, nil
	}
	return "", fmt.Errorf("unknown keyboard layout %q (want one of %v)", s, layouts)
}

// ParseBoard returns the Board named s.
func ParseBoard(s string) (Board, error) {
	if b := Board(s); slices.Contains(boards, b) {
		return b, nil
	}
	return "", fmt.Errorf("unknown board %q (want one of %v)", s, boards)
}

// Options configures sketch generation.
//
// The layout and board are recorded for the caller; the emitted sketch
// is currently the same for every combination.
type Options struct {
	Layout Layout
	Board  Board
}

// DefaultOptions is a US layout on a Leonardo.
var DefaultOptions = Options{Layout: US, Board: Leonardo}

// Validate reports an error if o names an unknown layout or board.
func (o Options) Validate() error {
	if _, err := ParseLayout(string(o.Layout)); err != nil {
		return err
	}
	if _, err := ParseBoard(string(o.Board)); err != nil {
		return err
	}
	return nil
}
