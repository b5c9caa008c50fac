package janggi

import "github.com/pkg/errors"

// ErrUnknownLayout is returned when a starting layout tag cannot be read.
var ErrUnknownLayout = errors.New("unknown starting layout")

// Layout is the arrangement of horses and elephants on the back rank.
type Layout uint8

const (
	Yang Layout = iota // elephant horse horse elephant
	Won                // horse elephant elephant horse
	Gwee               // elephant horse elephant horse
	Sang               // horse elephant horse elephant
)

// Layouts lists every starting layout.
var Layouts = [...]Layout{Yang, Won, Gwee, Sang}

var layoutNames = [...]string{"yang", "won", "gwee", "sang"}

// backRank is the kind on columns 1, 2, 6 and 7, as seen by BLUE.
var backRank = [...][4]Kind{
	Yang: {Elephant, Horse, Horse, Elephant},
	Won:  {Horse, Elephant, Elephant, Horse},
	Gwee: {Elephant, Horse, Elephant, Horse},
	Sang: {Horse, Elephant, Horse, Elephant},
}

var backRankCols = [4]int{1, 2, 6, 7}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "unknown"
}

// ParseLayout reads the tags produced by Layout.String.
func ParseLayout(s string) (Layout, error) {
	for i, name := range layoutNames {
		if name == s {
			return Layout(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownLayout, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(b []byte) error {
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// kindAt returns the back rank piece the layout puts on col for color. RED's
// arrangement is BLUE's mirrored across the board.
func (l Layout) kindAt(color Color, col int) (Kind, bool) {
	if color == Red {
		col = Width - 1 - col
	}
	for i, c := range backRankCols {
		if c == col {
			return backRank[l][i], true
		}
	}
	return 0, false
}
