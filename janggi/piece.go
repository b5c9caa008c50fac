package janggi

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	Height = 10
	Width  = 9

	// NumKinds is the number of piece types per side.
	NumKinds = 7
)

// Color is the side a piece belongs to. Negating a Color gives the opponent.
type Color int8

const (
	Blue Color = 1
	Red  Color = -1
)

// Other returns the opponent's color.
func (c Color) Other() Color { return -c }

func (c Color) index() int {
	if c == Blue {
		return 0
	}
	return 1
}

func (c Color) String() string {
	switch c {
	case Blue:
		return "BLUE"
	case Red:
		return "RED"
	}
	return fmt.Sprintf("Color(%d)", int8(c))
}

// ParseColor reads the names produced by Color.String.
func ParseColor(s string) (Color, error) {
	switch s {
	case "BLUE", "blue":
		return Blue, nil
	case "RED", "red":
		return Red, nil
	}
	return 0, errors.Errorf("unknown color %q", s)
}

// Kind is a piece type. The order of the constants is the feature plane index.
type Kind uint8

const (
	Soldier Kind = iota
	Cannon
	General
	Chariot
	Elephant
	Horse
	Guard
)

var kindPoints = [NumKinds]float32{2, 7, 0, 13, 3, 5, 3}

var kindRunes = [NumKinds]rune{'S', 'C', 'K', 'R', 'E', 'H', 'G'}

// Index is the feature plane of the kind, from the point of view of its owner.
func (k Kind) Index() int { return int(k) }

// Points is the material value of the kind.
func (k Kind) Points() float32 { return kindPoints[k] }

func (k Kind) Rune() rune { return kindRunes[k] }

func (k Kind) String() string {
	switch k {
	case Soldier:
		return "Soldier"
	case Cannon:
		return "Cannon"
	case General:
		return "General"
	case Chariot:
		return "Chariot"
	case Elephant:
		return "Elephant"
	case Horse:
		return "Horse"
	case Guard:
		return "Guard"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Piece is owned by a Board. Row and Col always match its square on the grid,
// including after it has been captured.
type Piece struct {
	Kind  Kind
	Color Color
	Row   int
	Col   int
	Alive bool
}

// code is the byte the piece contributes to a board Signature.
func (p *Piece) code() byte {
	c := byte(p.Kind) + 1
	if p.Color == Red {
		c += NumKinds
	}
	return c
}

func (p *Piece) String() string {
	r := p.Kind.Rune()
	if p.Color == Red {
		r += 'a' - 'A'
	}
	return string(r)
}
