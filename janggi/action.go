package janggi

import "fmt"

// NumClasses is the size of the move class encoding used for policy planes.
const NumClasses = 58

// Action moves the piece on the from square to the to square. It is a plain
// value: two actions are equal when their coordinates are equal.
type Action struct {
	FromRow, FromCol int8
	ToRow, ToCol     int8
}

// Pass is the action offered when a side has no legal move. Applying it
// changes nothing but the side to move.
var Pass = Action{}

// NewAction builds an action from board coordinates.
func NewAction(fromRow, fromCol, toRow, toCol int) Action {
	return Action{int8(fromRow), int8(fromCol), int8(toRow), int8(toCol)}
}

// IsPass reports whether the action leaves its square unchanged.
func (a Action) IsPass() bool { return a.FromRow == a.ToRow && a.FromCol == a.ToCol }

// Row returns the origin row, mirrored when symX is set.
func (a Action) Row(symX bool) int {
	if symX {
		return Height - 1 - int(a.FromRow)
	}
	return int(a.FromRow)
}

// Col returns the origin column, mirrored when symY is set.
func (a Action) Col(symY bool) int {
	if symY {
		return Width - 1 - int(a.FromCol)
	}
	return int(a.FromCol)
}

// shapeClasses maps the non straight offsets (dr+3, dc+3) to their class.
// Unused entries are -1.
var shapeClasses = func() (t [7][7]int8) {
	for i := range t {
		for j := range t[i] {
			t[i][j] = -1
		}
	}
	set := func(dr, dc int, class int8) { t[dr+3][dc+3] = class }

	set(1, 1, 34)
	set(-1, 1, 35)
	set(1, -1, 36)
	set(-1, -1, 37)

	set(2, 2, 38)
	set(-2, 2, 39)
	set(2, -2, 40)
	set(-2, -2, 41)

	set(2, 1, 42)
	set(-2, 1, 43)
	set(2, -1, 44)
	set(-2, -1, 45)
	set(1, 2, 46)
	set(1, -2, 47)
	set(-1, 2, 48)
	set(-1, -2, 49)

	set(3, 2, 50)
	set(-3, 2, 51)
	set(3, -2, 52)
	set(-3, -2, 53)
	set(2, 3, 54)
	set(2, -3, 55)
	set(-2, 3, 56)
	set(-2, -3, 57)
	return t
}()

// MoveClass returns the index in [0, NumClasses) describing the direction and
// distance of the move. symX mirrors rows and symY mirrors columns before the
// move is classified. A pass has no class and returns -1.
//
// Straight moves are encoded by distance:
//	north 0..8, south 9..17, east 18..25, west 26..33
// Diagonal, horse and elephant shapes use the fixed classes 34..57.
func (a Action) MoveClass(symX, symY bool) int {
	dr := int(a.ToRow) - int(a.FromRow)
	dc := int(a.ToCol) - int(a.FromCol)
	if symX {
		dr = -dr
	}
	if symY {
		dc = -dc
	}
	switch {
	case dr == 0 && dc == 0:
		return -1
	case dc == 0 && dr > 0:
		return dr - 1
	case dc == 0:
		return -dr + 8
	case dr == 0 && dc > 0:
		return dc + 17
	case dr == 0:
		return -dc + 25
	case dr < -3 || dr > 3 || dc < -3 || dc > 3:
		return -1
	}
	return int(shapeClasses[dr+3][dc+3])
}

// Symmetries returns the mirrors that put the side to move at the bottom of
// the board: RED sees the board flipped on both axes.
func Symmetries(toMove Color) (symX, symY bool) {
	if toMove == Red {
		return true, true
	}
	return false, false
}

// PolicyIndex is the position of a in a flattened (NumClasses, Height, Width)
// policy seen by color, column mirrored when augmented. A pass returns -1.
func (a Action) PolicyIndex(color Color, augmented bool) int {
	symX, symY := Symmetries(color)
	if augmented {
		symY = !symY
	}
	class := a.MoveClass(symX, symY)
	if class < 0 {
		return -1
	}
	return class*Height*Width + a.Row(symX)*Width + a.Col(symY)
}

func (a Action) String() string {
	if a.IsPass() {
		return "pass"
	}
	return a.UCI()
}

// GoString prints the raw coordinates.
func (a Action) GoString() string {
	return fmt.Sprintf("Action(%d, %d, %d, %d)", a.FromRow, a.FromCol, a.ToRow, a.ToCol)
}
