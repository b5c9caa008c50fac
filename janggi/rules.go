package janggi

import "fmt"

type offset struct{ dr, dc int }

var orthogonal = [...]offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

var diagonal = [...]offset{{-1, 1}, {-1, -1}, {1, 1}, {1, -1}}

// palaceCenters are the centers of BLUE's and RED's palaces.
var palaceCenters = [...]offset{{1, 4}, {8, 4}}

// palaceRow returns the lowest row of a color's palace.
func palaceRow(c Color) int {
	if c == Blue {
		return 0
	}
	return Height - 3
}

func inPalace(row, col int, c Color) bool {
	r := palaceRow(c)
	return row >= r && row <= r+2 && col >= 3 && col <= 5
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// leap is a bent jump: every square of path must be empty and the piece lands
// on to.
type leap struct {
	path []offset
	to   offset
}

// bentLeaps builds the eight jumps made of one orthogonal step followed by
// diag diagonal steps away from the origin.
func bentLeaps(diag int) []leap {
	var leaps []leap
	for _, s := range diagonal {
		vertical := leap{path: []offset{{s.dr, 0}}}
		horizontal := leap{path: []offset{{0, s.dc}}}
		for i := 1; i < diag; i++ {
			vertical.path = append(vertical.path, offset{s.dr * (1 + i), s.dc * i})
			horizontal.path = append(horizontal.path, offset{s.dr * i, s.dc * (1 + i)})
		}
		vertical.to = offset{s.dr * (1 + diag), s.dc * diag}
		horizontal.to = offset{s.dr * diag, s.dc * (1 + diag)}
		leaps = append(leaps, vertical, horizontal)
	}
	return leaps
}

var (
	horseLeaps    = bentLeaps(1)
	elephantLeaps = bentLeaps(2)
)

// Destinations appends the pseudo-legal moves of p to dst. Moves that leave
// the own general in check are not filtered here.
func (b *Board) Destinations(p *Piece, dst []Action) []Action {
	switch p.Kind {
	case Soldier:
		return b.soldierMoves(p, dst)
	case Cannon:
		return b.cannonMoves(p, dst)
	case General, Guard:
		return b.palaceMoves(p, dst)
	case Chariot:
		return b.chariotMoves(p, dst)
	case Elephant:
		return b.leapMoves(p, elephantLeaps, dst)
	case Horse:
		return b.leapMoves(p, horseLeaps, dst)
	}
	panic(fmt.Sprintf("janggi: unknown piece kind %v", p.Kind))
}

// canLand reports whether p may finish a move on the square.
func (b *Board) canLand(p *Piece, row, col int) bool {
	if !onBoard(row, col) {
		return false
	}
	q := b.grid[row][col]
	return q == empty || b.pieces[q].Color != p.Color
}

func (b *Board) appendIfLands(p *Piece, row, col int, dst []Action) []Action {
	if b.canLand(p, row, col) {
		dst = append(dst, NewAction(p.Row, p.Col, row, col))
	}
	return dst
}

func (b *Board) soldierMoves(p *Piece, dst []Action) []Action {
	forward := p.Row + int(p.Color)
	dst = b.appendIfLands(p, p.Row, p.Col-1, dst)
	dst = b.appendIfLands(p, p.Row, p.Col+1, dst)
	dst = b.appendIfLands(p, forward, p.Col, dst)

	// inside the enemy palace soldiers also follow the diagonals forward
	center := palaceRow(p.Color.Other()) + 1
	switch {
	case p.Row == center-int(p.Color) && (p.Col == 3 || p.Col == 5):
		dst = b.appendIfLands(p, center, 4, dst)
	case p.Row == center && p.Col == 4:
		dst = b.appendIfLands(p, forward, 3, dst)
		dst = b.appendIfLands(p, forward, 5, dst)
	}
	return dst
}

func (b *Board) cannonMoves(p *Piece, dst []Action) []Action {
	for _, d := range orthogonal {
		screened := false
	ray:
		for r, c := p.Row+d.dr, p.Col+d.dc; onBoard(r, c); r, c = r+d.dr, c+d.dc {
			q := b.At(r, c)
			switch {
			case q == nil:
				if screened {
					dst = append(dst, NewAction(p.Row, p.Col, r, c))
				}
			case q.Kind == Cannon:
				break ray
			case !screened:
				screened = true
			default:
				if q.Color != p.Color {
					dst = append(dst, NewAction(p.Row, p.Col, r, c))
				}
				break ray
			}
		}
	}

	// jumps over an occupied palace center, corner to corner
	for _, center := range palaceCenters {
		dr, dc := center.dr-p.Row, center.dc-p.Col
		if abs(dr) != 1 || abs(dc) != 1 {
			continue
		}
		screen := b.At(center.dr, center.dc)
		if screen == nil || screen.Kind == Cannon {
			continue
		}
		r, c := center.dr+dr, center.dc+dc
		if q := b.At(r, c); q == nil || (q.Color != p.Color && q.Kind != Cannon) {
			dst = append(dst, NewAction(p.Row, p.Col, r, c))
		}
	}
	return dst
}

// palaceMoves covers the general and the guards: single steps inside the own
// palace, diagonally only from a corner or the center.
func (b *Board) palaceMoves(p *Piece, dst []Action) []Action {
	top := palaceRow(p.Color)
	diagonals := (p.Row == top+1) == (p.Col == 4)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if dr != 0 && dc != 0 && !diagonals {
				continue
			}
			r, c := p.Row+dr, p.Col+dc
			if !inPalace(r, c, p.Color) {
				continue
			}
			dst = b.appendIfLands(p, r, c, dst)
		}
	}
	return dst
}

func (b *Board) chariotMoves(p *Piece, dst []Action) []Action {
	for _, d := range orthogonal {
		for r, c := p.Row+d.dr, p.Col+d.dc; onBoard(r, c); r, c = r+d.dr, c+d.dc {
			q := b.At(r, c)
			if q == nil {
				dst = append(dst, NewAction(p.Row, p.Col, r, c))
				continue
			}
			if q.Color != p.Color {
				dst = append(dst, NewAction(p.Row, p.Col, r, c))
			}
			break
		}
	}

	for _, center := range palaceCenters {
		dr, dc := center.dr-p.Row, center.dc-p.Col
		switch {
		case abs(dr) == 1 && abs(dc) == 1:
			q := b.At(center.dr, center.dc)
			if q != nil {
				if q.Color != p.Color {
					dst = append(dst, NewAction(p.Row, p.Col, center.dr, center.dc))
				}
				continue
			}
			dst = append(dst, NewAction(p.Row, p.Col, center.dr, center.dc))
			dst = b.appendIfLands(p, center.dr+dr, center.dc+dc, dst)
		case dr == 0 && dc == 0:
			for _, d := range diagonal {
				dst = b.appendIfLands(p, p.Row+d.dr, p.Col+d.dc, dst)
			}
		}
	}
	return dst
}

func (b *Board) leapMoves(p *Piece, leaps []leap, dst []Action) []Action {
next:
	for _, l := range leaps {
		r, c := p.Row+l.to.dr, p.Col+l.to.dc
		if !b.canLand(p, r, c) {
			continue
		}
		for _, o := range l.path {
			if b.grid[p.Row+o.dr][p.Col+o.dc] != empty {
				continue next
			}
		}
		dst = append(dst, NewAction(p.Row, p.Col, r, c))
	}
	return dst
}

// Threatens is a cheap geometric test: it reports whether p could ever reach
// the square from where it stands, ignoring every other piece. A false answer
// means no pseudo-legal move of p lands there.
func (b *Board) Threatens(p *Piece, row, col int) bool {
	dr, dc := abs(row-p.Row), abs(col-p.Col)
	switch p.Kind {
	case Chariot, Cannon:
		if dr == 0 || dc == 0 {
			return true
		}
		for _, c := range [...]Color{Blue, Red} {
			if inPalace(p.Row, p.Col, c) && inPalace(row, col, c) {
				return true
			}
		}
		return false
	case Horse:
		return (dr == 1 && dc == 2) || (dr == 2 && dc == 1)
	case Elephant:
		return (dr == 2 && dc == 3) || (dr == 3 && dc == 2)
	case Soldier, General, Guard:
		return dr <= 1 && dc <= 1
	}
	return true
}
