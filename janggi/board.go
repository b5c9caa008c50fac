package janggi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxRepetitions is how many times a position may be reached before
// the moves leading back to it are no longer offered.
const DefaultMaxRepetitions = 3

const empty int8 = -1

// Signature identifies a piece placement. It is comparable and used as the
// key of the repetition history.
type Signature [Height * Width]byte

// Undo is returned by Apply and must be handed back to Reverse, most recent
// first.
type Undo struct {
	Action   Action
	captured int8
	before   Signature
	seq      uint32
}

// Captured reports whether the move took a piece.
func (u *Undo) Captured() bool { return u.captured != empty }

// Board is the mutable game state. It is not safe for concurrent use; search
// threads work on their own Clone.
type Board struct {
	pieces   []Piece
	grid     [Height][Width]int8
	byColor  [2][]int8
	generals [2]int8
	sig      Signature

	blue, red      Layout
	maxRepetitions int
	history        map[Signature]int

	cache *cacheNode
	stack []Undo
	seq   uint32

	// scratch space for check detection
	threats []Action
}

// NewEmptyBoard returns a board with no pieces, for setting up positions with
// Place.
func NewEmptyBoard(maxRepetitions int) *Board {
	b := &Board{
		generals:       [2]int8{empty, empty},
		maxRepetitions: maxRepetitions,
		history:        make(map[Signature]int),
		cache:          newCacheNode(nil),
	}
	for r := range b.grid {
		for c := range b.grid[r] {
			b.grid[r][c] = empty
		}
	}
	return b
}

// NewBoard returns the starting position for the given back rank layouts.
func NewBoard(blue, red Layout, maxRepetitions int) *Board {
	b := NewEmptyBoard(maxRepetitions)
	b.blue, b.red = blue, red

	var setup [Height][Width]*Piece
	put := func(k Kind, color Color, row, col int) {
		setup[row][col] = &Piece{Kind: k, Color: color, Row: row, Col: col}
	}
	for col := 0; col < Width; col += 2 {
		put(Soldier, Blue, 3, col)
		put(Soldier, Red, 6, col)
	}
	for _, col := range [...]int{1, 7} {
		put(Cannon, Blue, 2, col)
		put(Cannon, Red, 7, col)
	}
	put(General, Blue, 1, 4)
	put(General, Red, 8, 4)
	for _, col := range [...]int{0, 8} {
		put(Chariot, Blue, 0, col)
		put(Chariot, Red, 9, col)
	}
	for _, col := range backRankCols {
		k, _ := blue.kindAt(Blue, col)
		put(k, Blue, 0, col)
		k, _ = red.kindAt(Red, col)
		put(k, Red, 9, col)
	}
	for _, col := range [...]int{3, 5} {
		put(Guard, Blue, 0, col)
		put(Guard, Red, 9, col)
	}

	for r := range setup {
		for c, p := range setup[r] {
			if p != nil {
				b.add(p.Kind, p.Color, r, c)
			}
		}
	}
	return b
}

// Place puts a new piece on an empty square.
func (b *Board) Place(k Kind, color Color, row, col int) error {
	if !onBoard(row, col) {
		return errors.Errorf("square %d,%d is off the board", row, col)
	}
	if b.grid[row][col] != empty {
		return errors.Errorf("square %d,%d is occupied", row, col)
	}
	if k == General && b.generals[color.index()] != empty {
		return errors.Errorf("%v already has a general", color)
	}
	b.add(k, color, row, col)
	b.InvalidateActionCache()
	return nil
}

// Remove takes the piece on the square off the board for good.
func (b *Board) Remove(row, col int) error {
	if !onBoard(row, col) || b.grid[row][col] == empty {
		return errors.Errorf("no piece at %d,%d", row, col)
	}
	i := b.grid[row][col]
	b.pieces[i].Alive = false
	b.set(row, col, empty)
	if b.pieces[i].Kind == General {
		b.generals[b.pieces[i].Color.index()] = empty
	}
	b.InvalidateActionCache()
	return nil
}

func (b *Board) add(k Kind, color Color, row, col int) {
	i := int8(len(b.pieces))
	b.pieces = append(b.pieces, Piece{Kind: k, Color: color, Row: row, Col: col, Alive: true})
	b.byColor[color.index()] = append(b.byColor[color.index()], i)
	if k == General {
		b.generals[color.index()] = i
	}
	b.set(row, col, i)
}

func (b *Board) set(row, col int, i int8) {
	b.grid[row][col] = i
	if i == empty {
		b.sig[row*Width+col] = 0
		return
	}
	b.sig[row*Width+col] = b.pieces[i].code()
}

// At returns the piece on the square, or nil.
func (b *Board) At(row, col int) *Piece {
	if !onBoard(row, col) {
		return nil
	}
	if i := b.grid[row][col]; i != empty {
		return &b.pieces[i]
	}
	return nil
}

// Pieces returns the live pieces of a color in their generation order.
func (b *Board) Pieces(color Color) []*Piece {
	var retVal []*Piece
	for _, i := range b.byColor[color.index()] {
		if b.pieces[i].Alive {
			retVal = append(retVal, &b.pieces[i])
		}
	}
	return retVal
}

// General returns the live general of a color, or nil.
func (b *Board) General(color Color) *Piece {
	i := b.generals[color.index()]
	if i == empty || !b.pieces[i].Alive {
		return nil
	}
	return &b.pieces[i]
}

// Layouts returns the back rank layouts the board started from.
func (b *Board) Layouts() (blue, red Layout) { return b.blue, b.red }

// MaxRepetitions returns the repetition limit the board enforces.
func (b *Board) MaxRepetitions() int { return b.maxRepetitions }

// Signature returns the current piece placement.
func (b *Board) Signature() Signature { return b.sig }

// Repetitions returns how many times the position with signature s has been
// left by an applied move.
func (b *Board) Repetitions(s Signature) int { return b.history[s] }

// Score is the material of the live pieces of a color. RED receives a 1.5
// point handicap.
func (b *Board) Score(color Color) float32 {
	var score float32
	if color == Red {
		score = 1.5
	}
	for _, i := range b.byColor[color.index()] {
		if p := &b.pieces[i]; p.Alive {
			score += p.Kind.Points()
		}
	}
	return score
}

// Apply plays a move: the position left behind is counted in the repetition
// history and the action cache descends to the move's node.
func (b *Board) Apply(a Action) Undo {
	b.seq++
	u := Undo{Action: a, captured: empty, before: b.sig, seq: b.seq}
	b.history[b.sig]++
	b.cache = b.cache.child(a)
	if !a.IsPass() {
		u.captured = b.move(a)
	}
	b.stack = append(b.stack, u)
	return u
}

// Reverse undoes the most recent Apply. Undoing anything else panics, since it
// would corrupt the history and the action cache.
func (b *Board) Reverse(u Undo) {
	n := len(b.stack)
	if n == 0 || b.stack[n-1] != u {
		panic(fmt.Sprintf("janggi: reverse of %v is not the last applied move", u.Action))
	}
	b.stack = b.stack[:n-1]
	if !u.Action.IsPass() {
		b.unmove(u.Action, u.captured)
	}
	if b.cache.parent != nil {
		b.cache = b.cache.parent
	} else {
		b.cache = newCacheNode(nil)
	}
	if h := b.history[u.before] - 1; h > 0 {
		b.history[u.before] = h
	} else {
		delete(b.history, u.before)
	}
}

// move relocates a piece without touching the history or the action cache.
// It returns the index of the captured piece.
func (b *Board) move(a Action) int8 {
	i := b.grid[a.FromRow][a.FromCol]
	if i == empty {
		panic(fmt.Sprintf("janggi: no piece to move for %#v", a))
	}
	captured := b.grid[a.ToRow][a.ToCol]
	if captured != empty {
		b.pieces[captured].Alive = false
	}
	b.set(int(a.FromRow), int(a.FromCol), empty)
	b.set(int(a.ToRow), int(a.ToCol), i)
	p := &b.pieces[i]
	p.Row, p.Col = int(a.ToRow), int(a.ToCol)
	return captured
}

func (b *Board) unmove(a Action, captured int8) {
	i := b.grid[a.ToRow][a.ToCol]
	b.set(int(a.FromRow), int(a.FromCol), i)
	p := &b.pieces[i]
	p.Row, p.Col = int(a.FromRow), int(a.FromCol)
	b.set(int(a.ToRow), int(a.ToCol), captured)
	if captured != empty {
		b.pieces[captured].Alive = true
	}
}

// InvalidateActionCache drops every memoised action list. The game calls it
// once a move is final so the cache only grows with search.
func (b *Board) InvalidateActionCache() {
	b.cache = newCacheNode(nil)
}

// Clone returns a deep copy that can be searched independently. The copy
// starts with an empty action cache.
func (b *Board) Clone() *Board {
	c := &Board{
		pieces:         append([]Piece(nil), b.pieces...),
		grid:           b.grid,
		generals:       b.generals,
		sig:            b.sig,
		blue:           b.blue,
		red:            b.red,
		maxRepetitions: b.maxRepetitions,
		history:        make(map[Signature]int, len(b.history)),
		cache:          newCacheNode(nil),
		stack:          append([]Undo(nil), b.stack...),
		seq:            b.seq,
	}
	for i := range b.byColor {
		c.byColor[i] = append([]int8(nil), b.byColor[i]...)
	}
	for k, v := range b.history {
		c.history[k] = v
	}
	return c
}

// String draws the board with row 9 on top. BLUE pieces are upper case and RED
// pieces lower case.
func (b *Board) String() string {
	var sb strings.Builder
	for r := Height - 1; r >= 0; r-- {
		for c := 0; c < Width; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			if p := b.At(r, c); p != nil {
				sb.WriteString(p.String())
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func onBoard(row, col int) bool {
	return row >= 0 && row < Height && col >= 0 && col < Width
}
