package game

import (
	"github.com/janggizero/janggi"
)

// State is a position as the search sees it: the board, the side to move,
// the round and the moves that led there. Apply and Reverse keep the four in
// step.
type State struct {
	Board        *janggi.Board
	ToMove       janggi.Color
	Round        int
	IterationMax int // 0 means no cap

	undo []janggi.Undo
}

// NewState starts a state on b with BLUE to move.
func NewState(b *janggi.Board, iterationMax int) *State {
	return &State{
		Board:        b,
		ToMove:       janggi.Blue,
		IterationMax: iterationMax,
	}
}

// Actions returns the legal moves of the side to move.
func (s *State) Actions() []janggi.Action { return s.Board.Actions(s.ToMove) }

// Apply plays a for the side to move.
func (s *State) Apply(a janggi.Action) {
	s.undo = append(s.undo, s.Board.Apply(a))
	s.ToMove = s.ToMove.Other()
	s.Round++
}

// Reverse takes back the most recent Apply.
func (s *State) Reverse() {
	n := len(s.undo)
	if n == 0 {
		panic("game: nothing to reverse")
	}
	s.Board.Reverse(s.undo[n-1])
	s.undo = s.undo[:n-1]
	s.ToMove = s.ToMove.Other()
	s.Round--
}

// Last returns the undo token of the last move, or nil before the first one.
func (s *State) Last() *janggi.Undo {
	if len(s.undo) == 0 {
		return nil
	}
	return &s.undo[len(s.undo)-1]
}

// IsFinished reports whether the side to move has lost, the position can no
// longer progress, or the round cap is reached.
func (s *State) IsFinished() bool {
	if s.IterationMax > 0 && s.Round >= s.IterationMax {
		return true
	}
	return s.Board.IsFinished(s.ToMove, s.Last())
}

// Winner decides the game. When the board itself is not over (round cap or
// material rule) the larger score wins, RED taking ties. Otherwise the side
// that cannot move has lost.
func (s *State) Winner() janggi.Color {
	if !s.Board.IsFinished(s.ToMove, nil) {
		if s.Board.Score(janggi.Blue) > s.Board.Score(janggi.Red) {
			return janggi.Blue
		}
		return janggi.Red
	}
	return s.ToMove.Other()
}

// Reward is +1 when the side to move is the winner and -1 otherwise.
func (s *State) Reward() float32 {
	if s.Winner() == s.ToMove {
		return 1
	}
	return -1
}

// Clone deep copies the state, board included, for a concurrent searcher.
func (s *State) Clone() *State {
	c := *s
	c.Board = s.Board.Clone()
	c.undo = append([]janggi.Undo(nil), s.undo...)
	return &c
}

// Features encodes the position for the side to move.
func (s *State) Features(augmented bool) []float32 {
	return s.Board.Features(s.ToMove, s.Round, augmented).Data().([]float32)
}
