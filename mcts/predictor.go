package mcts

import (
	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
)

// materialScale maps a score difference to a value well inside [-1, 1].
const materialScale = 73.5 * 10

// MaterialPredictor needs no network: every legal action gets the same prior
// and the value is the material balance.
type MaterialPredictor struct{}

func (MaterialPredictor) Predict(s *game.State, actions []janggi.Action) (map[janggi.Action]float32, float32, error) {
	priors := make(map[janggi.Action]float32, len(actions))
	p := 1 / float32(len(actions))
	for _, a := range actions {
		priors[a] = p
	}
	value := (s.Board.Score(janggi.Blue) - s.Board.Score(janggi.Red)) / materialScale
	if s.ToMove == janggi.Red {
		value = -value
	}
	return priors, value, nil
}
