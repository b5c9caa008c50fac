package janggizero

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gorgonia.org/vecf32"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
	"github.com/janggizero/mcts"
)

// Resetter is implemented by players that carry state from one game to the
// next, such as an Agent's search tree.
type Resetter interface {
	Reset()
}

// Stats is one side's tally in an Arena.
type Stats struct {
	Wins int
	Loss int
}

// Arena plays matches between a current and a best player. Sides alternate
// from one game to the next and every game starts from random layouts.
type Arena struct {
	Current, Best game.Player

	CurrentStats, BestStats Stats

	conf       Config
	r          *rand.Rand
	logger     zerolog.Logger
	gameNumber int
}

// NewArena makes an arena. current and best must be distinct values.
func NewArena(current, best game.Player, conf Config, logger zerolog.Logger) *Arena {
	return &Arena{
		Current: current,
		Best:    best,
		conf:    conf,
		r:       rand.New(rand.NewSource(uint64(conf.Seed))),
		logger:  logger,
	}
}

// GameNumber returns the number of games played.
func (a *Arena) GameNumber() int { return a.gameNumber }

// Name of the arena
func (a *Arena) Name() string { return a.conf.Name }

// Play plays a game and records who won. Current plays BLUE in even games.
func (a *Arena) Play(ctx context.Context) (*game.Record, error) {
	blue, red := a.Current, a.Best
	if a.gameNumber%2 == 1 {
		blue, red = red, blue
	}
	for _, p := range []game.Player{blue, red} {
		if r, ok := p.(Resetter); ok {
			r.Reset()
		}
	}
	blueLayout, redLayout := randomLayouts(a.r)
	logger := a.logger.With().Str("game", uuid.NewString()).Int("number", a.gameNumber).Logger()
	g := game.New(blue, red, janggi.NewBoard(blueLayout, redLayout, a.conf.GameConf.MaxRepetitions), a.conf.GameConf, game.WithLogger(logger))
	a.gameNumber++

	winner, err := g.Run(ctx)
	if err != nil {
		return nil, err
	}
	if g.Player(winner) == a.Current {
		a.CurrentStats.Wins++
		a.BestStats.Loss++
	} else {
		a.BestStats.Wins++
		a.CurrentStats.Loss++
	}
	return g.Record(), nil
}

// Better reports whether the current player beat the best one often enough to
// replace it.
func (a *Arena) Better() bool {
	cur, best := float64(a.CurrentStats.Wins), float64(a.BestStats.Wins)
	// plus 1 so an arena without games never promotes
	return cur/(cur+best+1) > a.conf.UpdateThreshold
}

// ResetStats clears both tallies.
func (a *Arena) ResetStats() {
	a.CurrentStats = Stats{}
	a.BestStats = Stats{}
}

// SelfPlay lets the search play one game against itself from the given
// layouts and generates training examples: one per move, plus its column
// mirrored twin, valued +1 for the eventual winner and -1 for the loser.
func SelfPlay(ctx context.Context, m *mcts.MCTS, blue, red janggi.Layout, conf game.Config, logger zerolog.Logger) ([]Example, *game.Record, error) {
	var examples []Example
	var movers []janggi.Color
	collect := func(s *game.State, root *mcts.Node) {
		if root.Total() == 0 {
			return
		}
		for _, augmented := range []bool{false, true} {
			policy := root.Policy(s.ToMove, augmented).Data().([]float32)
			if !validPolicies(policy) || vecf32.Sum(policy) == 0 {
				continue
			}
			examples = append(examples, Example{
				Board:  s.Features(augmented),
				Policy: policy,
			})
			movers = append(movers, s.ToMove)
		}
	}

	agent := NewAgent("self", m)
	agent.onSearch = collect
	g := game.New(agent, agent.twin(), janggi.NewBoard(blue, red, conf.MaxRepetitions), conf, game.WithLogger(logger))
	winner, err := g.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	for i := range examples {
		if movers[i] == winner {
			examples[i].Value = 1
		} else {
			examples[i].Value = -1
		}
	}
	logger.Debug().Int("examples", len(examples)).Stringer("winner", winner).Msg("self play done")
	return examples, g.Record(), nil
}

func randomLayouts(r *rand.Rand) (blue, red janggi.Layout) {
	return janggi.Layouts[r.Intn(len(janggi.Layouts))], janggi.Layouts[r.Intn(len(janggi.Layouts))]
}

func validPolicies(policy []float32) bool {
	for _, v := range policy {
		if math32.IsInf(v, 0) {
			return false
		}
		if math32.IsNaN(v) {
			return false
		}
	}
	return true
}
