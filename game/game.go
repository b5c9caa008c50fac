package game

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/janggizero/janggi"
)

// ErrIllegalAction is the cause of errors returned when a move that is not
// among the legal actions is played or replayed.
var ErrIllegalAction = errors.New("illegal action")

// Config holds the match parameters.
type Config struct {
	IterationMax   int `json:"iteration_max" yaml:"iteration_max"`     // rounds before the game is scored; 0 disables the cap
	MaxRepetitions int `json:"max_repetitions" yaml:"max_repetitions"` // 0 disables the repetition rule
}

func DefaultConfig() Config {
	return Config{
		IterationMax:   200,
		MaxRepetitions: janggi.DefaultMaxRepetitions,
	}
}

func (c Config) IsValid() bool {
	return c.IterationMax >= 0 && c.MaxRepetitions >= 0
}

// Game runs one match between two players.
type Game struct {
	*State
	Blue, Red Player
	Conf      Config

	actions []janggi.Action
	visits  []Visits
	logger  zerolog.Logger
}

// Option configures a Game.
type Option func(*Game)

// WithLogger logs every move at debug level and the result at info level.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// New sets up a game on board with BLUE to move. blue and red must be
// distinct values: both are told about every move.
func New(blue, red Player, board *janggi.Board, conf Config, opts ...Option) *Game {
	g := &Game{
		State:  NewState(board, conf.IterationMax),
		Blue:   blue,
		Red:    red,
		Conf:   conf,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Player returns whoever plays color.
func (g *Game) Player(color janggi.Color) Player {
	if color == janggi.Blue {
		return g.Blue
	}
	return g.Red
}

// History returns the moves played so far.
func (g *Game) History() []janggi.Action { return g.actions }

// Apply plays a for the side to move. The move must be legal; any action with
// matching from and to squares stands for a pass.
func (g *Game) Apply(a janggi.Action) error {
	return g.apply(a, Visits{})
}

func (g *Game) apply(a janggi.Action, v Visits) error {
	if a.IsPass() {
		a = janggi.Pass
	}
	if !contains(g.Actions(), a) {
		return errors.Wrapf(ErrIllegalAction, "%v for %v at round %d", a, g.ToMove, g.Round)
	}
	g.logger.Debug().
		Int("round", g.Round).
		Stringer("color", g.ToMove).
		Str("action", a.UCI()).
		Msg("apply")

	g.State.Apply(a)
	g.Board.InvalidateActionCache()
	g.actions = append(g.actions, a)
	if v.Total == 0 {
		v = Visits{Total: 1, N: map[janggi.Action]int{a: 1}}
	}
	g.visits = append(g.visits, v)

	g.Blue.Observe(a)
	g.Red.Observe(a)
	return nil
}

// Run asks the players for moves until the game is over and returns the
// winner. It stops early when ctx is done or a player fails.
func (g *Game) Run(ctx context.Context) (janggi.Color, error) {
	for !g.IsFinished() {
		if err := ctx.Err(); err != nil {
			return g.Winner(), errors.WithStack(err)
		}
		p := g.Player(g.ToMove)
		a, err := p.Play(ctx, g)
		if err != nil {
			return g.Winner(), errors.WithMessagef(err, "%v failed to play at round %d", g.ToMove, g.Round)
		}
		var v Visits
		if vr, ok := p.(VisitReporter); ok {
			v = vr.LastVisits()
		}
		if err := g.apply(a, v); err != nil {
			return g.Winner(), err
		}
	}
	winner := g.Winner()
	g.logger.Info().
		Int("rounds", g.Round).
		Stringer("winner", winner).
		Float32("blue", g.Board.Score(janggi.Blue)).
		Float32("red", g.Board.Score(janggi.Red)).
		Msg("game over")
	return winner, nil
}

// Record describes the finished (or current) game for storage.
func (g *Game) Record() *Record {
	blue, red := g.Board.Layouts()
	return &Record{
		Blue:    blue,
		Red:     red,
		Actions: append([]janggi.Action(nil), g.actions...),
		Winner:  g.Winner(),
		Visits:  append([]Visits(nil), g.visits...),
	}
}

func contains(actions []janggi.Action, a janggi.Action) bool {
	for _, b := range actions {
		if a == b {
			return true
		}
	}
	return false
}
