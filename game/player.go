package game

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/janggizero/janggi"
)

// Player chooses moves for one side.
type Player interface {
	// Play returns the next move of the side to move in g.
	Play(ctx context.Context, g *Game) (janggi.Action, error)
	// Observe is told every move applied to the game, both sides included.
	Observe(a janggi.Action)
}

// VisitReporter is implemented by players that search: the visit counts
// behind their last move end up in the game record.
type VisitReporter interface {
	LastVisits() Visits
}

// RandomPlayer picks uniformly among the legal moves.
type RandomPlayer struct {
	r *rand.Rand
}

func NewRandomPlayer(seed int64) *RandomPlayer {
	return &RandomPlayer{r: rand.New(rand.NewSource(uint64(seed)))}
}

func (p *RandomPlayer) Play(_ context.Context, g *Game) (janggi.Action, error) {
	actions := g.Actions()
	return actions[p.r.Intn(len(actions))], nil
}

func (p *RandomPlayer) Observe(janggi.Action) {}

// TextPlayer reads moves in UCI notation, one per line, and asks again when a
// line is not a legal move. It is the human side of cmd/arena.
type TextPlayer struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewTextPlayer(in io.Reader, out io.Writer) *TextPlayer {
	return &TextPlayer{in: bufio.NewScanner(in), out: out}
}

func (p *TextPlayer) Play(ctx context.Context, g *Game) (janggi.Action, error) {
	fmt.Fprintf(p.out, "%v\n%v to move, round %d: ", g.Board, g.ToMove, g.Round)
	legal := g.Actions()
	for p.in.Scan() {
		if err := ctx.Err(); err != nil {
			return janggi.Pass, errors.WithStack(err)
		}
		a, err := janggi.ParseUCI(p.in.Text())
		switch {
		case err != nil:
			fmt.Fprintf(p.out, "%v, try again: ", err)
		case !contains(legal, a):
			fmt.Fprintf(p.out, "%v is not legal, try again: ", a.UCI())
		default:
			return a, nil
		}
	}
	if err := p.in.Err(); err != nil {
		return janggi.Pass, errors.WithStack(err)
	}
	return janggi.Pass, errors.WithStack(io.ErrUnexpectedEOF)
}

func (p *TextPlayer) Observe(a janggi.Action) {}
