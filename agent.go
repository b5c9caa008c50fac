package janggizero

import (
	"context"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
	"github.com/janggizero/mcts"
)

// An Agent is a player driven by the search. It keeps the search tree
// between moves: every move it observes moves its root down to the matching
// subtree.
type Agent struct {
	Name   string
	MCTS   *mcts.MCTS
	Player janggi.Color

	// Ponder keeps searching the current root while the opponent decides.
	Ponder bool

	sync.Mutex
	root     *mcts.Node
	visits   game.Visits
	game     *game.Game
	thinker  *mcts.Thinker
	err      error
	onSearch func(s *game.State, root *mcts.Node)
}

// NewAgent returns an agent with a fresh tree.
func NewAgent(name string, m *mcts.MCTS) *Agent {
	return &Agent{
		Name: name,
		MCTS: m,
		root: mcts.NewRoot(),
	}
}

// Root is the node of the position the agent expects next.
func (a *Agent) Root() *mcts.Node {
	a.Lock()
	defer a.Unlock()
	return a.root
}

// Play searches the position of g and returns the chosen action.
func (a *Agent) Play(ctx context.Context, g *game.Game) (janggi.Action, error) {
	a.Lock()
	defer a.Unlock()
	if err := a.stopThinking(); err != nil {
		return janggi.Pass, err
	}
	a.Player = g.ToMove
	a.game = g

	action, err := a.MCTS.ChooseAction(ctx, a.root, g.State)
	if err != nil {
		return janggi.Pass, errors.WithMessagef(err, "agent %s", a.Name)
	}
	total, counts := a.root.VisitCounts()
	a.visits = game.Visits{Total: total, N: counts}
	if a.onSearch != nil {
		a.onSearch(g.State, a.root)
	}
	return action, nil
}

// Observe advances the tree. After its own move a pondering agent starts
// thinking on the opponent's reply.
func (a *Agent) Observe(action janggi.Action) {
	a.Lock()
	defer a.Unlock()
	if err := a.stopThinking(); err != nil {
		a.err = multierror.Append(a.err, err)
	}
	a.root = a.root.Advance(action)
	if a.Ponder && a.game != nil && a.game.ToMove != a.Player && !a.game.IsFinished() {
		a.thinker = a.MCTS.Think(context.Background(), a.root, a.game.State)
	}
}

// LastVisits reports the visit counts behind the last move played.
func (a *Agent) LastVisits() game.Visits {
	a.Lock()
	defer a.Unlock()
	return a.visits
}

// Reset drops the tree, ready for a new game.
func (a *Agent) Reset() {
	a.Lock()
	defer a.Unlock()
	if err := a.stopThinking(); err != nil {
		a.err = multierror.Append(a.err, err)
	}
	a.root = mcts.NewRoot()
	a.visits = game.Visits{}
	a.game = nil
}

// stopThinking stops the thinker, if any, and returns whatever failed since
// the last call. Callers hold the lock.
func (a *Agent) stopThinking() error {
	if a.thinker != nil {
		if err := a.thinker.Stop(); err != nil {
			a.err = multierror.Append(a.err, err)
		}
		a.thinker = nil
	}
	err := a.err
	a.err = nil
	return err
}

// Close stops thinking and closes the predictor if it holds resources.
func (a *Agent) Close() error {
	a.Lock()
	defer a.Unlock()
	var errs error
	if err := a.stopThinking(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c, ok := a.MCTS.Predictor().(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// twin returns an agent sharing the search and the tree of a, for self-play:
// both sides read and extend the same tree.
func (a *Agent) twin() *Agent {
	return &Agent{
		Name:     a.Name,
		MCTS:     a.MCTS,
		root:     a.root,
		onSearch: a.onSearch,
	}
}
