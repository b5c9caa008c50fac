package mcts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
)

/*
Here lies the search itself, while node.go and tree.go handle the data
structure stuff.

A simulation walks down the tree applying moves to the caller's state and
takes every one of them back on the way up, so the state is unchanged when it
returns. Values are always from the point of view of the side to move at the
node that returns them; each level negates the value of the level below.
*/

// Predictor is the oracle guiding the search: a neural network, a heuristic,
// or a remote service.
type Predictor interface {
	// Predict returns priors over actions, the legal actions of s, and the
	// value of s in [-1, 1] for the side to move. The priors need not sum to 1.
	Predict(s *game.State, actions []janggi.Action) (priors map[janggi.Action]float32, value float32, err error)
}

// RunSimulation runs one simulation from n, which must be the node of s. The
// returned value is from the point of view of the player who moved into s.
//
// The recursion is:
//	a finished game backs up its reward,
//	an unexpanded node is expanded and backs up the predicted value,
//	anything else selects, recurses and backs up what comes back.
func (t *MCTS) RunSimulation(n *Node, s *game.State) (float32, error) {
	if s.IsFinished() {
		return -s.Reward(), nil
	}
	if !n.IsExpanded() {
		value, err := t.expand(n, s)
		if err != nil {
			return 0, err
		}
		return -value, nil
	}

	a := n.Select(t.CPuct, t.shuffled(n.Actions()))
	next := n.child(a)
	s.Apply(a)
	value, err := t.RunSimulation(next, s)
	s.Reverse()
	if err != nil {
		return 0, err
	}
	n.update(a, value)
	return -value, nil
}

// expand asks the predictor about s and stores the priors in n.
func (t *MCTS) expand(n *Node, s *game.State) (float32, error) {
	actions := s.Actions()
	priors, value, err := t.predictor.Predict(s, actions)
	if err != nil {
		return 0, errors.WithMessagef(err, "predict at round %d for %v", s.Round, s.ToMove)
	}
	var noise []float64
	if n.wantsNoise() {
		noise = t.noise(len(actions))
	}
	n.expand(actions, priors, noise, t.DirichletEpsilon)
	t.log("expanded round %d %v: %d actions, value %v", s.Round, s.ToMove, len(actions), value)
	return value, nil
}

// Search runs simulations from n until it has been visited NumSimulations
// times. Visits already in n, from an earlier search or from thinking, count.
// Expanding n itself is not a simulation but costs a predictor call. A root
// reused from an earlier search gets its exploration noise here.
func (t *MCTS) Search(ctx context.Context, n *Node, s *game.State) error {
	if !n.IsExpanded() {
		if _, err := t.expand(n, s); err != nil {
			return err
		}
	} else if n.wantsNoise() {
		n.addNoise(t.noise(len(n.Actions())), t.DirichletEpsilon)
	}
	budget := int64(t.NumSimulations) - int64(n.Total())
	if budget <= 0 {
		return nil
	}
	if t.Threads <= 1 {
		for ; budget > 0; budget-- {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			if _, err := t.RunSimulation(n, s); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs error
	for i := 0; i < t.Threads; i++ {
		wg.Add(1)
		go func(s *game.State) {
			defer wg.Done()
			for atomic.AddInt64(&budget, -1) >= 0 {
				err := ctx.Err()
				if err == nil {
					_, err = t.RunSimulation(n, s)
				}
				if err != nil {
					mu.Lock()
					errs = multierror.Append(errs, errors.WithStack(err))
					mu.Unlock()
					return
				}
			}
		}(s.Clone())
	}
	wg.Wait()
	return errs
}

// ChooseAction searches n, the node of s, and returns the move to play. A
// side without a legal move passes without searching.
func (t *MCTS) ChooseAction(ctx context.Context, n *Node, s *game.State) (janggi.Action, error) {
	if s.IsFinished() {
		return janggi.Pass, errors.Errorf("no action to choose: the game is over at round %d", s.Round)
	}
	if actions := s.Actions(); len(actions) == 1 && actions[0].IsPass() {
		return janggi.Pass, nil
	}
	if err := t.Search(ctx, n, s); err != nil {
		return janggi.Pass, err
	}
	a := t.pick(n, s.Round)
	t.log("round %d %v: %v after %d simulations, %d nodes", s.Round, s.ToMove, a, n.Total(), n.countChildren())
	return a, nil
}
