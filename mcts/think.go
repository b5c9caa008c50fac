package mcts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/janggizero/game"
)

// Thinker keeps simulating from a root while the opponent decides. Each
// worker owns a clone of the state; the tree is shared and guarded by the
// per-node locks.
type Thinker struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	errs error

	simulations int64
}

// Think starts Workers goroutines simulating from root, the node of s. s is
// cloned and may be modified once Think returns. Nothing is started for a
// finished game or a configuration without workers.
func (t *MCTS) Think(ctx context.Context, root *Node, s *game.State) *Thinker {
	ctx, cancel := context.WithCancel(ctx)
	th := &Thinker{cancel: cancel}
	if s.IsFinished() {
		return th
	}
	for i := 0; i < t.Workers; i++ {
		th.wg.Add(1)
		go th.work(ctx, t, root, s.Clone())
	}
	t.log("thinking with %d workers at round %d", t.Workers, s.Round)
	return th
}

func (th *Thinker) work(ctx context.Context, t *MCTS, root *Node, s *game.State) {
	defer th.wg.Done()
	for ctx.Err() == nil {
		if _, err := t.RunSimulation(root, s); err != nil {
			th.mu.Lock()
			th.errs = multierror.Append(th.errs, errors.WithStack(err))
			th.mu.Unlock()
			return
		}
		atomic.AddInt64(&th.simulations, 1)
	}
}

// Stop cancels the workers, waits for them and returns what went wrong.
func (th *Thinker) Stop() error {
	th.cancel()
	th.wg.Wait()
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.errs
}

// Simulations is the number of simulations completed so far.
func (th *Thinker) Simulations() int {
	return int(atomic.LoadInt64(&th.simulations))
}
