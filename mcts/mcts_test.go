package mcts

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
)

var errBroken = errors.New("broken predictor")

type countingPredictor struct {
	MaterialPredictor
	calls int64
}

func (p *countingPredictor) Predict(s *game.State, actions []janggi.Action) (map[janggi.Action]float32, float32, error) {
	atomic.AddInt64(&p.calls, 1)
	return p.MaterialPredictor.Predict(s, actions)
}

// constantPredictor says every position is worth value to the side to move.
type constantPredictor struct{ value float32 }

func (p constantPredictor) Predict(s *game.State, actions []janggi.Action) (map[janggi.Action]float32, float32, error) {
	priors, _, _ := MaterialPredictor{}.Predict(s, actions)
	return priors, p.value, nil
}

type brokenPredictor struct{}

func (brokenPredictor) Predict(*game.State, []janggi.Action) (map[janggi.Action]float32, float32, error) {
	return nil, 0, errBroken
}

// signallingPredictor fails like brokenPredictor and closes called on the
// first call.
type signallingPredictor struct {
	once   sync.Once
	called chan struct{}
}

func (p *signallingPredictor) Predict(*game.State, []janggi.Action) (map[janggi.Action]float32, float32, error) {
	p.once.Do(func() { close(p.called) })
	return nil, 0, errBroken
}

func newState() *game.State {
	return game.NewState(janggi.NewBoard(janggi.Yang, janggi.Sang, janggi.DefaultMaxRepetitions), 200)
}

func testConfig(sims int) Config {
	conf := DefaultConfig()
	conf.NumSimulations = sims
	conf.DirichletAlpha = 0.3
	return conf
}

func newMCTS(t *testing.T, conf Config, p Predictor) *MCTS {
	m, err := New(conf, p, WithSeed(1))
	require.NoError(t, err)
	return m
}

func TestConfig(t *testing.T) {
	conf := DefaultConfig()
	require.True(t, conf.IsValid())
	assert.Equal(t, float32(1), conf.Temperature(29))
	assert.Equal(t, float32(0.01), conf.Temperature(30))

	conf.NumSimulations = 0
	_, err := New(conf, MaterialPredictor{})
	assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
}

func TestMaterialPredictor(t *testing.T) {
	s := newState()
	priors, value, err := MaterialPredictor{}.Predict(s, s.Actions())
	require.NoError(t, err)
	assert.Len(t, priors, 31)
	assert.InDelta(t, 1.0/31, priors[s.Actions()[0]], 1e-6)
	assert.InDelta(t, -1.5/735, value, 1e-6)

	s.Apply(s.Actions()[0])
	_, value, err = MaterialPredictor{}.Predict(s, s.Actions())
	require.NoError(t, err)
	assert.InDelta(t, 1.5/735, value, 1e-6)
}

func TestFirstVisitExpands(t *testing.T) {
	p := &countingPredictor{}
	m := newMCTS(t, testConfig(10), p)
	s := newState()
	before := s.Board.String()
	n := NewNode()

	v, err := m.RunSimulation(n, s)
	require.NoError(t, err)
	assert.InDelta(t, 1.5/735, v, 1e-6, "the value is handed back negated")
	assert.True(t, n.IsExpanded())
	assert.Equal(t, uint32(0), n.Total())
	assert.Len(t, n.Actions(), 31)

	_, err = m.RunSimulation(n, s)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n.Total())
	assert.Equal(t, int64(2), p.calls)
	assert.Equal(t, before, s.Board.String())
	assert.Equal(t, 0, s.Round)
}

func TestValuesAlternateSign(t *testing.T) {
	m := newMCTS(t, testConfig(10), constantPredictor{0.5})
	s := newState()
	n := NewNode()
	require.NoError(t, m.Search(context.Background(), n, s))
	require.Equal(t, uint32(10), n.Total())

	var visited int
	for _, a := range n.Actions() {
		if n.Visits(a) == 0 {
			continue
		}
		visited++
		assert.Equal(t, uint32(1), n.Visits(a), "unvisited actions always win the bound")
		assert.Equal(t, float32(-0.5), n.QSA(a), "a good position for the opponent is bad for us")
	}
	assert.Equal(t, 10, visited)
}

func TestTerminalReward(t *testing.T) {
	b := janggi.NewEmptyBoard(janggi.DefaultMaxRepetitions)
	require.NoError(t, b.Place(janggi.General, janggi.Blue, 0, 4))
	require.NoError(t, b.Place(janggi.Chariot, janggi.Blue, 9, 0))
	require.NoError(t, b.Place(janggi.Cannon, janggi.Blue, 9, 1))
	require.NoError(t, b.Place(janggi.General, janggi.Red, 8, 4))
	require.NoError(t, b.Place(janggi.Chariot, janggi.Red, 0, 8))
	require.NoError(t, b.Place(janggi.Chariot, janggi.Red, 1, 0))
	s := game.NewState(b, 200)

	p := &countingPredictor{}
	m := newMCTS(t, testConfig(10), p)
	n := NewNode()
	v, err := m.RunSimulation(n, s)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v, "mating is worth a full point to RED")
	assert.False(t, n.IsExpanded())
	assert.Zero(t, p.calls)

	_, err = m.ChooseAction(context.Background(), n, s)
	assert.Error(t, err)
}

func TestPredictorFailureAbortsTheSimulation(t *testing.T) {
	m := newMCTS(t, testConfig(10), brokenPredictor{})
	s := newState()
	n := NewNode()
	_, err := m.RunSimulation(n, s)
	assert.Equal(t, errBroken, errors.Cause(err))
	assert.False(t, n.IsExpanded())

	_, err = m.ChooseAction(context.Background(), n, s)
	assert.Equal(t, errBroken, errors.Cause(err))
}

func TestChooseActionSimulationBudget(t *testing.T) {
	for _, threads := range []int{1, 4} {
		p := &countingPredictor{}
		conf := testConfig(40)
		conf.Threads = threads
		m := newMCTS(t, conf, p)
		s := newState()
		n := NewRoot()

		a, err := m.ChooseAction(context.Background(), n, s)
		require.NoError(t, err)
		assert.Contains(t, s.Actions(), a)
		assert.Equal(t, uint32(40), n.Total(), "threads %d", threads)
		if threads == 1 {
			assert.Equal(t, int64(41), p.calls, "the root expansion plus one per simulation")
		} else {
			assert.GreaterOrEqual(t, p.calls, int64(41), "threads %d", threads)
		}

		total, counts := n.VisitCounts()
		var sum int
		for _, v := range counts {
			sum += v
		}
		assert.Equal(t, total, sum)

		calls := p.calls
		_, err = m.ChooseAction(context.Background(), n, s)
		require.NoError(t, err)
		assert.Equal(t, calls, p.calls, "a node already searched enough is not searched again")
		assert.Equal(t, 0, s.Round)
	}
}

func TestChooseActionPassesWithoutSearch(t *testing.T) {
	b := janggi.NewEmptyBoard(janggi.DefaultMaxRepetitions)
	require.NoError(t, b.Place(janggi.General, janggi.Blue, 0, 3))
	require.NoError(t, b.Place(janggi.Cannon, janggi.Blue, 9, 8))
	require.NoError(t, b.Place(janggi.Chariot, janggi.Red, 1, 0))
	require.NoError(t, b.Place(janggi.Chariot, janggi.Red, 5, 4))
	require.NoError(t, b.Place(janggi.General, janggi.Red, 8, 4))
	s := game.NewState(b, 200)
	require.False(t, b.IsCheck(janggi.Blue))
	require.Equal(t, []janggi.Action{janggi.Pass}, s.Actions())
	require.False(t, s.IsFinished())

	p := &countingPredictor{}
	m := newMCTS(t, testConfig(10), p)
	a, err := m.ChooseAction(context.Background(), NewNode(), s)
	require.NoError(t, err)
	assert.True(t, a.IsPass())
	assert.Zero(t, p.calls)
}

func TestRootNoise(t *testing.T) {
	m := newMCTS(t, testConfig(10), MaterialPredictor{})
	s := newState()

	plain := NewNode()
	_, err := m.RunSimulation(plain, s)
	require.NoError(t, err)
	for _, a := range plain.Actions() {
		assert.InDelta(t, 1.0/31, plain.PSA(a), 1e-6)
	}

	root := NewRoot()
	_, err = m.RunSimulation(root, s)
	require.NoError(t, err)
	var sum float32
	var differs bool
	for _, a := range root.Actions() {
		sum += root.PSA(a)
		if d := root.PSA(a) - 1.0/31; d > 1e-4 || d < -1e-4 {
			differs = true
		}
	}
	assert.InDelta(t, 1, sum, 1e-4)
	assert.True(t, differs)
}

func TestReusedRootGetsNoise(t *testing.T) {
	m := newMCTS(t, testConfig(60), MaterialPredictor{})
	s := newState()
	root := NewRoot()
	require.NoError(t, m.Search(context.Background(), root, s))

	_, counts := root.VisitCounts()
	var best janggi.Action
	for a, v := range counts {
		if v > counts[best] || counts[best] == 0 {
			best = a
		}
	}
	child := root.Child(best)
	require.NotNil(t, child)
	require.True(t, child.IsExpanded())
	before := make(map[janggi.Action]float32)
	for _, a := range child.Actions() {
		before[a] = child.PSA(a)
	}

	require.Same(t, child, root.Advance(best))
	s.Apply(best)
	require.NoError(t, m.Search(context.Background(), child, s))

	var sum float32
	var differs bool
	for _, a := range child.Actions() {
		sum += child.PSA(a)
		if d := child.PSA(a) - before[a]; d > 1e-4 || d < -1e-4 {
			differs = true
		}
	}
	assert.InDelta(t, 1, sum, 1e-4)
	assert.True(t, differs, "a reused root is noised")

	noised := make(map[janggi.Action]float32)
	for _, a := range child.Actions() {
		noised[a] = child.PSA(a)
	}
	require.NoError(t, m.Search(context.Background(), child, s))
	for _, a := range child.Actions() {
		assert.Equal(t, noised[a], child.PSA(a), "noise is blended once")
	}
}

func TestPolicy(t *testing.T) {
	a1, a2 := janggi.NewAction(3, 0, 4, 0), janggi.NewAction(0, 1, 2, 2)
	n := NewNode()
	n.expand([]janggi.Action{a1, a2}, map[janggi.Action]float32{a1: 0.5, a2: 0.5}, nil, 0)
	n.update(a1, 0)
	n.update(a1, 0)
	n.update(a2, 0)

	at := func(color janggi.Color, augmented bool, coords ...int) float32 {
		v, err := n.Policy(color, augmented).At(coords...)
		require.NoError(t, err)
		return v.(float32)
	}
	assert.InDelta(t, 2.0/3, at(janggi.Blue, false, 0, 3, 0), 1e-6)
	assert.InDelta(t, 1.0/3, at(janggi.Blue, false, 42, 0, 1), 1e-6)
	assert.InDelta(t, 2.0/3, at(janggi.Blue, true, 0, 3, 8), 1e-6)
	assert.InDelta(t, 2.0/3, at(janggi.Red, false, 9, 6, 8), 1e-6)
	assert.InDelta(t, 2.0/3, at(janggi.Red, true, 9, 6, 0), 1e-6)

	policy := n.Policy(janggi.Blue, false)
	assert.Equal(t, []int{janggi.NumClasses, janggi.Height, janggi.Width}, []int(policy.Shape()))
	var sum float32
	for _, v := range policy.Data().([]float32) {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-6)
}

func TestPolicyAfterSearchSumsToOne(t *testing.T) {
	m := newMCTS(t, testConfig(30), MaterialPredictor{})
	s := newState()
	s.Apply(janggi.NewAction(3, 0, 4, 0))
	n := NewRoot()
	require.NoError(t, m.Search(context.Background(), n, s))
	for _, augmented := range []bool{false, true} {
		var sum float32
		for _, v := range n.Policy(s.ToMove, augmented).Data().([]float32) {
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-5)
	}
}

func TestPickFollowsVisits(t *testing.T) {
	a1, a2, a3 := janggi.NewAction(3, 0, 4, 0), janggi.NewAction(3, 2, 4, 2), janggi.NewAction(3, 4, 4, 4)
	n := NewNode()
	n.expand([]janggi.Action{a1, a2, a3}, nil, nil, 0)
	for i := 0; i < 5; i++ {
		n.update(a2, 0)
	}
	n.update(a1, 0)

	m := newMCTS(t, testConfig(10), MaterialPredictor{})
	for i := 0; i < 20; i++ {
		assert.Equal(t, a2, m.pick(n, 30), "greedy after the threshold")
		assert.NotEqual(t, a3, m.pick(n, 0), "an unvisited action is never sampled")
	}
	assert.Equal(t, []janggi.Action{a2, a1, a3}, n.Top(5))
	assert.Equal(t, []janggi.Action{a2}, n.Top(1))
}

func TestAdvanceReusesTheTree(t *testing.T) {
	m := newMCTS(t, testConfig(50), MaterialPredictor{})
	s := newState()
	root := NewRoot()
	a, err := m.ChooseAction(context.Background(), root, s)
	require.NoError(t, err)

	next := root.Advance(a)
	assert.Same(t, root.Child(a), next)
	assert.Equal(t, root.Visits(a), next.Total()+1, "the first visit only expanded the child")
	assert.True(t, next.wantsNoise(), "a reused child is a root now")

	fresh := root.Advance(janggi.NewAction(0, 0, 0, 1))
	assert.False(t, fresh.IsExpanded())
	assert.True(t, fresh.noise)
}

func TestThinker(t *testing.T) {
	p := &countingPredictor{}
	conf := testConfig(20)
	conf.Workers = 3
	m := newMCTS(t, conf, p)
	s := newState()
	root := NewRoot()

	th := m.Think(context.Background(), root, s)
	deadline := time.Now().Add(10 * time.Second)
	for th.Simulations() < 60 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, th.Stop())
	require.GreaterOrEqual(t, th.Simulations(), 60)
	assert.Equal(t, 0, s.Round, "workers play on their own copies")

	total, counts := root.VisitCounts()
	var sum int
	for _, v := range counts {
		sum += v
	}
	assert.Equal(t, total, sum)
	assert.GreaterOrEqual(t, total, th.Simulations()-conf.Workers, "only the racing root expansions are not counted")

	calls := atomic.LoadInt64(&p.calls)
	_, err := m.ChooseAction(context.Background(), root, s)
	require.NoError(t, err)
	assert.Equal(t, calls, atomic.LoadInt64(&p.calls), "thinking already covered the budget")
}

func TestThinkerReportsErrors(t *testing.T) {
	conf := testConfig(20)
	conf.Workers = 2
	p := &signallingPredictor{called: make(chan struct{})}
	m := newMCTS(t, conf, p)
	th := m.Think(context.Background(), NewNode(), newState())
	select {
	case <-p.called:
	case <-time.After(5 * time.Second):
		t.Fatal("no worker reached the predictor")
	}
	err := th.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), errBroken.Error())
}

func TestDot(t *testing.T) {
	m := newMCTS(t, testConfig(40), MaterialPredictor{})
	root := NewRoot()
	require.NoError(t, m.Search(context.Background(), root, newState()))
	dot, err := Dot(root, 2, 3)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "digraph mcts"))
	assert.Contains(t, dot, "n0->n1")
	assert.Contains(t, dot, "N=40")
}
