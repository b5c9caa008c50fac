package mcts

import (
	"sync"
	"time"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/vecf32"

	"github.com/janggizero/janggi"
)

// ErrInvalidConfig is returned by New for a configuration that fails IsValid.
var ErrInvalidConfig = errors.New("invalid MCTS config")

// greedyTemperature is the temperature at or below which the most visited
// action is played instead of sampling.
const greedyTemperature = 0.05

// Config is the structure to configure the search.
type Config struct {
	// CPuct weighs the prior against the mean value in the PUCT bound.
	CPuct float32 `json:"c_puct" yaml:"c_puct"`
	// NumSimulations is the visit count a search brings its root to. A root
	// that was never expanded costs one more predictor call, so a fresh search
	// on one thread asks the predictor at most NumSimulations+1 times.
	NumSimulations int `json:"num_simulations" yaml:"num_simulations"`

	DirichletAlpha   float64 `json:"dirichlet_alpha" yaml:"dirichlet_alpha"`
	DirichletEpsilon float32 `json:"dirichlet_epsilon" yaml:"dirichlet_epsilon"`

	// Moves are sampled with TemperatureStart before round
	// TemperatureThreshold and with TemperatureEnd after.
	TemperatureStart     float32 `json:"temperature_start" yaml:"temperature_start"`
	TemperatureEnd       float32 `json:"temperature_end" yaml:"temperature_end"`
	TemperatureThreshold int     `json:"temperature_threshold" yaml:"temperature_threshold"`

	Threads int `json:"threads" yaml:"threads"` // goroutines sharing one ChooseAction
	Workers int `json:"workers" yaml:"workers"` // goroutines thinking on the opponent's time
}

func DefaultConfig() Config {
	return Config{
		CPuct:                4,
		NumSimulations:       800,
		DirichletAlpha:       0.03,
		DirichletEpsilon:     0.25,
		TemperatureStart:     1,
		TemperatureEnd:       0.01,
		TemperatureThreshold: 30,
		Threads:              1,
		Workers:              2,
	}
}

func (c Config) IsValid() bool {
	return c.CPuct > 0 &&
		c.NumSimulations >= 1 &&
		c.DirichletAlpha > 0 &&
		c.DirichletEpsilon >= 0 && c.DirichletEpsilon <= 1 &&
		c.TemperatureStart > 0 && c.TemperatureEnd > 0 &&
		c.TemperatureThreshold >= 0 &&
		c.Threads >= 1 && c.Workers >= 0
}

// Temperature returns the sampling temperature at round.
func (c Config) Temperature(round int) float32 {
	if round < c.TemperatureThreshold {
		return c.TemperatureStart
	}
	return c.TemperatureEnd
}

// MCTS runs simulations over trees of Nodes. The trees are owned by the
// caller; an MCTS only carries the configuration, the predictor and the
// random sources, and may serve several trees at once.
type MCTS struct {
	Config
	predictor Predictor

	// guards the random sources
	sync.Mutex
	src       rand.Source
	rand      *rand.Rand
	dirichlet *rng.DirichletGenerator

	lumberjack
}

// Option configures an MCTS.
type Option func(*MCTS)

// WithSeed makes the search reproducible.
func WithSeed(seed int64) Option {
	return func(t *MCTS) { t.seed(seed) }
}

// WithLogger sends the search trace to l at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(t *MCTS) { t.lumberjack = lumberjack{l} }
}

func New(conf Config, predictor Predictor, opts ...Option) (*MCTS, error) {
	if !conf.IsValid() {
		return nil, errors.Wrapf(ErrInvalidConfig, "%+v", conf)
	}
	t := &MCTS{
		Config:     conf,
		predictor:  predictor,
		lumberjack: makeLumberJack(),
	}
	t.seed(time.Now().UnixNano())
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *MCTS) seed(seed int64) {
	t.src = rand.NewSource(uint64(seed))
	t.rand = rand.New(t.src)
	t.dirichlet = rng.NewDirichletGenerator(seed)
}

// Predictor returns the oracle used to expand nodes.
func (t *MCTS) Predictor() Predictor { return t.predictor }

// shuffled returns a shuffled copy of actions.
func (t *MCTS) shuffled(actions []janggi.Action) []janggi.Action {
	retVal := append([]janggi.Action(nil), actions...)
	t.Lock()
	t.rand.Shuffle(len(retVal), func(i, j int) { retVal[i], retVal[j] = retVal[j], retVal[i] })
	t.Unlock()
	return retVal
}

// noise draws a symmetric Dirichlet sample of size n. It returns nil when the
// sample degenerates, which happens for tiny alphas.
func (t *MCTS) noise(n int) []float64 {
	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = t.DirichletAlpha
	}
	t.Lock()
	sample := t.dirichlet.Dirichlet(alpha)
	t.Unlock()
	var sum float64
	for _, v := range sample {
		sum += v
	}
	if !(sum > 0) {
		return nil
	}
	return sample
}

// pick chooses the move to play from the visit counts of a searched node. At
// a low temperature the most visited action is played, ties broken at random;
// otherwise the action is sampled with probability proportional to
// N(s, a)^(1/temperature).
func (t *MCTS) pick(n *Node, round int) janggi.Action {
	actions := t.shuffled(n.Actions())
	visits := make([]float32, len(actions))
	for i, a := range actions {
		visits[i] = float32(n.Visits(a))
	}
	if len(actions) == 1 {
		return actions[0]
	}

	temp := t.Temperature(round)
	best := vecf32.Argmax(visits)
	if temp <= greedyTemperature || visits[best] == 0 {
		return actions[best]
	}

	// normalising by the maximum keeps the power in range
	vecf32.ScaleInv(visits, visits[best])
	vecf32.PowOf(visits, 1/temp)
	weights := make([]float64, len(visits))
	for i, v := range visits {
		weights[i] = float64(v)
	}

	t.Lock()
	defer t.Unlock()
	return actions[int(distuv.NewCategorical(weights, t.src).Rand())]
}
