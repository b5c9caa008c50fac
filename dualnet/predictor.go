package dual

import (
	"io"
	"sync"

	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
)

// ErrClosed is returned by Predict once the predictor is closed.
var ErrClosed = errors.New("dual: predictor is closed")

// Inferer is anything that can infer given an input: a network session, a
// batching queue in front of one, or a remote client.
//
// The input is the flattened (Features, Height, Width) feature tensor. The
// policy is the flattened (ActionSpace, Height, Width) tensor over move
// classes and origin squares, seen from the side to move.
type Inferer interface {
	Infer(a []float32) (policy []float32, value float32, err error)
	io.Closer
}

// ExecLogger is anything that can return the execution log.
type ExecLogger interface {
	ExecLog() string
}

// Predictor turns an Inferer into a search oracle. Inferers are not assumed
// to be safe for concurrent use; each Predict call borrows one from the pool.
type Predictor struct {
	Conf Config

	// Augmented feeds the column mirrored board and reads the policy back
	// through the same mirror.
	Augmented bool

	// guards closed; Predict calls hold it for reading
	mu     sync.RWMutex
	closed bool

	inferer  chan Inferer
	inferers []Inferer
}

// NewPredictor pools the inferers. At least one is needed.
func NewPredictor(conf Config, inferers ...Inferer) (*Predictor, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("dual: invalid config %+v", conf)
	}
	if len(inferers) == 0 {
		return nil, errors.New("dual: no inferer")
	}
	p := &Predictor{
		Conf:     conf,
		inferer:  make(chan Inferer, len(inferers)),
		inferers: inferers,
	}
	for _, inf := range inferers {
		p.inferer <- inf
	}
	return p, nil
}

// Predict implements the search's Predictor. Priors are read at the move class
// and origin square of every action and renormalised over the legal ones.
func (p *Predictor) Predict(s *game.State, actions []janggi.Action) (map[janggi.Action]float32, float32, error) {
	encode := game.InputEncoder
	if p.Augmented {
		encode = game.AugmentedEncoder
	}
	input := encode(s)
	if len(input) != p.Conf.InputSize() {
		return nil, 0, errors.Errorf("dual: %d features, expected %d", len(input), p.Conf.InputSize())
	}

	policy, value, err := p.infer(input)
	if err != nil {
		return nil, 0, err
	}
	if len(policy) != p.Conf.PolicySize() {
		return nil, 0, errors.Errorf("dual: policy of length %d, expected %d", len(policy), p.Conf.PolicySize())
	}
	if math32.IsNaN(value) || math32.IsInf(value, 0) {
		return nil, 0, errors.Errorf("dual: invalid value %v", value)
	}

	t := tensor.New(tensor.WithShape(p.Conf.ActionSpace, p.Conf.Height, p.Conf.Width), tensor.WithBacking(policy))
	symX, symY := janggi.Symmetries(s.ToMove)
	if p.Augmented {
		symY = !symY
	}

	priors := make(map[janggi.Action]float32, len(actions))
	var sum float32
	for _, a := range actions {
		if a.IsPass() {
			priors[a] = 1
			sum++
			continue
		}
		v, err := t.At(a.MoveClass(symX, symY), a.Row(symX), a.Col(symY))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "dual: reading the prior of %v", a)
		}
		prior := v.(float32)
		if math32.IsNaN(prior) {
			return nil, 0, errors.Errorf("dual: NaN prior for %v", a)
		}
		priors[a] = prior
		sum += prior
	}
	if sum > 0 {
		for a := range priors {
			priors[a] /= sum
		}
	}
	return priors, value, nil
}

func (p *Predictor) infer(input []float32) ([]float32, float32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, 0, ErrClosed
	}
	inf := <-p.inferer
	defer func() { p.inferer <- inf }()

	policy, value, err := inf.Infer(input)
	if err != nil {
		if el, ok := inf.(ExecLogger); ok {
			return nil, 0, errors.Wrap(err, el.ExecLog())
		}
		return nil, 0, errors.WithStack(err)
	}
	return policy, value, nil
}

// Close waits for the predictions in flight and closes every inferer. Predict
// fails with ErrClosed from then on; closing again does nothing.
func (p *Predictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs error
	for _, inf := range p.inferers {
		if err := inf.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
