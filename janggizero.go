package janggizero

import (
	"context"
	"encoding/gob"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	dual "github.com/janggizero/dualnet"
	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
	"github.com/janggizero/mcts"
)

// SelfPlayer generates training data by letting the search play against
// itself, several games at a time.
type SelfPlayer struct {
	Conf Config
	MCTS *mcts.MCTS

	mu     sync.Mutex
	r      *rand.Rand
	logger zerolog.Logger
}

// NewSelfPlayer builds the search around predictor.
func NewSelfPlayer(conf Config, predictor mcts.Predictor, logger zerolog.Logger) (*SelfPlayer, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid configuration %+v", conf)
	}
	m, err := mcts.New(conf.MCTSConf, predictor, mcts.WithSeed(conf.Seed), mcts.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &SelfPlayer{
		Conf:   conf,
		MCTS:   m,
		r:      rand.New(rand.NewSource(uint64(conf.Seed))),
		logger: logger,
	}, nil
}

type episode struct {
	examples []Example
	record   *game.Record
}

// Generate plays episodes games, at most Conf.Parallel at once, and returns
// their examples and records. The first failure cancels the games still
// running.
func (sp *SelfPlayer) Generate(ctx context.Context, episodes int) ([]Example, []*game.Record, error) {
	results := make([]episode, episodes)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sp.Conf.Parallel)
	for i := 0; i < episodes; i++ {
		blue, red := sp.layouts()
		g.Go(func() error {
			logger := sp.logger.With().Str("game", uuid.NewString()).Int("episode", i).Logger()
			logger.Info().Stringer("blue", blue).Stringer("red", red).Msg("self play")
			examples, record, err := SelfPlay(ctx, sp.MCTS, blue, red, sp.Conf.GameConf, logger)
			if err != nil {
				return errors.WithMessagef(err, "episode %d", i)
			}
			results[i] = episode{examples, record}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var examples []Example
	records := make([]*game.Record, 0, episodes)
	for _, res := range results {
		examples = append(examples, res.examples...)
		records = append(records, res.record)
	}
	if sp.Conf.MaxExamples > 0 && len(examples) > sp.Conf.MaxExamples {
		sp.mu.Lock()
		shuffleExamples(sp.r, examples)
		sp.mu.Unlock()
		examples = examples[:sp.Conf.MaxExamples]
	}
	return examples, records, nil
}

func (sp *SelfPlayer) layouts() (blue, red janggi.Layout) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return randomLayouts(sp.r)
}

// RecordExamples replays rec and turns every move into a pair of examples,
// plain and column mirrored, as SelfPlay does. The policy is the visit
// distribution when the record carries one and the played move otherwise.
// Passes give no example. Values are +1 for the winner's moves and -1 for the
// loser's.
func RecordExamples(rec *game.Record, maxRepetitions int) ([]Example, error) {
	s := game.NewState(janggi.NewBoard(rec.Blue, rec.Red, maxRepetitions), 0)
	var examples []Example
	for i, a := range rec.Actions {
		legal := false
		for _, b := range s.Actions() {
			if b == a {
				legal = true
				break
			}
		}
		if !legal {
			return nil, errors.Wrapf(game.ErrIllegalAction, "move %d %v for %v", i, a.UCI(), s.ToMove)
		}

		if !a.IsPass() {
			value := float32(-1)
			if s.ToMove == rec.Winner {
				value = 1
			}
			for _, augmented := range []bool{false, true} {
				policy := make([]float32, janggi.NumClasses*janggi.Height*janggi.Width)
				if i < len(rec.Visits) && rec.Visits[i].Total > 0 {
					v := rec.Visits[i]
					for va, n := range v.N {
						if j := va.PolicyIndex(s.ToMove, augmented); j >= 0 {
							policy[j] = float32(n) / float32(v.Total)
						}
					}
				} else {
					policy[a.PolicyIndex(s.ToMove, augmented)] = 1
				}
				examples = append(examples, Example{
					Board:  s.Features(augmented),
					Policy: policy,
					Value:  value,
				})
			}
		}

		s.Apply(a)
		s.Board.InvalidateActionCache()
	}
	return examples, nil
}

// SaveExamples writes examples into filename as a zstd compressed gob stream.
func SaveExamples(filename string, examples []Example) (err error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierror.Append(err, errors.WithStack(cerr))
		}
	}()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = gob.NewEncoder(zw).Encode(examples); err != nil {
		zw.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(zw.Close())
}

// LoadExamples reads a file written by SaveExamples.
func LoadExamples(filename string) ([]Example, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer zr.Close()

	var examples []Example
	if err = gob.NewDecoder(zr).Decode(&examples); err != nil {
		return nil, errors.WithStack(err)
	}
	return examples, nil
}

// Batches stacks examples into the tensors a trainer consumes: inputs of
// shape (n, Features, Height, Width), policies of shape (n, ActionSpace,
// Height, Width) and values of shape (n). n is the largest multiple of the
// batch size that fits; leftovers are dropped.
func Batches(examples []Example, conf dual.Config) (Xs, Policies, Values *tensor.Dense, batches int) {
	batches = len(examples) / conf.BatchSize
	total := batches * conf.BatchSize
	if total == 0 {
		return nil, nil, nil, 0
	}
	XsBacking := make([]float32, 0, total*conf.InputSize())
	PoliciesBacking := make([]float32, 0, total*conf.PolicySize())
	ValuesBacking := make([]float32, 0, total)
	for _, ex := range examples[:total] {
		XsBacking = append(XsBacking, ex.Board...)
		PoliciesBacking = append(PoliciesBacking, ex.Policy...)
		ValuesBacking = append(ValuesBacking, ex.Value)
	}

	Xs = tensor.New(tensor.WithBacking(XsBacking), tensor.WithShape(total, conf.Features, conf.Height, conf.Width))
	Policies = tensor.New(tensor.WithBacking(PoliciesBacking), tensor.WithShape(total, conf.ActionSpace, conf.Height, conf.Width))
	Values = tensor.New(tensor.WithBacking(ValuesBacking), tensor.WithShape(total))
	return
}

func shuffleExamples(r *rand.Rand, examples []Example) {
	for i := range examples {
		j := r.Intn(i + 1)
		examples[i], examples[j] = examples[j], examples[i]
	}
}
