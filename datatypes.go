package janggizero

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	dual "github.com/janggizero/dualnet"
	"github.com/janggizero/game"
	"github.com/janggizero/mcts"
)

// Config for self-play and arena matches.
// It holds attributes that impact the MCTS, the network shapes and the games
// themselves.
type Config struct {
	Name            string      `json:"name" yaml:"name"`
	NNConf          dual.Config `json:"nn_conf" yaml:"nn_conf"`
	MCTSConf        mcts.Config `json:"mcts_conf" yaml:"mcts_conf"`
	GameConf        game.Config `json:"game_conf" yaml:"game_conf"`
	UpdateThreshold float64     `json:"update_threshold" yaml:"update_threshold"`
	// maximum number of examples kept from one round of self-play; 0 keeps all
	MaxExamples int `json:"max_examples" yaml:"max_examples"`
	// self-play games run at once
	Parallel int   `json:"parallel" yaml:"parallel"`
	Seed     int64 `json:"seed" yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Name:            "janggizero",
		NNConf:          dual.DefaultConf(),
		MCTSConf:        mcts.DefaultConfig(),
		GameConf:        game.DefaultConfig(),
		UpdateThreshold: 0.55,
		Parallel:        1,
	}
}

func (c Config) IsValid() bool {
	return c.NNConf.IsValid() &&
		c.MCTSConf.IsValid() &&
		c.GameConf.IsValid() &&
		c.UpdateThreshold >= 0 && c.UpdateThreshold <= 1 &&
		c.MaxExamples >= 0 &&
		c.Parallel >= 1
}

// LoadConfig reads a YAML file over DefaultConfig. Keys missing from the file
// keep their default.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.WithStack(err)
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "parsing %s", path)
	}
	if !conf.IsValid() {
		return conf, errors.Errorf("%s: invalid configuration", path)
	}
	return conf, nil
}

// Example is a training example: the features of a position, the visit
// distribution of the search behind the move played there, and the final
// result for the side to move.
type Example struct {
	Board  []float32
	Policy []float32
	Value  float32
}
