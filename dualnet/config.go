package dual

import "github.com/janggizero/janggi"

// Config describes the network a predictor talks to. Only the input and
// output shapes are checked here; the rest is passed through to whatever
// builds the network.
type Config struct {
	K            int `json:"k" yaml:"k"`                         // number of filters
	SharedLayers int `json:"shared_layers" yaml:"shared_layers"` // number of shared residual blocks
	FC           int `json:"fc" yaml:"fc"`                       // fc layer width
	BatchSize    int `json:"batch_size" yaml:"batch_size"`       // batch size
	Width        int `json:"width" yaml:"width"`                 // board size width
	Height       int `json:"height" yaml:"height"`               // board size height
	Features     int `json:"features" yaml:"features"`           // feature planes
	ActionSpace  int `json:"action_space" yaml:"action_space"`   // move classes per square
}

// DefaultConf returns the shapes of the Janggi board and its move classes.
func DefaultConf() Config {
	k := round((janggi.Height * janggi.Width) / 3)
	return Config{
		K:            k,
		SharedLayers: janggi.Height,
		FC:           2 * k,
		BatchSize:    256,
		Width:        janggi.Width,
		Height:       janggi.Height,
		Features:     janggi.NumPlanes,
		ActionSpace:  janggi.NumClasses,
	}
}

func (conf Config) IsValid() bool {
	return conf.K >= 1 &&
		conf.SharedLayers >= 0 &&
		conf.FC > 1 &&
		conf.BatchSize >= 1 &&
		conf.Width == janggi.Width &&
		conf.Height == janggi.Height &&
		conf.Features == janggi.NumPlanes &&
		conf.ActionSpace == janggi.NumClasses
}

// InputSize is the length of a flattened feature tensor.
func (conf Config) InputSize() int { return conf.Features * conf.Height * conf.Width }

// PolicySize is the length of a flattened policy tensor.
func (conf Config) PolicySize() int { return conf.ActionSpace * conf.Height * conf.Width }

// round rounds a to the nearest power of two.
func round(a int) int {
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	lt := n / 2
	if (a - lt) < (n - a) {
		return lt
	}
	return n
}
