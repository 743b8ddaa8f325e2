package qlearn

import (
	"os"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// checkpoint is the on-disk form of a trained classifier.
type checkpoint struct {
	Layers   int       `msgpack:"layers"`
	Wires    int       `msgpack:"wires"`
	Weights  []float64 `msgpack:"weights"`
	Bias     float64   `msgpack:"bias"`
	Features []string  `msgpack:"features,omitempty"`
}

// Save writes the classifier's shape and parameters as msgpack.
func (c *Classifier) Save(path string, features []string) error {
	b, err := msgpack.Marshal(&checkpoint{
		Layers:   c.Layers,
		Wires:    c.Wires,
		Weights:  c.Weights,
		Bias:     c.Bias,
		Features: features,
	})
	if err != nil {
		return errors.Wrap(err, "encoding checkpoint")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing checkpoint %s", path)
	}
	return nil
}

/*
LoadClassifier restores a saved classifier onto dev, which must have as
many wires as the saved one. It also returns the feature names stored with
it.
*/
func LoadClassifier(path string, dev *Device, pool *Q) (*Classifier, []string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading checkpoint %s", path)
	}

	var cp checkpoint
	if err := msgpack.Unmarshal(b, &cp); err != nil {
		return nil, nil, errors.Wrap(err, "decoding checkpoint")
	}
	if cp.Wires != dev.Wires {
		return nil, nil, errors.Wrapf(ErrInvalidWires, "checkpoint has %d wires, device %d", cp.Wires, dev.Wires)
	}

	c, err := NewClassifier(dev, pool, cp.Layers)
	if err != nil {
		return nil, nil, err
	}
	if err := c.SetParams(append(cp.Weights, cp.Bias)); err != nil {
		return nil, nil, errors.Wrap(err, "checkpoint")
	}
	return c, cp.Features, nil
}
