package qlearn

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

/*
Session runs the exercises end to end from a Config: bring up a device,
build a circuit, define a cost, optimize for a fixed number of steps, print
and plot. Every run gets its own ID so logs and output files from
concurrent runs can be told apart.
*/
type Session struct {
	ID     string
	Config *Config
	Out    io.Writer

	pool *Q
}

func NewSession(ctx context.Context, cfg *Config, out io.Writer) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		ID:     uuid.NewString(),
		Config: cfg,
		Out:    out,
		pool:   NewQ(ctx, cfg.Pool.MinWorkers, cfg.Pool.MaxWorkers, &cfg.Pool),
	}
	errnie.Info("NewSession - %s", s.ID)
	return s, nil
}

func (s *Session) Pool() *Q {
	return s.pool
}

func (s *Session) Close() {
	s.pool.Close()
}

func (s *Session) device(wires int) (*Device, error) {
	opts := []DeviceOption{WithShots(s.Config.Device.Shots)}
	if s.Config.Device.Seed != 0 {
		opts = append(opts, WithSeed(s.Config.Device.Seed))
	}
	return NewDevice(wires, opts...)
}

/*
Ising checks the hand-computable energy of [1,-1,...], brute-forces the
ground state, then solves the same model variationally and reports both.
*/
func (s *Session) Ising(ctx context.Context, cb StepFunc) (*Solution, error) {
	cfg := s.Config.Ising
	model, err := NewIsing(cfg.Couplings, cfg.Fields)
	if err != nil {
		return nil, err
	}

	check := make([]int, model.Size())
	for i := range check {
		check[i] = -1
	}
	check[0] = 1
	e, err := model.Energy(check)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "Energy of %v: %.4f\n", check, e)

	ground, groundEnergy := model.GroundState()
	fmt.Fprintf(s.Out, "Brute-force ground state %v: %.4f\n", ground, groundEnergy)

	dev, err := s.device(model.Size())
	if err != nil {
		return nil, err
	}

	init := make([]float64, model.Size())
	for i := range init {
		// Start away from the stationary points at 0 and π.
		init[i] = 0.5 + 0.5*dev.Float64()
	}

	var opt Optimizer
	if cfg.Optimizer != "bfgs" {
		if opt, err = NewOptimizer(cfg.Optimizer, cfg.Stepsize, 0.9); err != nil {
			return nil, err
		}
	}

	sol, err := model.Solve(ctx, dev, s.pool, opt, init, cfg.Steps, cb)
	if err != nil {
		return nil, errors.Wrap(err, "solving ising model")
	}

	if err := sol.History.Print(s.Out, max(1, cfg.Steps/10)); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "Variational solution: %s\n", sol)
	return sol, s.plot(sol.History)
}

// ClassifierRun bundles a trained classifier with its data and history.
type ClassifierRun struct {
	Classifier *Classifier
	Train      *Dataset
	Val        *Dataset
	History    *History
}

// Classify trains the variational classifier on the configured CSV.
func (s *Session) Classify(ctx context.Context, cb func(Record)) (*ClassifierRun, error) {
	cfg := s.Config.Classifier
	if cfg.Data == "" {
		return nil, errors.New("classifier.data is not set")
	}

	data, err := LoadCSV(cfg.Data, FeatureSpec{
		Features:      cfg.Features,
		Rules:         cfg.Thresholds,
		Label:         cfg.Label,
		PositiveLabel: cfg.PositiveLabel,
	})
	if err != nil {
		return nil, err
	}

	dev, err := s.device(len(cfg.Features))
	if err != nil {
		return nil, err
	}

	seed := s.Config.Device.Seed
	rng := newRand(seed)
	data.Shuffle(rng)
	train, val := data.Split(cfg.TrainFraction)

	clf, err := NewClassifier(dev, s.pool, cfg.Layers)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(s.Out, clf.Circuit())

	opt, err := NewOptimizer(cfg.Optimizer, cfg.Stepsize, cfg.Momentum)
	if err != nil {
		return nil, err
	}

	history, err := clf.Train(ctx, train, val, TrainConfig{
		Steps:     cfg.Steps,
		BatchSize: cfg.BatchSize,
		Optimizer: opt,
		Seed:      seed,
	}, cb)
	if err != nil {
		return nil, errors.Wrap(err, "training classifier")
	}

	if err := history.Print(s.Out, 1); err != nil {
		return nil, err
	}
	if path := s.Config.Output.Checkpoint; path != "" {
		if err := clf.Save(path, cfg.Features); err != nil {
			return nil, err
		}
	}
	return &ClassifierRun{Classifier: clf, Train: train, Val: val, History: history}, s.plot(history)
}

// Metrics measures the classifier ansatz without its embedding.
func (s *Session) Metrics(ctx context.Context, wires, layers, samples, bins int) (*CircuitMetrics, error) {
	if wires < 1 || wires > MaxWires {
		return nil, errors.Wrapf(ErrInvalidWires, "got %d", wires)
	}
	c := NewCircuit(wires)
	for l := 0; l < layers; l++ {
		c.StronglyEntanglingLayer(l * wires * 3)
	}
	m, err := MeasureCircuit(ctx, s.pool, c, samples, bins, s.Config.Device.Seed)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "Expressibility (KL to Haar): %.4f\nEntangling capability: %.4f\n",
		m.Expressibility, m.EntanglingCapability)
	return m, nil
}

func (s *Session) plot(h *History) error {
	if s.Config.Output.Plot == "" {
		return nil
	}
	return h.Plot(s.Config.Output.Plot)
}
