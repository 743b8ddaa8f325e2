package qlearn

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds every knob a run reads. Defaults reproduce the notebooks.
type Config struct {
	Pool       PoolConfig       `mapstructure:"pool" validate:"required"`
	Device     DeviceConfig     `mapstructure:"device" validate:"required"`
	Ising      IsingConfig      `mapstructure:"ising" validate:"required"`
	Classifier ClassifierConfig `mapstructure:"classifier" validate:"required"`
	Output     OutputConfig     `mapstructure:"output"`
}

type PoolConfig struct {
	MinWorkers        int           `mapstructure:"min_workers" validate:"gte=1"`
	MaxWorkers        int           `mapstructure:"max_workers" validate:"gtefield=MinWorkers"`
	SchedulingTimeout time.Duration `mapstructure:"scheduling_timeout" validate:"gt=0"`
}

type DeviceConfig struct {
	Shots int    `mapstructure:"shots" validate:"gte=0"`
	Seed  uint64 `mapstructure:"seed"`
}

type IsingConfig struct {
	Couplings [][]float64 `mapstructure:"couplings" validate:"required,min=1"`
	Fields    []float64   `mapstructure:"fields"`
	Steps     int         `mapstructure:"steps" validate:"gte=1"`
	Stepsize  float64     `mapstructure:"stepsize" validate:"gt=0"`
	Optimizer string      `mapstructure:"optimizer" validate:"oneof=gd momentum nesterov adam bfgs"`
}

type ClassifierConfig struct {
	Data          string   `mapstructure:"data"`
	Features      []string `mapstructure:"features" validate:"len=4"`
	Thresholds    []string `mapstructure:"thresholds" validate:"len=4"`
	Label         string   `mapstructure:"label" validate:"required"`
	PositiveLabel string   `mapstructure:"positive_label" validate:"required"`
	Layers        int      `mapstructure:"layers" validate:"gte=1"`
	Steps         int      `mapstructure:"steps" validate:"gte=1"`
	BatchSize     int      `mapstructure:"batch_size" validate:"gte=1"`
	Stepsize      float64  `mapstructure:"stepsize" validate:"gt=0"`
	Momentum      float64  `mapstructure:"momentum" validate:"gte=0,lt=1"`
	TrainFraction float64  `mapstructure:"train_fraction" validate:"gt=0,lte=1"`
	Optimizer     string   `mapstructure:"optimizer" validate:"oneof=gd momentum nesterov adam"`
}

type OutputConfig struct {
	Plot       string `mapstructure:"plot"`
	Checkpoint string `mapstructure:"checkpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pool.min_workers", 2)
	v.SetDefault("pool.max_workers", 8)
	v.SetDefault("pool.scheduling_timeout", 10*time.Second)

	v.SetDefault("device.shots", 0)
	v.SetDefault("device.seed", 0)

	v.SetDefault("ising.couplings", [][]float64{{0, 1, -1}, {0, 0, 1}, {0, 0, 0}})
	v.SetDefault("ising.fields", []float64{0, 0, 0})
	v.SetDefault("ising.steps", 100)
	v.SetDefault("ising.stepsize", 0.1)
	v.SetDefault("ising.optimizer", "gd")

	v.SetDefault("classifier.features", []string{"f0", "f1", "f2", "f3"})
	v.SetDefault("classifier.thresholds", []string{">0.5", ">0.5", ">0.5", ">0.5"})
	v.SetDefault("classifier.label", "label")
	v.SetDefault("classifier.positive_label", "1")
	v.SetDefault("classifier.layers", 2)
	v.SetDefault("classifier.steps", 25)
	v.SetDefault("classifier.batch_size", 5)
	v.SetDefault("classifier.stepsize", 0.01)
	v.SetDefault("classifier.momentum", 0.9)
	v.SetDefault("classifier.train_fraction", 0.75)
	v.SetDefault("classifier.optimizer", "nesterov")

	v.SetDefault("output.plot", "")
	v.SetDefault("output.checkpoint", "")
}

// NewConfig returns the defaults without reading a file or the environment.
func NewConfig() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		// The defaults are static and validated by tests.
		panic(err)
	}
	return cfg
}

/*
LoadConfig reads an optional YAML file, then QLEARN_* environment variables
(QLEARN_CLASSIFIER_STEPS overrides classifier.steps), and validates the
result.
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	v.SetEnvPrefix("QLEARN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	return nil
}
