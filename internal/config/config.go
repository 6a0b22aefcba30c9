package config

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDuration = 10.0
	DefaultPoints   = 201
	DefaultNTraj    = 500
	DefaultRTol     = 1e-8
	DefaultATol     = 1e-10
)

type Config struct {
	Model    string  `yaml:"model"`
	Solver   string  `yaml:"solver"` // se, me or mc
	Duration float64 `yaml:"duration"`
	Points   int     `yaml:"points"`
	Seed     int64   `yaml:"seed"`
	NTraj    int     `yaml:"ntraj"`
	Workers  int     `yaml:"workers"`

	Tolerances TolConfig   `yaml:"tolerances"`
	Params     ParamConfig `yaml:"params"`

	StorePath string `yaml:"store_path"`
}

type TolConfig struct {
	RTol float64 `yaml:"rtol"`
	ATol float64 `yaml:"atol"`
}

// ParamConfig overrides model parameters; zero values keep the model
// defaults.
type ParamConfig struct {
	Delta  float64 `yaml:"delta"`
	Omega  float64 `yaml:"omega"`
	Gamma  float64 `yaml:"gamma"`
	Kappa  float64 `yaml:"kappa"`
	G      float64 `yaml:"g"`
	Levels int     `yaml:"levels"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    "damped-qubit",
		Solver:   "me",
		Duration: DefaultDuration,
		Points:   DefaultPoints,
		Seed:     1,
		NTraj:    DefaultNTraj,
		Tolerances: TolConfig{
			RTol: DefaultRTol,
			ATol: DefaultATol,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.Solver {
	case "se", "me", "mc":
	default:
		return fmt.Errorf("config: unknown solver %q", c.Solver)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	if c.Points < 2 {
		return fmt.Errorf("config: need at least 2 output points, got %d", c.Points)
	}
	if c.Solver == "mc" && c.NTraj <= 0 {
		return fmt.Errorf("config: ntraj must be positive, got %d", c.NTraj)
	}
	if c.Tolerances.RTol <= 0 || c.Tolerances.ATol <= 0 {
		return fmt.Errorf("config: tolerances must be positive")
	}
	return nil
}

// TimeGrid returns the evenly spaced output times.
func (c *Config) TimeGrid() []float64 {
	return floats.Span(make([]float64, c.Points), 0, c.Duration)
}
