// Package config loads and validates run configurations for the determinism
// harness from YAML files, with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/reprogo/determinism-harness/internal/rng"
)

// RunConfig describes a complete harness run: the seed applied to every
// source, the thread pool sizes, device visibility, the agreed launch hash
// seed, and the stochastic workload.
type RunConfig struct {
	Seed           uint32   `yaml:"seed"`
	HashSeed       string   `yaml:"hash_seed"`
	Threads        Threads  `yaml:"threads"`
	VisibleDevices []string `yaml:"visible_devices"`
	Workload       []OpSpec `yaml:"workload"`
}

// Threads holds the process-wide pool sizes.
type Threads struct {
	IntraOp int `yaml:"intra_op"`
	InterOp int `yaml:"inter_op"`
}

// OpSpec describes one stochastic operation in the workload. Seed is the
// optional per-operation seed; when absent the graph seed and the op's
// creation ordinal decide the stream.
type OpSpec struct {
	Name  string  `yaml:"name"`
	Kind  string  `yaml:"kind"`
	Count int     `yaml:"count"`
	Seed  *uint32 `yaml:"seed"`
}

// envOverrides are applied on top of the file configuration. REPRO_HASH_SEED
// doubles as the launch parameter the harness verifies, so when the file
// leaves hash_seed empty the launch value itself becomes the expectation.
type envOverrides struct {
	Seed           *uint32  `env:"REPRO_SEED"`
	IntraOpThreads *int     `env:"REPRO_INTRA_OP_THREADS"`
	InterOpThreads *int     `env:"REPRO_INTER_OP_THREADS"`
	VisibleDevices []string `env:"REPRO_VISIBLE_DEVICES"`
	HashSeed       string   `env:"REPRO_HASH_SEED"`
}

// Parser handles parsing of run configuration files.
type Parser struct{}

// NewParser creates a new parser.
func NewParser() *Parser {
	return &Parser{}
}

// LoadFromFile loads a run configuration from a YAML file, applies
// environment overrides, and validates the result.
func (p *Parser) LoadFromFile(filename string) (*RunConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := p.ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := p.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration usable without a file: single-threaded,
// CPU only, hash seed taken from the launch environment.
func (p *Parser) Default() (*RunConfig, error) {
	cfg := &RunConfig{
		Threads: Threads{IntraOp: 1, InterOp: 1},
	}
	if err := p.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration.
func (p *Parser) ApplyEnv(cfg *RunConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}

	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.IntraOpThreads != nil {
		cfg.Threads.IntraOp = *o.IntraOpThreads
	}
	if o.InterOpThreads != nil {
		cfg.Threads.InterOp = *o.InterOpThreads
	}
	if _, set := os.LookupEnv("REPRO_VISIBLE_DEVICES"); set {
		cfg.VisibleDevices = o.VisibleDevices
	}
	if cfg.HashSeed == "" {
		cfg.HashSeed = o.HashSeed
	}
	return nil
}

// Validate validates the loaded configuration.
func (p *Parser) Validate(cfg *RunConfig) error {
	if cfg.HashSeed == "" {
		return fmt.Errorf("hash_seed is required (set it in the file or launch with REPRO_HASH_SEED)")
	}
	if cfg.Threads.IntraOp < 1 {
		return fmt.Errorf("threads.intra_op must be at least 1, got %d", cfg.Threads.IntraOp)
	}
	if cfg.Threads.InterOp < 1 {
		return fmt.Errorf("threads.inter_op must be at least 1, got %d", cfg.Threads.InterOp)
	}

	if len(cfg.Workload) == 0 {
		return fmt.Errorf("no workload operations provided")
	}

	seen := make(map[string]bool)
	for i, op := range cfg.Workload {
		if err := p.validateOp(&op); err != nil {
			return fmt.Errorf("workload operation %d validation failed: %w", i, err)
		}
		if seen[op.Name] {
			return fmt.Errorf("workload operation %d: duplicate name %q", i, op.Name)
		}
		seen[op.Name] = true
	}
	return nil
}

// validateOp validates a single workload operation.
func (p *Parser) validateOp(op *OpSpec) error {
	if op.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := rng.ParseOpKind(op.Kind); err != nil {
		return err
	}
	if op.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", op.Count)
	}
	return nil
}
