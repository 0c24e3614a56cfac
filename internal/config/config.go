package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Refinement Refinement
	Checker    struct {
		Enabled      bool    `env:"CHECK_ENABLED" envDefault:"true"`
		SkipDistance bool    `env:"CHECK_SKIP_DISTANCE" envDefault:"false"`
		Tolerance    float64 `env:"CHECK_TOLERANCE" envDefault:"1"`
	}
	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	}
	Runs struct {
		// Retention is how long finished runs stay queryable. Zero keeps them
		// forever.
		Retention time.Duration `env:"RUN_RETENTION" envDefault:"1h"`
	}
}

// Refinement holds the solver parameters. Fields can be overridden by a YAML
// profile file.
type Refinement struct {
	PopulationSize      int           `env:"REFINE_POPULATION_SIZE" envDefault:"4" yaml:"population_size"`
	MaxGenerations      int           `env:"REFINE_MAX_GENERATIONS" envDefault:"2000" yaml:"max_generations"`
	MaxTime             time.Duration `env:"REFINE_MAX_TIME" envDefault:"30s" yaml:"max_time"`
	Workers             int           `env:"REFINE_WORKERS" envDefault:"4" yaml:"workers"`
	Seed                int64         `env:"REFINE_SEED" envDefault:"0" yaml:"seed"`
	InitialTemperature  float64       `env:"REFINE_INITIAL_TEMPERATURE" envDefault:"0.05" yaml:"initial_temperature"`
	Cooling             float64       `env:"REFINE_COOLING" envDefault:"0.999" yaml:"cooling"`
	StagnationWindow    int           `env:"REFINE_STAGNATION_WINDOW" envDefault:"200" yaml:"stagnation_window"`
	StagnationThreshold float64       `env:"REFINE_STAGNATION_THRESHOLD" envDefault:"0.001" yaml:"stagnation_threshold"`
	Selection           string        `env:"REFINE_SELECTION" envDefault:"uniform" yaml:"selection"`
	ProfileFile         string        `env:"REFINE_PROFILE_FILE" yaml:"-"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if cfg.Refinement.ProfileFile != "" {
		if err := cfg.Refinement.LoadProfile(cfg.Refinement.ProfileFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// LoadProfile overrides the fields present in the YAML file at path.
func (r *Refinement) LoadProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading refinement profile: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return fmt.Errorf("decoding refinement profile %s: %w", path, err)
	}
	return nil
}
