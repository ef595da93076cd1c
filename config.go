package lnsin

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Hard cap on series terms
	DefaultMaxTerms = 10000
	// Wall-clock budget of one Compute call
	DefaultTimeout = 15 * time.Minute

	envMaxTerms = "LNSIN_MAX_TERMS"
	envTimeout  = "LNSIN_TIMEOUT"
)

// Evaluation budget
type Config struct {
	MaxTerms int           `json:"max_terms" yaml:"max_terms"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{MaxTerms: DefaultMaxTerms, Timeout: DefaultTimeout}
}

func (c Config) Validate() error {
	if c.MaxTerms < 1 {
		return fmt.Errorf("%w: max_terms must be positive, got %d", ErrInvalidConfig, c.MaxTerms)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Loads configuration with priority env > file > defaults.
// Empty path or missing file leave defaults in place.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadConfigFromEnv(&config); err != nil {
		return config, err
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, config)
}

func loadConfigFromEnv(config *Config) error {
	if v := os.Getenv(envMaxTerms); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envMaxTerms, v, err)
		}
		config.MaxTerms = i
	}
	if v := os.Getenv(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envTimeout, v, err)
		}
		config.Timeout = d
	}
	return nil
}
