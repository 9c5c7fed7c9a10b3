// Package config holds the training configuration, read from a YAML file and
// overridden by CNNTRAIN_* environment variables and command line flags.
package config

import "errors"
import "fmt"
import "os"
import "path/filepath"
import "strconv"

import "go.uber.org/zap/zapcore"
import "gopkg.in/yaml.v3"

// Config is the configuration of a training run.
type Config struct {
	DataDir       string  `yaml:"data_dir"`
	CheckpointDir string  `yaml:"checkpoint_dir"`
	BatchSize     int     `yaml:"batch_size"`
	Epochs        int     `yaml:"epochs"`
	LearningRate  float64 `yaml:"learning_rate"`

	Workers  int    `yaml:"workers"`  // batch loading goroutines
	Seed     int64  `yaml:"seed"`     // weight init, shuffle and augmentation
	Download bool   `yaml:"download"` // fetch the dataset when missing
	Metrics  bool   `yaml:"metrics"`  // record Loss/train under <checkpoint_dir>/runs
	Threads  int    `yaml:"threads"`  // kernel goroutines, 0 detects
	LogLevel string `yaml:"log_level"`

	// MirrorDir receives a copy of the checkpoints after every epoch, and
	// seeds CheckpointDir when that holds no latest checkpoint. Optional.
	MirrorDir string `yaml:"mirror_dir"`
}

// DefaultConfig returns the defaults. DataDir and CheckpointDir have none.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:    32,
		Epochs:       10,
		LearningRate: 0.001,
		Workers:      2,
		Seed:         1,
		Download:     true,
		Metrics:      true,
		LogLevel:     "info",
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CNNTRAIN_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CNNTRAIN_CHECKPOINT_DIR"); v != "" {
		c.CheckpointDir = v
	}
	if v := os.Getenv("CNNTRAIN_MIRROR_DIR"); v != "" {
		c.MirrorDir = v
	}
	if v := os.Getenv("CNNTRAIN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	ints := map[string]*int{
		"CNNTRAIN_BATCH_SIZE": &c.BatchSize,
		"CNNTRAIN_EPOCHS":     &c.Epochs,
		"CNNTRAIN_WORKERS":    &c.Workers,
		"CNNTRAIN_THREADS":    &c.Threads,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("CNNTRAIN_LEARNING_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CNNTRAIN_LEARNING_RATE: %w", err)
		}
		c.LearningRate = f
	}
	if v := os.Getenv("CNNTRAIN_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CNNTRAIN_SEED: %w", err)
		}
		c.Seed = n
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.CheckpointDir == "" {
		errs = append(errs, errors.New("checkpoint_dir is required"))
	}
	if c.MirrorDir != "" && filepath.Clean(c.MirrorDir) == filepath.Clean(c.CheckpointDir) {
		errs = append(errs, errors.New("mirror_dir must differ from checkpoint_dir"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size %d must be positive", c.BatchSize))
	}
	if c.Epochs < 0 {
		errs = append(errs, fmt.Errorf("epochs %d must not be negative", c.Epochs))
	}
	if !(c.LearningRate > 0) {
		errs = append(errs, fmt.Errorf("learning_rate %v must be positive", c.LearningRate))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads %d must not be negative", c.Threads))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}

// MetricsPath is where the metric log lives.
func (c *Config) MetricsPath() string {
	return filepath.Join(c.CheckpointDir, "runs", "metrics.db")
}
