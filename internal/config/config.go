package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" parse cleanly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// LockConfig controls per-table locking behavior.
type LockConfig struct {
	// WaitTimeout bounds how long an operation waits for a table lock.
	// Zero means block until the lock is free.
	WaitTimeout Duration `yaml:"wait_timeout"`
	// FileLocks enables OS advisory locks on <table>.lock files so
	// multiple engine processes can share a data directory.
	FileLocks bool `yaml:"file_locks"`
}

// LogConfig controls the structured logging setup.
type LogConfig struct {
	Level  string `yaml:"level"`   // debug, info, warn, error
	SeqURL string `yaml:"seq_url"` // empty disables the Seq sink
}

// Config is the full engine configuration. It is passed explicitly
// into each component constructor; there is no package-level state.
type Config struct {
	DataDir string     `yaml:"data_dir"`
	Lock    LockConfig `yaml:"lock"`
	Logging LogConfig  `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: "data",
		Lock: LockConfig{
			WaitTimeout: 0,
			FileLocks:   false,
		},
		Logging: LogConfig{
			Level:  "info",
			SeqURL: "",
		},
	}
}

var levelRE = regexp.MustCompile(`^(debug|info|warn|error)$`)

// Validate checks field values without touching the filesystem.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Logging.Level != "" && !levelRE.MatchString(c.Logging.Level) {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Lock.WaitTimeout < 0 {
		return fmt.Errorf("lock.wait_timeout must not be negative")
	}
	return nil
}

// Load reads a YAML config file. A missing file is not an error: the
// defaults are returned so a fresh checkout works without setup.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}
