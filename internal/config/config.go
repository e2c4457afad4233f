// Package config loads repeater settings from YAML with environment overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing file is fine.
const DefaultPath = "repeater.yaml"

// Config defines runtime settings for the repeater.
type Config struct {
	Server   Server   `yaml:"server"`
	Playback Playback `yaml:"playback"`
	Display  Display  `yaml:"display"`
	Hooks    Hooks    `yaml:"hooks"`
	Logging  Logging  `yaml:"logging"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Playback struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	Interval     time.Duration `yaml:"interval"`
}

type Display struct {
	Index int `yaml:"index"`
}

// Hooks.Simulate swaps the OS hooks and injector for in-process fakes.
type Hooks struct {
	Simulate bool `yaml:"simulate"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080"},
		Playback: Playback{InitialDelay: 10 * time.Millisecond, Interval: 650 * time.Millisecond},
		Logging:  Logging{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and applies REPEATER_* overrides. An
// empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(err, "read config file")
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if addr := os.Getenv("REPEATER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("REPEATER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("REPEATER_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if sim := os.Getenv("REPEATER_SIMULATE"); sim != "" {
		v, err := strconv.ParseBool(sim)
		if err != nil {
			return errors.Wrapf(err, "REPEATER_SIMULATE=%q", sim)
		}
		cfg.Hooks.Simulate = v
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if c.Playback.InitialDelay < 0 {
		return errors.Errorf("playback.initial_delay %s is negative", c.Playback.InitialDelay)
	}
	if c.Playback.Interval <= 0 {
		return errors.Errorf("playback.interval %s must be positive", c.Playback.Interval)
	}
	if c.Display.Index < 0 {
		return errors.Errorf("display.index %d is negative", c.Display.Index)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
