// Package config loads driver settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Harness HarnessConfig `toml:"harness"`
	Suite   SuiteConfig   `toml:"suite"`
}

type HarnessConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Dir     string   `toml:"dir"`
	Env     []string `toml:"env"`
}

type SuiteConfig struct {
	Cases    []string `toml:"cases"`
	FailFast bool     `toml:"fail_fast"`
	// Timeout bounds a whole run, zero means no limit.
	Timeout Duration `toml:"timeout"`
}

// Duration is a time.Duration written as "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func Default() Config {
	return Config{
		Harness: HarnessConfig{
			Command: "conformer",
			Args:    []string{"serve"},
		},
	}
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config parse failed (%s): unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Harness.Command) == "" {
		return errors.New("harness command is required")
	}
	if len(c.Suite.Cases) == 0 {
		return errors.New("at least one cases file is required")
	}
	if c.Suite.Timeout.Duration < 0 {
		return fmt.Errorf("negative timeout: %s", c.Suite.Timeout)
	}
	return nil
}
