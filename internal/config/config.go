// Package config layers cardbook settings: built-in defaults, then a
// cardbook.yaml file, then CARDBOOK_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CARDBOOK_DB or
// CARDBOOK_SIMULATE_USERS.
const EnvPrefix = "CARDBOOK"

// Config holds all cardbook configuration.
type Config struct {
	Catalog  string         `mapstructure:"catalog"`   // Catalog file (.yaml, .json or .cue)
	DB       string         `mapstructure:"db"`        // Event journal path; empty disables journaling
	LogLevel string         `mapstructure:"log_level"` // debug, info, warn or error
	Format   string         `mapstructure:"format"`    // json or text
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// SimulateConfig sizes the concurrent simulation.
type SimulateConfig struct {
	Users   int   `mapstructure:"users"`
	Workers int   `mapstructure:"workers"`
	Rounds  int   `mapstructure:"rounds"`
	Seed    int64 `mapstructure:"seed"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Format:   "text",
		Simulate: SimulateConfig{
			Users:   50,
			Workers: 10,
			Rounds:  3,
			Seed:    1,
		},
	}
}

// Options tells Load where to look.
type Options struct {
	// File is an explicit config file. It must exist when set.
	File string
	// SearchPaths are directories searched for cardbook.yaml when File is
	// empty. A missing file there is not an error.
	SearchPaths []string
	// Flags maps command-line flags onto keys by name; "users", "workers",
	// "rounds" and "seed" map to the simulate.* keys.
	Flags *pflag.FlagSet
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"users":   "simulate.users",
	"workers": "simulate.workers",
	"rounds":  "simulate.rounds",
	"seed":    "simulate.seed",
}

// Load resolves the configuration. Each call uses its own viper instance.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("cardbook")
		v.SetConfigType("yaml")
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
		if len(opts.SearchPaths) > 0 {
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("error reading config file: %w", err)
				}
			}
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("db", d.DB)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("format", d.Format)
	v.SetDefault("simulate.users", d.Simulate.Users)
	v.SetDefault("simulate.workers", d.Simulate.Workers)
	v.SetDefault("simulate.rounds", d.Simulate.Rounds)
	v.SetDefault("simulate.seed", d.Simulate.Seed)
}

// bindFlags binds only flags that exist and were explicitly set, so a
// flag's own default never shadows the file or the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		key := f.Name
		if mapped, ok := flagKeys[key]; ok {
			key = mapped
		}
		if !isKnownKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %q: %w", f.Name, err)
		}
	})
	return bindErr
}

func isKnownKey(key string) bool {
	switch key {
	case "catalog", "db", "log_level", "format",
		"simulate.users", "simulate.workers", "simulate.rounds", "simulate.seed":
		return true
	}
	return false
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format %q: must be 'json' or 'text'", c.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Simulate.Users < 1 || c.Simulate.Workers < 1 || c.Simulate.Rounds < 1 {
		return fmt.Errorf("simulate users, workers and rounds must be positive (got %d, %d, %d)",
			c.Simulate.Users, c.Simulate.Workers, c.Simulate.Rounds)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
