// Package config loads settings for the wave command.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/floatcmp"
)

// FileName is the config file looked up in the working directory when no
// explicit path is given.
const FileName = "wave.yaml"

// EnvPrefix prefixes environment overrides, e.g. WAVE_LOG_LEVEL.
const EnvPrefix = "WAVE_"

// Defaults
const (
	DefaultLogLevel = "warn"
)

// Config is the resolved command configuration.
type Config struct {
	LogLevel  string  `koanf:"log_level"`
	Tolerance float64 `koanf:"tolerance"`
	Color     bool    `koanf:"color"`
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if math.IsNaN(c.Tolerance) || c.Tolerance < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("tolerance must be a non-negative number, got %v", c.Tolerance))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	return nil
}

// Load resolves configuration. Precedence, highest first: explicitly set
// flags, WAVE_* environment, the config file, defaults.
//
// cfgFile may be empty, in which case wave.yaml is used if it exists.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"tolerance": floatcmp.DefaultTolerance,
		"log_level": DefaultLogLevel,
		"color":     true,
	}, "."), nil); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load defaults")
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "read config file "+path)
		}
	}

	// WAVE_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BindFlags registers the flags Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.Float64("tolerance", floatcmp.DefaultTolerance, "absolute tolerance for float comparison")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.Bool("color", true, "style terminal output")
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}
