// Package config provides configuration management for the luadecl CLI.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/luadecl/internal/luatype"
)

// Config holds all CLI configuration options.
type Config struct {
	// InputDir is the directory (or single file) of annotation manifests.
	InputDir string `koanf:"input_dir"`
	// OutputPath is the declaration file to write, or a directory for
	// one file per top-level module.
	OutputPath string `koanf:"output_path"`
	// Strictness is "lenient" or "strict".
	Strictness string `koanf:"strictness"`
	// Prefix is stripped from raw names when the result stays unambiguous.
	Prefix string `koanf:"prefix"`
	// Rename maps raw names to explicit exported names.
	Rename map[string]string `koanf:"rename"`
	// NamingHook is an optional Starlark file defining rename(kind, name).
	NamingHook string `koanf:"naming_hook"`
	Verbose    bool   `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultInputDir   = "bindings"
	DefaultOutputPath = "bindings.d.luau"
	DefaultStrictness = "lenient"
	DefaultPrefix     = "lua"

	configFileName    = "luadecl.yaml"
	configFileNameAlt = "luadecl.yml"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for config files.
const maxUpwardSearchLevels = 10

var (
	configFileUsed string
	currentConfig  *Config
)

// loggerKey is used to store the logger in the command context.
type loggerKey struct{}

// findConfigFile finds the config file to use.
// Priority: explicit path > luadecl.yaml > luadecl.yml, searching upward.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{configFileName, configFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration from file, environment variables, and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"input_dir":   DefaultInputDir,
		"output_path": DefaultOutputPath,
		"strictness":  DefaultStrictness,
		"prefix":      DefaultPrefix,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: LUADECL_INPUT_DIR -> input_dir
	if err := k.Load(env.Provider("LUADECL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LUADECL_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, highest priority. Only explicitly set flags are loaded.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI spells --input/--output for brevity; the config
			// struct keeps the longer keys.
			switch key {
			case "input":
				return "input_dir", posflag.FlagVal(flags, f)
			case "output":
				return "output_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Resolve paths relative to the config file's directory, so a run
	// from a subdirectory still finds the project's manifests.
	if configFileUsed != "" {
		base := filepath.Dir(configFileUsed)
		cfg.InputDir = resolvePathRelativeTo(cfg.InputDir, base)
		cfg.OutputPath = resolvePathRelativeTo(cfg.OutputPath, base)
		cfg.NamingHook = resolvePathRelativeTo(cfg.NamingHook, base)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// Validate checks field values that have a closed set of spellings.
func (c *Config) Validate() error {
	if _, ok := luatype.ParseStrictness(c.Strictness); !ok {
		return fmt.Errorf("invalid strictness %q: must be strict or lenient", c.Strictness)
	}
	return nil
}

// StrictnessValue returns the parsed strictness.
func (c *Config) StrictnessValue() luatype.Strictness {
	s, _ := luatype.ParseStrictness(c.Strictness)
	return s
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// ResetConfig resets package-level state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoggerKey returns the context key used for storing the logger. This
// lets the commands package retrieve the logger from context without an
// import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
