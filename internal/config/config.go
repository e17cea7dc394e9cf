// Package config loads the kire settings from defaults, kire.yaml, KIRE_
// environment variables and command line flags, in increasing precedence.
package config

import (
	"github.com/denismitr/kire/internal/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	FileName  = "kire.yaml"
	EnvPrefix = "KIRE_"

	PersistenceSync  = "sync"
	PersistenceAsync = "async"

	NotifierConsole = "console"
	NotifierLog     = "log"
	NotifierBoth    = "both"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	StorePath     string        `koanf:"store_path"`
	LogLevel      string        `koanf:"log_level"`
	LogFormat     string        `koanf:"log_format"`
	Persistence   string        `koanf:"persistence"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	Notifier      string        `koanf:"notifier"`
	MissedGrace   time.Duration `koanf:"missed_grace"`

	// FileUsed is the config file that was read, empty when none was found.
	FileUsed string `koanf:"-"`
}

func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}

func (c *Config) Validate() error {
	if c.StorePath == "" {
		return errors.Wrap(ErrInvalidConfig, "store_path is required")
	}

	if err := c.Logging().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	switch c.Persistence {
	case PersistenceSync, PersistenceAsync:
	default:
		return errors.Wrapf(ErrInvalidConfig, "persistence must be %q or %q, got %q", PersistenceSync, PersistenceAsync, c.Persistence)
	}

	if c.FlushInterval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "flush_interval must be positive, got %s", c.FlushInterval)
	}

	switch c.Notifier {
	case NotifierConsole, NotifierLog, NotifierBoth:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown notifier %q", c.Notifier)
	}

	if c.MissedGrace <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "missed_grace must be positive, got %s", c.MissedGrace)
	}

	return nil
}

// Dir is where kire keeps its files unless configured otherwise.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "kire")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"store_path":     filepath.Join(Dir(), "reminders.json"),
		"log_level":      "info",
		"log_format":     logging.FormatConsole,
		"persistence":    PersistenceSync,
		"flush_interval": time.Second,
		"notifier":       NotifierConsole,
		"missed_grace":   time.Hour,
	}
}

// findConfigFile prefers an explicit path, then kire.yaml in the working
// directory, then kire.yaml in the kire config dir.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}

	for _, candidate := range []string{FileName, filepath.Join(Dir(), FileName)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// Load reads the configuration. Only flags that were set on the command line
// override the lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", used)
		}
	}

	// KIRE_STORE_PATH -> store_path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	cfg.FileUsed = used

	if abs, err := filepath.Abs(cfg.StorePath); err == nil {
		cfg.StorePath = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
