package kire

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

const DefaultStorageKey = "kire.reminders.v1"

var defaultFlushInterval = 1 * time.Second

var ErrInvalidConfig = errors.New("invalid config")

type PersistenceStrategy string

const (
	// Sync writes the reminder blob after every change.
	Sync PersistenceStrategy = "sync"
	// Async collects changes and writes them every FlushInterval and on close.
	// Changes made by other processes are only picked up through Reload.
	Async PersistenceStrategy = "async"
)

type Config struct {
	PersistenceStrategy PersistenceStrategy
	FlushInterval       time.Duration
	StorageKey          string
	Logger              *zap.Logger
	Now                 func() time.Time
}

func (cfg *Config) applyTo(a *App) error {
	switch cfg.PersistenceStrategy {
	case "":
		cfg.PersistenceStrategy = Sync
	case Sync:
	case Async:
		if cfg.FlushInterval == 0 {
			cfg.FlushInterval = defaultFlushInterval
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown persistence strategy %q", cfg.PersistenceStrategy)
	}

	if cfg.FlushInterval < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative flush interval %s", cfg.FlushInterval)
	}

	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	a.cfg = cfg
	a.log = cfg.Logger
	return nil
}
