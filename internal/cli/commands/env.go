// Package commands holds the kire subcommands.
package commands

import (
	"context"
	"github.com/denismitr/kire"
	"github.com/denismitr/kire/internal/config"
	"github.com/denismitr/kire/internal/logging"
	"github.com/denismitr/kire/internal/scheduler"
	"github.com/denismitr/kire/internal/storage/jsonstorage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"time"
)

type configKey struct{}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func ConfigFrom(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return nil, errors.New("configuration was not loaded")
}

// Env is everything a command needs to work on the reminders.
type Env struct {
	Config *config.Config
	Log    *zap.Logger
	Store  *jsonstorage.JSONStorage
	Sched  *scheduler.Local
	App    *kire.App
	Now    func() time.Time
}

// PresenterFunc builds the presenter of a process that fires notifications.
type PresenterFunc func(log *zap.Logger) scheduler.Presenter

// OpenEnv opens the store file, the local scheduler and the app. present may
// be nil when the command never fires notifications.
func OpenEnv(cmd *cobra.Command, present PresenterFunc) (*Env, func(), error) {
	cfg, err := ConfigFrom(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Logging(), cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	store, err := jsonstorage.Open(cfg.StorePath, jsonstorage.WithLogger(log))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open %s", cfg.StorePath)
	}

	var presenter scheduler.Presenter
	if present != nil {
		presenter = present(log)
	}

	sched, err := scheduler.New(store, presenter, scheduler.Config{
		MissedGrace: cfg.MissedGrace,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, err
	}

	strategy := kire.Sync
	if cfg.Persistence == config.PersistenceAsync {
		strategy = kire.Async
	}

	app, closer, err := kire.Open(cmd.Context(), store, sched, &kire.Config{
		PersistenceStrategy: strategy,
		FlushInterval:       cfg.FlushInterval,
		Logger:              log,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := closer(); err != nil {
			log.Error("could not close reminders", zap.Error(err))
		}
		_ = logging.Sync(log)
	}

	return &Env{
		Config: cfg,
		Log:    log,
		Store:  store,
		Sched:  sched,
		App:    app,
		Now:    time.Now,
	}, cleanup, nil
}
