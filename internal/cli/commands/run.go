package commands

import (
	"context"
	"fmt"
	"github.com/denismitr/kire/internal/config"
	"github.com/denismitr/kire/internal/notifier"
	"github.com/denismitr/kire/internal/scheduler"
	"github.com/denismitr/kire/internal/storage/jsonstorage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Turn off reminders that have nothing left to fire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := env.App.Refresh(cmd.Context()); err != nil {
				return err
			}

			enabled := 0
			for _, r := range env.App.List(nil) {
				if r.Enabled {
					enabled++
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d reminders enabled\n", enabled, env.App.Count())
			return nil
		},
	}
}

func NewRunCommand() *cobra.Command {
	var noBell bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fire notifications in the foreground",
		Long: `Run keeps the scheduler going and presents every notification when it
comes due. Changes made with other kire commands are picked up while it runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ConfigFrom(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			env, cleanup, err := OpenEnv(cmd, func(log *zap.Logger) scheduler.Presenter {
				return newPresenter(cfg.Notifier, cmd.OutOrStdout(), !noBell, log)
			})
			if err != nil {
				return err
			}
			defer cleanup()

			return runDaemon(ctx, env)
		},
	}

	cmd.Flags().BoolVar(&noBell, "no-bell", false, "do not ring the terminal bell")

	return cmd
}

func runDaemon(ctx context.Context, env *Env) error {
	env.Sched.OnDelivered(env.App.HandleDelivered)

	env.Log.Info("kire is running",
		zap.String("store", env.Store.Path()),
		zap.Int("reminders", env.App.Count()))

	reload := func() {
		if err := env.Sched.Reload(ctx); err != nil {
			env.Log.Error("could not reload scheduler", zap.Error(err))
		}
		if err := env.App.Reload(ctx); err != nil {
			env.Log.Error("could not reload reminders", zap.Error(err))
			return
		}
		if err := env.App.Refresh(ctx); err != nil {
			env.Log.Error("could not refresh reminders", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return env.Sched.Run(gctx)
	})
	g.Go(func() error {
		return env.Store.Watch(gctx, jsonstorage.DefaultDebounce, reload)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	env.Log.Info("kire stopped")
	return nil
}

func newPresenter(kind string, w io.Writer, ringBell bool, log *zap.Logger) scheduler.Presenter {
	switch kind {
	case config.NotifierLog:
		return notifier.NewLog(log)
	case config.NotifierBoth:
		return notifier.Multi{notifier.NewConsole(w, ringBell), notifier.NewLog(log)}
	default:
		return notifier.NewConsole(w, ringBell)
	}
}
