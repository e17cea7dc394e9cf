// Package cli wires the kire commands together.
package cli

import (
	"context"
	"fmt"
	"github.com/denismitr/kire/internal/cli/commands"
	"github.com/denismitr/kire/internal/config"
	"github.com/spf13/cobra"
	"os"
	"time"
)

// Version is set at build time.
var Version = "0.1.0"

func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "kire",
		Short: "Kire - reminders with vibration patterns",
		Long: `Kire keeps a list of time of day reminders, one-off or repeating on chosen
weekdays, and fires them through a local notification scheduler.

Run "kire run" in a terminal to receive the notifications.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(commands.WithConfig(ctx, cfg))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./kire.yaml, then the kire config dir)")
	rootCmd.PersistentFlags().String("store-path", "", "reminders file")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "console", "console or json")
	rootCmd.PersistentFlags().String("persistence", "sync", "sync or async")
	rootCmd.PersistentFlags().String("notifier", "console", "console, log or both")
	rootCmd.PersistentFlags().Duration("flush-interval", time.Second, "how often async persistence writes changes")
	rootCmd.PersistentFlags().Duration("missed-grace", time.Hour, "how late a missed notification may still fire")

	_ = rootCmd.RegisterFlagCompletionFunc("notifier", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.NotifierConsole, config.NotifierLog, config.NotifierBoth}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewAddCommand())
	rootCmd.AddCommand(commands.NewEditCommand())
	rootCmd.AddCommand(commands.NewRemoveCommand())
	rootCmd.AddCommand(commands.NewEnableCommand())
	rootCmd.AddCommand(commands.NewDisableCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewPatternsCommand())
	rootCmd.AddCommand(commands.NewRefreshCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
