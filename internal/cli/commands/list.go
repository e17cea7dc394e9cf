package commands

import (
	"fmt"
	"github.com/denismitr/kire"
	"github.com/denismitr/kire/internal/notifier"
	"github.com/denismitr/kire/options"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"io"
	"strings"
	"time"
)

type listFlags struct {
	enabled  bool
	disabled bool
	repeat   bool
	once     bool
	from     string
	to       string
	desc     bool
}

func (f *listFlags) options() (*options.ListOptions, error) {
	lo := options.List()

	if f.desc {
		lo.SetOrder(options.Descend)
	}

	switch {
	case f.enabled:
		lo.OnlyEnabled(true)
	case f.disabled:
		lo.OnlyEnabled(false)
	}

	switch {
	case f.repeat:
		lo.OnlyRecurring(true)
	case f.once:
		lo.OnlyRecurring(false)
	}

	if f.from != "" || f.to != "" {
		fromHour, fromMinute, toHour, toMinute := 0, 0, 23, 59

		var err error
		if f.from != "" {
			if fromHour, fromMinute, err = ParseClock(f.from); err != nil {
				return nil, err
			}
		}
		if f.to != "" {
			if toHour, toMinute, err = ParseClock(f.to); err != nil {
				return nil, err
			}
		}

		if fromHour*60+fromMinute > toHour*60+toMinute {
			return nil, errors.Wrapf(ErrBadInput, "--from %02d:%02d is after --to %02d:%02d", fromHour, fromMinute, toHour, toMinute)
		}

		lo.Between(fromHour, fromMinute, toHour, toMinute)
	}

	return lo, nil
}

func NewListCommand() *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List reminders by time of day",
		Example: `  kire ls
  kire ls --enabled --from 06:00 --to 12:00
  kire ls --once --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lo, err := f.options()
			if err != nil {
				return err
			}

			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			items := env.App.List(lo)
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No reminders found.")
				return nil
			}

			renderReminders(cmd.OutOrStdout(), items, env.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&f.enabled, "enabled", false, "only enabled reminders")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "only disabled reminders")
	cmd.Flags().BoolVar(&f.repeat, "repeat", false, "only weekly reminders")
	cmd.Flags().BoolVar(&f.once, "once", false, "only one-off reminders")
	cmd.Flags().StringVar(&f.from, "from", "", "earliest time of day, HH:MM")
	cmd.Flags().StringVar(&f.to, "to", "", "latest time of day, HH:MM")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "latest first")
	cmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	cmd.MarkFlagsMutuallyExclusive("repeat", "once")

	return cmd
}

func renderReminders(w io.Writer, items []kire.Reminder, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Time", "Days", "Pattern", "Description", "Status", "Next"})

	for _, r := range items {
		next := "-"
		if at, ok := r.NextFire(now); ok {
			next = humanize.RelTime(at, now, "ago", "from now")
		}

		t.AppendRow(table.Row{
			r.ID,
			clock(r),
			schedule(r),
			kire.PatternByID(r.PatternID).Name,
			r.Description,
			status(r),
			next,
		})
	}

	t.Render()
}

func status(r kire.Reminder) string {
	if r.Enabled {
		return color.GreenString("on")
	}
	return color.HiBlackString("off")
}

func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a reminder with its pending notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := env.App.Get(args[0])
			if err != nil {
				return err
			}

			renderReminder(cmd.OutOrStdout(), r, env.Now())
			return nil
		},
	}
}

func renderReminder(w io.Writer, r kire.Reminder, now time.Time) {
	p := kire.PatternByID(r.PatternID)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"ID", r.ID},
		{"Description", r.Description},
		{"Time", clock(r)},
		{"Repeats", schedule(r)},
		{"Pattern", fmt.Sprintf("%s %s", p.Name, notifier.Bars(p.Pattern))},
		{"Status", status(r)},
	})

	if at, ok := r.NextFire(now); ok {
		t.AppendRow(table.Row{"Next", fmt.Sprintf("%s (%s)", at.Format("Mon Jan 2 15:04"), humanize.RelTime(at, now, "ago", "from now"))})
	}

	if len(r.NotificationIDs) > 0 {
		t.AppendRow(table.Row{"Notifications", strings.Join(r.NotificationIDs, "\n")})
	}

	if len(r.CustomPattern) > 0 {
		t.AppendRow(table.Row{"Custom pattern", notifier.Bars(r.CustomPattern)})
	}

	t.Render()
}

func NewPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the vibration patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Milliseconds", "Shape"})

			for _, p := range kire.VibrationPatterns {
				ms := make([]string, 0, len(p.Pattern))
				for _, v := range p.Pattern {
					ms = append(ms, fmt.Sprint(v))
				}
				t.AppendRow(table.Row{p.ID, p.Name, strings.Join(ms, " "), notifier.Bars(p.Pattern)})
			}

			t.Render()
			return nil
		},
	}
}
