package commands

import (
	"fmt"
	"github.com/denismitr/kire"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

type draftFlags struct {
	at      string
	pattern string
	days    string
	repeat  bool
	once    bool
	text    string
}

func (f *draftFlags) register(cmd *cobra.Command, withText bool) {
	cmd.Flags().StringVar(&f.at, "at", "", "time of day, HH:MM")
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", kire.DefaultPatternID(), "vibration pattern id (see kire patterns)")
	cmd.Flags().StringVarP(&f.days, "days", "d", "", "repeat on these days, e.g. mon-fri, weekends, 0,6")
	cmd.Flags().BoolVarP(&f.repeat, "repeat", "r", false, "repeat every week, on every day unless --days is given")
	cmd.Flags().BoolVar(&f.once, "once", false, "fire once at the next occurrence")
	if withText {
		cmd.Flags().StringVarP(&f.text, "text", "t", "", "new description")
	}
	cmd.MarkFlagsMutuallyExclusive("once", "repeat")
	cmd.MarkFlagsMutuallyExclusive("once", "days")
}

// apply overrides d with the flags that were set.
func (f *draftFlags) apply(cmd *cobra.Command, d *kire.Draft) error {
	if cmd.Flags().Changed("at") {
		hour, minute, err := ParseClock(f.at)
		if err != nil {
			return err
		}
		d.Hour, d.Minute = hour, minute
	}

	if cmd.Flags().Changed("pattern") || d.PatternID == "" {
		d.PatternID = f.pattern
	}

	if cmd.Flags().Changed("text") {
		d.Description = f.text
	}

	switch {
	case f.once:
		d.RecurrenceEnabled = false
	case f.days != "":
		days, err := ParseDays(f.days)
		if err != nil {
			return err
		}
		d.RecurrenceEnabled = true
		d.Weekdays = days
	case f.repeat:
		d.RecurrenceEnabled = true
		if len(d.Weekdays) == 0 {
			d.Weekdays = kire.DefaultWeekdays()
		}
	}

	return nil
}

func NewAddCommand() *cobra.Command {
	var f draftFlags

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Create a reminder",
		Example: `  kire add --at 07:30 Stretch
  kire add --at 21:00 --days mon,thu --pattern siren Take out the bins
  kire add --at 12:15 --repeat Lunch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := kire.Draft{Description: strings.Join(args, " ")}
			if err := f.apply(cmd, &d); err != nil {
				return err
			}

			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := env.App.Create(cmd.Context(), d)
			if r.ID == "" {
				return err
			}

			printSaved(cmd.OutOrStdout(), "Created", r, env)
			return err
		},
	}

	f.register(cmd, false)
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func NewEditCommand() *cobra.Command {
	var f draftFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a reminder",
		Example: `  kire edit rem-1700000000000-a1b2c3d4e5f6 --at 08:00
  kire edit rem-1700000000000-a1b2c3d4e5f6 --once --text "Dentist"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			existing, err := env.App.Get(args[0])
			if err != nil {
				return err
			}

			d := existing.Draft()
			if err := f.apply(cmd, &d); err != nil {
				return err
			}

			r, err := env.App.Update(cmd.Context(), existing.ID, d)
			if r.ID == "" {
				return err
			}

			printSaved(cmd.OutOrStdout(), "Updated", r, env)
			return err
		},
	}

	f.register(cmd, true)

	return cmd
}

func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete reminders and cancel their notifications",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range args {
				if err := env.App.Delete(cmd.Context(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}

			return nil
		},
	}
}

func NewEnableCommand() *cobra.Command {
	return newToggleCommand("enable", "Turn reminders on and schedule them", true)
}

func NewDisableCommand() *cobra.Command {
	return newToggleCommand("disable", "Turn reminders off and cancel their notifications", false)
}

func newToggleCommand(use, short string, value bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := OpenEnv(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range args {
				r, err := env.App.SetEnabled(cmd.Context(), id, value)
				if r.ID == "" {
					return err
				}

				verb := "Enabled"
				if !r.Enabled {
					verb = "Disabled"
				}
				printSaved(cmd.OutOrStdout(), verb, r, env)

				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func printSaved(w io.Writer, verb string, r kire.Reminder, env *Env) {
	_, _ = fmt.Fprintf(w, "%s %s %s %q\n", verb, r.ID, clock(r), r.Description)

	if next, ok := r.NextFire(env.Now()); ok {
		_, _ = fmt.Fprintf(w, "  next: %s (%s)\n", next.Format("Mon Jan 2 15:04"), humanize.Time(next))
	}
}

func clock(r kire.Reminder) string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

func schedule(r kire.Reminder) string {
	if !r.RecurrenceEnabled {
		return "once"
	}

	if len(kire.NormalizeWeekdays(r.Weekdays)) == 7 {
		return "daily"
	}

	return kire.FormatWeekdays(r.Weekdays)
}
