package kire

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"time"
)

const (
	notificationTitle = "Kire"
	reminderIDKey     = "reminderId"
)

var ErrScheduleFailed = errors.New("could not schedule reminder")

func contentFor(r Reminder) notification.Content {
	return notification.Content{
		Title: notificationTitle,
		Body:  r.Description,
		Sound: false,
		Data:  map[string]string{reminderIDKey: r.ID},
	}
}

// TriggersFor lists the triggers a reminder needs: one date trigger at the
// next occurrence for a one-off reminder, one weekly trigger per weekday
// otherwise.
func TriggersFor(r Reminder, now time.Time) []notification.Trigger {
	channelID := BuildChannelID(PatternByID(r.PatternID).ID)

	if !r.RecurrenceEnabled {
		next := notification.NextOccurrence(now, r.Hour, r.Minute)
		return []notification.Trigger{notification.AtDate(next, channelID)}
	}

	weekdays := r.Weekdays
	if len(weekdays) == 0 {
		weekdays = DefaultWeekdays()
	}

	triggers := make([]notification.Trigger, 0, len(weekdays))
	for _, d := range weekdays {
		triggers = append(triggers, notification.Weekly(notification.PlatformWeekday(d), r.Hour, r.Minute, channelID))
	}

	return triggers
}

// ScheduleReminder hands the reminder's triggers to the scheduler and
// returns the identifiers in trigger order. When any trigger is rejected the
// ones already accepted are cancelled again.
func ScheduleReminder(ctx context.Context, sched notification.Scheduler, r Reminder, now time.Time) ([]string, error) {
	triggers := TriggersFor(r, now)
	content := contentFor(r)
	ids := make([]string, len(triggers))

	g, gctx := errgroup.WithContext(ctx)
	for i, trigger := range triggers {
		i, trigger := i, trigger
		g.Go(func() error {
			id, err := sched.Schedule(gctx, content, trigger)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		accepted := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != "" {
				accepted = append(accepted, id)
			}
		}

		if cancelErr := CancelScheduled(context.WithoutCancel(ctx), sched, accepted); cancelErr != nil {
			err = errors.Wrapf(err, "rollback: %v", cancelErr)
		}

		return nil, errors.Wrapf(ErrScheduleFailed, "reminder %s: %v", r.ID, err)
	}

	return ids, nil
}

// CancelScheduled cancels every identifier and waits for all of them.
func CancelScheduled(ctx context.Context, sched notification.Scheduler, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := sched.Cancel(gctx, id); err != nil {
				return errors.Wrapf(err, "could not cancel notification %s", id)
			}
			return nil
		})
	}

	return g.Wait()
}

// stillPending keeps the ids the scheduler still holds, in their order.
func stillPending(ctx context.Context, sched notification.Scheduler, ids []string) ([]string, error) {
	requests, err := sched.Scheduled(ctx)
	if err != nil {
		return nil, err
	}

	held := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		held[req.Identifier] = struct{}{}
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := held[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
