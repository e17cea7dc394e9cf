package kire

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/pkg/errors"
)

// Reconcile turns off every enabled reminder none of whose notifications
// is still pending. Disabled reminders are returned untouched. The input is
// not modified.
func Reconcile(items []Reminder, scheduled map[string]struct{}) []Reminder {
	out := make([]Reminder, len(items))
	for i, r := range items {
		out[i] = r
		if !r.Enabled {
			continue
		}

		if anyScheduled(r.NotificationIDs, scheduled) {
			continue
		}

		out[i].Enabled = false
		out[i].NotificationIDs = []string{}
	}

	return out
}

func ReconcileScheduled(ctx context.Context, sched notification.Scheduler, items []Reminder) ([]Reminder, error) {
	scheduled, err := scheduledIDs(ctx, sched)
	if err != nil {
		return nil, err
	}

	return Reconcile(items, scheduled), nil
}

func scheduledIDs(ctx context.Context, sched notification.Scheduler) (map[string]struct{}, error) {
	requests, err := sched.Scheduled(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list scheduled notifications")
	}

	ids := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		ids[req.Identifier] = struct{}{}
	}

	return ids, nil
}

func anyScheduled(ids []string, scheduled map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := scheduled[id]; ok {
			return true
		}
	}
	return false
}
