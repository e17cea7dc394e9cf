package scheduler

import (
	"context"
	"github.com/denismitr/kire/notification"
	"go.uber.org/zap"
	"sort"
	"time"
)

// Fire delivers every request due at now. One-off requests are removed,
// weekly ones move on to their next occurrence. It returns the number of
// deliveries and the first presenter error, if any.
func (l *Local) Fire(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	if err := l.prepareUnderLock(); err != nil {
		l.mu.Unlock()
		return 0, err
	}

	var due []*entry
	l.queue.Ascend(nil, func(i interface{}) bool {
		e := i.(*entry)
		if e.FireAt.After(now) {
			return false
		}
		due = append(due, e)
		return true
	})

	deliveries := make([]notification.Delivery, 0, len(due))
	for _, e := range due {
		l.queue.Delete(e)

		d := notification.Delivery{
			Request: notification.Request{
				Identifier: e.Request.Identifier,
				Content:    cloneContent(e.Request.Content),
				Trigger:    e.Request.Trigger,
			},
			FiredAt: now,
		}
		if ch, ok := l.channels[e.Request.Trigger.ChannelID]; ok {
			d.Channel = &ch
		}
		deliveries = append(deliveries, d)

		if e.Request.Trigger.Type == notification.WeeklyTrigger {
			e.FireAt, _ = e.Request.Trigger.Next(now)
			l.queue.Set(e)
			continue
		}

		delete(l.byID, e.Request.Identifier)
	}

	var err error
	if len(due) > 0 {
		if err = l.persistUnderLock(); err != nil {
			// nothing was delivered, so the stored queue is still the truth
			if loadErr := l.loadUnderLock(); loadErr != nil {
				l.log.Error("could not restore pending notifications", zap.Error(loadErr))
			}
		}
	}

	presenter := l.presenter
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	if err != nil {
		return 0, err
	}

	var presentErr error
	for _, d := range deliveries {
		l.log.Info("notification fired",
			zap.String("identifier", d.Request.Identifier),
			zap.String("channel", d.Request.Trigger.ChannelID),
			zap.String("body", d.Request.Content.Body))

		if presenter != nil {
			if err := presenter.Present(ctx, d); err != nil {
				l.log.Error("could not present notification", zap.String("identifier", d.Request.Identifier), zap.Error(err))
				if presentErr == nil {
					presentErr = err
				}
			}
		}

		for _, fn := range listeners {
			if err := fn(ctx, d); err != nil {
				l.log.Error("delivery listener failed", zap.String("identifier", d.Request.Identifier), zap.Error(err))
			}
		}
	}

	return len(deliveries), presentErr
}

const retryDelay = time.Second

// Run fires requests as they come due until ctx is done. Scheduling,
// cancelling and reloading wake it up to pick the new earliest time.
func (l *Local) Run(ctx context.Context) error {
	for {
		var timer *time.Timer
		var timerC <-chan time.Time
		if next, ok := l.NextFireAt(); ok {
			d := next.Sub(l.cfg.Now())
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil
		case <-l.wake:
			stopTimer(timer)
		case <-timerC:
			if _, err := l.Fire(ctx, l.cfg.Now()); err != nil {
				l.log.Error("fire failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(retryDelay):
				}
			}
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func sortedChannels(m map[string]notification.Channel) []notification.Channel {
	out := make([]notification.Channel, 0, len(m))
	for _, ch := range m {
		out = append(out, ch)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
