package kire

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/denismitr/kire/options"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"sync"
)

var ErrReminderNotFound = errors.New("reminder not found")
var ErrAppClosed = errors.New("app already closed")

// Store is the key/value blob the reminder list lives in.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Sync() (bool, error)
}

// App owns the reminder list and keeps it in step with the scheduler.
type App struct {
	mu     sync.RWMutex
	cfg    *Config
	log    *zap.Logger
	store  Store
	sched  notification.Scheduler
	idx    *reminderIndex
	sum    uint64
	dirty  bool
	closed bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Closer func() error

func NullCloser() error { return nil }

// Open registers the vibration channels, loads the stored reminders,
// reconciles them with what the scheduler still has pending and writes the
// result back.
func Open(ctx context.Context, store Store, sched notification.Scheduler, cfg *Config) (*App, Closer, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	a := &App{
		store:  store,
		sched:  sched,
		idx:    newReminderIndex(),
		stopCh: make(chan struct{}),
	}

	if err := cfg.applyTo(a); err != nil {
		return nil, NullCloser, err
	}

	if err := EnsureChannels(ctx, sched); err != nil {
		return nil, NullCloser, err
	}

	a.mu.Lock()
	err := a.initUnderLock(ctx)
	a.mu.Unlock()
	if err != nil {
		return nil, NullCloser, err
	}

	if a.cfg.PersistenceStrategy == Async {
		a.wg.Add(1)
		go a.asyncFlush()
	}

	return a, a.close, nil
}

func (a *App) initUnderLock(ctx context.Context) error {
	if err := a.loadUnderLock(); err != nil {
		return err
	}

	if err := a.reconcileUnderLock(ctx); err != nil {
		return err
	}

	return a.persistUnderLock()
}

func (a *App) close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAppClosed
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stopCh)
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.flushUnderLock()
}

func (a *App) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.idx.len()
}

func (a *App) Get(id string) (Reminder, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.idx.get(id)
	if !ok {
		return Reminder{}, errors.Wrapf(ErrReminderNotFound, "id %s", id)
	}

	return *r.clone(), nil
}

// List returns copies of the reminders ordered by time of day.
func (a *App) List(lo *options.ListOptions) []Reminder {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Reminder, 0, a.idx.len())
	a.idx.scan(lo, func(r *Reminder) bool {
		out = append(out, *r.clone())
		return true
	})

	return out
}

func (a *App) Create(ctx context.Context, d Draft) (Reminder, error) {
	return a.save(ctx, "", d)
}

func (a *App) Update(ctx context.Context, id string, d Draft) (Reminder, error) {
	if id == "" {
		return Reminder{}, errors.Wrap(ErrReminderNotFound, "empty id")
	}

	return a.save(ctx, id, d)
}

// save replaces whatever the reminder had scheduled. A new reminder starts
// enabled; an existing one keeps its enabled state. When scheduling fails the
// reminder is stored disabled and the error is returned.
func (a *App) save(ctx context.Context, id string, d Draft) (Reminder, error) {
	if err := d.Validate(); err != nil {
		return Reminder{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareUnderLock(); err != nil {
		return Reminder{}, err
	}

	now := a.cfg.Now()
	enabled := true
	var existing *Reminder
	if id != "" {
		var ok bool
		if existing, ok = a.idx.get(id); !ok {
			return Reminder{}, errors.Wrapf(ErrReminderNotFound, "id %s", id)
		}
		enabled = existing.Enabled
	} else {
		id = NewID(now)
	}

	if existing != nil && len(existing.NotificationIDs) > 0 {
		if err := CancelScheduled(ctx, a.sched, existing.NotificationIDs); err != nil {
			return Reminder{}, a.keepPendingUnderLock(ctx, *existing.clone(), err)
		}
	}

	updated := fromDraft(id, enabled, d)
	var scheduleErr error
	if enabled {
		ids, err := ScheduleReminder(ctx, a.sched, updated, now)
		if err != nil {
			scheduleErr = err
			updated.Enabled = false
		} else {
			updated.NotificationIDs = ids
		}
	}

	a.idx.put(updated)
	a.log.Debug("reminder saved",
		zap.String("id", updated.ID),
		zap.Bool("enabled", updated.Enabled),
		zap.Strings("notification_ids", updated.NotificationIDs))

	if err := a.persistUnderLock(); err != nil {
		return Reminder{}, err
	}

	return *updated.clone(), scheduleErr
}

func (a *App) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareUnderLock(); err != nil {
		return err
	}

	r, ok := a.idx.get(id)
	if !ok {
		return errors.Wrapf(ErrReminderNotFound, "id %s", id)
	}

	if len(r.NotificationIDs) > 0 {
		if err := CancelScheduled(ctx, a.sched, r.NotificationIDs); err != nil {
			return a.keepPendingUnderLock(ctx, *r.clone(), err)
		}
	}

	a.idx.remove(id)
	a.log.Debug("reminder deleted", zap.String("id", id))

	return a.persistUnderLock()
}

// SetEnabled schedules a fresh set of notifications when turning a reminder
// on and cancels them when turning it off.
func (a *App) SetEnabled(ctx context.Context, id string, value bool) (Reminder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareUnderLock(); err != nil {
		return Reminder{}, err
	}

	existing, ok := a.idx.get(id)
	if !ok {
		return Reminder{}, errors.Wrapf(ErrReminderNotFound, "id %s", id)
	}

	updated := *existing.clone()
	if len(updated.NotificationIDs) > 0 {
		if err := CancelScheduled(ctx, a.sched, updated.NotificationIDs); err != nil {
			return Reminder{}, a.keepPendingUnderLock(ctx, updated, err)
		}
	}
	updated.NotificationIDs = []string{}
	updated.Enabled = value

	var scheduleErr error
	if value {
		ids, err := ScheduleReminder(ctx, a.sched, updated, a.cfg.Now())
		if err != nil {
			scheduleErr = err
			updated.Enabled = false
		} else {
			updated.NotificationIDs = ids
		}
	}

	a.idx.put(updated)
	if err := a.persistUnderLock(); err != nil {
		return Reminder{}, err
	}

	return *updated.clone(), scheduleErr
}

// keepPendingUnderLock stores r with only the notification ids that survived
// a cancel which failed partway, so none of them is forgotten. It returns
// cancelErr.
func (a *App) keepPendingUnderLock(ctx context.Context, r Reminder, cancelErr error) error {
	pending, err := stillPending(context.WithoutCancel(ctx), a.sched, r.NotificationIDs)
	if err != nil {
		a.log.Error("could not list pending notifications", zap.String("id", r.ID), zap.Error(err))
		return cancelErr
	}

	r.NotificationIDs = pending
	a.idx.put(r)
	a.log.Warn("cancel failed partway",
		zap.String("id", r.ID),
		zap.Strings("notification_ids", pending),
		zap.Error(cancelErr))

	if err := a.persistUnderLock(); err != nil {
		a.log.Error("could not write reminders", zap.Error(err))
	}

	return cancelErr
}

// Refresh disables enabled reminders whose notifications are all gone from
// the scheduler.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareUnderLock(); err != nil {
		return err
	}

	if err := a.reconcileUnderLock(ctx); err != nil {
		return err
	}

	return a.persistUnderLock()
}

// HandleDelivered turns off a one-off reminder once its notification fired.
// Recurring reminders and deliveries that name no known reminder are ignored.
func (a *App) HandleDelivered(ctx context.Context, d notification.Delivery) error {
	reminderID := d.Request.Content.Data[reminderIDKey]
	if reminderID == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareUnderLock(); err != nil {
		return err
	}

	r, ok := a.idx.get(reminderID)
	if !ok || r.RecurrenceEnabled {
		return nil
	}

	updated := *r.clone()
	updated.Enabled = false
	updated.NotificationIDs = []string{}
	a.idx.put(updated)

	a.log.Info("one-off reminder delivered",
		zap.String("id", reminderID),
		zap.Time("fired_at", d.FiredAt))

	return a.persistUnderLock()
}

// Reload re-reads the stored reminders after another process changed them.
func (a *App) Reload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAppClosed
	}

	if a.dirty {
		if err := a.flushUnderLock(); err != nil {
			return err
		}
	}

	if _, err := a.store.Sync(); err != nil {
		return errors.Wrap(err, "could not sync store")
	}

	return a.loadUnderLock()
}

func (a *App) reconcileUnderLock(ctx context.Context) error {
	current := a.idx.inInsertionOrder()
	reconciled, err := ReconcileScheduled(ctx, a.sched, current)
	if err != nil {
		return err
	}

	for i := range reconciled {
		if current[i].Enabled && !reconciled[i].Enabled {
			a.log.Info("reminder has nothing scheduled, disabling", zap.String("id", reconciled[i].ID))
			a.idx.put(reconciled[i])
		}
	}

	return nil
}

// prepareUnderLock rejects calls on a closed app and picks up changes other
// processes made to the stored reminders.
func (a *App) prepareUnderLock() error {
	if a.closed {
		return ErrAppClosed
	}

	if a.cfg.PersistenceStrategy == Async {
		return nil
	}

	if _, err := a.store.Sync(); err != nil {
		return errors.Wrap(err, "could not sync store")
	}

	b, ok, err := a.store.Get(a.cfg.StorageKey)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", a.cfg.StorageKey)
	}

	if blobSum(b, ok) == a.sum {
		return nil
	}

	a.log.Debug("stored reminders changed externally, reloading")
	return a.loadUnderLock()
}
