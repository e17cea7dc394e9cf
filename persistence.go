package kire

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

const corruptSuffix = ".corrupt"

var ErrStorageFailed = errors.New("storage error")

func blobSum(b []byte, ok bool) uint64 {
	if !ok {
		return 0
	}
	return xxhash.Sum64(b)
}

// loadUnderLock replaces the in-memory list with the stored one. A blob that
// cannot be decoded is copied aside and treated as an empty list. Single
// unusable elements are dropped with a warning.
func (a *App) loadUnderLock() error {
	key := a.cfg.StorageKey
	b, ok, err := a.store.Get(key)
	if err != nil {
		return errors.Wrapf(ErrStorageFailed, "could not read %s: %v", key, err)
	}

	var items []Reminder
	if ok {
		var skipped []error
		items, skipped, err = decodeReminders(b)
		for _, reason := range skipped {
			a.log.Warn("skipping stored reminder", zap.String("key", key), zap.Error(reason))
		}

		if err != nil {
			a.log.Warn("stored reminders could not be decoded, starting empty",
				zap.String("key", key),
				zap.Error(err))

			if setErr := a.store.Set(key+corruptSuffix, b); setErr != nil {
				a.log.Error("could not preserve corrupt reminders", zap.Error(setErr))
			}
			items = nil
		}
	}

	idx := newReminderIndex()
	now := a.cfg.Now()
	for _, r := range items {
		if r.ID == "" {
			r.ID = NewID(now)
		}

		if _, exists := idx.get(r.ID); exists {
			a.log.Warn("duplicate reminder id in storage, keeping the first", zap.String("id", r.ID))
			continue
		}

		idx.put(r)
	}

	a.idx = idx
	a.sum = blobSum(b, ok)
	a.dirty = false
	return nil
}

func (a *App) persistUnderLock() error {
	b, err := encodeReminders(a.idx.inInsertionOrder())
	if err != nil {
		return err
	}

	sum := xxhash.Sum64(b)
	if a.cfg.PersistenceStrategy == Async {
		a.dirty = sum != a.sum
		return nil
	}

	if sum == a.sum {
		return nil
	}

	return a.writeUnderLock(b, sum)
}

func (a *App) flushUnderLock() error {
	if !a.dirty {
		return nil
	}

	b, err := encodeReminders(a.idx.inInsertionOrder())
	if err != nil {
		return err
	}

	if err := a.writeUnderLock(b, xxhash.Sum64(b)); err != nil {
		return err
	}

	a.dirty = false
	return nil
}

func (a *App) writeUnderLock(b []byte, sum uint64) error {
	if err := a.store.Set(a.cfg.StorageKey, b); err != nil {
		return errors.Wrapf(ErrStorageFailed, "could not write %s: %v", a.cfg.StorageKey, err)
	}

	a.sum = sum
	return nil
}

// Flush writes pending changes right away. It is a no-op for the sync
// strategy.
func (a *App) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAppClosed
	}

	return a.flushUnderLock()
}

func (a *App) asyncFlush() {
	defer a.wg.Done()

	t := time.NewTicker(a.cfg.FlushInterval)
	defer t.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-t.C:
			a.mu.Lock()
			if err := a.flushUnderLock(); err != nil {
				a.log.Error("async flush failed", zap.Error(err))
			}
			a.mu.Unlock()
		}
	}
}
