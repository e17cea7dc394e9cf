// Package scheduler is a local notification scheduler. It keeps pending
// requests in the shared storage blob, fires them when their trigger is due
// and hands every delivery to a presenter and to registered listeners.
package scheduler

import (
	"context"
	"encoding/json"
	"github.com/cespare/xxhash/v2"
	"github.com/denismitr/kire/internal/storage"
	"github.com/denismitr/kire/notification"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
	"sync"
	"time"
)

const DefaultStateKey = "kire.scheduler.v1"

var ErrStateCorrupt = errors.New("scheduler state is corrupt")
var ErrUnknownChannel = errors.New("unknown notification channel")

const defaultMissedGrace = time.Hour

type Presenter interface {
	Present(ctx context.Context, d notification.Delivery) error
}

type Listener func(ctx context.Context, d notification.Delivery) error

type Config struct {
	StateKey string
	// MissedGrace is how late a request may still fire, e.g. after the
	// daemon was not running at its fire time. Zero means one hour.
	MissedGrace time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
	NewID       func() string
}

func (cfg *Config) withDefaults() {
	if cfg.StateKey == "" {
		cfg.StateKey = DefaultStateKey
	}

	if cfg.MissedGrace <= 0 {
		cfg.MissedGrace = defaultMissedGrace
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
}

type entry struct {
	Request notification.Request `json:"request"`
	FireAt  time.Time            `json:"fireAt"`
}

type state struct {
	Entries  []*entry               `json:"entries"`
	Channels []notification.Channel `json:"channels"`
}

func byFireTime(a, b interface{}) bool {
	e1, e2 := a.(*entry), b.(*entry)
	if !e1.FireAt.Equal(e2.FireAt) {
		return e1.FireAt.Before(e2.FireAt)
	}
	return e1.Request.Identifier < e2.Request.Identifier
}

type Local struct {
	mu        sync.Mutex
	cfg       Config
	log       *zap.Logger
	store     storage.Storage
	presenter Presenter
	listeners []Listener
	queue     *btree.BTree
	byID      map[string]*entry
	channels  map[string]notification.Channel
	sum       uint64
	wake      chan struct{}
}

var _ notification.Scheduler = (*Local)(nil)

// New loads the pending requests from store. The presenter may be nil for
// processes that only schedule and never fire.
func New(store storage.Storage, presenter Presenter, cfg Config) (*Local, error) {
	cfg.withDefaults()

	l := &Local{
		cfg:       cfg,
		log:       cfg.Logger.Named("scheduler"),
		store:     store,
		presenter: presenter,
		wake:      make(chan struct{}, 1),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadUnderLock(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Local) OnDelivered(fn Listener) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Local) SetChannel(ctx context.Context, ch notification.Channel) error {
	if ch.ID == "" {
		return errors.Wrap(ErrUnknownChannel, "channel without id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.prepareUnderLock(); err != nil {
		return err
	}

	l.channels[ch.ID] = ch
	return l.persistUnderLock()
}

func (l *Local) Schedule(ctx context.Context, content notification.Content, trigger notification.Trigger) (string, error) {
	if err := trigger.Validate(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.prepareUnderLock(); err != nil {
		return "", err
	}

	if trigger.ChannelID != "" {
		if _, ok := l.channels[trigger.ChannelID]; !ok {
			return "", errors.Wrapf(ErrUnknownChannel, "%s", trigger.ChannelID)
		}
	}

	now := l.cfg.Now()
	fireAt, ok := trigger.Next(now)
	if !ok {
		return "", errors.Wrapf(notification.ErrInvalidTrigger, "date %s is not in the future", trigger.Date.Format(time.RFC3339))
	}

	e := &entry{
		Request: notification.Request{
			Identifier: l.cfg.NewID(),
			Content:    cloneContent(content),
			Trigger:    trigger,
		},
		FireAt: fireAt,
	}

	l.queue.Set(e)
	l.byID[e.Request.Identifier] = e
	if err := l.persistUnderLock(); err != nil {
		l.queue.Delete(e)
		delete(l.byID, e.Request.Identifier)
		return "", err
	}

	l.log.Debug("notification scheduled",
		zap.String("identifier", e.Request.Identifier),
		zap.String("type", string(trigger.Type)),
		zap.Time("fire_at", fireAt))
	l.signal()

	return e.Request.Identifier, nil
}

func (l *Local) Cancel(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.prepareUnderLock(); err != nil {
		return err
	}

	e, ok := l.byID[identifier]
	if !ok {
		return nil
	}

	l.queue.Delete(e)
	delete(l.byID, identifier)
	if err := l.persistUnderLock(); err != nil {
		return err
	}

	l.log.Debug("notification cancelled", zap.String("identifier", identifier))
	l.signal()
	return nil
}

// Scheduled lists pending requests, soonest first.
func (l *Local) Scheduled(ctx context.Context) ([]notification.Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.prepareUnderLock(); err != nil {
		return nil, err
	}

	out := make([]notification.Request, 0, len(l.byID))
	l.queue.Ascend(nil, func(i interface{}) bool {
		e := i.(*entry)
		req := e.Request
		req.Content = cloneContent(req.Content)
		out = append(out, req)
		return true
	})

	return out, nil
}

func (l *Local) Channels() []notification.Channel {
	l.mu.Lock()
	defer l.mu.Unlock()

	return sortedChannels(l.channels)
}

// NextFireAt reports the earliest pending fire time.
func (l *Local) NextFireAt() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var next time.Time
	found := false
	l.queue.Ascend(nil, func(i interface{}) bool {
		next = i.(*entry).FireAt
		found = true
		return false
	})

	return next, found
}

// Reload re-reads the pending requests after another process changed them.
func (l *Local) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.Sync(); err != nil {
		return errors.Wrap(err, "could not sync store")
	}

	if err := l.loadUnderLock(); err != nil {
		return err
	}

	l.signal()
	return nil
}

func (l *Local) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func cloneContent(c notification.Content) notification.Content {
	if c.Data == nil {
		return c
	}

	data := make(map[string]string, len(c.Data))
	for k, v := range c.Data {
		data[k] = v
	}
	c.Data = data
	return c
}

func (l *Local) prepareUnderLock() error {
	if _, err := l.store.Sync(); err != nil {
		return errors.Wrap(err, "could not sync store")
	}

	b, ok, err := l.store.Get(l.cfg.StateKey)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", l.cfg.StateKey)
	}

	if blobSum(b, ok) == l.sum {
		return nil
	}

	return l.loadUnderLock()
}

func blobSum(b []byte, ok bool) uint64 {
	if !ok {
		return 0
	}
	return xxhash.Sum64(b)
}

// loadUnderLock rebuilds the queue from storage. Requests that are overdue
// by more than MissedGrace are dropped when they are one-off and moved to
// their next occurrence when they repeat.
func (l *Local) loadUnderLock() error {
	b, ok, err := l.store.Get(l.cfg.StateKey)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", l.cfg.StateKey)
	}

	var st state
	if ok {
		if err := json.Unmarshal(b, &st); err != nil {
			return errors.Wrapf(ErrStateCorrupt, "%v", err)
		}
	}

	l.queue = btree.New(byFireTime)
	l.byID = make(map[string]*entry, len(st.Entries))
	l.channels = make(map[string]notification.Channel, len(st.Channels))
	l.sum = blobSum(b, ok)

	for _, ch := range st.Channels {
		l.channels[ch.ID] = ch
	}

	now := l.cfg.Now()
	cutoff := now.Add(-l.cfg.MissedGrace)
	changed := false
	for _, e := range st.Entries {
		if e == nil || e.Request.Identifier == "" {
			changed = true
			continue
		}

		if e.FireAt.IsZero() {
			e.FireAt, _ = e.Request.Trigger.Next(now)
			changed = true
		}

		if e.FireAt.Before(cutoff) {
			changed = true
			if e.Request.Trigger.Type != notification.WeeklyTrigger {
				l.log.Info("dropping missed notification",
					zap.String("identifier", e.Request.Identifier),
					zap.Time("fire_at", e.FireAt))
				continue
			}
			e.FireAt, _ = e.Request.Trigger.Next(now)
		}

		l.queue.Set(e)
		l.byID[e.Request.Identifier] = e
	}

	if changed {
		return l.persistUnderLock()
	}

	return nil
}

func (l *Local) persistUnderLock() error {
	st := state{
		Entries:  make([]*entry, 0, len(l.byID)),
		Channels: sortedChannels(l.channels),
	}

	l.queue.Ascend(nil, func(i interface{}) bool {
		st.Entries = append(st.Entries, i.(*entry))
		return true
	})

	b, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "could not marshal scheduler state")
	}

	if err := l.store.Set(l.cfg.StateKey, b); err != nil {
		return errors.Wrapf(err, "could not write %s", l.cfg.StateKey)
	}

	l.sum = xxhash.Sum64(b)
	return nil
}
