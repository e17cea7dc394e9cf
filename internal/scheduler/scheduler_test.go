package scheduler_test

import (
	"context"
	"github.com/denismitr/kire/internal/scheduler"
	"github.com/denismitr/kire/internal/storage/memstorage"
	"github.com/denismitr/kire/notification"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingPresenter struct {
	mu         sync.Mutex
	deliveries []notification.Delivery
	err        error
}

func (p *recordingPresenter) Present(_ context.Context, d notification.Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = append(p.deliveries, d)
	return p.err
}

func (p *recordingPresenter) all() []notification.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notification.Delivery, len(p.deliveries))
	copy(out, p.deliveries)
	return out
}

var channel = notification.Channel{
	ID:               "kire-pattern-default",
	Name:             "Kire Default",
	Importance:       notification.ImportanceMax,
	EnableVibrate:    true,
	VibrationPattern: []int{0, 500},
}

func content(body string) notification.Content {
	return notification.Content{Title: "Kire", Body: body, Data: map[string]string{"reminderId": "rem-1"}}
}

type localSchedulerSuite struct {
	suite.Suite
	clock     *fakeClock
	store     *memstorage.MemStorage
	presenter *recordingPresenter
	local     *scheduler.Local
	ctx       context.Context
}

func TestLocalScheduler(t *testing.T) {
	suite.Run(t, &localSchedulerSuite{})
}

func (s *localSchedulerSuite) SetupTest() {
	// Tuesday
	s.clock = &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	s.store = memstorage.New()
	s.presenter = &recordingPresenter{}
	s.ctx = context.Background()

	local, err := scheduler.New(s.store, s.presenter, scheduler.Config{Now: s.clock.Now})
	s.Require().NoError(err)
	s.local = local

	s.Require().NoError(s.local.SetChannel(s.ctx, channel))
}

func (s *localSchedulerSuite) TestScheduleAndList() {
	weekly, err := s.local.Schedule(s.ctx, content("weekly"), notification.Weekly(4, 8, 0, channel.ID))
	s.Require().NoError(err)

	date, err := s.local.Schedule(s.ctx, content("date"), notification.AtDate(s.clock.Now().Add(time.Hour), channel.ID))
	s.Require().NoError(err)
	s.NotEqual(weekly, date)

	scheduled, err := s.local.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(scheduled, 2)
	s.Equal(date, scheduled[0].Identifier, "soonest first")
	s.Equal(weekly, scheduled[1].Identifier)
	s.Equal("rem-1", scheduled[0].Content.Data["reminderId"])

	next, ok := s.local.NextFireAt()
	s.True(ok)
	s.Equal(s.clock.Now().Add(time.Hour), next)
}

func (s *localSchedulerSuite) TestScheduleRejectsBadTriggers() {
	_, err := s.local.Schedule(s.ctx, content("x"), notification.Weekly(9, 8, 0, channel.ID))
	s.ErrorIs(err, notification.ErrInvalidTrigger)

	_, err = s.local.Schedule(s.ctx, content("x"), notification.AtDate(s.clock.Now().Add(-time.Minute), channel.ID))
	s.ErrorIs(err, notification.ErrInvalidTrigger)

	_, err = s.local.Schedule(s.ctx, content("x"), notification.Weekly(2, 8, 0, "kire-pattern-nope"))
	s.ErrorIs(err, scheduler.ErrUnknownChannel)

	scheduled, err := s.local.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Empty(scheduled)
}

func (s *localSchedulerSuite) TestCancel() {
	id, err := s.local.Schedule(s.ctx, content("x"), notification.Weekly(2, 8, 0, channel.ID))
	s.Require().NoError(err)

	s.Require().NoError(s.local.Cancel(s.ctx, id))
	s.Require().NoError(s.local.Cancel(s.ctx, id), "second cancel is a no-op")
	s.Require().NoError(s.local.Cancel(s.ctx, "never-scheduled"))

	scheduled, err := s.local.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Empty(scheduled)
}

func (s *localSchedulerSuite) TestFire() {
	start := s.clock.Now()
	dateID, err := s.local.Schedule(s.ctx, content("one-off"), notification.AtDate(start.Add(30*time.Minute), channel.ID))
	s.Require().NoError(err)

	// Tuesday 09:15
	weeklyID, err := s.local.Schedule(s.ctx, content("weekly"), notification.Weekly(3, 9, 15, channel.ID))
	s.Require().NoError(err)

	var heard []string
	s.local.OnDelivered(func(_ context.Context, d notification.Delivery) error {
		heard = append(heard, d.Request.Identifier)
		return nil
	})

	n, err := s.local.Fire(s.ctx, start.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(0, n)

	n, err = s.local.Fire(s.ctx, start.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal([]string{weeklyID, dateID}, heard)

	deliveries := s.presenter.all()
	s.Require().Len(deliveries, 2)
	s.Require().NotNil(deliveries[0].Channel)
	s.Equal([]int{0, 500}, deliveries[0].Channel.VibrationPattern)
	s.Equal("weekly", deliveries[0].Request.Content.Body)
	s.Equal(start.Add(time.Hour), deliveries[1].FiredAt)

	scheduled, err := s.local.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(scheduled, 1, "one-off request is gone")
	s.Equal(weeklyID, scheduled[0].Identifier)

	next, ok := s.local.NextFireAt()
	s.True(ok)
	s.Equal(time.Date(2026, 3, 17, 9, 15, 0, 0, time.UTC), next, "weekly request moved to next week")
}

func (s *localSchedulerSuite) TestFireReportsPresenterErrors() {
	s.presenter.err = errors.New("display unavailable")

	_, err := s.local.Schedule(s.ctx, content("x"), notification.AtDate(s.clock.Now().Add(time.Minute), channel.ID))
	s.Require().NoError(err)

	delivered := 0
	s.local.OnDelivered(func(context.Context, notification.Delivery) error {
		delivered++
		return nil
	})

	n, err := s.local.Fire(s.ctx, s.clock.Now().Add(time.Hour))
	s.Error(err)
	s.Equal(1, n)
	s.Equal(1, delivered, "listeners still hear about the delivery")
}

func (s *localSchedulerSuite) TestStateIsSharedThroughStorage() {
	id, err := s.local.Schedule(s.ctx, content("shared"), notification.Weekly(5, 7, 30, channel.ID))
	s.Require().NoError(err)

	other, err := scheduler.New(s.store, nil, scheduler.Config{Now: s.clock.Now})
	s.Require().NoError(err)

	scheduled, err := other.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(scheduled, 1)
	s.Equal(id, scheduled[0].Identifier)
	s.Len(other.Channels(), 1)

	s.Require().NoError(other.Cancel(s.ctx, id))

	scheduled, err = s.local.Scheduled(s.ctx)
	s.Require().NoError(err)
	s.Empty(scheduled, "cancel made through another instance is picked up")
}

func (s *localSchedulerSuite) TestMissedRequestsOnLoad() {
	start := s.clock.Now()
	lateID, err := s.local.Schedule(s.ctx, content("late"), notification.AtDate(start.Add(2*time.Minute), channel.ID))
	s.Require().NoError(err)
	_, err = s.local.Schedule(s.ctx, content("very late"), notification.AtDate(start.Add(time.Minute), channel.ID))
	s.Require().NoError(err)
	weeklyID, err := s.local.Schedule(s.ctx, content("weekly"), notification.Weekly(3, 9, 5, channel.ID))
	s.Require().NoError(err)

	s.clock.Set(start.Add(3 * time.Hour))

	// grace covers "late" but not "very late"
	reopened, err := scheduler.New(s.store, nil, scheduler.Config{Now: s.clock.Now, MissedGrace: 3*time.Hour - 90*time.Second})
	s.Require().NoError(err)

	scheduled, err := reopened.Scheduled(s.ctx)
	s.Require().NoError(err)

	ids := make([]string, 0, len(scheduled))
	for _, r := range scheduled {
		ids = append(ids, r.Identifier)
	}
	s.ElementsMatch([]string{lateID, weeklyID}, ids)
}

func TestLocal_Run(t *testing.T) {
	store := memstorage.New()
	presenter := &recordingPresenter{}

	local, err := scheduler.New(store, presenter, scheduler.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- local.Run(ctx) }()

	_, err = local.Schedule(ctx, content("soon"), notification.AtDate(time.Now().Add(50*time.Millisecond), ""))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(presenter.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "soon", presenter.all()[0].Request.Content.Body)
	assert.Nil(t, presenter.all()[0].Channel)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

type failingStore struct {
	*memstorage.MemStorage
	failSet bool
}

func (s *failingStore) Set(key string, value []byte) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.MemStorage.Set(key, value)
}

func TestLocal_FireKeepsQueueWhenPersistFails(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := &failingStore{MemStorage: memstorage.New()}
	presenter := &recordingPresenter{}
	ctx := context.Background()

	local, err := scheduler.New(store, presenter, scheduler.Config{Now: clock.Now})
	require.NoError(t, err)

	dateID, err := local.Schedule(ctx, content("one-off"), notification.AtDate(clock.Now().Add(10*time.Minute), ""))
	require.NoError(t, err)
	weeklyID, err := local.Schedule(ctx, content("weekly"), notification.Weekly(3, 9, 5, ""))
	require.NoError(t, err)

	store.failSet = true

	n, err := local.Fire(ctx, clock.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, presenter.all())

	scheduled, err := local.Scheduled(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(scheduled))
	for _, r := range scheduled {
		ids = append(ids, r.Identifier)
	}
	assert.ElementsMatch(t, []string{dateID, weeklyID}, ids, "nothing fired, nothing removed")

	next, ok := local.NextFireAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC), next, "weekly request was not moved on")

	store.failSet = false

	n, err = local.Fire(ctx, clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, presenter.all(), 2)
}
