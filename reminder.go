package kire

import (
	"fmt"
	"github.com/denismitr/kire/notification"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"strings"
	"time"
)

var ErrInvalidDraft = errors.New("invalid reminder")

type Reminder struct {
	ID                string   `json:"id"`
	Hour              int      `json:"hour"`
	Minute            int      `json:"minute"`
	PatternID         string   `json:"patternId"`
	Description       string   `json:"description"`
	Enabled           bool     `json:"enabled"`
	RecurrenceEnabled bool     `json:"recurrenceEnabled"`
	NotificationIDs   []string `json:"notificationIds"`
	Weekdays          []int    `json:"weekdays"`
	CustomPattern     []int    `json:"customPattern,omitempty"`

	// written by older releases that scheduled a single notification
	LegacyNotificationID string `json:"notificationId,omitempty"`
}

// Draft is what a user edits. Saving a draft produces or updates a Reminder.
type Draft struct {
	Hour              int    `json:"hour"`
	Minute            int    `json:"minute"`
	PatternID         string `json:"patternId"`
	Description       string `json:"description"`
	RecurrenceEnabled bool   `json:"recurrenceEnabled"`
	Weekdays          []int  `json:"weekdays"`
}

func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("rem-%d-%s", now.UnixMilli(), suffix)
}

// Validate reports whether the draft can be saved: the trimmed description
// must not be empty and a recurring draft needs at least one weekday.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return errors.Wrap(ErrInvalidDraft, "description is empty")
	}

	if d.Hour < 0 || d.Hour > 23 {
		return errors.Wrapf(ErrInvalidDraft, "hour %d is out of range 0..23", d.Hour)
	}

	if d.Minute < 0 || d.Minute > 59 {
		return errors.Wrapf(ErrInvalidDraft, "minute %d is out of range 0..59", d.Minute)
	}

	if _, ok := LookupPattern(d.PatternID); !ok {
		return errors.Wrapf(ErrInvalidDraft, "unknown vibration pattern %q", d.PatternID)
	}

	if d.RecurrenceEnabled && len(d.Weekdays) == 0 {
		return errors.Wrap(ErrInvalidDraft, "recurring reminder needs at least one weekday")
	}

	return nil
}

// Draft returns the editable part of the reminder.
func (r Reminder) Draft() Draft {
	weekdays := make([]int, len(r.Weekdays))
	copy(weekdays, r.Weekdays)

	return Draft{
		Hour:              r.Hour,
		Minute:            r.Minute,
		PatternID:         r.PatternID,
		Description:       r.Description,
		RecurrenceEnabled: r.RecurrenceEnabled,
		Weekdays:          weekdays,
	}
}

func (r Reminder) MinuteOfDay() int {
	return r.Hour*60 + r.Minute
}

// NextFire reports when the reminder goes off next as seen from now.
// Disabled reminders never fire.
func (r Reminder) NextFire(now time.Time) (time.Time, bool) {
	if !r.Enabled {
		return time.Time{}, false
	}

	if !r.RecurrenceEnabled {
		return notification.NextOccurrence(now, r.Hour, r.Minute), true
	}

	weekdays := r.Weekdays
	if len(weekdays) == 0 {
		weekdays = DefaultWeekdays()
	}

	var next time.Time
	for _, d := range weekdays {
		candidate := notification.NextWeekly(now, notification.PlatformWeekday(d), r.Hour, r.Minute)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	return next, true
}

func (r *Reminder) clone() *Reminder {
	var cp Reminder
	if err := copier.CopyWithOption(&cp, r, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy reminder: " + err.Error())
	}

	if cp.NotificationIDs == nil && r.NotificationIDs != nil {
		cp.NotificationIDs = []string{}
	}

	return &cp
}

// Normalize upgrades a stored reminder: a legacy single notification id
// becomes a one element list, a missing list becomes empty and an empty
// weekday selection becomes every day of the week.
func Normalize(r Reminder) Reminder {
	if r.NotificationIDs == nil {
		if r.LegacyNotificationID != "" {
			r.NotificationIDs = []string{r.LegacyNotificationID}
		} else {
			r.NotificationIDs = []string{}
		}
	}
	r.LegacyNotificationID = ""

	if len(r.Weekdays) == 0 {
		r.Weekdays = DefaultWeekdays()
	}

	return r
}

func fromDraft(id string, enabled bool, d Draft) Reminder {
	weekdays := NormalizeWeekdays(d.Weekdays)
	if len(weekdays) == 0 {
		weekdays = DefaultWeekdays()
	}

	return Reminder{
		ID:                id,
		Hour:              d.Hour,
		Minute:            d.Minute,
		PatternID:         d.PatternID,
		Description:       strings.TrimSpace(d.Description),
		Enabled:           enabled,
		RecurrenceEnabled: d.RecurrenceEnabled,
		NotificationIDs:   []string{},
		Weekdays:          weekdays,
	}
}
