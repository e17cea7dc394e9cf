// Package notification describes what a notification scheduler accepts and
// the date arithmetic used to place triggers on the calendar.
package notification

import (
	"context"
	"github.com/pkg/errors"
	"time"
)

var ErrInvalidTrigger = errors.New("invalid trigger")

type TriggerType string

const (
	DateTrigger   TriggerType = "date"
	WeeklyTrigger TriggerType = "weekly"
)

type Importance int

const (
	ImportanceMin Importance = iota + 1
	ImportanceLow
	ImportanceDefault
	ImportanceHigh
	ImportanceMax
)

type Content struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound bool              `json:"sound"`
	Data  map[string]string `json:"data,omitempty"`
}

// Trigger tells the scheduler when to fire. Weekday uses the platform
// numbering: 1 is Sunday, 7 is Saturday.
type Trigger struct {
	Type      TriggerType `json:"type"`
	Date      time.Time   `json:"date,omitempty"`
	Weekday   int         `json:"weekday,omitempty"`
	Hour      int         `json:"hour"`
	Minute    int         `json:"minute"`
	ChannelID string      `json:"channelId,omitempty"`
}

type Request struct {
	Identifier string  `json:"identifier"`
	Content    Content `json:"content"`
	Trigger    Trigger `json:"trigger"`
}

type Channel struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Importance       Importance `json:"importance"`
	Sound            string     `json:"sound,omitempty"`
	EnableVibrate    bool       `json:"enableVibrate"`
	VibrationPattern []int      `json:"vibrationPattern,omitempty"`
	ShowBadge        bool       `json:"showBadge"`
}

// Delivery is a request at the moment it fired. Channel is nil when the
// trigger names a channel that was never registered.
type Delivery struct {
	Request Request
	Channel *Channel
	FiredAt time.Time
}

type Scheduler interface {
	SetChannel(ctx context.Context, ch Channel) error
	Schedule(ctx context.Context, content Content, trigger Trigger) (string, error)
	// Cancel of an identifier the scheduler does not know is a no-op.
	Cancel(ctx context.Context, identifier string) error
	Scheduled(ctx context.Context) ([]Request, error)
}

func AtDate(date time.Time, channelID string) Trigger {
	return Trigger{
		Type:      DateTrigger,
		Date:      date,
		Hour:      date.Hour(),
		Minute:    date.Minute(),
		ChannelID: channelID,
	}
}

func Weekly(weekday, hour, minute int, channelID string) Trigger {
	return Trigger{
		Type:      WeeklyTrigger,
		Weekday:   weekday,
		Hour:      hour,
		Minute:    minute,
		ChannelID: channelID,
	}
}

func (t Trigger) Validate() error {
	switch t.Type {
	case DateTrigger:
		if t.Date.IsZero() {
			return errors.Wrap(ErrInvalidTrigger, "date trigger without a date")
		}
	case WeeklyTrigger:
		if t.Weekday < 1 || t.Weekday > 7 {
			return errors.Wrapf(ErrInvalidTrigger, "weekday %d out of range 1..7", t.Weekday)
		}
		if t.Hour < 0 || t.Hour > 23 {
			return errors.Wrapf(ErrInvalidTrigger, "hour %d out of range", t.Hour)
		}
		if t.Minute < 0 || t.Minute > 59 {
			return errors.Wrapf(ErrInvalidTrigger, "minute %d out of range", t.Minute)
		}
	default:
		return errors.Wrapf(ErrInvalidTrigger, "unknown trigger type %q", t.Type)
	}

	return nil
}

// Next returns the fire time of the trigger relative to after. A date
// trigger always reports its date; ok is false when that date is not
// strictly after after.
func (t Trigger) Next(after time.Time) (next time.Time, ok bool) {
	switch t.Type {
	case DateTrigger:
		return t.Date, t.Date.After(after)
	case WeeklyTrigger:
		return NextWeekly(after, t.Weekday, t.Hour, t.Minute), true
	}

	return time.Time{}, false
}
