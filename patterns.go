package kire

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const channelPrefix = "kire-pattern"

// VibrationPattern alternates wait and vibrate durations in milliseconds,
// starting with a wait.
type VibrationPattern struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pattern []int  `json:"pattern"`
}

var VibrationPatterns = []VibrationPattern{
	{ID: "default", Name: "Default", Pattern: []int{0, 500}},
	{ID: "short-pulses", Name: "Short pulses", Pattern: []int{0, 100, 100, 100, 100, 100}},
	{ID: "long-pulses", Name: "Long pulses", Pattern: []int{0, 500, 200, 500}},
	{ID: "rapid", Name: "Rapid", Pattern: []int{0, 50, 50, 50, 50, 50, 50, 50}},
	{ID: "heartbeat", Name: "Heartbeat", Pattern: []int{0, 100, 100, 300, 100, 100}},
	{ID: "mechanical", Name: "Mechanical", Pattern: []int{0, 200, 100, 200, 100, 200}},
	{ID: "double-pulse", Name: "Double Pulse", Pattern: []int{0, 100, 50, 100}},
	{ID: "siren", Name: "Siren", Pattern: []int{0, 500, 500, 500, 500}},
}

func DefaultPatternID() string {
	return VibrationPatterns[0].ID
}

func LookupPattern(id string) (VibrationPattern, bool) {
	for _, p := range VibrationPatterns {
		if p.ID == id {
			return p, true
		}
	}
	return VibrationPattern{}, false
}

// PatternByID falls back to the first pattern for unknown ids.
func PatternByID(id string) VibrationPattern {
	if p, ok := LookupPattern(id); ok {
		return p
	}
	return VibrationPatterns[0]
}

func BuildChannelID(patternID string) string {
	return channelPrefix + "-" + patternID
}

func (p VibrationPattern) Channel() notification.Channel {
	pattern := make([]int, len(p.Pattern))
	copy(pattern, p.Pattern)

	return notification.Channel{
		ID:               BuildChannelID(p.ID),
		Name:             "Kire " + p.Name,
		Importance:       notification.ImportanceMax,
		EnableVibrate:    true,
		VibrationPattern: pattern,
		ShowBadge:        false,
	}
}

// EnsureChannels registers one channel per vibration pattern.
func EnsureChannels(ctx context.Context, sched notification.Scheduler) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range VibrationPatterns {
		ch := p.Channel()
		g.Go(func() error {
			if err := sched.SetChannel(ctx, ch); err != nil {
				return errors.Wrapf(err, "could not set channel %s", ch.ID)
			}
			return nil
		})
	}

	return g.Wait()
}
