package kire_test

import (
	"context"
	"github.com/denismitr/kire"
	"github.com/denismitr/kire/internal/scheduler"
	"github.com/denismitr/kire/internal/storage/memstorage"
	"github.com/denismitr/kire/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestPatternByID(t *testing.T) {
	p := kire.PatternByID("heartbeat")
	assert.Equal(t, "Heartbeat", p.Name)
	assert.Equal(t, []int{0, 100, 100, 300, 100, 100}, p.Pattern)

	fallback := kire.PatternByID("does-not-exist")
	assert.Equal(t, kire.VibrationPatterns[0], fallback)
	assert.Equal(t, kire.DefaultPatternID(), fallback.ID)

	_, ok := kire.LookupPattern("does-not-exist")
	assert.False(t, ok)
}

func TestPatternIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range kire.VibrationPatterns {
		assert.False(t, seen[p.ID], p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 8)
}

func TestVibrationPattern_Channel(t *testing.T) {
	ch := kire.PatternByID("siren").Channel()

	assert.Equal(t, "kire-pattern-siren", ch.ID)
	assert.Equal(t, "Kire Siren", ch.Name)
	assert.Equal(t, notification.ImportanceMax, ch.Importance)
	assert.True(t, ch.EnableVibrate)
	assert.False(t, ch.ShowBadge)
	assert.Empty(t, ch.Sound)
	assert.Equal(t, []int{0, 500, 500, 500, 500}, ch.VibrationPattern)
}

func TestEnsureChannels(t *testing.T) {
	local, err := scheduler.New(memstorage.New(), nil, scheduler.Config{})
	require.NoError(t, err)

	require.NoError(t, kire.EnsureChannels(context.Background(), local))
	require.NoError(t, kire.EnsureChannels(context.Background(), local), "registering twice is harmless")

	channels := local.Channels()
	require.Len(t, channels, len(kire.VibrationPatterns))
	for _, ch := range channels {
		assert.Contains(t, ch.ID, "kire-pattern-")
	}
}
