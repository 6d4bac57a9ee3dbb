package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, now time.Time) (*Tracker, *FileStore) {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	clock := now
	return NewTracker(store, WithClock(func() time.Time { return clock })), store
}

func TestObserve_RunningAverage(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, now)

	require.NoError(t, tracker.Observe("Junk Removal", 0.6, "WI"))
	require.NoError(t, tracker.Observe("junk removal", 0.8, "WI"))
	require.NoError(t, tracker.Observe("  junk removal ", 1.0, "AZ"))

	e, found, err := tracker.Get("junk removal")
	require.NoError(t, err)
	require.True(t, found, "case and whitespace variants share one key")
	assert.Equal(t, 3, e.UsageCount)
	assert.InDelta(t, 0.8, e.AvgConfidence, 1e-9)
	assert.Equal(t, "AZ", e.LastRegion)
	assert.True(t, e.FirstSeen.Equal(now))
}

func TestObserve_EmptyKeywordIgnored(t *testing.T) {
	tracker, store := newTestTracker(t, time.Now().UTC())
	require.NoError(t, tracker.Observe("   ", 0.9, "WI"))
	assert.Zero(t, store.Len())
}

func TestDecayFactor_FrequencyTiers(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		observations int
		want         float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 1.0},
		{3, 0.7},
		{4, 0.7},
		{5, 0.5},
		{9, 0.5},
		{10, 0.3},
		{25, 0.3},
	}
	for _, tt := range tests {
		tracker, _ := newTestTracker(t, now)
		for i := 0; i < tt.observations; i++ {
			require.NoError(t, tracker.Observe("garage cleanout", 0.8, "WI"))
		}
		assert.InDelta(t, tt.want, tracker.DecayFactor("garage cleanout"), 1e-9,
			"observations=%d", tt.observations)
	}
}

func TestDecayFactor_DormancyRestoresNovelty(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	defer store.Close()

	clock := start
	tracker := NewTracker(store, WithClock(func() time.Time { return clock }))

	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.Observe("junk removal", 0.8, "WI"))
	}
	assert.InDelta(t, 0.5, tracker.DecayFactor("junk removal"), 1e-9)

	// Dormancy strictly increases the multiplier once past 30 days.
	clock = start.AddDate(0, 0, 40)
	boosted := tracker.DecayFactor("junk removal")
	assert.InDelta(t, 0.5*(0.8+0.4), boosted, 1e-9)
	assert.Greater(t, boosted, 0.5)

	// The novelty boost caps at 1.2 and the product at 1.0.
	clock = start.AddDate(0, 0, 400)
	assert.InDelta(t, 0.5*1.2, tracker.DecayFactor("junk removal"), 1e-9)
}

func TestDecayFactor_CapsAtOne(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	defer store.Close()

	clock := start
	tracker := NewTracker(store, WithClock(func() time.Time { return clock }))

	require.NoError(t, tracker.Observe("junk removal", 0.8, "WI"))
	clock = start.AddDate(0, 0, 60)
	assert.InDelta(t, 1.0, tracker.DecayFactor("junk removal"), 1e-9,
		"freqDecay 1.0 times boost 1.4 still caps at 1.0")
}

func TestFileStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("junk removal", Entry{UsageCount: 4, AvgConfidence: 0.7}))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	e, found, err := reopened.Get("junk removal")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, e.UsageCount)
	assert.InDelta(t, 0.7, e.AvgConfidence, 1e-9)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Zero(t, store.Len())
}
