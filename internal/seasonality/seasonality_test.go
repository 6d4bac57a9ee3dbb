package seasonality

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(2026, month, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "winter"},
		{time.April, "spring"},
		{time.July, "summer"},
		{time.October, "fall"},
		{time.December, "winter"},
	}
	for _, tt := range tests {
		got := Season(time.Date(2026, tt.month, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, tt.want, got, tt.month.String())
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		month     time.Month
		service   string
		wantMatch bool
	}{
		{"garage cleanout peaks in spring", time.April, "garage cleanout", true},
		{"garage cleanout off-season in winter", time.January, "garage cleanout", false},
		{"appliance removal peaks in winter", time.January, "appliance removal", true},
		{"estate cleanout in summer", time.July, "estate cleanout", true},
		{"unmatched service", time.July, "junk removal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithClock(fixedClock(tt.month)))
			info := c.Check(tt.service, "junk_removal")
			assert.Equal(t, tt.wantMatch, info.Match)
			if tt.wantMatch {
				assert.InDelta(t, Boost, info.BoostApplied, 1e-9)
			} else {
				assert.Zero(t, info.BoostApplied)
			}
		})
	}
}

func TestCheckServiceShorterThanRuleKeyword(t *testing.T) {
	c := New(
		WithClock(fixedClock(time.July)),
		WithRules("deck_service", map[string][]string{"summer": {"deck removal"}}),
	)
	// Containment is symmetric: "deck" sits inside the rule keyword.
	assert.True(t, c.Check("deck", "deck_service").Match)
	assert.False(t, c.Check("", "deck_service").Match)
}

func TestCheckVerticalOverride(t *testing.T) {
	c := New(
		WithClock(fixedClock(time.July)),
		WithRules("pool_service", map[string][]string{"summer": {"opening"}}),
	)
	assert.True(t, c.Check("pool opening", "pool_service").Match)
	// Override replaces the defaults for that vertical.
	assert.False(t, c.Check("estate cleanout", "pool_service").Match)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seasons.yaml")
	content := "junk_removal:\n  winter:\n    - snowblower\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := New(WithClock(fixedClock(time.January)))
	require.NoError(t, c.LoadRules(path))
	assert.True(t, c.Check("snowblower removal", "junk_removal").Match)
}

func TestLoadRulesMissingFile(t *testing.T) {
	c := New()
	assert.NoError(t, c.LoadRules(filepath.Join(t.TempDir(), "absent.yaml")))
}
