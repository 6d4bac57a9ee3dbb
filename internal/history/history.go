// Package history tracks per-keyword observation history and derives the
// decay factor applied to stored confidence: repetition erodes novelty,
// dormancy past 30 days restores it.
package history

import (
	"strings"
	"time"
)

// StaleDays is the dormancy threshold after which a keyword regains novelty.
const StaleDays = 30

// Entry is one keyword's observation history. AvgConfidence is an
// incremental running average over every observed confidence.
type Entry struct {
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	UsageCount    int       `json:"usage_count"`
	AvgConfidence float64   `json:"avg_confidence"`
	LastRegion    string    `json:"last_region,omitempty"`
}

// Store is the key-value abstraction over the history backend. Update runs a
// read-modify-write as a single operation so a transactional backend can be
// substituted without touching the decay algorithm. Keys are lower-cased
// normalized keywords.
type Store interface {
	Get(key string) (Entry, bool, error)
	Put(key string, e Entry) error
	Update(key string, fn func(e Entry, found bool) Entry) error
	Close() error
}

// Tracker applies the decay/novelty model on top of a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker wraps a Store. The clock is injectable for tests via WithClock.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the tracker's clock.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// Key normalizes a keyword into its history key.
func Key(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Observe records one observation of a keyword at the given confidence,
// creating the entry on first sight and folding the confidence into the
// running average on every subsequent one: avg' = (avg*(n-1) + new) / n.
func (t *Tracker) Observe(keyword string, conf float64, region string) error {
	key := Key(keyword)
	if key == "" {
		return nil
	}
	now := t.now()
	return t.store.Update(key, func(e Entry, found bool) Entry {
		if !found {
			return Entry{
				FirstSeen:     now,
				LastSeen:      now,
				UsageCount:    1,
				AvgConfidence: conf,
				LastRegion:    region,
			}
		}
		n := e.UsageCount + 1
		e.AvgConfidence = (e.AvgConfidence*float64(n-1) + conf) / float64(n)
		e.UsageCount = n
		e.LastSeen = now
		if e.FirstSeen.IsZero() {
			e.FirstSeen = now
		}
		if region != "" {
			e.LastRegion = region
		}
		return e
	})
}

// Get returns the history entry for a keyword.
func (t *Tracker) Get(keyword string) (Entry, bool, error) {
	return t.store.Get(Key(keyword))
}

// DecayFactor derives the confidence multiplier for a keyword:
//
//	freqDecay:    1.0 below 3 uses, 0.7 at 3-4, 0.5 at 5-9, 0.3 at 10+
//	noveltyBoost: 1.0 within 30 days, then min(1.2, 0.8 + daysSince/100)
//	decay = min(1.0, freqDecay * noveltyBoost)
//
// Unknown keywords are fully novel (1.0). Errors reading the store also
// default to 1.0 — decay is a ranking refinement, never a hard dependency.
func (t *Tracker) DecayFactor(keyword string) float64 {
	e, found, err := t.store.Get(Key(keyword))
	if err != nil || !found {
		return 1.0
	}

	var freqDecay float64
	switch {
	case e.UsageCount >= 10:
		freqDecay = 0.3
	case e.UsageCount >= 5:
		freqDecay = 0.5
	case e.UsageCount >= 3:
		freqDecay = 0.7
	default:
		freqDecay = 1.0
	}

	noveltyBoost := 1.0
	if !e.LastSeen.IsZero() {
		daysSince := t.now().Sub(e.LastSeen).Hours() / 24
		if daysSince >= StaleDays {
			noveltyBoost = min(1.2, 0.8+daysSince/100)
		}
	}

	return min(1.0, freqDecay*noveltyBoost)
}
