// Package seasonality decides whether a service aligns with the current
// season and what score boost that alignment earns. Rules are static
// defaults overridable per vertical from a YAML file.
package seasonality

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/loclift/growth-cli/internal/model"
)

// Boost is the multiplier increment applied when the current season matches
// the service.
const Boost = 0.15

// monthSeason maps calendar months to seasons (northern hemisphere).
var monthSeason = map[time.Month]string{
	time.December: "winter", time.January: "winter", time.February: "winter",
	time.March: "spring", time.April: "spring", time.May: "spring",
	time.June: "summer", time.July: "summer", time.August: "summer",
	time.September: "fall", time.October: "fall", time.November: "fall",
}

// defaultRules maps season to service keywords that peak in it.
var defaultRules = map[string][]string{
	"spring": {"yard", "garage", "cleanout", "cleanup", "landscap", "gutter", "deck"},
	"summer": {"moving", "estate", "construction", "deck", "pool", "shed"},
	"fall":   {"leaf", "gutter", "yard", "cleanout", "winteriz"},
	"winter": {"appliance", "furniture", "hoarding", "basement", "attic"},
}

// Checker evaluates seasonal alignment. The zero value is not usable; build
// one with New.
type Checker struct {
	// rules[vertical][season] -> service keywords. The "" vertical holds
	// the defaults.
	rules map[string]map[string][]string
	now   func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// WithRules sets season rules for a vertical.
func WithRules(vertical string, rules map[string][]string) Option {
	return func(c *Checker) { c.rules[strings.ToLower(vertical)] = rules }
}

// New builds a Checker with the default rules.
func New(opts ...Option) *Checker {
	c := &Checker{
		rules: map[string]map[string][]string{"": defaultRules},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadRules reads per-vertical season rules from a YAML file shaped as
// vertical -> season -> [keywords]. A missing file leaves the defaults in
// place.
func (c *Checker) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrap(err, "seasonality: read rules file")
	}
	var parsed map[string]map[string][]string
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return eris.Wrap(err, "seasonality: parse rules file")
	}
	for vertical, rules := range parsed {
		c.rules[strings.ToLower(vertical)] = rules
	}
	return nil
}

// Season names the season the given time falls in.
func Season(t time.Time) string {
	return monthSeason[t.Month()]
}

// Check reports whether the service peaks in the current season for the
// vertical. BoostApplied is Boost on a match, 0 otherwise.
func (c *Checker) Check(service, vertical string) model.SeasonalityInfo {
	now := c.now().UTC()
	season := Season(now)
	info := model.SeasonalityInfo{CurrentSeason: season}

	rules, ok := c.rules[strings.ToLower(vertical)]
	if !ok {
		rules = c.rules[""]
	}
	svc := strings.ToLower(strings.TrimSpace(service))
	if svc == "" {
		return info
	}
	for _, kw := range rules[season] {
		k := strings.ToLower(kw)
		// Containment runs both ways so "deck" still matches a "deck
		// removal" rule keyword.
		if k != "" && (strings.Contains(svc, k) || strings.Contains(k, svc)) {
			info.Match = true
			info.BoostApplied = Boost
			break
		}
	}
	return info
}
