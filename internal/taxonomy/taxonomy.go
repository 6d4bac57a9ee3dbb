// Package taxonomy holds the controlled service-intent vocabulary and the
// gate that filters raw keyword strings before any scoring happens. Not ML —
// an auditable word list that removes most of the garbage up front.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// defaultServiceNouns are objects a local hauling/removal business acts on.
var defaultServiceNouns = []string{
	"junk", "trash", "debris", "furniture", "appliance",
	"mattress", "sofa", "couch", "hot tub", "hottub", "tub",
	"shed", "garage", "basement", "attic", "estate",
	"construction", "yard", "waste", "recycling",
	"metal", "scrap", "e waste", "ewaste",
}

// defaultServiceVerbs are the actions that carry search intent.
var defaultServiceVerbs = []string{
	"remove", "removal", "haul", "hauling",
	"cleanout", "clean out", "dispose", "disposal",
	"pickup", "pick up", "take away",
}

// defaultExcludedTerms are single adjectives, business fluff, and generic
// nouns that never carry service intent on their own.
var defaultExcludedTerms = []string{
	"professional", "friendly", "great", "best",
	"quality", "local", "team", "service", "work",
	"company", "job", "family", "owned",
	"fast", "reliable", "affordable", "trusted",
	"family-owned", "locally owned",
}

// Vocabulary is the compiled service-intent vocabulary plus per-vertical
// negative-keyword sets. Build it once per process and pass it into the gate
// and scorers; it is immutable after construction and safe for concurrent reads.
type Vocabulary struct {
	serviceNouns  []string
	serviceVerbs  []string
	excludedTerms []string
	excludedSet   map[string]struct{}
	negatives     map[string][]string // vertical -> terms
}

// Option configures a Vocabulary at construction time.
type Option func(*Vocabulary)

// WithServiceNouns replaces the default service nouns.
func WithServiceNouns(nouns []string) Option {
	return func(v *Vocabulary) { v.serviceNouns = lowered(nouns) }
}

// WithServiceVerbs replaces the default service verbs.
func WithServiceVerbs(verbs []string) Option {
	return func(v *Vocabulary) { v.serviceVerbs = lowered(verbs) }
}

// WithExcludedTerms replaces the default excluded terms.
func WithExcludedTerms(terms []string) Option {
	return func(v *Vocabulary) { v.excludedTerms = lowered(terms) }
}

// WithNegatives sets the negative-keyword list for a vertical.
func WithNegatives(vertical string, terms []string) Option {
	return func(v *Vocabulary) {
		v.negatives[strings.ToLower(strings.TrimSpace(vertical))] = lowered(terms)
	}
}

// New builds a Vocabulary with junk-removal defaults, then applies options.
func New(opts ...Option) *Vocabulary {
	v := &Vocabulary{
		serviceNouns:  defaultServiceNouns,
		serviceVerbs:  defaultServiceVerbs,
		excludedTerms: defaultExcludedTerms,
		negatives:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.excludedSet = make(map[string]struct{}, len(v.excludedTerms))
	for _, t := range v.excludedTerms {
		v.excludedSet[t] = struct{}{}
	}
	return v
}

// LoadNegatives reads a per-vertical negative-keyword YAML file of the form
//
//	junk_removal:
//	  - "dumpster rental near me jobs"
//	  - "free junk"
//
// and registers each vertical's list. Missing file is not an error: verticals
// without a list simply have no negative keywords.
func (v *Vocabulary) LoadNegatives(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("taxonomy: no negative keyword file", zap.String("path", path))
			return nil
		}
		return eris.Wrapf(err, "taxonomy: read negatives %s", path)
	}

	parsed := make(map[string][]string)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return eris.Wrapf(err, "taxonomy: parse negatives %s", path)
	}
	for vertical, terms := range parsed {
		v.negatives[strings.ToLower(strings.TrimSpace(vertical))] = lowered(terms)
	}
	return nil
}

// LoadNegativesFor reads a flat YAML list of negative keywords and registers
// it for one vertical, replacing any list the shared file supplied. Missing
// file is not an error.
func (v *Vocabulary) LoadNegativesFor(vertical, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("taxonomy: no negative keyword file", zap.String("path", path))
			return nil
		}
		return eris.Wrapf(err, "taxonomy: read negatives %s", path)
	}

	var terms []string
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return eris.Wrapf(err, "taxonomy: parse negatives %s", path)
	}
	v.negatives[strings.ToLower(strings.TrimSpace(vertical))] = lowered(terms)
	return nil
}

// Negatives returns the negative terms registered for a vertical.
func (v *Vocabulary) Negatives(vertical string) []string {
	return v.negatives[strings.ToLower(strings.TrimSpace(vertical))]
}

// IsNegative reports whether the keyword contains any of the vertical's
// negative terms. Negative keywords are removed immediately: never scored,
// stored, or referenced downstream.
func (v *Vocabulary) IsNegative(keyword, vertical string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return false
	}
	for _, term := range v.Negatives(vertical) {
		if term != "" && strings.Contains(k, term) {
			return true
		}
	}
	return false
}

// HasServiceNoun reports whether the keyword contains any service noun.
func (v *Vocabulary) HasServiceNoun(keyword string) bool {
	return containsAny(strings.ToLower(keyword), v.serviceNouns)
}

// HasServiceVerb reports whether the keyword contains any service verb.
func (v *Vocabulary) HasServiceVerb(keyword string) bool {
	return containsAny(strings.ToLower(keyword), v.serviceVerbs)
}

// HasServiceTerm reports whether the keyword contains a service noun or verb.
func (v *Vocabulary) HasServiceTerm(keyword string) bool {
	k := strings.ToLower(keyword)
	return containsAny(k, v.serviceNouns) || containsAny(k, v.serviceVerbs)
}

// IsServiceWord reports whether the string is exactly one of the service
// nouns or verbs (whole-string membership, not substring).
func (v *Vocabulary) IsServiceWord(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range v.serviceNouns {
		if s == t {
			return true
		}
	}
	for _, t := range v.serviceVerbs {
		if s == t {
			return true
		}
	}
	return false
}

// HasExcludedTerm reports whether the keyword contains any excluded fluff term.
func (v *Vocabulary) HasExcludedTerm(keyword string) bool {
	return containsAny(strings.ToLower(keyword), v.excludedTerms)
}

// IsExcludedExact reports whether the whole keyword is an excluded term.
func (v *Vocabulary) IsExcludedExact(keyword string) bool {
	_, ok := v.excludedSet[strings.ToLower(strings.TrimSpace(keyword))]
	return ok
}

// PassesGate is the service-intent gate: a keyword passes only if it is not
// negative for the vertical, not composed of excluded terms, and contains at
// least one service noun or verb. Deterministic and pure; rejected strings
// are dropped silently.
func (v *Vocabulary) PassesGate(keyword, vertical string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return false
	}
	if v.IsNegative(k, vertical) {
		return false
	}
	if v.HasExcludedTerm(k) {
		return false
	}
	return v.HasServiceTerm(k)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowered(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
