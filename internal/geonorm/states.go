package geonorm

// stateAbbrev maps full state names (plus DC) to their 2-letter postal
// abbreviations. Kept as an explicit, enumerated table on purpose: this is a
// closed, auditable vocabulary, not a heuristic model.
var stateAbbrev = map[string]string{
	"alabama": "al", "alaska": "ak", "arizona": "az", "arkansas": "ar",
	"california": "ca", "colorado": "co", "connecticut": "ct",
	"delaware": "de", "florida": "fl", "georgia": "ga", "hawaii": "hi",
	"idaho": "id", "illinois": "il", "indiana": "in", "iowa": "ia",
	"kansas": "ks", "kentucky": "ky", "louisiana": "la", "maine": "me",
	"maryland": "md", "massachusetts": "ma", "michigan": "mi",
	"minnesota": "mn", "mississippi": "ms", "missouri": "mo",
	"montana": "mt", "nebraska": "ne", "nevada": "nv", "new hampshire": "nh",
	"new jersey": "nj", "new mexico": "nm", "new york": "ny",
	"north carolina": "nc", "north dakota": "nd", "ohio": "oh",
	"oklahoma": "ok", "oregon": "or", "pennsylvania": "pa",
	"rhode island": "ri", "south carolina": "sc", "south dakota": "sd",
	"tennessee": "tn", "texas": "tx", "utah": "ut", "vermont": "vt",
	"virginia": "va", "washington": "wa", "west virginia": "wv",
	"wisconsin": "wi", "wyoming": "wy", "district of columbia": "dc",
}

// abbrevSet is the set of valid 2-letter state abbreviations.
var abbrevSet = func() map[string]struct{} {
	s := make(map[string]struct{}, len(stateAbbrev))
	for _, ab := range stateAbbrev {
		s[ab] = struct{}{}
	}
	return s
}()

// StateAbbrev returns the postal abbreviation for a full state name.
func StateAbbrev(name string) (string, bool) {
	ab, ok := stateAbbrev[name]
	return ab, ok
}

// IsStateAbbrev reports whether s is a valid 2-letter state abbreviation.
func IsStateAbbrev(s string) bool {
	_, ok := abbrevSet[s]
	return ok
}
