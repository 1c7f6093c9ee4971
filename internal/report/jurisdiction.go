package report

import (
	"regexp"
	"sort"
	"strings"
)

// stateAbbrevZipRe matches the "ST 12345" tail of a typical US address line.
var stateAbbrevZipRe = regexp.MustCompile(`\b([A-Za-z]{2})[,.]?\s+(\d{5})(?:-\d{4})?\b`)

var stateNames = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

var validAbbrev = func() map[string]bool {
	m := make(map[string]bool, len(stateNames))
	for _, abbr := range stateNames {
		m[abbr] = true
	}
	return m
}()

// Longest names first, so "west virginia" wins over "virginia" and
// "arkansas" over "kansas".
var stateNamesByLength = func() []string {
	names := make([]string, 0, len(stateNames))
	for name := range stateNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// ExtractState pulls a two-letter state code out of a free-text address.
// It first looks for a state abbreviation directly ahead of a ZIP code,
// then falls back to scanning for a spelled-out state name. Returns ""
// when no state can be recognized.
func ExtractState(address string) string {
	if m := stateAbbrevZipRe.FindStringSubmatch(address); m != nil {
		abbr := strings.ToUpper(m[1])
		if validAbbrev[abbr] {
			return abbr
		}
	}

	lower := strings.ToLower(address)
	for _, name := range stateNamesByLength {
		if strings.Contains(lower, name) {
			return stateNames[name]
		}
	}
	return ""
}
