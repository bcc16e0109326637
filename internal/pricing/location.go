package pricing

import "strings"

// Location is the destination used as a lookup key for zones and tax rules.
type Location struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
	LGA     string `json:"lga,omitempty"`
}

// stateAliases maps state names offered to shoppers onto the names used by reference data.
var stateAliases = map[string]string{
	"abuja (fct)": "Federal Capital Territory",
}

// IsZero reports whether no location information was provided.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.Country) == "" && strings.TrimSpace(l.State) == "" && strings.TrimSpace(l.LGA) == ""
}

// matchKey returns the location normalised for matching. The original value is left
// untouched so callers keep displaying what the shopper selected.
func (l Location) matchKey() Location {
	return Location{
		Country: strings.TrimSpace(l.Country),
		State:   NormalizeState(l.State),
		LGA:     strings.TrimSpace(l.LGA),
	}
}

// NormalizeState maps display aliases such as "Abuja (FCT)" to the canonical state name.
func NormalizeState(state string) string {
	trimmed := strings.TrimSpace(state)
	if canonical, ok := stateAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsName(list []string, value string) bool {
	if value == "" {
		return false
	}
	for _, candidate := range list {
		if sameName(candidate, value) {
			return true
		}
	}
	return false
}
