package pricing

import "strings"

// WorldwideMarker identifies the global fallback zone by name.
const WorldwideMarker = "Worldwide"

// ShippingZone describes a shipping rate keyed by country, state and LGA combinations.
type ShippingZone struct {
	Name                  string   `json:"name"`
	Country               string   `json:"country,omitempty"`
	State                 string   `json:"state,omitempty"`
	States                []string `json:"states,omitempty"`
	LGAs                  []string `json:"lgas,omitempty"`
	Countries             []string `json:"countries,omitempty"`
	Rate                  Money    `json:"rate"`
	FreeShippingThreshold Money    `json:"freeShippingThreshold,omitempty"`
	EstimatedDays         string   `json:"estimatedDays,omitempty"`
}

// MatchLevel reports which resolution step produced a zone.
type MatchLevel string

const (
	MatchNone          MatchLevel = ""
	MatchLGA           MatchLevel = "lga"
	MatchState         MatchLevel = "state"
	MatchMultiState    MatchLevel = "multi_state"
	MatchCountry       MatchLevel = "country"
	MatchInternational MatchLevel = "international"
	MatchWorldwide     MatchLevel = "worldwide"
)

// QualifiesForFreeShipping reports whether the subtotal reaches the zone threshold.
func (z ShippingZone) QualifiesForFreeShipping(subtotal Money) bool {
	return z.FreeShippingThreshold > 0 && subtotal >= z.FreeShippingThreshold
}

func (z ShippingZone) hasStateScope() bool {
	return strings.TrimSpace(z.State) != "" || len(z.States) > 0
}

// ResolveZone returns the best matching zone for the location or nil when shipping cannot be
// determined yet.
func ResolveZone(loc Location, zones []ShippingZone) *ShippingZone {
	zone, _ := MatchZone(loc, zones)
	return zone
}

// MatchZone behaves like ResolveZone and additionally reports the matching step.
// Steps run in strict priority order and the first zone in declaration order wins.
func MatchZone(loc Location, zones []ShippingZone) (*ShippingZone, MatchLevel) {
	key := loc.matchKey()
	if key.Country == "" || len(zones) == 0 {
		return nil, MatchNone
	}

	inCountry := func(z ShippingZone) bool { return sameName(z.Country, key.Country) }

	if key.State != "" && key.LGA != "" {
		if i := findZone(zones, func(z ShippingZone) bool {
			return inCountry(z) && sameName(z.State, key.State) && containsName(z.LGAs, key.LGA)
		}); i >= 0 {
			return &zones[i], MatchLGA
		}
	}

	if key.State != "" {
		if i := findZone(zones, func(z ShippingZone) bool {
			return inCountry(z) && sameName(z.State, key.State) && len(z.LGAs) == 0
		}); i >= 0 {
			return &zones[i], MatchState
		}
		if i := findZone(zones, func(z ShippingZone) bool {
			return inCountry(z) && containsName(z.States, key.State)
		}); i >= 0 {
			return &zones[i], MatchMultiState
		}
	}

	if i := findZone(zones, func(z ShippingZone) bool {
		return inCountry(z) && !z.hasStateScope() && len(z.LGAs) == 0
	}); i >= 0 {
		return &zones[i], MatchCountry
	}

	if i := findZone(zones, func(z ShippingZone) bool {
		return containsName(z.Countries, key.Country)
	}); i >= 0 {
		return &zones[i], MatchInternational
	}

	if i := findZone(zones, func(z ShippingZone) bool {
		return strings.Contains(z.Name, WorldwideMarker)
	}); i >= 0 {
		return &zones[i], MatchWorldwide
	}
	return nil, MatchNone
}

func findZone(zones []ShippingZone, pred func(ShippingZone) bool) int {
	for i := range zones {
		if pred(zones[i]) {
			return i
		}
	}
	return -1
}
