package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

func fixtureZones() []pricing.ShippingZone {
	return []pricing.ShippingZone{
		{Name: "Lagos State", Country: "Nigeria", State: "Lagos", Rate: pricing.Major(4000), EstimatedDays: "1-2"},
		{Name: "Lagos Mainland", Country: "Nigeria", State: "Lagos", LGAs: []string{"Ikeja", "Surulere"}, Rate: pricing.Major(3000), FreeShippingThreshold: pricing.Major(100000), EstimatedDays: "1"},
		{Name: "Abuja", Country: "Nigeria", State: "Federal Capital Territory", Rate: pricing.Major(5000), EstimatedDays: "2-3"},
		{Name: "South West", Country: "Nigeria", States: []string{"Ogun", "Oyo", "Osun"}, Rate: pricing.Major(4500), EstimatedDays: "2-4"},
		{Name: "Rest of Nigeria", Country: "Nigeria", Rate: pricing.Major(6000), EstimatedDays: "3-7"},
		{Name: "West Africa", Countries: []string{"Ghana", "Benin", "Togo"}, Rate: pricing.Major(25000), EstimatedDays: "7-10"},
		{Name: "Worldwide Express", Rate: pricing.Major(60000), EstimatedDays: "10-21"},
	}
}

func TestResolveZonePriority(t *testing.T) {
	t.Parallel()

	zones := fixtureZones()
	cases := []struct {
		name  string
		loc   pricing.Location
		zone  string
		level pricing.MatchLevel
	}{
		{"lga beats state", pricing.Location{Country: "Nigeria", State: "Lagos", LGA: "Ikeja"}, "Lagos Mainland", pricing.MatchLGA},
		{"state without lga list", pricing.Location{Country: "Nigeria", State: "Lagos", LGA: "Epe"}, "Lagos State", pricing.MatchState},
		{"state only", pricing.Location{Country: "Nigeria", State: "Lagos"}, "Lagos State", pricing.MatchState},
		{"fct alias", pricing.Location{Country: "Nigeria", State: "Abuja (FCT)"}, "Abuja", pricing.MatchState},
		{"multi state", pricing.Location{Country: "Nigeria", State: "Oyo", LGA: "Ibadan North"}, "South West", pricing.MatchMultiState},
		{"country fallback", pricing.Location{Country: "Nigeria", State: "Kano"}, "Rest of Nigeria", pricing.MatchCountry},
		{"country without state", pricing.Location{Country: "Nigeria"}, "Rest of Nigeria", pricing.MatchCountry},
		{"international group", pricing.Location{Country: "Ghana", State: "Greater Accra"}, "West Africa", pricing.MatchInternational},
		{"worldwide", pricing.Location{Country: "Canada", State: "Ontario"}, "Worldwide Express", pricing.MatchWorldwide},
		{"case and whitespace", pricing.Location{Country: " nigeria ", State: "lagos", LGA: "IKEJA"}, "Lagos Mainland", pricing.MatchLGA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			zone, level := pricing.MatchZone(tc.loc, zones)
			require.NotNil(t, zone)
			require.Equal(t, tc.zone, zone.Name)
			require.Equal(t, tc.level, level)
		})
	}
}

func TestResolveZoneKeepsShopperValue(t *testing.T) {
	loc := pricing.Location{Country: "Nigeria", State: "Abuja (FCT)"}
	zone := pricing.ResolveZone(loc, fixtureZones())
	require.NotNil(t, zone)
	require.Equal(t, "Abuja (FCT)", loc.State)
	require.Equal(t, "Federal Capital Territory", pricing.NormalizeState(loc.State))
}

func TestResolveZoneNoMatch(t *testing.T) {
	zones := []pricing.ShippingZone{
		{Name: "Lagos State", Country: "Nigeria", State: "Lagos", Rate: pricing.Major(4000)},
	}
	require.Nil(t, pricing.ResolveZone(pricing.Location{Country: "France"}, zones))
	require.Nil(t, pricing.ResolveZone(pricing.Location{Country: "Nigeria", State: "Kano"}, zones))
	require.Nil(t, pricing.ResolveZone(pricing.Location{}, fixtureZones()))
	require.Nil(t, pricing.ResolveZone(pricing.Location{Country: "Nigeria", State: "Lagos"}, nil))
}

func TestResolveZoneFirstDeclaredWins(t *testing.T) {
	zones := []pricing.ShippingZone{
		{Name: "First", Country: "Nigeria", State: "Lagos", Rate: 1},
		{Name: "Second", Country: "Nigeria", State: "Lagos", Rate: 2},
	}
	zone := pricing.ResolveZone(pricing.Location{Country: "Nigeria", State: "Lagos"}, zones)
	require.NotNil(t, zone)
	require.Equal(t, "First", zone.Name)
}

func TestQualifiesForFreeShippingZeroThresholdMeansNone(t *testing.T) {
	zone := pricing.ShippingZone{Name: "Rest of Nigeria", Rate: pricing.Major(6000)}
	require.False(t, zone.QualifiesForFreeShipping(pricing.Major(1_000_000)))

	zone.FreeShippingThreshold = pricing.Major(100000)
	require.False(t, zone.QualifiesForFreeShipping(pricing.Major(99999)))
	require.True(t, zone.QualifiesForFreeShipping(pricing.Major(100000)))
}
