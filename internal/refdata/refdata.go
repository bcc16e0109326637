// Package refdata loads the read-only reference data priced against: shipping zones, tax rules,
// coupons and pickup points.
package refdata

import (
	"errors"
	"strings"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// ErrInvalidData is returned when a reference file fails validation.
var ErrInvalidData = errors.New("invalid reference data")

// PickupPoint is a store where orders can be collected.
type PickupPoint struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name" yaml:"name" validate:"required"`
	Address string `json:"address" yaml:"address"`
	Hours   string `json:"hours,omitempty" yaml:"hours"`
	State   string `json:"state" yaml:"state" validate:"required"`
}

// Dataset is the validated, converted reference data.
type Dataset struct {
	Zones        []pricing.ShippingZone
	DefaultZone  *pricing.ShippingZone
	TaxRules     []pricing.TaxRule
	Coupons      *coupon.Table
	PickupPoints []PickupPoint
}

// PickupStates lists the distinct states with at least one pickup point.
func (d Dataset) PickupStates() []string {
	seen := make(map[string]struct{}, len(d.PickupPoints))
	var states []string
	for _, p := range d.PickupPoints {
		key := strings.ToLower(pricing.NormalizeState(p.State))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		states = append(states, pricing.NormalizeState(p.State))
	}
	return states
}

// PickupPointsFor returns the pickup points in the state. An empty state returns all points.
func (d Dataset) PickupPointsFor(state string) []PickupPoint {
	state = pricing.NormalizeState(state)
	if state == "" {
		return append([]PickupPoint(nil), d.PickupPoints...)
	}
	var out []PickupPoint
	for _, p := range d.PickupPoints {
		if strings.EqualFold(pricing.NormalizeState(p.State), state) {
			out = append(out, p)
		}
	}
	return out
}

// EngineConfig returns an engine configuration over the dataset.
func (d Dataset) EngineConfig(policy pricing.TaxPolicy) pricing.Config {
	return pricing.Config{
		Zones:        d.Zones,
		DefaultZone:  d.DefaultZone,
		TaxRules:     d.TaxRules,
		Coupons:      d.Coupons,
		PickupStates: d.PickupStates(),
		Tax:          policy,
	}
}
