package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxRule describes a tax rate applying to a country or a single state.
type TaxRule struct {
	Name      string          `json:"name,omitempty"`
	Country   string          `json:"country"`
	State     string          `json:"state,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	IsDefault bool            `json:"isDefault,omitempty"`
}

// TaxPolicy controls whether a resolved tax rate is charged.
// The storefront currently resolves rules for reporting but charges no tax.
type TaxPolicy struct {
	Apply bool
}

// ResolveTaxRule returns the rule for the location: an exact country and state match first,
// then the country's default rule. Nil means no tax applies.
func ResolveTaxRule(loc Location, rules []TaxRule) *TaxRule {
	key := loc.matchKey()
	if key.Country == "" {
		return nil
	}
	if key.State != "" {
		for i := range rules {
			if sameName(rules[i].Country, key.Country) && sameName(NormalizeState(rules[i].State), key.State) {
				return &rules[i]
			}
		}
	}
	for i := range rules {
		if sameName(rules[i].Country, key.Country) && strings.TrimSpace(rules[i].State) == "" && rules[i].IsDefault {
			return &rules[i]
		}
	}
	return nil
}

// ResolveTaxRate returns the rate of the matching rule or zero.
func ResolveTaxRate(loc Location, rules []TaxRule) decimal.Decimal {
	if rule := ResolveTaxRule(loc, rules); rule != nil {
		return rule.Rate
	}
	return decimal.Zero
}

// AppliedRate returns the rate that is actually charged under the policy.
func (p TaxPolicy) AppliedRate(rule *TaxRule) decimal.Decimal {
	if !p.Apply || rule == nil {
		return decimal.Zero
	}
	return rule.Rate
}
