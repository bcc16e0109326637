package refdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

//go:embed data/default.yaml
var defaultDataset []byte

// Format names a reference file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported file extension %q", ErrInvalidData, filepath.Ext(path))
	}
}

// Default returns the dataset bundled with the binary.
func Default() (Dataset, error) {
	return Parse(defaultDataset, FormatYAML)
}

// Load reads and validates a reference file. An empty path loads the bundled dataset.
func Load(path string) (Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return Dataset{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes, validates and converts reference data.
func Parse(data []byte, format Format) (Dataset, error) {
	var raw file
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return Dataset{}, fmt.Errorf("%w: decode json: %v", ErrInvalidData, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Dataset{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidData, err)
		}
	default:
		return Dataset{}, fmt.Errorf("%w: unknown format %q", ErrInvalidData, format)
	}
	if err := validate.Struct(raw); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return raw.convert()
}

var validate = validator.New()

type file struct {
	ShippingZones []zoneRecord   `json:"shippingZones" yaml:"shippingZones" validate:"dive"`
	DefaultZone   *zoneRecord    `json:"defaultZone" yaml:"defaultZone"`
	TaxRates      []taxRecord    `json:"taxRates" yaml:"taxRates" validate:"dive"`
	Coupons       []couponRecord `json:"coupons" yaml:"coupons" validate:"dive"`
	PickupPoints  []PickupPoint  `json:"pickupPoints" yaml:"pickupPoints" validate:"dive"`
}

type scope struct {
	Country string   `json:"country" yaml:"country"`
	State   string   `json:"state" yaml:"state"`
	States  []string `json:"states" yaml:"states"`
	LGAs    []string `json:"lgas" yaml:"lgas"`
}

type zoneRecord struct {
	Name                  string           `json:"name" yaml:"name" validate:"required"`
	Country               string           `json:"country" yaml:"country"`
	State                 string           `json:"state" yaml:"state"`
	States                []string         `json:"states" yaml:"states"`
	LGAs                  []string         `json:"lgas" yaml:"lgas"`
	Countries             []string         `json:"countries" yaml:"countries"`
	AppliesTo             *scope           `json:"appliesTo" yaml:"appliesTo"`
	Rate                  decimal.Decimal  `json:"rate" yaml:"rate"`
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold" yaml:"freeShippingThreshold"`
	EstimatedDays         string           `json:"estimatedDays" yaml:"estimatedDays"`
}

type taxRecord struct {
	Name      string          `json:"name" yaml:"name"`
	Country   string          `json:"country" yaml:"country"`
	State     string          `json:"state" yaml:"state"`
	AppliesTo *scope          `json:"appliesTo" yaml:"appliesTo"`
	Rate      decimal.Decimal `json:"rate" yaml:"rate"`
	Type      string          `json:"type" yaml:"type" validate:"omitempty,oneof=percentage fraction"`
	Default   bool            `json:"default" yaml:"default"`
}

type couponRecord struct {
	Code        string           `json:"code" yaml:"code" validate:"required"`
	Type        string           `json:"type" yaml:"type" validate:"required"`
	Value       decimal.Decimal  `json:"value" yaml:"value"`
	Description string           `json:"description" yaml:"description"`
	MinSpend    *decimal.Decimal `json:"minSpend" yaml:"minSpend"`
	ValidFrom   *time.Time       `json:"validFrom" yaml:"validFrom"`
	ValidTo     *time.Time       `json:"validTo" yaml:"validTo"`
}

func (f file) convert() (Dataset, error) {
	var ds Dataset
	for i, z := range f.ShippingZones {
		zone, err := z.convert()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: shippingZones[%d]: %v", ErrInvalidData, i, err)
		}
		ds.Zones = append(ds.Zones, zone)
	}
	if f.DefaultZone != nil {
		zone, err := f.DefaultZone.convert()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: defaultZone: %v", ErrInvalidData, err)
		}
		ds.DefaultZone = &zone
	}

	defaults := make(map[string]string)
	for i, t := range f.TaxRates {
		rule, err := t.convert()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: taxRates[%d]: %v", ErrInvalidData, i, err)
		}
		if rule.IsDefault {
			key := strings.ToLower(rule.Country)
			if prior, ok := defaults[key]; ok {
				return Dataset{}, fmt.Errorf("%w: taxRates[%d]: country %s already has default rule %q", ErrInvalidData, i, rule.Country, prior)
			}
			defaults[key] = rule.Name
		}
		ds.TaxRules = append(ds.TaxRules, rule)
	}

	coupons := make([]coupon.Coupon, 0, len(f.Coupons))
	for i, c := range f.Coupons {
		cp, err := c.convert()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: coupons[%d]: %v", ErrInvalidData, i, err)
		}
		coupons = append(coupons, cp)
	}
	table, err := coupon.NewTable(coupons)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	ds.Coupons = table

	seen := make(map[string]struct{}, len(f.PickupPoints))
	for i, p := range f.PickupPoints {
		if _, ok := seen[p.ID]; ok {
			return Dataset{}, fmt.Errorf("%w: pickupPoints[%d]: duplicate id %q", ErrInvalidData, i, p.ID)
		}
		seen[p.ID] = struct{}{}
		ds.PickupPoints = append(ds.PickupPoints, p)
	}
	return ds, nil
}

func (z zoneRecord) convert() (pricing.ShippingZone, error) {
	zone := pricing.ShippingZone{
		Name:          strings.TrimSpace(z.Name),
		Country:       strings.TrimSpace(z.Country),
		State:         strings.TrimSpace(z.State),
		States:        z.States,
		LGAs:          z.LGAs,
		Countries:     z.Countries,
		EstimatedDays: strings.TrimSpace(z.EstimatedDays),
	}
	if s := z.AppliesTo; s != nil {
		if zone.Country == "" {
			zone.Country = strings.TrimSpace(s.Country)
		}
		if zone.State == "" {
			zone.State = strings.TrimSpace(s.State)
		}
		if len(zone.States) == 0 {
			zone.States = s.States
		}
		if len(zone.LGAs) == 0 {
			zone.LGAs = s.LGAs
		}
	}
	if zone.State != "" && len(zone.States) > 0 {
		return pricing.ShippingZone{}, errors.New("state and states are mutually exclusive")
	}
	if len(zone.LGAs) > 0 && zone.State == "" {
		return pricing.ShippingZone{}, errors.New("lgas require a single state")
	}
	if z.Rate.IsNegative() {
		return pricing.ShippingZone{}, errors.New("rate must not be negative")
	}
	zone.Rate = pricing.FromMajorDecimal(z.Rate)
	if z.FreeShippingThreshold != nil {
		if z.FreeShippingThreshold.IsNegative() {
			return pricing.ShippingZone{}, errors.New("freeShippingThreshold must not be negative")
		}
		zone.FreeShippingThreshold = pricing.FromMajorDecimal(*z.FreeShippingThreshold)
	}
	return zone, nil
}

func (t taxRecord) convert() (pricing.TaxRule, error) {
	rule := pricing.TaxRule{
		Name:      strings.TrimSpace(t.Name),
		Country:   strings.TrimSpace(t.Country),
		State:     strings.TrimSpace(t.State),
		IsDefault: t.Default,
	}
	if s := t.AppliesTo; s != nil {
		if rule.Country == "" {
			rule.Country = strings.TrimSpace(s.Country)
		}
		if rule.State == "" {
			rule.State = strings.TrimSpace(s.State)
		}
	}
	if rule.Country == "" {
		return pricing.TaxRule{}, errors.New("country is required")
	}
	if rule.IsDefault && rule.State != "" {
		return pricing.TaxRule{}, errors.New("default rule must not name a state")
	}
	rate := t.Rate
	if t.Type == "percentage" {
		rate = rate.Div(decimal.NewFromInt(100))
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return pricing.TaxRule{}, fmt.Errorf("rate %s outside [0, 1]", rate)
	}
	rule.Rate = rate
	return rule, nil
}

func (c couponRecord) convert() (coupon.Coupon, error) {
	kind, err := coupon.ParseKind(c.Type)
	if err != nil {
		return coupon.Coupon{}, err
	}
	cp := coupon.Coupon{
		Code:        c.Code,
		Kind:        kind,
		Description: strings.TrimSpace(c.Description),
		ValidFrom:   c.ValidFrom,
		ValidTo:     c.ValidTo,
	}
	if c.Value.IsNegative() {
		return coupon.Coupon{}, errors.New("value must not be negative")
	}
	switch kind {
	case coupon.KindPercentage:
		if c.Value.GreaterThan(decimal.NewFromInt(100)) {
			return coupon.Coupon{}, errors.New("percentage must not exceed 100")
		}
		cp.Value = c.Value
	case coupon.KindFixed:
		cp.Value = decimal.NewFromInt(pricing.FromMajorDecimal(c.Value))
	}
	if c.MinSpend != nil {
		cp.MinSpend = pricing.FromMajorDecimal(*c.MinSpend)
	}
	if cp.ValidFrom != nil && cp.ValidTo != nil && cp.ValidTo.Before(*cp.ValidFrom) {
		return coupon.Coupon{}, errors.New("validTo precedes validFrom")
	}
	return cp, nil
}
