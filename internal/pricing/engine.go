package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
)

// ErrInvalidInput is returned when the caller breaks the engine contract.
var ErrInvalidInput = errors.New("invalid pricing input")

// Line describes a cart line used for pricing calculation.
type Line struct {
	ID       string
	Price    Money
	Quantity int
}

// ShippingMethod selects how the order reaches the shopper.
type ShippingMethod string

const (
	MethodStandard ShippingMethod = "standard"
	MethodPickup   ShippingMethod = "pickup"
)

// ParseShippingMethod validates a method name. Empty means standard delivery.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	switch ShippingMethod(strings.ToLower(strings.TrimSpace(value))) {
	case "", MethodStandard:
		return MethodStandard, nil
	case MethodPickup:
		return MethodPickup, nil
	default:
		return "", fmt.Errorf("%w: unknown shipping method %q", ErrInvalidInput, value)
	}
}

// ShippingStatus distinguishes a resolved shipping charge from one that cannot be known yet.
type ShippingStatus string

const (
	// ShippingResolved charges the matched zone rate.
	ShippingResolved ShippingStatus = "resolved"
	// ShippingFree waives shipping; see FreeShippingReason.
	ShippingFree ShippingStatus = "free"
	// ShippingDefault charges the configured default rate because no zone matched.
	ShippingDefault ShippingStatus = "default"
	// ShippingPending means shipping is not determinable and is excluded from the total.
	ShippingPending ShippingStatus = "pending"
)

// FreeShippingReason explains a waived shipping charge.
type FreeShippingReason string

const (
	FreeShippingNone      FreeShippingReason = ""
	FreeShippingCoupon    FreeShippingReason = "coupon"
	FreeShippingPickup    FreeShippingReason = "pickup"
	FreeShippingThreshold FreeShippingReason = "threshold"
)

// Input is the snapshot priced by the engine.
type Input struct {
	Lines      []Line
	Location   Location
	CouponCode string
	Method     ShippingMethod
}

// Result aggregates computed pricing components.
type Result struct {
	Subtotal Money
	Discount Money
	Shipping Money
	Tax      Money
	Total    Money

	ItemCount     int
	RejectedItems []string

	Zone               *ShippingZone
	ZoneMatch          MatchLevel
	ShippingStatus     ShippingStatus
	FreeShippingReason FreeShippingReason
	PickupUnavailable  bool

	TaxRule *TaxRule
	TaxRate decimal.Decimal

	Coupon coupon.Outcome
}

// ShippingKnown reports whether Shipping is an actual charge rather than a placeholder.
func (r Result) ShippingKnown() bool {
	return r.ShippingStatus != ShippingPending
}

// Config holds the read-only reference data used by the engine.
type Config struct {
	Zones        []ShippingZone
	DefaultZone  *ShippingZone
	TaxRules     []TaxRule
	Coupons      *coupon.Table
	PickupStates []string
	Tax          TaxPolicy
	Now          func() time.Time
	Logger       *zerolog.Logger
}

// Engine computes totals for cart snapshots. It is safe for concurrent use because it never
// mutates its reference data.
type Engine struct {
	zones        []ShippingZone
	defaultZone  *ShippingZone
	taxRules     []TaxRule
	coupons      *coupon.Table
	pickupStates []string
	tax          TaxPolicy
	now          func() time.Time
	logger       zerolog.Logger
}

// NewEngine copies the reference data so later changes by the caller do not leak in.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		zones:        append([]ShippingZone(nil), cfg.Zones...),
		taxRules:     append([]TaxRule(nil), cfg.TaxRules...),
		coupons:      cfg.Coupons,
		pickupStates: append([]string(nil), cfg.PickupStates...),
		tax:          cfg.Tax,
		now:          cfg.Now,
		logger:       zerolog.Nop(),
	}
	if cfg.DefaultZone != nil {
		dz := *cfg.DefaultZone
		e.defaultZone = &dz
	}
	if e.now == nil {
		e.now = time.Now
	}
	if cfg.Logger != nil {
		e.logger = *cfg.Logger
	}
	return e
}

// Zones returns a copy of the configured shipping zones.
func (e *Engine) Zones() []ShippingZone {
	return append([]ShippingZone(nil), e.zones...)
}

// DefaultZone returns the fallback zone charged when nothing matches, if any.
func (e *Engine) DefaultZone() *ShippingZone {
	if e.defaultZone == nil {
		return nil
	}
	dz := *e.defaultZone
	return &dz
}

// PickupAvailable reports whether in-store pickup is offered for the location.
func (e *Engine) PickupAvailable(loc Location) bool {
	state := loc.matchKey().State
	return state != "" && containsName(e.pickupStates, state)
}

// Quote runs the pricing steps in their fixed order: subtotal, discount, shipping, tax, total.
func (e *Engine) Quote(in Input) (Result, error) {
	method, err := ParseShippingMethod(string(in.Method))
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.Subtotal, res.ItemCount, res.RejectedItems = e.subtotal(in.Lines)

	res.Coupon = e.coupons.Evaluate(e.now(), res.Subtotal, in.CouponCode)
	res.Discount = res.Coupon.Discount

	res.Zone, res.ZoneMatch = MatchZone(in.Location, e.zones)
	e.applyShipping(&res, in.Location, method)

	taxable := res.Subtotal - res.Discount
	if taxable < 0 {
		taxable = 0
	}
	res.TaxRule = ResolveTaxRule(in.Location, e.taxRules)
	res.TaxRate = e.tax.AppliedRate(res.TaxRule)
	res.Tax = mulRate(taxable, res.TaxRate)

	res.Total = res.Subtotal - res.Discount + res.Shipping + res.Tax
	return res, nil
}

func (e *Engine) applyShipping(res *Result, loc Location, method ShippingMethod) {
	if method == MethodPickup && !e.PickupAvailable(loc) {
		res.PickupUnavailable = true
		method = MethodStandard
	}
	switch {
	case res.Coupon.FreeShipping:
		res.ShippingStatus, res.FreeShippingReason = ShippingFree, FreeShippingCoupon
	case method == MethodPickup && res.Zone == nil && e.defaultZone == nil:
		// Pickup is only priced once the location resolves to a zone.
		res.ShippingStatus = ShippingPending
	case method == MethodPickup:
		res.ShippingStatus, res.FreeShippingReason = ShippingFree, FreeShippingPickup
	case res.Zone != nil && res.Zone.QualifiesForFreeShipping(res.Subtotal):
		res.ShippingStatus, res.FreeShippingReason = ShippingFree, FreeShippingThreshold
	case res.Zone != nil:
		res.ShippingStatus = ShippingResolved
		res.Shipping = res.Zone.Rate
	case e.defaultZone != nil && strings.TrimSpace(loc.Country) != "":
		res.ShippingStatus = ShippingDefault
		res.Shipping = e.defaultZone.Rate
	default:
		res.ShippingStatus = ShippingPending
	}
}

// subtotal sums valid lines. Lines outside the LineTotal bounds, or lines that would push the
// subtotal past MaxSubtotal, contribute nothing and are reported back as rejected.
func (e *Engine) subtotal(lines []Line) (Money, int, []string) {
	var (
		subtotal Money
		count    int
		rejected []string
	)
	for _, ln := range lines {
		amount, ok := LineTotal(ln.Price, ln.Quantity)
		if !ok || amount > MaxSubtotal-subtotal {
			rejected = append(rejected, ln.ID)
			e.logger.Warn().
				Str("item_id", ln.ID).
				Int64("price", ln.Price).
				Int("quantity", ln.Quantity).
				Msg("pricing_line_rejected")
			continue
		}
		subtotal += amount
		count += ln.Quantity
	}
	return subtotal, count, rejected
}

// Subtotal sums price × quantity over valid lines.
func Subtotal(lines []Line) Money {
	total, _, _ := (&Engine{logger: zerolog.Nop()}).subtotal(lines)
	return total
}
