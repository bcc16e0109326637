package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMinimumSpendUnmet indicates the cart subtotal did not meet the coupon requirement.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
	// ErrCouponInactive is returned when a coupon is used before its active window.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon has already expired.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUnknownKind is returned when reference data names an unsupported coupon kind.
	ErrUnknownKind = errors.New("unknown coupon kind")
	// ErrDuplicateCode is returned when two coupons normalise to the same code.
	ErrDuplicateCode = errors.New("duplicate coupon code")
)

// Kind selects how a coupon reduces the order.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFixed        Kind = "fixed"
	KindFreeShipping Kind = "free-shipping"
)

// ParseKind accepts the canonical kind names and the spellings found in older data files.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "percentage", "percent":
		return KindPercentage, nil
	case "fixed", "amount":
		return KindFixed, nil
	case "free-shipping", "free_shipping", "freeship", "freeshipping":
		return KindFreeShipping, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Coupon captures a code and the discount it grants. Value is a percentage for
// KindPercentage and an amount in minor units for KindFixed.
type Coupon struct {
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	Description string
	MinSpend    int64
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

// Validate ensures the coupon can be applied at the provided instant and subtotal.
func (c Coupon) Validate(now time.Time, subtotal int64) error {
	if c.MinSpend > 0 && subtotal < c.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponInactive
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return ErrCouponExpired
	}
	return nil
}

// Compute determines the discount granted on the subtotal. Fixed discounts are clamped to the
// subtotal so totals never go negative.
func Compute(subtotal int64, c Coupon) int64 {
	if subtotal <= 0 {
		return 0
	}
	var discount int64
	switch c.Kind {
	case KindPercentage:
		if !c.Value.IsPositive() {
			return 0
		}
		discount = decimal.NewFromInt(subtotal).Mul(c.Value).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	case KindFixed:
		discount = c.Value.Round(0).IntPart()
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// NormalizeCode trims and upper-cases a shopper supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
