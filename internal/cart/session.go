package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// Session is the shopper state kept between page loads: the cart, the last resolved location,
// the applied coupon code and the chosen shipping method.
type Session struct {
	ID             string                 `json:"id"`
	Cart           Cart                   `json:"cart"`
	Location       pricing.Location       `json:"location"`
	CouponCode     string                 `json:"couponCode,omitempty"`
	ShippingMethod pricing.ShippingMethod `json:"shippingMethod,omitempty"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// NewSession creates an empty session with a random identifier.
func NewSession(now time.Time) Session {
	return Session{
		ID:             uuid.NewString(),
		ShippingMethod: pricing.MethodStandard,
		UpdatedAt:      now.UTC(),
	}
}

// Input returns the pricing snapshot for the session.
func (s Session) Input() pricing.Input {
	return pricing.Input{
		Lines:      s.Cart.Lines(),
		Location:   s.Location,
		CouponCode: s.CouponCode,
		Method:     s.ShippingMethod,
	}
}
