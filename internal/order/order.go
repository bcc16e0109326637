package order

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/egotech-storefront/internal/checkout"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

var (
	// ErrEmptyCart is returned when an order has no priced lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownPickupLocation is returned when the pickup store does not exist or serves another state.
	ErrUnknownPickupLocation = errors.New("unknown pickup location")
	// ErrSinkFailed is returned when the order could not be stored downstream.
	ErrSinkFailed = errors.New("failed to save order")
)

// Customer holds the checkout form fields.
type Customer struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,min=7,max=20"`
	Country        string `json:"country" validate:"required"`
	State          string `json:"state" validate:"required"`
	LGA            string `json:"lga"`
	Address        string `json:"address" validate:"required_unless=ShippingMethod pickup"`
	City           string `json:"city" validate:"required_unless=ShippingMethod pickup"`
	PostalCode     string `json:"postalCode,omitempty"`
	ShippingMethod string `json:"shippingMethod" validate:"omitempty,oneof=standard pickup"`
	PickupLocation string `json:"pickupLocation,omitempty" validate:"required_if=ShippingMethod pickup"`
	OrderNotes     string `json:"orderNotes,omitempty" validate:"max=1000"`
}

// Location returns the delivery location used for pricing.
func (c Customer) Location() pricing.Location {
	return pricing.Location{Country: c.Country, State: c.State, LGA: c.LGA}
}

func (c *Customer) normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Country = strings.TrimSpace(c.Country)
	c.State = strings.TrimSpace(c.State)
	c.LGA = strings.TrimSpace(c.LGA)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.ShippingMethod = strings.ToLower(strings.TrimSpace(c.ShippingMethod))
	c.PickupLocation = strings.TrimSpace(c.PickupLocation)
	c.OrderNotes = strings.TrimSpace(c.OrderNotes)
}

// LineItem is a priced order line.
type LineItem struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name,omitempty"`
	Price    int64  `json:"price" validate:"gte=0,lte=1000000000000"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=100000"`
}

// Submission is the order payload. Items come from the stored session when SessionID is set.
type Submission struct {
	SessionID  string     `json:"sessionId,omitempty"`
	Customer   Customer   `json:"customer"`
	Items      []LineItem `json:"items" validate:"required_without=SessionID,dive"`
	CouponCode string     `json:"couponCode,omitempty"`
}

// Receipt is returned once the order is stored.
type Receipt struct {
	Reference    string          `json:"reference"`
	Quote        checkout.Quote  `json:"quote"`
	SinkResponse json.RawMessage `json:"sinkResponse,omitempty"`
}

func lineInputs(items []LineItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{ID: it.ID, Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

// record builds the flat field map stored downstream. Money is in minor units.
func record(ref string, now time.Time, c Customer, items []LineItem, q checkout.Quote, coupon string) (map[string]any, error) {
	cartItems, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{
		"orderRef":       ref,
		"orderDate":      now.UTC().Format(time.RFC3339),
		"firstName":      c.FirstName,
		"lastName":       c.LastName,
		"email":          c.Email,
		"phone":          c.Phone,
		"country":        c.Country,
		"state":          c.State,
		"shippingMethod": string(effectiveMethod(c.ShippingMethod, q)),
		"cartItems":      string(cartItems),
		"itemCount":      q.ItemCount,
		"currency":       q.Currency,
		"subtotal":       q.Subtotal,
		"discount":       q.Discount,
		"shipping":       q.Shipping,
		"shippingStatus": string(q.ShippingStatus),
		"tax":            q.Tax,
		"total":          q.Total,
	}
	optional := map[string]string{
		"lga":            c.LGA,
		"address":        c.Address,
		"city":           c.City,
		"postalCode":     c.PostalCode,
		"pickupLocation": c.PickupLocation,
		"orderNotes":     c.OrderNotes,
		"couponCode":     coupon,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	if q.Zone != nil {
		fields["shippingZone"] = q.Zone.Name
	}
	return fields, nil
}

// effectiveMethod reports the method actually priced: pickup requested where unavailable is
// delivered as standard shipping.
func effectiveMethod(requested string, q checkout.Quote) pricing.ShippingMethod {
	m, err := pricing.ParseShippingMethod(requested)
	if err != nil || q.PickupUnavailable {
		return pricing.MethodStandard
	}
	return m
}
