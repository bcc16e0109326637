package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
	"github.com/noah-isme/egotech-storefront/internal/refdata"
)

const (
	pendingShippingNote   = "Calculated at next step"
	pickupUnavailableNote = "Store pickup is not available for this location"
)

// ItemInput is a cart line supplied by the storefront.
type ItemInput struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Request is a stateless quote request.
type Request struct {
	Items          []ItemInput      `json:"items"`
	Location       pricing.Location `json:"location"`
	CouponCode     string           `json:"couponCode"`
	ShippingMethod string           `json:"shippingMethod"`
}

// Input converts the request into engine input.
func (r Request) Input() pricing.Input {
	lines := make([]pricing.Line, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, pricing.Line{ID: it.ID, Price: it.Price, Quantity: it.Quantity})
	}
	return pricing.Input{
		Lines:      lines,
		Location:   r.Location,
		CouponCode: r.CouponCode,
		Method:     pricing.ShippingMethod(r.ShippingMethod),
	}
}

// ZoneView describes the matched shipping zone.
type ZoneView struct {
	Name          string `json:"name"`
	EstimatedDays string `json:"estimatedDays,omitempty"`
	Match         string `json:"match"`
}

// CouponView reports the coupon outcome to the shopper.
type CouponView struct {
	Code        string `json:"code,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

// TaxView reports the matched tax rule and the label shown next to the tax line.
type TaxView struct {
	Rule    string `json:"rule,omitempty"`
	Rate    string `json:"rate"`
	Applied bool   `json:"applied"`
	Label   string `json:"label"`
}

// Quote is the priced view of a cart. Money is in minor units.
type Quote struct {
	Currency           string                     `json:"currency"`
	Subtotal           int64                      `json:"subtotal"`
	Discount           int64                      `json:"discount"`
	Shipping           int64                      `json:"shipping"`
	Tax                int64                      `json:"tax"`
	Total              int64                      `json:"total"`
	ItemCount          int                        `json:"itemCount"`
	ShippingStatus     pricing.ShippingStatus     `json:"shippingStatus"`
	FreeShippingReason pricing.FreeShippingReason `json:"freeShippingReason,omitempty"`
	ShippingNote       string                     `json:"shippingNote,omitempty"`
	Zone               *ZoneView                  `json:"zone,omitempty"`
	PickupAvailable    bool                       `json:"pickupAvailable"`
	PickupUnavailable  bool                       `json:"pickupUnavailable,omitempty"`
	Coupon             CouponView                 `json:"coupon"`
	TaxInfo            TaxView                    `json:"taxInfo"`
	RejectedItems      []string                   `json:"rejectedItems,omitempty"`

	Result pricing.Result `json:"-"`
}

// Options tunes the quote service.
type Options struct {
	Currency string
	TaxLabel string
	ApplyTax bool
	Now      func() time.Time
	Logger   *zerolog.Logger
}

// Service prices carts against a reference dataset.
type Service struct {
	Engine   *pricing.Engine
	Data     refdata.Dataset
	Currency string
	TaxLabel string
	ApplyTax bool
}

// NewService builds the pricing engine over the dataset.
func NewService(ds refdata.Dataset, opts Options) *Service {
	cfg := ds.EngineConfig(pricing.TaxPolicy{Apply: opts.ApplyTax})
	cfg.Now = opts.Now
	cfg.Logger = opts.Logger
	currency := strings.TrimSpace(opts.Currency)
	if currency == "" {
		currency = "NGN"
	}
	return &Service{
		Engine:   pricing.NewEngine(cfg),
		Data:     ds,
		Currency: currency,
		TaxLabel: opts.TaxLabel,
		ApplyTax: opts.ApplyTax,
	}
}

// Quote prices the input and records quote metrics.
func (s *Service) Quote(ctx context.Context, in pricing.Input) (Quote, error) {
	if s == nil || s.Engine == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	_, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Quote")
	defer span.End()

	res, err := s.Engine.Quote(in)
	if err != nil {
		span.RecordError(err)
		return Quote{}, err
	}
	span.SetAttributes(
		attribute.String("pricing.shipping_status", string(res.ShippingStatus)),
		attribute.String("pricing.coupon_status", string(res.Coupon.Status)),
		attribute.Int64("pricing.total", res.Total),
		attribute.Int("pricing.rejected_lines", len(res.RejectedItems)),
	)
	if obs.PricingQuotesTotal != nil {
		obs.PricingQuotesTotal.WithLabelValues(string(res.ShippingStatus)).Inc()
	}
	if obs.CouponEvaluationsTotal != nil && res.Coupon.Status != coupon.StatusNone {
		obs.CouponEvaluationsTotal.WithLabelValues(string(res.Coupon.Status)).Inc()
	}
	if obs.PricingRejectedLinesTotal != nil && len(res.RejectedItems) > 0 {
		obs.PricingRejectedLinesTotal.Add(float64(len(res.RejectedItems)))
	}
	return s.view(in.Location, res), nil
}

// QuoteRequest prices a stateless request.
func (s *Service) QuoteRequest(ctx context.Context, req Request) (Quote, error) {
	return s.Quote(ctx, req.Input())
}

func (s *Service) view(loc pricing.Location, res pricing.Result) Quote {
	q := Quote{
		Currency:           s.Currency,
		Subtotal:           res.Subtotal,
		Discount:           res.Discount,
		Shipping:           res.Shipping,
		Tax:                res.Tax,
		Total:              res.Total,
		ItemCount:          res.ItemCount,
		ShippingStatus:     res.ShippingStatus,
		FreeShippingReason: res.FreeShippingReason,
		PickupAvailable:    s.Engine.PickupAvailable(loc),
		PickupUnavailable:  res.PickupUnavailable,
		Coupon:             NewCouponView(res.Coupon),
		TaxInfo:            s.taxView(res),
		RejectedItems:      res.RejectedItems,
		Result:             res,
	}
	switch {
	case res.PickupUnavailable:
		q.ShippingNote = pickupUnavailableNote
	case res.ShippingStatus == pricing.ShippingPending:
		q.ShippingNote = pendingShippingNote
	}
	if res.Zone != nil {
		q.Zone = &ZoneView{Name: res.Zone.Name, EstimatedDays: res.Zone.EstimatedDays, Match: string(res.ZoneMatch)}
	} else if res.ShippingStatus == pricing.ShippingDefault {
		if dz := s.Engine.DefaultZone(); dz != nil {
			q.Zone = &ZoneView{Name: dz.Name, EstimatedDays: dz.EstimatedDays, Match: "default"}
		}
	}
	return q
}

func (s *Service) taxView(res pricing.Result) TaxView {
	tv := TaxView{Rate: res.TaxRate.String(), Applied: s.ApplyTax && res.TaxRule != nil}
	if res.TaxRule != nil {
		tv.Rule = res.TaxRule.Name
	}
	switch {
	case s.TaxLabel != "" && !tv.Applied:
		tv.Label = s.TaxLabel
	case tv.Applied:
		tv.Label = res.TaxRate.Shift(2).String() + "%"
	default:
		tv.Label = "0%"
	}
	return tv
}

// NewCouponView renders a coupon outcome with a shopper facing message.
func NewCouponView(o coupon.Outcome) CouponView {
	cv := CouponView{Code: o.Code, Status: string(o.Status)}
	if o.Coupon != nil {
		cv.Description = o.Coupon.Description
	}
	switch o.Status {
	case coupon.StatusApplied:
		cv.Message = "Coupon applied!"
		if cv.Description != "" {
			cv.Message = fmt.Sprintf("Coupon applied! %s", cv.Description)
		}
	case coupon.StatusInvalid:
		cv.Message = "Invalid coupon code"
	case coupon.StatusIneligible:
		cv.Message = "Coupon cannot be applied"
		if o.Reason != nil {
			cv.Message = fmt.Sprintf("Coupon cannot be applied: %s", o.Reason.Error())
		}
	}
	return cv
}
