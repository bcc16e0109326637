package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/egotech-storefront/internal/cart"
	"github.com/noah-isme/egotech-storefront/internal/checkout"
	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/events"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// Emitter records order lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service validates, prices and stores orders.
type Service struct {
	Sink      Sink
	Events    Emitter
	Quotes    *checkout.Service
	Sessions  *cart.Service
	Validator *validator.Validate
	Now       func() time.Time
	NewRef    func() string
	Logger    zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newRef() string {
	if s != nil && s.NewRef != nil {
		return s.NewRef()
	}
	return "EGO-" + ulid.Make().String()
}

func (s *Service) validate() *validator.Validate {
	if s.Validator != nil {
		return s.Validator
	}
	return defaultValidator
}

var defaultValidator = validator.New()

// Submit re-prices the order server side and forwards it to the sink. The session, when given,
// supplies the items and coupon and is cleared after a successful save.
func (s *Service) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if s == nil || s.Sink == nil || s.Quotes == nil {
		return Receipt{}, errors.New("order service not configured")
	}
	ctx, span := otel.Tracer("order.Service").Start(ctx, "OrderService.Submit")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("order.result", result))
		if obs.OrderSubmissionsTotal != nil {
			obs.OrderSubmissionsTotal.WithLabelValues(result).Inc()
		}
	}()

	sub.Customer.normalize()
	if err := s.validate().Struct(sub); err != nil {
		result = "invalid"
		return Receipt{}, err
	}

	items := sub.Items
	code := sub.CouponCode
	var sess *cart.Session
	if id := strings.TrimSpace(sub.SessionID); id != "" {
		loaded, err := s.Sessions.Get(ctx, id)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				result = "invalid"
			}
			return Receipt{}, err
		}
		sess = &loaded
		items = itemsFromCart(loaded.Cart)
		if strings.TrimSpace(code) == "" {
			code = loaded.CouponCode
		}
	}
	if len(items) == 0 {
		result = "invalid"
		return Receipt{}, ErrEmptyCart
	}

	method := pricing.MethodStandard
	if sub.Customer.ShippingMethod == string(pricing.MethodPickup) {
		method = pricing.MethodPickup
		if err := s.checkPickup(sub.Customer); err != nil {
			result = "invalid"
			return Receipt{}, err
		}
	}

	quote, err := s.Quotes.Quote(ctx, pricing.Input{
		Lines:      lineInputs(items),
		Location:   sub.Customer.Location(),
		CouponCode: code,
		Method:     method,
	})
	if err != nil {
		return Receipt{}, err
	}
	if len(quote.RejectedItems) > 0 {
		result = "invalid"
		return Receipt{}, fmt.Errorf("%w: rejected items %s", pricing.ErrInvalidInput, strings.Join(quote.RejectedItems, ","))
	}

	appliedCode := ""
	if quote.Result.Coupon.Status == coupon.StatusApplied {
		appliedCode = quote.Result.Coupon.Code
	}
	ref := s.newRef()
	fields, err := record(ref, s.now(), sub.Customer, items, quote, appliedCode)
	if err != nil {
		return Receipt{}, err
	}
	span.SetAttributes(attribute.String("order.reference", ref), attribute.Int64("order.total", quote.Total))

	body, err := s.Sink.Save(ctx, fields)
	if err != nil {
		result = "sink_error"
		span.RecordError(err)
		s.Logger.Error().Err(err).Str("order_ref", ref).Msg("order_save_failed")
		s.emit(ctx, events.TopicOrderFailed, ref, map[string]any{"total": quote.Total, "error": err.Error()})
		return Receipt{}, fmt.Errorf("%w: %v", ErrSinkFailed, err)
	}
	result = "ok"
	s.Logger.Info().Str("order_ref", ref).Int64("total", quote.Total).Int("items", quote.ItemCount).Msg("order_saved")
	s.emit(ctx, events.TopicOrderSaved, ref, map[string]any{
		"total":    quote.Total,
		"items":    quote.ItemCount,
		"coupon":   appliedCode,
		"shipping": quote.Shipping,
	})

	if sess != nil && s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, sess.ID); err != nil {
			s.Logger.Warn().Err(err).Str("session_id", sess.ID).Msg("order_session_clear_failed")
		}
	}
	return Receipt{Reference: ref, Quote: quote, SinkResponse: body}, nil
}

// emit never fails the submission; the sink already holds the order.
func (s *Service) emit(ctx context.Context, topic, ref string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, ref, payload); err != nil {
		s.Logger.Warn().Err(err).Str("order_ref", ref).Str("topic", topic).Msg("order_event_failed")
	}
}

func (s *Service) checkPickup(c Customer) error {
	for _, p := range s.Quotes.Data.PickupPoints {
		if p.ID == c.PickupLocation {
			if !strings.EqualFold(pricing.NormalizeState(p.State), pricing.NormalizeState(c.State)) {
				return fmt.Errorf("%w: %s does not serve %s", ErrUnknownPickupLocation, p.ID, c.State)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPickupLocation, c.PickupLocation)
}

func itemsFromCart(c cart.Cart) []LineItem {
	items := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, LineItem{ID: it.ID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	return items
}
