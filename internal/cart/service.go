package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// SessionStore persists sessions between requests.
type SessionStore interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, sess Session) error
	Delete(ctx context.Context, id string) error
}

// Locker serializes work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service encapsulates session scoped cart operations. With a Locker set, concurrent mutations
// of one session apply in turn instead of overwriting each other.
type Service struct {
	Store   SessionStore
	Coupons *coupon.Table
	Locker  Locker
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create starts an empty session.
func (s *Service) Create(ctx context.Context) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	sess := NewSession(s.now())
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	return s.Store.Load(ctx, id)
}

// Delete drops a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

// AddItem adds a line or merges it into an existing one.
func (s *Service) AddItem(ctx context.Context, id string, item Item) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		return sess.Cart.Add(item)
	})
}

// IncrementItem adds one unit.
func (s *Service) IncrementItem(ctx context.Context, id, itemID string) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		return sess.Cart.Increment(itemID)
	})
}

// DecrementItem removes one unit, never below one.
func (s *Service) DecrementItem(ctx context.Context, id, itemID string) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		return sess.Cart.Decrement(itemID)
	})
}

// UpdateQty sets the quantity of a line.
func (s *Service) UpdateQty(ctx context.Context, id, itemID string, qty int) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		return sess.Cart.SetQuantity(itemID, qty)
	})
}

// RemoveItem removes a line.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		return sess.Cart.Remove(itemID)
	})
}

// ClearItems empties the cart but keeps location and shipping choices.
func (s *Service) ClearItems(ctx context.Context, id string) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		sess.Cart.Clear()
		return nil
	})
}

// SetLocation stores the shopper location.
func (s *Service) SetLocation(ctx context.Context, id string, loc pricing.Location) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		sess.Location = pricing.Location{
			Country: strings.TrimSpace(loc.Country),
			State:   strings.TrimSpace(loc.State),
			LGA:     strings.TrimSpace(loc.LGA),
		}
		return nil
	})
}

// SetShippingMethod records the delivery choice.
func (s *Service) SetShippingMethod(ctx context.Context, id, method string) (Session, error) {
	m, err := pricing.ParseShippingMethod(method)
	if err != nil {
		return Session{}, fmt.Errorf("shipping method %q: %w", method, ErrInvalidInput)
	}
	return s.update(ctx, id, func(sess *Session) error {
		sess.ShippingMethod = m
		return nil
	})
}

// ApplyCoupon evaluates the code against the current subtotal. Unknown codes are not stored;
// known codes are kept even when not yet eligible so they apply once the cart qualifies.
func (s *Service) ApplyCoupon(ctx context.Context, id, code string) (Session, coupon.Outcome, error) {
	var outcome coupon.Outcome
	sess, err := s.update(ctx, id, func(sess *Session) error {
		outcome = s.Coupons.Evaluate(s.now(), pricing.Subtotal(sess.Cart.Lines()), code)
		switch outcome.Status {
		case coupon.StatusApplied, coupon.StatusIneligible:
			sess.CouponCode = outcome.Code
		case coupon.StatusNone:
			sess.CouponCode = ""
		}
		return nil
	})
	if err != nil {
		return Session{}, coupon.Outcome{}, err
	}
	return sess, outcome, nil
}

// RemoveCoupon detaches the coupon.
func (s *Service) RemoveCoupon(ctx context.Context, id string) (Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		sess.CouponCode = ""
		return nil
	})
}

func (s *Service) update(ctx context.Context, id string, mutate func(*Session) error) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	if s.Locker == nil {
		return s.apply(ctx, id, mutate)
	}
	var out Session
	err := s.Locker.WithLock(ctx, "session-lock:"+id, 5*time.Second, func(ctx context.Context) error {
		sess, err := s.apply(ctx, id, mutate)
		out = sess
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

func (s *Service) apply(ctx context.Context, id string, mutate func(*Session) error) (Session, error) {
	sess, err := s.Store.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err := mutate(&sess); err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = s.now().UTC()
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}
