package coupon

import (
	"fmt"
	"time"
)

// Status describes the result of evaluating a code.
type Status string

const (
	StatusNone       Status = "none"
	StatusApplied    Status = "applied"
	StatusInvalid    Status = "invalid"
	StatusIneligible Status = "ineligible"
)

// Outcome is the evaluator result. Invalid and ineligible codes grant nothing and are reported
// to the caller instead of failing the computation.
type Outcome struct {
	Code         string
	Status       Status
	Coupon       *Coupon
	Discount     int64
	FreeShipping bool
	Reason       error
}

// Applied reports whether the coupon took effect.
func (o Outcome) Applied() bool { return o.Status == StatusApplied }

// Table is an immutable set of coupons keyed by normalised code.
type Table struct {
	byCode map[string]Coupon
	codes  []string
}

// NewTable indexes coupons by code. Codes must be unique ignoring case and whitespace.
func NewTable(coupons []Coupon) (*Table, error) {
	t := &Table{byCode: make(map[string]Coupon, len(coupons)), codes: make([]string, 0, len(coupons))}
	for _, c := range coupons {
		code := NormalizeCode(c.Code)
		if code == "" {
			return nil, fmt.Errorf("coupon code is required")
		}
		if _, exists := t.byCode[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		kind, err := ParseKind(string(c.Kind))
		if err != nil {
			return nil, fmt.Errorf("coupon %s: %w", code, err)
		}
		c.Code = code
		c.Kind = kind
		t.byCode[code] = c
		t.codes = append(t.codes, code)
	}
	return t, nil
}

// Lookup finds a coupon by code, ignoring case and surrounding whitespace.
func (t *Table) Lookup(code string) (Coupon, bool) {
	if t == nil {
		return Coupon{}, false
	}
	c, ok := t.byCode[NormalizeCode(code)]
	return c, ok
}

// Codes lists the known codes in declaration order.
func (t *Table) Codes() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len returns the number of coupons in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Evaluate applies the code to the subtotal. An empty code yields StatusNone.
func (t *Table) Evaluate(now time.Time, subtotal int64, code string) Outcome {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Outcome{Status: StatusNone}
	}
	c, ok := t.Lookup(normalized)
	if !ok {
		return Outcome{Code: normalized, Status: StatusInvalid}
	}
	if err := c.Validate(now, subtotal); err != nil {
		return Outcome{Code: normalized, Status: StatusIneligible, Coupon: &c, Reason: err}
	}
	out := Outcome{Code: normalized, Status: StatusApplied, Coupon: &c}
	if c.Kind == KindFreeShipping {
		out.FreeShipping = true
		return out
	}
	out.Discount = Compute(subtotal, c)
	return out
}
