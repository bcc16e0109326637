package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart session could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrItemNotFound is returned when an operation names an item that is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrMinQuantity is returned when a change would take a line below one unit.
	ErrMinQuantity = errors.New("quantity cannot go below 1")
	// ErrMaxQuantity is returned when a change would take a line past pricing.MaxQuantity.
	ErrMaxQuantity = fmt.Errorf("quantity cannot exceed %d: %w", pricing.MaxQuantity, ErrInvalidInput)
)

// Item is a cart line as kept by the storefront.
type Item struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Image    string        `json:"image,omitempty"`
	Price    pricing.Money `json:"price"`
	Quantity int           `json:"quantity"`
}

// Cart is an ordered list of items owned by the caller. Lines keep insertion order.
type Cart struct {
	Items []Item `json:"items"`
}

// Add appends the item or increases the quantity of an existing line with the same ID.
func (c *Cart) Add(item Item) error {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return fmt.Errorf("item id is required: %w", ErrInvalidInput)
	}
	if item.Price < 0 || item.Price > pricing.MaxUnitPrice {
		return fmt.Errorf("price out of range: %w", ErrInvalidInput)
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Quantity < 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if i := c.index(item.ID); i >= 0 {
		if item.Quantity > pricing.MaxQuantity-c.Items[i].Quantity {
			return ErrMaxQuantity
		}
		c.Items[i].Quantity += item.Quantity
		return nil
	}
	if item.Quantity > pricing.MaxQuantity {
		return ErrMaxQuantity
	}
	c.Items = append(c.Items, item)
	return nil
}

// Increment adds one unit to the line.
func (c *Cart) Increment(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity >= pricing.MaxQuantity {
		return ErrMaxQuantity
	}
	c.Items[i].Quantity++
	return nil
}

// Decrement removes one unit from the line. A line at one unit is left untouched; removing it
// is an explicit Remove.
func (c *Cart) Decrement(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity <= 1 {
		return ErrMinQuantity
	}
	c.Items[i].Quantity--
	return nil
}

// SetQuantity overwrites the quantity of a line.
func (c *Cart) SetQuantity(id string, qty int) error {
	if qty < 1 {
		return ErrMinQuantity
	}
	if qty > pricing.MaxQuantity {
		return ErrMaxQuantity
	}
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items[i].Quantity = qty
	return nil
}

// Remove deletes the line.
func (c *Cart) Remove(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Count returns the total number of units, as shown on the cart badge.
func (c Cart) Count() int {
	var total int
	for _, it := range c.Items {
		if it.Quantity > 0 {
			total += it.Quantity
		}
	}
	return total
}

// Lines converts the cart into pricing lines.
func (c Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ID: it.ID, Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func (c Cart) index(id string) int {
	id = strings.TrimSpace(id)
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}
