// Package cart implements the shopping cart state container: the
// authoritative line list for a browsing session, its snapshot
// persistence, and the derived totals shown at checkout.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// FreeShippingThreshold is the subtotal at or above which shipping is waived.
	FreeShippingThreshold = 50.0

	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee = 5.90

	// DefaultOpenDelay is how long after an add the cart panel opens.
	DefaultOpenDelay = 100 * time.Millisecond
)

// ID is a product identifier. Catalogs send ids as JSON strings or
// numbers; both decode to the canonical string form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Line is one product's presence in the cart. At most one Line exists per
// product id, and Quantity is always at least 1.
type Line struct {
	ID       ID      `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Product is the add-to-cart input supplied by the catalog. ID is
// required; Quantity defaults to 1 when not positive.
type Product struct {
	ID       ID      `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Totals holds the checkout figures derived from the current lines. It is
// recomputed on every read and never stored.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	Shipping  float64 `json:"shipping"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// Snapshot persists the full cart as a single entry in a durable store.
type Snapshot interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

// ErrInvalidProduct indicates an add request with no product id.
var ErrInvalidProduct = errors.New("invalid product: missing id")

// ComputeTotals derives checkout totals from the given lines.
func ComputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.Price * float64(l.Quantity)
		t.ItemCount += l.Quantity
	}
	if t.Subtotal < FreeShippingThreshold {
		t.Shipping = ShippingFee
	}
	t.Total = t.Subtotal + t.Shipping
	return t
}
