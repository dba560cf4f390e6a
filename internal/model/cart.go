package model

import (
	"time"

	"github.com/google/uuid"
)

// Cart represents a shopping cart owned by a user or a guest session.
// Totals are denormalized but always recomputed from the item set at
// write time; they are never incremented in place.
type Cart struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Owner             Owner      `json:"owner"`
	Subtotal          int64      `json:"subtotal" db:"subtotal"`
	Discount          int64      `json:"discount" db:"discount"`
	Total             int64      `json:"total" db:"total"`
	LastActivityAt    time.Time  `json:"lastActivityAt" db:"last_activity_at"`
	ExpiresAt         time.Time  `json:"expiresAt" db:"expires_at"`
	ExpiredNotifiedAt *time.Time `json:"expiredNotifiedAt,omitempty" db:"expired_notified_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
}

// IsExpired reports whether the cart's lifetime has elapsed at the
// given instant.
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CartItem is a single product line in a cart. Price is captured at the
// moment the item is added, so later catalog price changes do not move
// the cart total until the line is re-edited.
type CartItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	CartID    uuid.UUID `json:"-" db:"cart_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     int64     `json:"price" db:"price"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

// CartTotals is the denormalized price summary of a cart.
type CartTotals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// ComputeTotals derives cart totals from the authoritative item set.
// The discount is clamped so the total never goes negative.
func ComputeTotals(items []CartItem, discount int64) CartTotals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}
	if discount > subtotal {
		discount = subtotal
	}
	return CartTotals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}
}

// CartDetails is the response payload for cart reads and mutations.
type CartDetails struct {
	Cart    *Cart      `json:"cart,omitempty"`
	Items   []CartItem `json:"items"`
	Expired bool       `json:"expired"`
}

// CartItemRequest is the request payload for adding or editing a line.
type CartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
