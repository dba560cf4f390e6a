package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the payment/fulfillment state of an order.
type OrderStatus string

const (
	// OrderStatusPaying means the order is created and a payment
	// authorization is outstanding at the gateway.
	OrderStatusPaying OrderStatus = "paying"
	// OrderStatusPaid means the gateway confirmed the payment.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCanceled means the gateway rejected the payment.
	// Terminal: no transition out of this state.
	OrderStatusCanceled OrderStatus = "canceled"
	// OrderStatusSent means the paid order was handed to fulfillment.
	OrderStatusSent OrderStatus = "sent"
)

// CanTransitionTo reports whether moving from s to target is a legal
// state-machine step: paying -> {paid, canceled}, paid -> sent.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPaying:
		return target == OrderStatusPaid || target == OrderStatusCanceled
	case OrderStatusPaid:
		return target == OrderStatusSent
	default:
		return false
	}
}

// Order is a checkout attempt against the payment gateway. RefID is the
// gateway's authorization token; it correlates the asynchronous callback
// and doubles as the idempotency key for repeated checkout calls.
type Order struct {
	ID                   uuid.UUID   `json:"id" db:"id"`
	UserID               string      `json:"userId" db:"user_id"`
	CartID               uuid.UUID   `json:"cartId" db:"cart_id"`
	AddressID            string      `json:"addressId" db:"address_id"`
	ShippingID           string      `json:"shippingId" db:"shipping_id"`
	TotalWithDiscount    int64       `json:"totalWithDiscount" db:"total_with_discount"`
	TotalWithoutDiscount int64       `json:"totalWithoutDiscount" db:"total_without_discount"`
	ShippingPrice        int64       `json:"shippingPrice" db:"shipping_price"`
	FinalPrice           int64       `json:"finalPrice" db:"final_price"`
	Status               OrderStatus `json:"status" db:"status"`
	RefID                string      `json:"refId" db:"ref_id"`
	PaymentAttempts      int         `json:"paymentAttempts" db:"payment_attempts"`
	CreatedAt            time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem is an immutable snapshot of a cart line at order time. It
// preserves historical pricing independent of later product or cart
// mutation.
type OrderItem struct {
	ID                   uuid.UUID `json:"-" db:"id"`
	OrderID              uuid.UUID `json:"-" db:"order_id"`
	ProductID            string    `json:"productId" db:"product_id"`
	Quantity             int       `json:"quantity" db:"quantity"`
	PriceWithDiscount    int64     `json:"priceWithDiscount" db:"price_with_discount"`
	PriceWithoutDiscount int64     `json:"priceWithoutDiscount" db:"price_without_discount"`
}

// CheckoutRequest is the request payload for POST /api/checkout.
type CheckoutRequest struct {
	CartID     uuid.UUID `json:"cartId"`
	AddressID  string    `json:"addressId"`
	ShippingID string    `json:"shippingId"`
}

// CheckoutResult carries the gateway authorization back to the client
// so the browser can be redirected to the payment page.
type CheckoutResult struct {
	OrderID    uuid.UUID `json:"orderId"`
	RefID      string    `json:"refId"`
	PaymentURL string    `json:"paymentUrl"`
}

// CallbackResult is the outcome of a gateway callback resolution.
type CallbackResult struct {
	OrderID uuid.UUID   `json:"orderId"`
	Status  OrderStatus `json:"status"`
	RefCode string      `json:"refCode,omitempty"`
}

// OrderResponse is the response payload for order reads.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}
