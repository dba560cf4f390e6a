package service

import (
	"context"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartService defines cart store and lifecycle operations. Reads never
// advance the expiry countdown; only genuine mutations do.
type CartService interface {
	// GetCart retrieves the caller's cart. The first read of an expired
	// cart clears its items and flags the response as expired.
	GetCart(ctx context.Context, owner model.Owner) (*model.CartDetails, error)

	// AddItem adds a product line, creating the cart on first add.
	// Duplicate product lines are combined by summing quantity.
	AddItem(ctx context.Context, owner model.Owner, req *model.CartItemRequest) (*model.CartDetails, error)

	// UpdateItem sets a line's quantity; zero removes the line.
	UpdateItem(ctx context.Context, owner model.Owner, req *model.CartItemRequest) (*model.CartDetails, error)

	// RemoveItem removes a product line.
	RemoveItem(ctx context.Context, owner model.Owner, productID string) (*model.CartDetails, error)

	// MergeCarts folds a guest cart into the user's cart after login.
	// Safe to call when no guest cart exists.
	MergeCarts(ctx context.Context, userID, sessionID string) (*model.CartDetails, error)
}

// StockService defines the stock ledger: every mutation of a product's
// on-hand quantity paired with an immutable inventory record.
type StockService interface {
	// AddStock increments product stock. Never fails due to the current
	// stock level.
	AddStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error

	// RemoveStock decrements product stock, failing with
	// model.ErrInsufficientStock when the balance does not cover the
	// quantity. Callers must not retry automatically.
	RemoveStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error

	// RemoveStockForOrder decrements stock for every line of an order
	// within the caller's transaction. All lines are validated against
	// locked stock before any is mutated, so a failing line leaves
	// stock untouched.
	RemoveStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.StockLine) error

	// RestoreStockForOrder replays an order's removals as additions
	// within the caller's transaction, compensating a rejected payment.
	RestoreStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error

	// History retrieves a product's ledger entries, newest first.
	History(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error)
}

// OrderService defines the checkout orchestration: cart snapshot,
// payment authorization, order creation, and stock decrement as one
// logical unit of work, plus callback reconciliation.
type OrderService interface {
	// Checkout creates an order in paying status and returns the
	// gateway authorization. A repeated call for the same cart while a
	// recent attempt is outstanding returns the existing authorization.
	Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResult, error)

	// HandleCallback resolves the asynchronous gateway callback for an
	// authorization token: Paid (cart deleted) or Canceled (stock
	// restored, cart kept).
	HandleCallback(ctx context.Context, authority string) (*model.CallbackResult, error)

	// MarkSent transitions a paid order to fulfillment.
	MarkSent(ctx context.Context, orderID uuid.UUID) error

	// GetByID retrieves an order with its item snapshots. A non-empty
	// userID enforces ownership.
	GetByID(ctx context.Context, orderID uuid.UUID, userID string) (*model.OrderResponse, error)
}
