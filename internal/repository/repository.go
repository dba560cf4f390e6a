package repository

import (
	"context"
	"time"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalogue reads.
type ProductRepository interface {
	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// AddressRepository defines the interface for delivery address reads.
type AddressRepository interface {
	// GetByID retrieves a single address by its ID.
	GetByID(ctx context.Context, id string) (*model.Address, error)
}

// CartRepository defines the interface for cart data access operations.
//
// Mutating methods that take a pgx.Tx participate in a caller-managed
// transaction; the cart service groups an item change, the activity
// touch, and the total recompute into one transaction so concurrent
// mutations cannot interleave half-applied state.
type CartRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetByOwner retrieves the cart belonging to a user or guest session.
	GetByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error)

	// GetByID retrieves a cart by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)

	// GetForUpdate retrieves the owner's cart within the transaction,
	// row-locked so expiry re-validation and the subsequent mutation
	// see the same state.
	GetForUpdate(ctx context.Context, tx pgx.Tx, owner model.Owner) (*model.Cart, error)

	// Create inserts a new cart.
	Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) error

	// GetItems retrieves all items of a cart.
	GetItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error)

	// GetItemsTx retrieves all items of a cart within the transaction.
	GetItemsTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error)

	// AddOrIncrementItem inserts a product line or, if the product is
	// already in the cart, adds the quantity to the existing line.
	AddOrIncrementItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error

	// SetItemQuantity sets the quantity of an existing line and
	// re-captures the unit price.
	SetItemQuantity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string, quantity int, price int64) error

	// DeleteItem removes a single product line.
	DeleteItem(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string) error

	// DeleteItems removes every line of a cart.
	DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error

	// TouchActivity resets the activity clock: last_activity_at = now,
	// expires_at = now + window, expired_notified_at cleared.
	TouchActivity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now, expiresAt time.Time) error

	// UpdateTotals writes recomputed totals.
	UpdateTotals(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, totals model.CartTotals) error

	// MarkExpiredNotified records the first observation of an expired
	// cart. Returns false if another observer already recorded it.
	MarkExpiredNotified(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now time.Time) (bool, error)

	// Delete removes a cart and its items.
	Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts order item snapshots within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByRefID retrieves an order by its gateway authorization token.
	GetByRefID(ctx context.Context, refID string) (*model.Order, error)

	// GetItems retrieves the item snapshots of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// FindPayingByUserAndCart retrieves the outstanding paying order for
	// a (user, cart) pair, if any.
	FindPayingByUserAndCart(ctx context.Context, userID string, cartID uuid.UUID) (*model.Order, error)

	// UpdateStatus transitions an order conditioned on its current
	// status. Returns false if the order was not in the expected state.
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, now time.Time) (bool, error)

	// RefreshAuthorization replaces the gateway token of a stale paying
	// order and bumps the attempt counter.
	RefreshAuthorization(ctx context.Context, orderID uuid.UUID, refID string, now time.Time) error
}

// InventoryRepository defines the interface for the stock ledger: the
// products.stock counter plus the append-only inventory_records table.
type InventoryRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// IncrementStock unconditionally adds quantity to a product's stock.
	// Returns model.ErrProductNotFound for an unknown product.
	IncrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error

	// DecrementStock subtracts quantity conditioned on sufficient stock
	// (stock = stock - $2 WHERE stock >= $2). Returns
	// model.ErrInsufficientStock when the condition fails.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error

	// LockStocks row-locks the given products and returns their current
	// stock levels, so a batch decrement can validate every line before
	// mutating any.
	LockStocks(ctx context.Context, tx pgx.Tx, productIDs []string) (map[string]int, error)

	// AppendRecord writes one immutable ledger entry.
	AppendRecord(ctx context.Context, tx pgx.Tx, record *model.InventoryRecord) error

	// ListByProduct retrieves ledger entries for a product, newest first.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error)

	// ListRemovalsByOrder retrieves the "remove" entries attributed to
	// an order, for compensation on payment rejection.
	ListRemovalsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.InventoryRecord, error)
}
