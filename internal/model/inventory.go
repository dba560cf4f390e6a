package model

import (
	"time"

	"github.com/google/uuid"
)

// InventoryAction is the direction of a stock mutation.
type InventoryAction string

const (
	InventoryActionAdd    InventoryAction = "add"
	InventoryActionRemove InventoryAction = "remove"
)

// InventoryActor identifies who caused a stock mutation.
type InventoryActor string

const (
	InventoryActorAdmin InventoryActor = "admin"
	InventoryActorOrder InventoryActor = "order"
)

// InventoryRecord is an immutable audit entry for a single stock
// mutation. Records are append-only; nothing in this codebase updates
// or deletes them. Current stock is the running sum of the ledger.
type InventoryRecord struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ProductID string          `json:"productId" db:"product_id"`
	Action    InventoryAction `json:"action" db:"action"`
	Quantity  int             `json:"quantity" db:"quantity"`
	EditedBy  InventoryActor  `json:"editedBy" db:"edited_by"`
	OrderID   *uuid.UUID      `json:"orderId,omitempty" db:"order_id"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// StockLine pairs a product with a quantity for batch stock operations.
type StockLine struct {
	ProductID string
	Quantity  int
}

// StockAdjustmentRequest is the request payload for the admin stock
// endpoint.
type StockAdjustmentRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Action    InventoryAction `json:"action"`
}
