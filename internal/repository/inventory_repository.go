package repository

import (
	"context"
	"fmt"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// inventoryRepository implements the InventoryRepository interface using
// PostgreSQL. Stock mutations are conditioned updates on the products
// row; every mutation is paired with an append-only inventory_records
// entry by the stock service.
type inventoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *inventoryRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// IncrementStock unconditionally adds quantity to a product's stock.
func (r *inventoryRepository) IncrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	query := `UPDATE products SET stock = stock + $2 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, productID, quantity)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("product_id", productID).
			Int("quantity", quantity).
			Msg("failed to increment stock")
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// DecrementStock subtracts quantity conditioned on sufficient stock.
// The WHERE stock >= $2 guard makes concurrent decrements race-free:
// of two simultaneous calls whose combined quantity exceeds stock,
// exactly one matches the condition and the other fails, and stock can
// never go negative.
func (r *inventoryRepository) DecrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	query := `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	tag, err := tx.Exec(ctx, query, productID, quantity)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("product_id", productID).
			Int("quantity", quantity).
			Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a missing product from an insufficient balance.
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check product existence: %w", err)
		}
		if !exists {
			return model.ErrProductNotFound
		}

		r.logger.Warn().
			Str("product_id", productID).
			Int("quantity", quantity).
			Msg("insufficient stock for decrement")
		return model.ErrInsufficientStock
	}

	return nil
}

// LockStocks row-locks the given products and returns their current
// stock levels. Lock order follows the sorted id order of the query so
// concurrent checkouts cannot deadlock on each other.
func (r *inventoryRepository) LockStocks(ctx context.Context, tx pgx.Tx, productIDs []string) (map[string]int, error) {
	if len(productIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, productIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(productIDs)).Msg("failed to lock product stocks")
		return nil, fmt.Errorf("failed to lock product stocks: %w", err)
	}
	defer rows.Close()

	stocks := make(map[string]int, len(productIDs))
	for rows.Next() {
		var (
			id    string
			stock int
		)
		if err := rows.Scan(&id, &stock); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan stock row")
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks[id] = stock
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating stock rows")
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}

// AppendRecord writes one immutable ledger entry. There is no update or
// delete counterpart.
func (r *inventoryRepository) AppendRecord(ctx context.Context, tx pgx.Tx, record *model.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (id, product_id, action, quantity, edited_by, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		record.ID, record.ProductID, record.Action, record.Quantity,
		record.EditedBy, record.OrderID, record.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("product_id", record.ProductID).
			Str("action", string(record.Action)).
			Msg("failed to append inventory record")
		return fmt.Errorf("failed to append inventory record: %w", err)
	}

	return nil
}

const inventoryColumns = `id, product_id, action, quantity, edited_by, order_id, created_at`

func (r *inventoryRepository) scanRecords(rows pgx.Rows) ([]model.InventoryRecord, error) {
	defer rows.Close()

	var records []model.InventoryRecord
	for rows.Next() {
		var rec model.InventoryRecord
		err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Action, &rec.Quantity,
			&rec.EditedBy, &rec.OrderID, &rec.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan inventory record row")
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating inventory record rows")
		return nil, fmt.Errorf("error iterating inventory records: %w", err)
	}

	return records, nil
}

// ListByProduct retrieves ledger entries for a product, newest first.
func (r *inventoryRepository) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM inventory_records
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, inventoryColumns)

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to query inventory records")
		return nil, fmt.Errorf("failed to query inventory records: %w", err)
	}

	return r.scanRecords(rows)
}

// ListRemovalsByOrder retrieves the "remove" entries attributed to an
// order, for compensation on payment rejection.
func (r *inventoryRepository) ListRemovalsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.InventoryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM inventory_records
		WHERE order_id = $1 AND action = $2
		ORDER BY created_at
	`, inventoryColumns)

	rows, err := r.pool.Query(ctx, query, orderID, model.InventoryActionRemove)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order removals")
		return nil, fmt.Errorf("failed to query order removals: %w", err)
	}

	return r.scanRecords(rows)
}
