package repository

import (
	"context"
	"fmt"
	"time"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const orderColumns = `id, user_id, cart_id, address_id, shipping_id,
	total_with_discount, total_without_discount, shipping_price, final_price,
	status, ref_id, payment_attempts, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CartID,
		&order.AddressID,
		&order.ShippingID,
		&order.TotalWithDiscount,
		&order.TotalWithoutDiscount,
		&order.ShippingPrice,
		&order.FinalPrice,
		&order.Status,
		&order.RefID,
		&order.PaymentAttempts,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, cart_id, address_id, shipping_id,
			total_with_discount, total_without_discount, shipping_price, final_price,
			status, ref_id, payment_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.CartID, order.AddressID, order.ShippingID,
		order.TotalWithDiscount, order.TotalWithoutDiscount, order.ShippingPrice, order.FinalPrice,
		order.Status, order.RefID, order.PaymentAttempts, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("ref_id", order.RefID).
		Msg("order created successfully")

	return nil
}

// CreateItems inserts order item snapshots within the provided transaction.
func (r *orderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity,
			price_with_discount, price_without_discount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity,
			item.PriceWithDiscount, item.PriceWithoutDiscount)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// GetByRefID retrieves an order by its gateway authorization token.
func (r *orderRepository) GetByRefID(ctx context.Context, refID string) (*model.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE ref_id = $1", orderColumns)

	order, err := scanOrder(r.pool.QueryRow(ctx, query, refID))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("ref_id", refID).Msg("order not found for authorization token")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("ref_id", refID).Msg("failed to query order by ref_id")
		return nil, fmt.Errorf("failed to query order by ref_id: %w", err)
	}

	return order, nil
}

// GetItems retrieves the item snapshots of an order.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price_with_discount, price_without_discount
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.PriceWithDiscount, &item.PriceWithoutDiscount)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// FindPayingByUserAndCart retrieves the outstanding paying order for a
// (user, cart) pair, if any. Used as the idempotency lookup before a
// new checkout attempt.
func (r *orderRepository) FindPayingByUserAndCart(ctx context.Context, userID string, cartID uuid.UUID) (*model.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE user_id = $1 AND cart_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, orderColumns)

	order, err := scanOrder(r.pool.QueryRow(ctx, query, userID, cartID, model.OrderStatusPaying))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().
			Err(err).
			Str("user_id", userID).
			Str("cart_id", cartID.String()).
			Msg("failed to query paying order")
		return nil, fmt.Errorf("failed to query paying order: %w", err)
	}

	return order, nil
}

// UpdateStatus transitions an order conditioned on its current status,
// so a stale caller can never overwrite a terminal state.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, now time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, orderID, from, to, now)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RefreshAuthorization replaces the gateway token of a stale paying
// order and bumps the attempt counter.
func (r *orderRepository) RefreshAuthorization(ctx context.Context, orderID uuid.UUID, refID string, now time.Time) error {
	query := `
		UPDATE orders
		SET ref_id = $2, payment_attempts = payment_attempts + 1, updated_at = $3
		WHERE id = $1 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, orderID, refID, now, model.OrderStatusPaying)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to refresh order authorization")
		return fmt.Errorf("failed to refresh order authorization: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}
