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

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const cartColumns = `id, user_id, session_id, subtotal, discount, total,
	last_activity_at, expires_at, expired_notified_at, created_at`

// ownerPredicate returns the WHERE fragment and argument for an owner.
// Carts carry exactly one of user_id / session_id (enforced by a table
// CHECK constraint).
func ownerPredicate(owner model.Owner) (string, string) {
	if owner.Kind == model.OwnerKindUser {
		return "user_id = $1", owner.ID
	}
	return "session_id = $1", owner.ID
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	var (
		cart      model.Cart
		userID    *string
		sessionID *string
	)
	err := row.Scan(
		&cart.ID,
		&userID,
		&sessionID,
		&cart.Subtotal,
		&cart.Discount,
		&cart.Total,
		&cart.LastActivityAt,
		&cart.ExpiresAt,
		&cart.ExpiredNotifiedAt,
		&cart.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		cart.Owner = model.UserOwner(*userID)
	} else if sessionID != nil {
		cart.Owner = model.GuestOwner(*sessionID)
	}
	return &cart, nil
}

// GetByOwner retrieves the cart belonging to a user or guest session.
func (r *cartRepository) GetByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	pred, arg := ownerPredicate(owner)
	query := fmt.Sprintf("SELECT %s FROM carts WHERE %s", cartColumns, pred)

	cart, err := scanCart(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().
				Str("owner_kind", string(owner.Kind)).
				Str("owner_id", owner.ID).
				Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("owner_id", owner.ID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return cart, nil
}

// GetByID retrieves a cart by its ID.
func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	query := fmt.Sprintf("SELECT %s FROM carts WHERE id = $1", cartColumns)

	cart, err := scanCart(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("cart_id", id.String()).Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("cart_id", id.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return cart, nil
}

// GetForUpdate retrieves the owner's cart within the transaction with a
// row lock, so expiry re-validation and the mutation that follows see
// the same state.
func (r *cartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, owner model.Owner) (*model.Cart, error) {
	pred, arg := ownerPredicate(owner)
	query := fmt.Sprintf("SELECT %s FROM carts WHERE %s FOR UPDATE", cartColumns, pred)

	cart, err := scanCart(tx.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("owner_id", owner.ID).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	return cart, nil
}

// Create inserts a new cart.
func (r *cartRepository) Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	if err := cart.Owner.Validate(); err != nil {
		return fmt.Errorf("invalid cart owner: %w", err)
	}

	var userID, sessionID *string
	if cart.Owner.Kind == model.OwnerKindUser {
		userID = &cart.Owner.ID
	} else {
		sessionID = &cart.Owner.ID
	}

	query := `
		INSERT INTO carts (id, user_id, session_id, subtotal, discount, total,
			last_activity_at, expires_at, expired_notified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		cart.ID, userID, sessionID,
		cart.Subtotal, cart.Discount, cart.Total,
		cart.LastActivityAt, cart.ExpiresAt, cart.ExpiredNotifiedAt, cart.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("cart_id", cart.ID.String()).
			Str("owner_id", cart.Owner.ID).
			Msg("failed to create cart")
		return fmt.Errorf("failed to create cart: %w", err)
	}

	r.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("owner_kind", string(cart.Owner.Kind)).
		Msg("cart created")

	return nil
}

const cartItemColumns = `id, cart_id, product_id, quantity, price, added_at`

func (r *cartRepository) queryItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, cartID uuid.UUID) ([]model.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, product_id
	`, cartItemColumns)

	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.Price, &item.AddedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// GetItems retrieves all items of a cart.
func (r *cartRepository) GetItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	return r.queryItems(ctx, r.pool, cartID)
}

// GetItemsTx retrieves all items of a cart within the transaction.
func (r *cartRepository) GetItemsTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error) {
	return r.queryItems(ctx, tx, cartID)
}

// AddOrIncrementItem inserts a product line or adds quantity to an
// existing one. Duplicate product lines are combined, never duplicated.
func (r *cartRepository) AddOrIncrementItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
			price = EXCLUDED.price
	`

	_, err := tx.Exec(ctx, query,
		item.ID, item.CartID, item.ProductID, item.Quantity, item.Price, item.AddedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("cart_id", item.CartID.String()).
			Str("product_id", item.ProductID).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

// SetItemQuantity sets the quantity of an existing line and re-captures
// the unit price; a re-edited line tracks the current catalogue price.
func (r *cartRepository) SetItemQuantity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string, quantity int, price int64) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, price = $4
		WHERE cart_id = $1 AND product_id = $2
	`

	tag, err := tx.Exec(ctx, query, cartID, productID, quantity, price)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("cart_id", cartID.String()).
			Str("product_id", productID).
			Msg("failed to update cart item quantity")
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// DeleteItem removes a single product line.
func (r *cartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	tag, err := tx.Exec(ctx, query, cartID, productID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("cart_id", cartID.String()).
			Str("product_id", productID).
			Msg("failed to delete cart item")
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// DeleteItems removes every line of a cart.
func (r *cartRepository) DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart items")
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

// TouchActivity resets the activity clock. Called only from mutating
// operations; reads never advance the expiry countdown.
func (r *cartRepository) TouchActivity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now, expiresAt time.Time) error {
	query := `
		UPDATE carts
		SET last_activity_at = $2, expires_at = $3, expired_notified_at = NULL
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, cartID, now, expiresAt)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to touch cart activity")
		return fmt.Errorf("failed to touch cart activity: %w", err)
	}

	return nil
}

// UpdateTotals writes recomputed totals.
func (r *cartRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, totals model.CartTotals) error {
	query := `
		UPDATE carts
		SET subtotal = $2, discount = $3, total = $4
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, cartID, totals.Subtotal, totals.Discount, totals.Total)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to update cart totals")
		return fmt.Errorf("failed to update cart totals: %w", err)
	}

	return nil
}

// MarkExpiredNotified records the first observation of an expired cart.
// The condition on expired_notified_at makes concurrent observers agree
// on a single winner, so items are wiped at most once.
func (r *cartRepository) MarkExpiredNotified(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE carts
		SET expired_notified_at = $2
		WHERE id = $1 AND expired_notified_at IS NULL AND expires_at < $2
	`

	tag, err := tx.Exec(ctx, query, cartID, now)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to mark cart expired")
		return false, fmt.Errorf("failed to mark cart expired: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes a cart and its items.
func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart items")
		return fmt.Errorf("failed to delete cart items: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	r.logger.Debug().Str("cart_id", cartID.String()).Msg("cart deleted")

	return nil
}
