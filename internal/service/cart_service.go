package service

import (
	"context"
	"fmt"
	"time"

	"gold-kart/internal/model"
	"gold-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
//
// The activity clock advances only on genuine mutations (add, edit,
// remove, merge). Reads report expiry lazily: there is no background
// sweep, and the first read of an expired cart clears its items exactly
// once.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	ttl         time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCartService creates a new cart service with the given expiration
// window.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	ttl time.Duration,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		ttl:         ttl,
		logger:      logger.With().Str("service", "cart").Logger(),
		now:         time.Now,
	}
}

// GetCart retrieves the caller's cart without touching its activity
// clock; polling cart state never resets the countdown.
func (s *cartService) GetCart(ctx context.Context, owner model.Owner) (*model.CartDetails, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}

	cart, err := s.cartRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart == nil {
		return &model.CartDetails{Items: []model.CartItem{}}, nil
	}

	now := s.now()
	if cart.IsExpired(now) {
		if err := s.reapExpired(ctx, cart, now); err != nil {
			return nil, err
		}
		return &model.CartDetails{Cart: cart, Items: []model.CartItem{}, Expired: true}, nil
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	if items == nil {
		items = []model.CartItem{}
	}

	return &model.CartDetails{Cart: cart, Items: items}, nil
}

// reapExpired clears an expired cart's items on its first observation.
// The conditioned expired_notified_at update elects a single winner
// among concurrent observers, so items are wiped at most once.
func (s *cartService) reapExpired(ctx context.Context, cart *model.Cart, now time.Time) error {
	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to reap expired cart: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	won, err := s.cartRepo.MarkExpiredNotified(ctx, tx, cart.ID, now)
	if err != nil {
		return err
	}

	if won {
		if err = s.cartRepo.DeleteItems(ctx, tx, cart.ID); err != nil {
			return err
		}
		if err = s.cartRepo.UpdateTotals(ctx, tx, cart.ID, model.CartTotals{}); err != nil {
			return err
		}
		cart.ExpiredNotifiedAt = &now
		cart.Subtotal, cart.Discount, cart.Total = 0, 0, 0

		s.logger.Info().
			Str("cart_id", cart.ID.String()).
			Time("expired_at", cart.ExpiresAt).
			Msg("expired cart items cleared on first observation")
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to reap expired cart: %w", err)
	}

	return nil
}

// AddItem adds a product line, creating the cart on first add. Adding
// to an expired cart discards the stale cart and starts a fresh one;
// that is the rebuild path after expiry.
func (s *cartService) AddItem(ctx context.Context, owner model.Owner, req *model.CartItemRequest) (*model.CartDetails, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}
	if err := validateItemRequest(req, false); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now()

	cart, err := s.cartRepo.GetForUpdate(ctx, tx, owner)
	if err != nil {
		return nil, err
	}

	if cart != nil && cart.IsExpired(now) {
		if err = s.cartRepo.Delete(ctx, tx, cart.ID); err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("cart_id", cart.ID.String()).
			Msg("expired cart discarded on add, starting fresh")
		cart = nil
	}

	if cart == nil {
		cart = &model.Cart{
			ID:             uuid.New(),
			Owner:          owner,
			LastActivityAt: now,
			ExpiresAt:      now.Add(s.ttl),
			CreatedAt:      now,
		}
		if err = s.cartRepo.Create(ctx, tx, cart); err != nil {
			return nil, err
		}
	}

	item := &model.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  req.Quantity,
		Price:     product.Price,
		AddedAt:   now,
	}
	if err = s.cartRepo.AddOrIncrementItem(ctx, tx, item); err != nil {
		return nil, err
	}

	details, err := s.finishMutation(ctx, tx, cart, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Info().
		Str("cart_id", cart.ID.String()).
		Str("product_id", product.ID).
		Int("quantity", req.Quantity).
		Msg("cart item added")

	return details, nil
}

// UpdateItem sets a line's quantity; zero removes the line. The edit
// re-captures the current catalogue price for the line.
func (s *cartService) UpdateItem(ctx context.Context, owner model.Owner, req *model.CartItemRequest) (*model.CartDetails, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}
	if err := validateItemRequest(req, true); err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		return s.RemoveItem(ctx, owner, req.ProductID)
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	return s.mutateExisting(ctx, owner, func(tx pgx.Tx, cart *model.Cart) error {
		return s.cartRepo.SetItemQuantity(ctx, tx, cart.ID, product.ID, req.Quantity, product.Price)
	})
}

// RemoveItem removes a product line.
func (s *cartService) RemoveItem(ctx context.Context, owner model.Owner, productID string) (*model.CartDetails, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}
	if productID == "" {
		return nil, model.ErrProductNotFound
	}

	return s.mutateExisting(ctx, owner, func(tx pgx.Tx, cart *model.Cart) error {
		return s.cartRepo.DeleteItem(ctx, tx, cart.ID, productID)
	})
}

// mutateExisting applies an item mutation to the owner's cart under a
// row lock, re-validating non-expiration against fresh state before the
// edit. An edit racing the expiry instant loses to the clock.
func (s *cartService) mutateExisting(ctx context.Context, owner model.Owner, mutate func(pgx.Tx, *model.Cart) error) (*model.CartDetails, error) {
	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now()

	cart, err := s.cartRepo.GetForUpdate(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		err = model.ErrCartNotFound
		return nil, err
	}
	if cart.IsExpired(now) {
		err = model.ErrCartExpired
		return nil, err
	}

	if err = mutate(tx, cart); err != nil {
		return nil, err
	}

	details, err := s.finishMutation(ctx, tx, cart, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	return details, nil
}

// finishMutation recomputes totals from the authoritative item set and
// resets the activity clock. Totals are never incremented in place, so
// concurrent mutations cannot compound drift.
func (s *cartService) finishMutation(ctx context.Context, tx pgx.Tx, cart *model.Cart, now time.Time) (*model.CartDetails, error) {
	items, err := s.cartRepo.GetItemsTx(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.CartItem{}
	}

	totals := model.ComputeTotals(items, cart.Discount)
	if err := s.cartRepo.UpdateTotals(ctx, tx, cart.ID, totals); err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.ttl)
	if err := s.cartRepo.TouchActivity(ctx, tx, cart.ID, now, expiresAt); err != nil {
		return nil, err
	}

	cart.Subtotal = totals.Subtotal
	cart.Discount = totals.Discount
	cart.Total = totals.Total
	cart.LastActivityAt = now
	cart.ExpiresAt = expiresAt
	cart.ExpiredNotifiedAt = nil

	return &model.CartDetails{Cart: cart, Items: items}, nil
}

// MergeCarts folds a guest cart into the user's cart after login.
// Duplicate product lines are combined by summing quantity. The guest
// cart is discarded once the merge completes; calling without a guest
// cart is a no-op.
func (s *cartService) MergeCarts(ctx context.Context, userID, sessionID string) (*model.CartDetails, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("user id and session id are required for merge")
	}

	userOwner := model.UserOwner(userID)

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to merge carts: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now()

	guestCart, err := s.cartRepo.GetForUpdate(ctx, tx, model.GuestOwner(sessionID))
	if err != nil {
		return nil, err
	}
	if guestCart == nil {
		// Nothing to merge.
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to merge carts: %w", err)
		}
		return s.GetCart(ctx, userOwner)
	}

	if guestCart.IsExpired(now) {
		// An expired guest cart carries stale prices; discard it
		// rather than resurrect it into the user's cart.
		if err = s.cartRepo.Delete(ctx, tx, guestCart.ID); err != nil {
			return nil, err
		}
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to merge carts: %w", err)
		}
		s.logger.Info().
			Str("guest_cart_id", guestCart.ID.String()).
			Msg("expired guest cart discarded on merge")
		return s.GetCart(ctx, userOwner)
	}

	guestItems, err := s.cartRepo.GetItemsTx(ctx, tx, guestCart.ID)
	if err != nil {
		return nil, err
	}

	userCart, err := s.cartRepo.GetForUpdate(ctx, tx, userOwner)
	if err != nil {
		return nil, err
	}
	if userCart == nil {
		userCart = &model.Cart{
			ID:             uuid.New(),
			Owner:          userOwner,
			LastActivityAt: now,
			ExpiresAt:      now.Add(s.ttl),
			CreatedAt:      now,
		}
		if err = s.cartRepo.Create(ctx, tx, userCart); err != nil {
			return nil, err
		}
	}

	for _, item := range guestItems {
		merged := &model.CartItem{
			ID:        uuid.New(),
			CartID:    userCart.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			AddedAt:   now,
		}
		if err = s.cartRepo.AddOrIncrementItem(ctx, tx, merged); err != nil {
			return nil, err
		}
	}

	if err = s.cartRepo.Delete(ctx, tx, guestCart.ID); err != nil {
		return nil, err
	}

	details, err := s.finishMutation(ctx, tx, userCart, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to merge carts: %w", err)
	}

	s.logger.Info().
		Str("user_cart_id", userCart.ID.String()).
		Str("guest_cart_id", guestCart.ID.String()).
		Int("merged_items", len(guestItems)).
		Msg("guest cart merged into user cart")

	return details, nil
}

// validateItemRequest validates an add/edit payload. allowZero permits
// quantity zero, which edit treats as removal.
func validateItemRequest(req *model.CartItemRequest, allowZero bool) error {
	if req == nil || req.ProductID == "" {
		return model.ErrProductNotFound
	}
	if req.Quantity < 0 || (!allowZero && req.Quantity == 0) {
		return model.ErrInvalidQuantity
	}
	return nil
}
