package service

import (
	"context"
	"fmt"
	"time"

	"gold-kart/internal/config"
	"gold-kart/internal/gateway"
	"gold-kart/internal/model"
	"gold-kart/internal/repository"
	"gold-kart/internal/shipping"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService orchestrates checkout: it snapshots the cart into an
// order, reserves stock, and drives the order state machine from the
// gateway's asynchronous verdicts.
type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	stock       StockService
	gateway     gateway.Gateway
	rates       shipping.Rates
	cfg         config.PaymentConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	stock StockService,
	gw gateway.Gateway,
	rates shipping.Rates,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		stock:       stock,
		gateway:     gw,
		rates:       rates,
		cfg:         cfg,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
	}
}

// Checkout converts the user's cart into an order in paying status,
// authorizes the payment at the gateway, and reserves stock. Repeating
// the call while a recent attempt is outstanding returns the existing
// authorization instead of charging twice; a stale attempt gets a fresh
// gateway token without touching stock again.
func (s *orderService) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if userID == "" {
		return nil, model.ErrOwnership
	}
	if req == nil || req.CartID == uuid.Nil {
		return nil, model.ErrCartNotFound
	}

	cart, items, err := s.loadCheckoutCart(ctx, userID, req.CartID)
	if err != nil {
		return nil, err
	}

	address, err := s.addressRepo.GetByID(ctx, req.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address == nil {
		return nil, model.ErrAddressNotFound
	}
	if address.UserID != userID {
		return nil, model.ErrOwnership
	}

	method, ok := s.rates.Method(req.ShippingID)
	if !ok {
		return nil, model.ErrShippingNotFound
	}

	totals := model.ComputeTotals(items, cart.Discount)
	shippingPrice := method.PriceFor(totals.Total)
	finalPrice := totals.Total + shippingPrice

	// A paying order already exists for this cart when the customer
	// abandoned the payment page and came back. Reuse it.
	existing, err := s.orderRepo.FindPayingByUserAndCart(ctx, userID, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending order: %w", err)
	}
	if existing != nil {
		return s.resumePending(ctx, existing)
	}

	authority, err := s.gateway.RequestAuthorization(ctx, finalPrice, s.cfg.CallbackURL, orderDescription(items))
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		ID:                   uuid.New(),
		UserID:               userID,
		CartID:               cart.ID,
		AddressID:            address.ID,
		ShippingID:           method.ID,
		TotalWithDiscount:    totals.Total,
		TotalWithoutDiscount: totals.Subtotal,
		ShippingPrice:        shippingPrice,
		FinalPrice:           finalPrice,
		Status:               model.OrderStatusPaying,
		RefID:                authority,
		PaymentAttempts:      1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	orderItems := make([]model.OrderItem, 0, len(items))
	lines := make([]model.StockLine, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, model.OrderItem{
			ID:                   uuid.New(),
			OrderID:              order.ID,
			ProductID:            item.ProductID,
			Quantity:             item.Quantity,
			PriceWithDiscount:    item.Price,
			PriceWithoutDiscount: item.Price,
		})
		lines = append(lines, model.StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err = s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
		return nil, err
	}

	// Stock is reserved in the same transaction that creates the order:
	// either both happen or neither does.
	if err = s.stock.RemoveStockForOrder(ctx, tx, order.ID, lines); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", userID).
		Int64("final_price", finalPrice).
		Msg("order created, awaiting payment")

	return &model.CheckoutResult{
		OrderID:    order.ID,
		RefID:      authority,
		PaymentURL: s.paymentURL(authority),
	}, nil
}

// loadCheckoutCart loads the cart named by the checkout request and
// enforces ownership, non-expiration, and non-emptiness.
func (s *orderService) loadCheckoutCart(ctx context.Context, userID string, cartID uuid.UUID) (*model.Cart, []model.CartItem, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, nil, model.ErrCartNotFound
	}
	if !cart.Owner.IsUser() || cart.Owner.ID != userID {
		return nil, nil, model.ErrOwnership
	}
	if cart.IsExpired(s.now()) {
		return nil, nil, model.ErrCartExpired
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, model.ErrCartEmpty
	}

	return cart, items, nil
}

// resumePending handles a checkout retry against an outstanding paying
// order. Within the attempt window the recorded authorization is
// returned as-is; past it a fresh gateway token replaces the stale one,
// capped by the attempt limit. Stock was reserved by the original
// attempt and is never touched here.
func (s *orderService) resumePending(ctx context.Context, order *model.Order) (*model.CheckoutResult, error) {
	if s.now().Sub(order.UpdatedAt) < s.cfg.AttemptWindow() {
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Int("attempts", order.PaymentAttempts).
			Msg("checkout repeated within attempt window, reusing authorization")
		return &model.CheckoutResult{
			OrderID:    order.ID,
			RefID:      order.RefID,
			PaymentURL: s.paymentURL(order.RefID),
		}, nil
	}

	if order.PaymentAttempts >= s.cfg.MaxAttempts {
		return nil, model.ErrTooManyAttempts
	}

	authority, err := s.gateway.RequestAuthorization(ctx, order.FinalPrice, s.cfg.CallbackURL, "")
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.RefreshAuthorization(ctx, order.ID, authority, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("attempts", order.PaymentAttempts+1).
		Msg("stale payment authorization refreshed")

	return &model.CheckoutResult{
		OrderID:    order.ID,
		RefID:      authority,
		PaymentURL: s.paymentURL(authority),
	}, nil
}

// HandleCallback resolves the gateway's asynchronous verdict for an
// authorization token. Confirmation moves the order to paid and deletes
// the cart; rejection moves it to canceled and returns the reserved
// stock. Replayed callbacks return the already-recorded outcome.
func (s *orderService) HandleCallback(ctx context.Context, authority string) (*model.CallbackResult, error) {
	if authority == "" {
		return nil, model.ErrOrderNotFound
	}

	order, err := s.orderRepo.GetByRefID(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if order.Status != model.OrderStatusPaying {
		// Already resolved; the callback is a replay.
		return &model.CallbackResult{OrderID: order.ID, Status: order.Status}, nil
	}

	refCode, verified, err := s.gateway.VerifyTransaction(ctx, order.FinalPrice, authority)
	if err != nil {
		// No verdict was obtained; the order stays paying so a later
		// callback or retry can still resolve it.
		return nil, err
	}

	if verified {
		return s.confirmPayment(ctx, order, refCode)
	}
	return s.cancelPayment(ctx, order)
}

// confirmPayment transitions a verified order to paid and removes the
// consumed cart in the same transaction.
func (s *orderService) confirmPayment(ctx context.Context, order *model.Order, refCode string) (*model.CallbackResult, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusPaying, model.OrderStatusPaid, s.now())
	if err != nil {
		return nil, err
	}
	if !moved {
		// A concurrent callback resolved the order first.
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return s.recordedOutcome(ctx, order.ID)
	}

	if err = s.cartRepo.Delete(ctx, tx, order.CartID); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("ref_code", refCode).
		Msg("payment confirmed, order paid")

	return &model.CallbackResult{OrderID: order.ID, Status: model.OrderStatusPaid, RefCode: refCode}, nil
}

// cancelPayment transitions a rejected order to canceled and returns
// its reserved stock, both in one transaction. The cart is kept so the
// customer can try checking out again.
func (s *orderService) cancelPayment(ctx context.Context, order *model.Order) (*model.CallbackResult, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusPaying, model.OrderStatusCanceled, s.now())
	if err != nil {
		return nil, err
	}
	if !moved {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return s.recordedOutcome(ctx, order.ID)
	}

	if err = s.stock.RestoreStockForOrder(ctx, tx, order.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Msg("payment rejected, order canceled and stock restored")

	return &model.CallbackResult{OrderID: order.ID, Status: model.OrderStatusCanceled}, nil
}

// recordedOutcome re-reads an order that a concurrent callback resolved
// and reports whatever state it landed in.
func (s *orderService) recordedOutcome(ctx context.Context, orderID uuid.UUID) (*model.CallbackResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.CallbackResult{OrderID: order.ID, Status: order.Status}, nil
}

// MarkSent transitions a paid order to fulfillment.
func (s *orderService) MarkSent(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(model.OrderStatusSent) {
		return model.ErrInvalidTransition
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark order sent: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, model.OrderStatusPaid, model.OrderStatusSent, s.now())
	if err != nil {
		return err
	}
	if !moved {
		err = model.ErrInvalidTransition
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to mark order sent: %w", err)
	}

	s.logger.Info().Str("order_id", orderID.String()).Msg("order marked as sent")
	return nil
}

// GetByID retrieves an order with its item snapshots. A non-empty
// userID enforces ownership; admins pass the empty string.
func (s *orderService) GetByID(ctx context.Context, orderID uuid.UUID, userID string) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if userID != "" && order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}

	items, err := s.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if items == nil {
		items = []model.OrderItem{}
	}

	return &model.OrderResponse{Order: order, Items: items}, nil
}

func (s *orderService) paymentURL(authority string) string {
	return s.cfg.PaymentPageURL + "/" + authority
}

func orderDescription(items []model.CartItem) string {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return fmt.Sprintf("order of %d items", count)
}
