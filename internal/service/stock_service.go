package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gold-kart/internal/model"
	"gold-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// stockService implements StockService.
type stockService struct {
	inventoryRepo repository.InventoryRepository
	logger        zerolog.Logger
	now           func() time.Time
}

// NewStockService creates a new stock ledger service.
func NewStockService(inventoryRepo repository.InventoryRepository, logger zerolog.Logger) StockService {
	return &stockService{
		inventoryRepo: inventoryRepo,
		logger:        logger.With().Str("service", "stock").Logger(),
		now:           time.Now,
	}
}

// AddStock increments product stock and appends an "add" ledger entry.
func (s *stockService) AddStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := s.inventoryRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to add stock: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.inventoryRepo.IncrementStock(ctx, tx, productID, quantity); err != nil {
		return err
	}

	if err = s.appendRecord(ctx, tx, productID, model.InventoryActionAdd, quantity, editedBy, orderID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to commit stock addition")
		return fmt.Errorf("failed to add stock: %w", err)
	}

	s.logger.Info().
		Str("product_id", productID).
		Int("quantity", quantity).
		Str("edited_by", string(editedBy)).
		Msg("stock added")

	return nil
}

// RemoveStock decrements product stock via a conditioned update and
// appends a "remove" ledger entry only on success. An insufficient
// balance is a hard stop; retrying does not change physical stock.
func (s *stockService) RemoveStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := s.inventoryRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove stock: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.inventoryRepo.DecrementStock(ctx, tx, productID, quantity); err != nil {
		return err
	}

	if err = s.appendRecord(ctx, tx, productID, model.InventoryActionRemove, quantity, editedBy, orderID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to commit stock removal")
		return fmt.Errorf("failed to remove stock: %w", err)
	}

	s.logger.Info().
		Str("product_id", productID).
		Int("quantity", quantity).
		Str("edited_by", string(editedBy)).
		Msg("stock removed")

	return nil
}

// RemoveStockForOrder decrements stock for every order line within the
// caller's transaction. Every line is validated against row-locked
// stock before any decrement runs, so a mid-batch failure cannot leave
// a partial decrement behind.
func (s *stockService) RemoveStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.StockLine) error {
	if len(lines) == 0 {
		return nil
	}

	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
		productIDs = append(productIDs, line.ProductID)
	}
	sort.Strings(productIDs)

	stocks, err := s.inventoryRepo.LockStocks(ctx, tx, productIDs)
	if err != nil {
		return err
	}

	// Validate all lines first; mutate only after every line passes.
	for _, line := range lines {
		stock, ok := stocks[line.ProductID]
		if !ok {
			s.logger.Warn().
				Str("product_id", line.ProductID).
				Str("order_id", orderID.String()).
				Msg("order references unknown product")
			return model.ErrProductNotFound
		}
		if stock < line.Quantity {
			s.logger.Warn().
				Str("product_id", line.ProductID).
				Str("order_id", orderID.String()).
				Int("stock", stock).
				Int("requested", line.Quantity).
				Msg("insufficient stock for order line")
			return model.ErrInsufficientStock
		}
	}

	for _, line := range lines {
		if err := s.inventoryRepo.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
		if err := s.appendRecord(ctx, tx, line.ProductID, model.InventoryActionRemove, line.Quantity, model.InventoryActorOrder, &orderID); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int("line_count", len(lines)).
		Msg("stock removed for order")

	return nil
}

// RestoreStockForOrder replays an order's removal entries as additions
// within the caller's transaction. Used when the gateway rejects the
// payment after stock was decremented optimistically at checkout.
func (s *stockService) RestoreStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	removals, err := s.inventoryRepo.ListRemovalsByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	for _, rec := range removals {
		if err := s.inventoryRepo.IncrementStock(ctx, tx, rec.ProductID, rec.Quantity); err != nil {
			return err
		}
		if err := s.appendRecord(ctx, tx, rec.ProductID, model.InventoryActionAdd, rec.Quantity, model.InventoryActorOrder, &orderID); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int("line_count", len(removals)).
		Msg("stock restored for canceled order")

	return nil
}

// History retrieves a product's ledger entries, newest first.
func (s *stockService) History(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.inventoryRepo.ListByProduct(ctx, productID, limit, offset)
}

func (s *stockService) appendRecord(ctx context.Context, tx pgx.Tx, productID string, action model.InventoryAction, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error {
	return s.inventoryRepo.AppendRecord(ctx, tx, &model.InventoryRecord{
		ID:        uuid.New(),
		ProductID: productID,
		Action:    action,
		Quantity:  quantity,
		EditedBy:  editedBy,
		OrderID:   orderID,
		CreatedAt: s.now(),
	})
}
