package service

import (
	"context"
	"time"

	"gold-kart/internal/model"
	"gold-kart/internal/shipping"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id string) (*model.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCartRepository) GetByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, owner model.Owner) (*model.Cart, error) {
	args := m.Called(ctx, tx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	args := m.Called(ctx, tx, cart)
	return args.Error(0)
}

func (m *MockCartRepository) GetItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetItemsTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error) {
	args := m.Called(ctx, tx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) AddOrIncrementItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockCartRepository) SetItemQuantity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string, quantity int, price int64) error {
	args := m.Called(ctx, tx, cartID, productID, quantity, price)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, productID string) error {
	args := m.Called(ctx, tx, cartID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	args := m.Called(ctx, tx, cartID)
	return args.Error(0)
}

func (m *MockCartRepository) TouchActivity(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now, expiresAt time.Time) error {
	args := m.Called(ctx, tx, cartID, now, expiresAt)
	return args.Error(0)
}

func (m *MockCartRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, totals model.CartTotals) error {
	args := m.Called(ctx, tx, cartID, totals)
	return args.Error(0)
}

func (m *MockCartRepository) MarkExpiredNotified(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, cartID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockCartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	args := m.Called(ctx, tx, cartID)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByRefID(ctx context.Context, refID string) (*model.Order, error) {
	args := m.Called(ctx, refID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) FindPayingByUserAndCart(ctx context.Context, userID string, cartID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, userID, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, orderID, from, to, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) RefreshAuthorization(ctx context.Context, orderID uuid.UUID, refID string, now time.Time) error {
	args := m.Called(ctx, orderID, refID, now)
	return args.Error(0)
}

// MockInventoryRepository is a mock implementation of InventoryRepository.
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryRepository) IncrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	args := m.Called(ctx, tx, productID, quantity)
	return args.Error(0)
}

func (m *MockInventoryRepository) DecrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	args := m.Called(ctx, tx, productID, quantity)
	return args.Error(0)
}

func (m *MockInventoryRepository) LockStocks(ctx context.Context, tx pgx.Tx, productIDs []string) (map[string]int, error) {
	args := m.Called(ctx, tx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockInventoryRepository) AppendRecord(ctx context.Context, tx pgx.Tx, record *model.InventoryRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockInventoryRepository) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InventoryRecord), args.Error(1)
}

func (m *MockInventoryRepository) ListRemovalsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.InventoryRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InventoryRecord), args.Error(1)
}

// MockStockService is a mock implementation of StockService.
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) AddStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error {
	args := m.Called(ctx, productID, quantity, editedBy, orderID)
	return args.Error(0)
}

func (m *MockStockService) RemoveStock(ctx context.Context, productID string, quantity int, editedBy model.InventoryActor, orderID *uuid.UUID) error {
	args := m.Called(ctx, productID, quantity, editedBy, orderID)
	return args.Error(0)
}

func (m *MockStockService) RemoveStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.StockLine) error {
	args := m.Called(ctx, tx, orderID, lines)
	return args.Error(0)
}

func (m *MockStockService) RestoreStockForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	args := m.Called(ctx, tx, orderID)
	return args.Error(0)
}

func (m *MockStockService) History(ctx context.Context, productID string, limit, offset int) ([]model.InventoryRecord, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InventoryRecord), args.Error(1)
}

// MockGateway is a mock implementation of gateway.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RequestAuthorization(ctx context.Context, amount int64, callbackURL, description string) (string, error) {
	args := m.Called(ctx, amount, callbackURL, description)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, amount int64, authority string) (string, bool, error) {
	args := m.Called(ctx, amount, authority)
	return args.String(0), args.Bool(1), args.Error(2)
}

// testRates builds an in-memory rate table for checkout tests.
func testRates(methods ...shipping.Method) shipping.Rates {
	return shipping.NewMapRates(methods)
}
