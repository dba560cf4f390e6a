package service

import (
	"context"
	"testing"
	"time"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Hour

func newTestCartService(cartRepo *MockCartRepository, productRepo *MockProductRepository, now time.Time) *cartService {
	svc := NewCartService(cartRepo, productRepo, testTTL, zerolog.Nop()).(*cartService)
	svc.now = func() time.Time { return now }
	return svc
}

func liveCart(owner model.Owner, now time.Time) *model.Cart {
	return &model.Cart{
		ID:             uuid.New(),
		Owner:          owner,
		LastActivityAt: now.Add(-10 * time.Minute),
		ExpiresAt:      now.Add(50 * time.Minute),
		CreatedAt:      now.Add(-10 * time.Minute),
	}
}

func TestCartService_GetCart_NoCart(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("GetByOwner", ctx, owner).Return(nil, nil)

	details, err := svc.GetCart(ctx, owner)

	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Nil(t, details.Cart)
	assert.Empty(t, details.Items)
	assert.False(t, details.Expired)
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_GetCart_DoesNotTouchActivity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)
	expiresBefore := cart.ExpiresAt

	items := []model.CartItem{
		{CartID: cart.ID, ProductID: "P001", Quantity: 2, Price: 1000},
	}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("GetByOwner", ctx, owner).Return(cart, nil)
	mockCartRepo.On("GetItems", ctx, cart.ID).Return(items, nil)

	details, err := svc.GetCart(ctx, owner)

	require.NoError(t, err)
	assert.Len(t, details.Items, 1)
	assert.False(t, details.Expired)
	// Reads never reset the expiry countdown.
	assert.Equal(t, expiresBefore, details.Cart.ExpiresAt)
	mockCartRepo.AssertNotCalled(t, "TouchActivity")
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_GetCart_ExpiredClearsItemsOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)
	cart.ExpiresAt = now.Add(-time.Minute)
	cart.Subtotal, cart.Total = 2000, 2000

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("GetByOwner", ctx, owner).Return(cart, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("MarkExpiredNotified", ctx, mockTx, cart.ID, now).Return(true, nil)
	mockCartRepo.On("DeleteItems", ctx, mockTx, cart.ID).Return(nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, cart.ID, model.CartTotals{}).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.GetCart(ctx, owner)

	require.NoError(t, err)
	assert.True(t, details.Expired)
	assert.Empty(t, details.Items)
	assert.Zero(t, details.Cart.Total)
	mockCartRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestCartService_GetCart_ExpiredAlreadyObserved(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)
	cart.ExpiresAt = now.Add(-time.Minute)
	notifiedAt := now.Add(-30 * time.Second)
	cart.ExpiredNotifiedAt = &notifiedAt

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("GetByOwner", ctx, owner).Return(cart, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("MarkExpiredNotified", ctx, mockTx, cart.ID, now).Return(false, nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.GetCart(ctx, owner)

	require.NoError(t, err)
	assert.True(t, details.Expired)
	assert.Empty(t, details.Items)
	// The second observer must not wipe items again.
	mockCartRepo.AssertNotCalled(t, "DeleteItems")
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_AddItem_CreatesCartAndCapturesPrice(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.GuestOwner("s1")
	product := &model.Product{ID: "P001", Name: "Widget", Price: 1500, Stock: 10}
	req := &model.CartItemRequest{ProductID: "P001", Quantity: 2}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockProductRepo.On("GetByID", ctx, "P001").Return(product, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(nil, nil)
	mockCartRepo.On("Create", ctx, mockTx, mock.AnythingOfType("*model.Cart")).Return(nil)
	mockCartRepo.On("AddOrIncrementItem", ctx, mockTx, mock.MatchedBy(func(item *model.CartItem) bool {
		return item.ProductID == "P001" && item.Quantity == 2 && item.Price == 1500
	})).Return(nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, mock.Anything).Return([]model.CartItem{
		{ProductID: "P001", Quantity: 2, Price: 1500},
	}, nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, mock.Anything, model.CartTotals{Subtotal: 3000, Total: 3000}).Return(nil)
	mockCartRepo.On("TouchActivity", ctx, mockTx, mock.Anything, now, now.Add(testTTL)).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.AddItem(ctx, owner, req)

	require.NoError(t, err)
	require.NotNil(t, details.Cart)
	assert.Equal(t, int64(3000), details.Cart.Total)
	assert.Equal(t, now.Add(testTTL), details.Cart.ExpiresAt)
	mockCartRepo.AssertExpectations(t)
	mockProductRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockProductRepo.On("GetByID", ctx, "P999").Return(nil, nil)

	details, err := svc.AddItem(ctx, owner, &model.CartItemRequest{ProductID: "P999", Quantity: 1})

	require.Error(t, err)
	assert.Equal(t, model.ErrProductNotFound, err)
	assert.Nil(t, details)
	mockCartRepo.AssertNotCalled(t, "BeginTx")
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	for _, qty := range []int{0, -1} {
		details, err := svc.AddItem(ctx, owner, &model.CartItemRequest{ProductID: "P001", Quantity: qty})
		require.Error(t, err)
		assert.Equal(t, model.ErrInvalidQuantity, err)
		assert.Nil(t, details)
	}
	mockProductRepo.AssertNotCalled(t, "GetByID")
}

func TestCartService_AddItem_ExpiredCartStartsFresh(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	stale := liveCart(owner, now)
	stale.ExpiresAt = now.Add(-time.Minute)
	product := &model.Product{ID: "P001", Name: "Widget", Price: 1000, Stock: 5}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockProductRepo.On("GetByID", ctx, "P001").Return(product, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(stale, nil)
	mockCartRepo.On("Delete", ctx, mockTx, stale.ID).Return(nil)
	mockCartRepo.On("Create", ctx, mockTx, mock.MatchedBy(func(c *model.Cart) bool {
		return c.ID != stale.ID && c.Owner == owner
	})).Return(nil)
	mockCartRepo.On("AddOrIncrementItem", ctx, mockTx, mock.AnythingOfType("*model.CartItem")).Return(nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, mock.Anything).Return([]model.CartItem{
		{ProductID: "P001", Quantity: 1, Price: 1000},
	}, nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, mock.Anything, mock.Anything).Return(nil)
	mockCartRepo.On("TouchActivity", ctx, mockTx, mock.Anything, now, now.Add(testTTL)).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.AddItem(ctx, owner, &model.CartItemRequest{ProductID: "P001", Quantity: 1})

	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, details.Cart.ID)
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_UpdateItem_ZeroQuantityRemovesLine(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(cart, nil)
	mockCartRepo.On("DeleteItem", ctx, mockTx, cart.ID, "P001").Return(nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, cart.ID).Return([]model.CartItem{}, nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, cart.ID, model.CartTotals{}).Return(nil)
	mockCartRepo.On("TouchActivity", ctx, mockTx, cart.ID, now, now.Add(testTTL)).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.UpdateItem(ctx, owner, &model.CartItemRequest{ProductID: "P001", Quantity: 0})

	require.NoError(t, err)
	assert.Empty(t, details.Items)
	mockCartRepo.AssertNotCalled(t, "SetItemQuantity")
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_UpdateItem_RecapturesPrice(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)
	// Price changed in the catalog since the line was added.
	product := &model.Product{ID: "P001", Name: "Widget", Price: 1800, Stock: 5}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockProductRepo.On("GetByID", ctx, "P001").Return(product, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(cart, nil)
	mockCartRepo.On("SetItemQuantity", ctx, mockTx, cart.ID, "P001", 3, int64(1800)).Return(nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, cart.ID).Return([]model.CartItem{
		{ProductID: "P001", Quantity: 3, Price: 1800},
	}, nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, cart.ID, model.CartTotals{Subtotal: 5400, Total: 5400}).Return(nil)
	mockCartRepo.On("TouchActivity", ctx, mockTx, cart.ID, now, now.Add(testTTL)).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.UpdateItem(ctx, owner, &model.CartItemRequest{ProductID: "P001", Quantity: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(5400), details.Cart.Total)
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_UpdateItem_ExpiredCart(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")
	cart := liveCart(owner, now)
	cart.ExpiresAt = now.Add(-time.Second)
	product := &model.Product{ID: "P001", Name: "Widget", Price: 1000, Stock: 5}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockProductRepo.On("GetByID", ctx, "P001").Return(product, nil)
	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(cart, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	details, err := svc.UpdateItem(ctx, owner, &model.CartItemRequest{ProductID: "P001", Quantity: 1})

	require.Error(t, err)
	assert.Equal(t, model.ErrCartExpired, err)
	assert.Nil(t, details)
	assert.True(t, mockTx.rolledBack)
	mockCartRepo.AssertNotCalled(t, "SetItemQuantity")
}

func TestCartService_RemoveItem_NoCart(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := model.UserOwner("u1")

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, owner).Return(nil, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	details, err := svc.RemoveItem(ctx, owner, "P001")

	require.Error(t, err)
	assert.Equal(t, model.ErrCartNotFound, err)
	assert.Nil(t, details)
}

func TestCartService_MergeCarts_CombinesDuplicateLines(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	userOwner := model.UserOwner("u1")
	guestOwner := model.GuestOwner("s1")
	userCart := liveCart(userOwner, now)
	guestCart := liveCart(guestOwner, now)

	guestItems := []model.CartItem{
		{CartID: guestCart.ID, ProductID: "P001", Quantity: 2, Price: 1000},
		{CartID: guestCart.ID, ProductID: "P002", Quantity: 1, Price: 500},
	}
	mergedItems := []model.CartItem{
		{CartID: userCart.ID, ProductID: "P001", Quantity: 3, Price: 1000},
		{CartID: userCart.ID, ProductID: "P002", Quantity: 1, Price: 500},
	}

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, guestOwner).Return(guestCart, nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, guestCart.ID).Return(guestItems, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, userOwner).Return(userCart, nil)
	mockCartRepo.On("AddOrIncrementItem", ctx, mockTx, mock.AnythingOfType("*model.CartItem")).Return(nil).Times(2)
	mockCartRepo.On("Delete", ctx, mockTx, guestCart.ID).Return(nil)
	mockCartRepo.On("GetItemsTx", ctx, mockTx, userCart.ID).Return(mergedItems, nil)
	mockCartRepo.On("UpdateTotals", ctx, mockTx, userCart.ID, model.CartTotals{Subtotal: 3500, Total: 3500}).Return(nil)
	mockCartRepo.On("TouchActivity", ctx, mockTx, userCart.ID, now, now.Add(testTTL)).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	details, err := svc.MergeCarts(ctx, "u1", "s1")

	require.NoError(t, err)
	assert.Equal(t, userCart.ID, details.Cart.ID)
	assert.Len(t, details.Items, 2)
	assert.Equal(t, int64(3500), details.Cart.Total)
	mockCartRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestCartService_MergeCarts_NoGuestCart(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	userOwner := model.UserOwner("u1")
	userCart := liveCart(userOwner, now)

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, model.GuestOwner("s1")).Return(nil, nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockCartRepo.On("GetByOwner", ctx, userOwner).Return(userCart, nil)
	mockCartRepo.On("GetItems", ctx, userCart.ID).Return([]model.CartItem{}, nil)

	details, err := svc.MergeCarts(ctx, "u1", "s1")

	require.NoError(t, err)
	assert.Equal(t, userCart.ID, details.Cart.ID)
	mockCartRepo.AssertNotCalled(t, "AddOrIncrementItem")
	mockCartRepo.AssertExpectations(t)
}

func TestCartService_MergeCarts_ExpiredGuestCartDiscarded(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	userOwner := model.UserOwner("u1")
	guestOwner := model.GuestOwner("s1")
	guestCart := liveCart(guestOwner, now)
	guestCart.ExpiresAt = now.Add(-time.Minute)
	userCart := liveCart(userOwner, now)

	mockCartRepo := new(MockCartRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)
	svc := newTestCartService(mockCartRepo, mockProductRepo, now)

	mockCartRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockCartRepo.On("GetForUpdate", ctx, mockTx, guestOwner).Return(guestCart, nil)
	mockCartRepo.On("Delete", ctx, mockTx, guestCart.ID).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	mockCartRepo.On("GetByOwner", ctx, userOwner).Return(userCart, nil)
	mockCartRepo.On("GetItems", ctx, userCart.ID).Return([]model.CartItem{}, nil)

	details, err := svc.MergeCarts(ctx, "u1", "s1")

	require.NoError(t, err)
	assert.Equal(t, userCart.ID, details.Cart.ID)
	mockCartRepo.AssertNotCalled(t, "AddOrIncrementItem")
	mockCartRepo.AssertExpectations(t)
}
