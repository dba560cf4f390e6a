package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gold-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

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

func TestStockHandler_Adjust(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           model.StockAdjustmentRequest
		mockMethod     string
		mockError      error
		expectedStatus int
	}{
		{
			name:           "add",
			body:           model.StockAdjustmentRequest{ProductID: "P001", Action: model.InventoryActionAdd, Quantity: 5},
			mockMethod:     "AddStock",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "remove",
			body:           model.StockAdjustmentRequest{ProductID: "P001", Action: model.InventoryActionRemove, Quantity: 2},
			mockMethod:     "RemoveStock",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "remove beyond stock",
			body:           model.StockAdjustmentRequest{ProductID: "P001", Action: model.InventoryActionRemove, Quantity: 99},
			mockMethod:     "RemoveStock",
			mockError:      model.ErrInsufficientStock,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown action",
			body:           model.StockAdjustmentRequest{ProductID: "P001", Action: "transfer", Quantity: 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing product",
			body:           model.StockAdjustmentRequest{Action: model.InventoryActionAdd, Quantity: 1},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockStockService)
			h := NewStockHandler(mockService, logger)

			if tt.mockMethod != "" {
				mockService.On(tt.mockMethod, mock.Anything, tt.body.ProductID, tt.body.Quantity, model.InventoryActorAdmin, (*uuid.UUID)(nil)).
					Return(tt.mockError)
			}

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/admin/stock", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			h.Adjust(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.mockMethod != "" && tt.expectedStatus == http.StatusOK {
				mockService.AssertExpectations(t)
			}
		})
	}
}

func TestStockHandler_History(t *testing.T) {
	logger := zerolog.Nop()

	records := []model.InventoryRecord{
		{ID: uuid.New(), ProductID: "P001", Action: model.InventoryActionAdd, Quantity: 10, EditedBy: model.InventoryActorAdmin},
		{ID: uuid.New(), ProductID: "P001", Action: model.InventoryActionRemove, Quantity: 2, EditedBy: model.InventoryActorOrder},
	}

	mockService := new(MockStockService)
	h := NewStockHandler(mockService, logger)
	mockService.On("History", mock.Anything, "P001", 5, 10).Return(records, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stock/P001?limit=5&offset=10", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []model.InventoryRecord
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 2)
	mockService.AssertExpectations(t)
}
