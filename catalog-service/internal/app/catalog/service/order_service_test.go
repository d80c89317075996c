package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CreateOrder_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	svc := NewOrderService(orderRepo)

	req := &entity.CreateOrderRequest{
		UserID: 42,
		Products: []entity.OrderProductRequest{
			{ID: 7, Quantity: 2},
			{ID: 8, Quantity: 1},
		},
	}
	expected := &entity.Order{
		ID:     1,
		UserID: 42,
		Total:  65,
		OrderItems: []entity.OrderItem{
			{ProductID: 7, Quantity: 2, Price: 25},
			{ProductID: 8, Quantity: 1, Price: 15},
		},
	}
	orderRepo.On("Create", ctx, int64(42), []repository.OrderLine{
		{ProductID: 7, Quantity: 2},
		{ProductID: 8, Quantity: 1},
	}).Return(expected, nil)

	// Act
	order, err := svc.CreateOrder(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, expected, order)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   *entity.CreateOrderRequest
		kind  ErrorKind
		field string
	}{
		{
			name:  "missing user",
			req:   &entity.CreateOrderRequest{Products: []entity.OrderProductRequest{{ID: 1, Quantity: 1}}},
			kind:  KindMissingField,
			field: "userId",
		},
		{
			name:  "no products",
			req:   &entity.CreateOrderRequest{UserID: 1},
			kind:  KindMissingField,
			field: "products",
		},
		{
			name:  "zero quantity",
			req:   &entity.CreateOrderRequest{UserID: 1, Products: []entity.OrderProductRequest{{ID: 1, Quantity: 0}}},
			kind:  KindInvalidField,
			field: "products[0].quantity",
		},
		{
			name: "bad product id",
			req: &entity.CreateOrderRequest{UserID: 1, Products: []entity.OrderProductRequest{
				{ID: 1, Quantity: 1},
				{ID: -3, Quantity: 1},
			}},
			kind:  KindInvalidField,
			field: "products[1].id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := new(mocks.MockOrderRepository)
			svc := NewOrderService(orderRepo)

			_, err := svc.CreateOrder(context.Background(), tt.req)

			svcErr := requireKind(t, err, tt.kind)
			assert.Equal(t, tt.field, svcErr.Field)
			orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_RepositoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		kind    ErrorKind
	}{
		{"unknown product", fmt.Errorf("%w: 99", repository.ErrProductNotFound), KindInvalidField},
		{"insufficient stock", fmt.Errorf("%w: product 7", repository.ErrInsufficientStock), KindInsufficientStock},
		{"database down", errors.New("connection refused"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := new(mocks.MockOrderRepository)
			svc := NewOrderService(orderRepo)
			orderRepo.On("Create", mock.Anything, int64(1), mock.Anything).Return(nil, tt.repoErr)

			order, err := svc.CreateOrder(context.Background(), &entity.CreateOrderRequest{
				UserID:   1,
				Products: []entity.OrderProductRequest{{ID: 7, Quantity: 3}},
			})

			assert.Nil(t, order)
			requireKind(t, err, tt.kind)
		})
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	orderRepo := new(mocks.MockOrderRepository)
	svc := NewOrderService(orderRepo)

	orderRepo.On("GetByID", ctx, int64(1)).Return(&entity.Order{ID: 1, UserID: 42}, nil)
	orderRepo.On("GetByID", ctx, int64(2)).Return(nil, repository.ErrOrderNotFound)

	order, err := svc.GetOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.UserID)

	_, err = svc.GetOrder(ctx, 2)
	requireKind(t, err, KindNotFound)
}
