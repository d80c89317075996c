package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// OrderService оформляет заказы
// Цены берутся из БД, присланные клиентом цены игнорируются
type OrderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// CreateOrder создает заказ и списывает остатки в одной транзакции
func (s *OrderService) CreateOrder(ctx context.Context, req *entity.CreateOrderRequest) (*entity.Order, error) {
	if req.UserID <= 0 {
		return nil, MissingField("userId")
	}
	if len(req.Products) == 0 {
		return nil, MissingField("products")
	}

	lines := make([]repository.OrderLine, 0, len(req.Products))
	for i, item := range req.Products {
		if item.ID <= 0 {
			return nil, InvalidField(fmt.Sprintf("products[%d].id", i), "must be a positive id")
		}
		if item.Quantity <= 0 {
			return nil, InvalidField(fmt.Sprintf("products[%d].quantity", i), "must be positive")
		}
		lines = append(lines, repository.OrderLine{ProductID: item.ID, Quantity: item.Quantity})
	}

	order, err := s.orderRepo.Create(ctx, req.UserID, lines)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, InvalidField("products", err.Error())
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, InsufficientStock(err)
		}
		return nil, Internal(fmt.Errorf("failed to create order: %w", err))
	}

	metrics.OrdersCreated.Inc()
	logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Float64("total", order.Total).
		Int("items", len(order.OrderItems)).
		Msg("order created")

	return order, nil
}

// GetOrder получает заказ с позициями
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NotFound("order", id)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}
