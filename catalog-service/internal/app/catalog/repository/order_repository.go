package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderRepository оформляет заказы через GORM
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создает новый репозиторий заказов
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create оформляет заказ в одной транзакции:
// блокирует строки товаров (FOR UPDATE), проверяет остатки, фиксирует цены из БД,
// создает заказ с позициями и списывает остатки
func (r *orderRepository) Create(ctx context.Context, userID int64, lines []OrderLine) (*entity.Order, error) {
	merged := mergeLines(lines)
	ids := make([]int64, 0, len(merged))
	for _, line := range merged {
		ids = append(ids, line.ProductID)
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "orders")
	var order *entity.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []entity.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&products).Error; err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}

		byID := make(map[int64]entity.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		total := decimal.Zero
		items := make([]entity.OrderItem, 0, len(merged))
		for _, line := range merged {
			product, ok := byID[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", ErrProductNotFound, line.ProductID)
			}
			if product.Stock < line.Quantity {
				return fmt.Errorf("%w: product %d has %d, requested %d",
					ErrInsufficientStock, product.ID, product.Stock, line.Quantity)
			}

			price := decimal.NewFromFloat(product.Price)
			total = total.Add(price.Mul(decimal.NewFromInt(line.Quantity)))
			items = append(items, entity.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
		}

		order = &entity.Order{
			UserID:     userID,
			Total:      total.Round(2).InexactFloat64(),
			OrderItems: items,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range merged {
			if err := tx.Model(&entity.Product{}).
				Where("id = ?", line.ProductID).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
		}

		return nil
	})
	timer.ObserveDuration(err)

	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetByID получает заказ с позициями
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).Preload("OrderItems").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// mergeLines складывает количества повторяющихся товаров, порядок - по ID
func mergeLines(lines []OrderLine) []OrderLine {
	quantities := make(map[int64]int64, len(lines))
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}

	merged := make([]OrderLine, 0, len(quantities))
	for id, qty := range quantities {
		merged = append(merged, OrderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}
