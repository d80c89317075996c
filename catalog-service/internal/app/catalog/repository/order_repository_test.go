package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// OrderRepositoryTestSuite тестовый suite для оформления заказов
type OrderRepositoryTestSuite struct {
	dbSuite
	repo OrderRepository
}

func TestOrderRepositorySuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryTestSuite))
}

func (s *OrderRepositoryTestSuite) SetupTest() {
	s.dbSuite.SetupTest()
	s.repo = NewOrderRepository(s.db)
}

func (s *OrderRepositoryTestSuite) expectLockedProducts(rows *sqlmock.Rows) {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id IN ($1,$2) ORDER BY id FOR UPDATE`)).
		WithArgs(int64(7), int64(8)).
		WillReturnRows(rows)
}

// ===================== Create Tests =====================

func (s *OrderRepositoryTestSuite) TestCreate_Success() {
	ctx := context.Background()
	now := time.Now()

	s.mock.ExpectBegin()
	s.expectLockedProducts(sqlmock.NewRows(productColumns).
		AddRow(7, "Mug", "", 12.5, 10, nil, 3, now).
		AddRow(8, "Plate", "", 4.1, 3, nil, 3, now))
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1 WHERE id = $2`)).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1 WHERE id = $2`)).
		WithArgs(int64(2), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	order, err := s.repo.Create(ctx, 42, []OrderLine{
		{ProductID: 8, Quantity: 2},
		{ProductID: 7, Quantity: 1},
		{ProductID: 7, Quantity: 2},
	})

	// Assert
	s.Require().NoError(err)
	s.Equal(int64(1), order.ID)
	s.Equal(int64(42), order.UserID)
	s.Equal(45.7, order.Total)
	s.Require().Len(order.OrderItems, 2)
	s.Equal(int64(7), order.OrderItems[0].ProductID)
	s.Equal(int64(3), order.OrderItems[0].Quantity)
	s.Equal(12.5, order.OrderItems[0].Price)
}

func (s *OrderRepositoryTestSuite) TestCreate_InsufficientStock() {
	now := time.Now()

	s.mock.ExpectBegin()
	s.expectLockedProducts(sqlmock.NewRows(productColumns).
		AddRow(7, "Mug", "", 12.5, 10, nil, 3, now).
		AddRow(8, "Plate", "", 4.1, 1, nil, 3, now))
	s.mock.ExpectRollback()

	order, err := s.repo.Create(context.Background(), 42, []OrderLine{
		{ProductID: 7, Quantity: 1},
		{ProductID: 8, Quantity: 2},
	})

	s.Nil(order)
	s.ErrorIs(err, ErrInsufficientStock)
	s.Contains(err.Error(), "product 8")
}

func (s *OrderRepositoryTestSuite) TestCreate_UnknownProduct() {
	now := time.Now()

	s.mock.ExpectBegin()
	s.expectLockedProducts(sqlmock.NewRows(productColumns).
		AddRow(7, "Mug", "", 12.5, 10, nil, 3, now))
	s.mock.ExpectRollback()

	_, err := s.repo.Create(context.Background(), 42, []OrderLine{
		{ProductID: 7, Quantity: 1},
		{ProductID: 8, Quantity: 1},
	})

	s.ErrorIs(err, ErrProductNotFound)
}

// ===================== GetByID Tests =====================

func (s *OrderRepositoryTestSuite) TestGetByID_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "created_at"}))

	order, err := s.repo.GetByID(context.Background(), 404)

	s.Nil(order)
	s.ErrorIs(err, ErrOrderNotFound)
}

// ===================== mergeLines Tests =====================

func TestMergeLines(t *testing.T) {
	merged := mergeLines([]OrderLine{
		{ProductID: 9, Quantity: 1},
		{ProductID: 2, Quantity: 4},
		{ProductID: 9, Quantity: 2},
	})

	assert.Equal(t, []OrderLine{
		{ProductID: 2, Quantity: 4},
		{ProductID: 9, Quantity: 3},
	}, merged)
}
