package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Стандартные ошибки репозитория для обработки в service layer
var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrForeignKey        = errors.New("foreign key violation")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotReloaded - строка записана, но перечитать ее не удалось
	ErrNotReloaded = errors.New("product written but not reloaded")
)

// PostgreSQL SQLSTATE коды нарушений ограничений
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Delete(ctx context.Context, id int64) error
	CountProducts(ctx context.Context, id int64) (int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) (*entity.Product, error)
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetWithCategory(ctx context.Context, id int64) (*entity.Product, error)
	List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int64, error)
	Update(ctx context.Context, id int64, patch *entity.ProductPatch) (*entity.Product, error)
	Delete(ctx context.Context, id int64) error

	// IsImageReferenced проверяет, ссылается ли на картинку хоть один товар
	IsImageReferenced(ctx context.Context, imageURL string) (bool, error)
}

// OrderLine - товар и количество в оформляемом заказе
type OrderLine struct {
	ProductID int64
	Quantity  int64
}

type OrderRepository interface {
	Create(ctx context.Context, userID int64, lines []OrderLine) (*entity.Order, error)
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
}

// classify переводит ошибки драйвера в ошибки репозитория
// Работает как с TranslateError gorm, так и с сырыми pgconn.PgError
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}

	return err
}
