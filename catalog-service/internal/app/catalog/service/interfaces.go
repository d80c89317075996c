package service

import (
	"context"
	"io"

	"storefront/catalog-service/internal/app/catalog/entity"
)

// ImageStore - часть blobstore.Store, которая нужна записи товаров
type ImageStore interface {
	Backend() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	DeleteByURL(ctx context.Context, url string)
	Owns(url string) bool
}

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id int64) (*entity.Category, error)

	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	ListProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int64, error)
}

type ProductPipelineInterface interface {
	Create(ctx context.Context, form *entity.ProductForm) (*entity.Product, error)
	Update(ctx context.Context, form *entity.ProductForm) (*entity.Product, error)
	Delete(ctx context.Context, id int64) (*entity.Product, error)
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req *entity.CreateOrderRequest) (*entity.Order, error)
	GetOrder(ctx context.Context, id int64) (*entity.Order, error)
}
