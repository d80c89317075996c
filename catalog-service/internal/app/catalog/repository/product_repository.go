package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/pkg/metrics"

	"gorm.io/gorm"
)

// likeEscaper экранирует спецсимволы LIKE в поисковой строке
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает новый товар и возвращает его вместе с категорией
func (r *productRepository) Create(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "products")
	err := r.db.WithContext(ctx).Omit("Category").Create(product).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, wrapWriteError("create product", err)
	}

	return r.reload(ctx, product.ID)
}

// GetByID получает товар по ID
func (r *productRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetWithCategory получает товар с информацией о категории
func (r *productRepository) GetWithCategory(ctx context.Context, id int64) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// List возвращает страницу товаров (новые первыми) и общее количество по фильтру
func (r *productRepository) List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "products")

	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		timer.ObserveDuration(err)
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := query.Preload("Category").Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}

	products := make([]entity.Product, 0)
	err := page.Find(&products).Error
	timer.ObserveDuration(err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get products: %w", err)
	}

	return products, total, nil
}

// Update применяет только переданные поля и возвращает обновленный товар
func (r *productRepository) Update(ctx context.Context, id int64, patch *entity.ProductPatch) (*entity.Product, error) {
	fields := patchColumns(patch)
	if len(fields) == 0 {
		return r.GetWithCategory(ctx, id)
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "products")
	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ?", id).
		Updates(fields)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return nil, wrapWriteError("update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	return r.reload(ctx, id)
}

// reload перечитывает уже закоммиченную строку
// Ошибка оборачивается в ErrNotReloaded: вызывающий не должен считать запись проваленной
func (r *productRepository) reload(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := r.GetWithCategory(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReloaded, err)
	}
	return product, nil
}

// IsImageReferenced проверяет, ссылается ли на картинку хоть один товар
func (r *productRepository) IsImageReferenced(ctx context.Context, imageURL string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("image = ?", imageURL).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check image references: %w", err)
	}
	return count > 0, nil
}

// Delete удаляет товар
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, "products")
	result := r.db.WithContext(ctx).Delete(&entity.Product{}, "id = ?", id)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// patchColumns строит map колонок; nil значение в map записывает NULL
func patchColumns(patch *entity.ProductPatch) map[string]interface{} {
	fields := make(map[string]interface{})
	if patch == nil {
		return fields
	}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Price != nil {
		fields["price"] = *patch.Price
	}
	if patch.Stock != nil {
		fields["stock"] = *patch.Stock
	}
	if patch.CategoryID != nil {
		fields["category_id"] = *patch.CategoryID
	}
	if patch.ImageSet {
		if patch.Image != nil {
			fields["image"] = *patch.Image
		} else {
			fields["image"] = nil
		}
	}
	return fields
}

// wrapWriteError оставляет классифицированные ошибки как есть, остальные оборачивает
func wrapWriteError(op string, err error) error {
	classified := classify(err, ErrProductNotFound)
	if errors.Is(classified, ErrDuplicateKey) || errors.Is(classified, ErrForeignKey) || errors.Is(classified, ErrProductNotFound) {
		return classified
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
