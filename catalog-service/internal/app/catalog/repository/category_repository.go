package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/pkg/metrics"

	"gorm.io/gorm"
)

const serviceName = "catalog-service"

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository создает новый репозиторий категорий
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create создает новую категорию
// Уникальность имени проверяется UNIQUE индексом
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "categories")
	defer func() { timer.ObserveDuration(err) }()

	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		classified := classify(err, ErrCategoryNotFound)
		if errors.Is(classified, ErrDuplicateKey) {
			return classified
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetByID получает категорию по ID
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	var category entity.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// GetAll получает все категории отсортированные по имени
// Результат кешируется в Redis на уровне service
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "categories")

	var categories []entity.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	timer.ObserveDuration(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// Update переименовывает категорию
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Category{}).
		Where("id = ?", category.ID).
		Update("name", category.Name)

	if result.Error != nil {
		classified := classify(result.Error, ErrCategoryNotFound)
		if errors.Is(classified, ErrDuplicateKey) {
			return classified
		}
		return fmt.Errorf("failed to update category: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Delete удаляет категорию
// FK products.category_id (RESTRICT) защищает от гонки с созданием товара
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&entity.Category{}, "id = ?", id)
	if result.Error != nil {
		classified := classify(result.Error, ErrCategoryNotFound)
		if errors.Is(classified, ErrForeignKey) {
			return classified
		}
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CountProducts считает товары, ссылающиеся на категорию
func (r *categoryRepository) CountProducts(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("category_id = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to check products in category: %w", err)
	}
	return count, nil
}
