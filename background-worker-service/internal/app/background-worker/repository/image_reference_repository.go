package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// imageReferenceRepository читает таблицу products каталога через GORM
// Схемой владеет Catalog Service, worker только читает
type imageReferenceRepository struct {
	db *gorm.DB
}

// NewImageReferenceRepository создает репозиторий ссылок на картинки
func NewImageReferenceRepository(db *gorm.DB) ImageReferenceRepository {
	return &imageReferenceRepository{db: db}
}

// ListImageURLs возвращает ссылки всех товаров, у которых есть картинка
func (r *imageReferenceRepository) ListImageURLs(ctx context.Context) ([]string, error) {
	var urls []string

	result := r.db.WithContext(ctx).
		Table("products").
		Where("image IS NOT NULL AND image <> ''").
		Pluck("image", &urls)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list image urls: %w", result.Error)
	}

	return urls, nil
}

// IsReferenced проверяет ссылку перед удалением по событию:
// тот же URL мог быть назначен другому товару
func (r *imageReferenceRepository) IsReferenced(ctx context.Context, imageURL string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Table("products").
		Where("image = ?", imageURL).
		Count(&count)

	if result.Error != nil {
		return false, fmt.Errorf("failed to check image reference: %w", result.Error)
	}

	return count > 0, nil
}
