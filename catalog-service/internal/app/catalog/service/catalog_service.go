package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/logger"
)

const categoriesCacheTTL = time.Hour

// CatalogService обрабатывает категории и чтение товаров
// Координирует работу репозиториев и Redis кеша
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        util.RedisCache // может быть nil - тогда всегда читаем из БД
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cache util.RedisCache,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
	}
}

// === CATEGORIES ===

// CreateCategory создает новую категорию и инвалидирует кеш
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, MissingField("name")
	}

	category := &entity.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, UniqueViolation(fmt.Sprintf("category %q already exists", name), err)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// GetCategory получает категорию по ID из PostgreSQL
// Не использует кеш, так как запрашивается конкретная категория
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, NotFound("category", id)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetAllCategories получает все категории с кешированием в Redis
// Ошибки кеша не критичны: логируем и идем в БД
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	if s.cache != nil {
		categories, err := s.cache.GetCategories(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read categories cache")
		} else if categories != nil {
			return categories, nil
		}
	}

	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	if categories == nil {
		categories = []entity.Category{}
	}

	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories, categoriesCacheTTL); err != nil {
			logger.Warn().Err(err).Msg("failed to cache categories")
		}
	}

	return categories, nil
}

// UpdateCategory переименовывает категорию и инвалидирует кеш
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name string) (*entity.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, MissingField("name")
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, NotFound("category", id)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	category.Name = name
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, NotFound("category", id)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, UniqueViolation(fmt.Sprintf("category %q already exists", name), err)
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// DeleteCategory удаляет категорию, если на нее не ссылается ни один товар
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, NotFound("category", id)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	count, err := s.categoryRepo.CountProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, CategoryInUse(id, count)
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, NotFound("category", id)
		case errors.Is(err, repository.ErrForeignKey):
			// товар появился между проверкой и удалением
			return nil, CategoryInUse(id, 1)
		}
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

func (s *CatalogService) invalidateCategories(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate categories cache")
	}
}

// === PRODUCTS ===

// GetProduct получает товар по ID с информацией о категории
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.productRepo.GetWithCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ProductNotFound(id)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts возвращает страницу товаров и общее количество
func (s *CatalogService) ListProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int64, error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// ParseID разбирает целочисленный идентификатор из пути, формы или JSON
func ParseID(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MissingField(field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, InvalidField(field, fmt.Sprintf("%q is not a valid id", raw))
	}
	return id, nil
}

// publishEvent сериализует и отправляет событие; ошибки только логируются
func publishEvent(ctx context.Context, publisher util.MessagePublisher, event entity.ProductEvent) {
	if publisher == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", event.EventType).Msg("failed to marshal product event")
		return
	}

	if err := publisher.PublishMessage(ctx, strconv.FormatInt(event.ProductID, 10), data); err != nil {
		logger.Warn().
			Err(err).
			Str("event_type", event.EventType).
			Int64("product_id", event.ProductID).
			Msg("failed to publish product event")
	}
}
