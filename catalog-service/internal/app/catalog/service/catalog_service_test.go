package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Хелперы для создания тестовых данных

func newTestCategory() *entity.Category {
	return &entity.Category{
		ID:        3,
		Name:      "Kitchen",
		CreatedAt: time.Now(),
	}
}

func newTestProduct(categoryID int64) *entity.Product {
	image := "https://shop.s3.amazonaws.com/products/old.png"
	return &entity.Product{
		ID:          7,
		Name:        "Mug",
		Description: "Ceramic mug",
		Price:       15000,
		Stock:       10,
		Image:       &image,
		CategoryID:  categoryID,
		CreatedAt:   time.Now(),
	}
}

// ==================== Category Tests ====================

func TestCatalogService_CreateCategory_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	productRepo := new(mocks.MockProductRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	redisCache.On("DeleteCategories", ctx).Return(nil)

	service := NewCatalogService(categoryRepo, productRepo, redisCache)

	// Act
	category, err := service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "  Kitchen "})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", category.Name)
	categoryRepo.AssertExpectations(t)
	redisCache.AssertExpectations(t)
}

func TestCatalogService_CreateCategory_Duplicate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(repository.ErrDuplicateKey)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	// Act
	category, err := service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Kitchen"})

	// Assert
	assert.Nil(t, category)
	assert.True(t, IsKind(err, KindUniqueConstraintViolation))
	redisCache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCatalogService_CreateCategory_BlankName(t *testing.T) {
	categoryRepo := new(mocks.MockCategoryRepository)
	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), nil)

	_, err := service.CreateCategory(context.Background(), &entity.CreateCategoryRequest{Name: "   "})

	assert.True(t, IsKind(err, KindMissingField))
	categoryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_CreateCategory_CacheErrorIgnored(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	redisCache.On("DeleteCategories", ctx).Return(errors.New("redis down"))

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	category, err := service.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Kitchen"})

	require.NoError(t, err)
	assert.NotNil(t, category)
}

func TestCatalogService_GetCategory_NotFound(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	categoryRepo.On("GetByID", ctx, int64(42)).Return(nil, repository.ErrCategoryNotFound)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), nil)

	category, err := service.GetCategory(ctx, 42)

	assert.Nil(t, category)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCatalogService_GetAllCategories_CacheHit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	cached := []entity.Category{*newTestCategory()}
	redisCache.On("GetCategories", ctx).Return(cached, nil)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	// Act
	categories, err := service.GetAllCategories(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cached, categories)
	categoryRepo.AssertNotCalled(t, "GetAll", mock.Anything)
}

func TestCatalogService_GetAllCategories_CacheMiss(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	fromDB := []entity.Category{*newTestCategory()}
	redisCache.On("GetCategories", ctx).Return(nil, nil)
	categoryRepo.On("GetAll", ctx).Return(fromDB, nil)
	redisCache.On("SetCategories", ctx, fromDB, time.Hour).Return(nil)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	// Act
	categories, err := service.GetAllCategories(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fromDB, categories)
	redisCache.AssertExpectations(t)
}

func TestCatalogService_GetAllCategories_CacheErrorFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	redisCache.On("GetCategories", ctx).Return(nil, errors.New("redis down"))
	categoryRepo.On("GetAll", ctx).Return([]entity.Category{}, nil)
	redisCache.On("SetCategories", ctx, []entity.Category{}, time.Hour).Return(errors.New("redis down"))

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	categories, err := service.GetAllCategories(ctx)

	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestCatalogService_UpdateCategory_Success(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("GetByID", ctx, int64(3)).Return(newTestCategory(), nil)
	categoryRepo.On("Update", ctx, mock.MatchedBy(func(c *entity.Category) bool {
		return c.ID == 3 && c.Name == "Dining"
	})).Return(nil)
	redisCache.On("DeleteCategories", ctx).Return(nil)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	category, err := service.UpdateCategory(ctx, 3, "Dining")

	require.NoError(t, err)
	assert.Equal(t, "Dining", category.Name)
	categoryRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateCategory_NotFound(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	categoryRepo.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrCategoryNotFound)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), nil)

	_, err := service.UpdateCategory(ctx, 9, "Dining")

	assert.True(t, IsKind(err, KindNotFound))
}

func TestCatalogService_DeleteCategory_InUse(t *testing.T) {
	// Arrange
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("GetByID", ctx, int64(3)).Return(newTestCategory(), nil)
	categoryRepo.On("CountProducts", ctx, int64(3)).Return(int64(2), nil)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	// Act
	category, err := service.DeleteCategory(ctx, 3)

	// Assert
	assert.Nil(t, category)
	assert.True(t, IsKind(err, KindCategoryInUse))
	categoryRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	redisCache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

func TestCatalogService_DeleteCategory_Success(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	redisCache := new(mocks.MockRedisCache)

	categoryRepo.On("GetByID", ctx, int64(3)).Return(newTestCategory(), nil)
	categoryRepo.On("CountProducts", ctx, int64(3)).Return(int64(0), nil)
	categoryRepo.On("Delete", ctx, int64(3)).Return(nil)
	redisCache.On("DeleteCategories", ctx).Return(nil)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), redisCache)

	category, err := service.DeleteCategory(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(3), category.ID)
	redisCache.AssertExpectations(t)
}

func TestCatalogService_DeleteCategory_RaceWithNewProduct(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)

	categoryRepo.On("GetByID", ctx, int64(3)).Return(newTestCategory(), nil)
	categoryRepo.On("CountProducts", ctx, int64(3)).Return(int64(0), nil)
	categoryRepo.On("Delete", ctx, int64(3)).Return(repository.ErrForeignKey)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), nil)

	_, err := service.DeleteCategory(ctx, 3)

	assert.True(t, IsKind(err, KindCategoryInUse))
}

func TestCatalogService_DeleteCategory_NotFound(t *testing.T) {
	ctx := context.Background()
	categoryRepo := new(mocks.MockCategoryRepository)
	categoryRepo.On("GetByID", ctx, int64(5)).Return(nil, repository.ErrCategoryNotFound)

	service := NewCatalogService(categoryRepo, new(mocks.MockProductRepository), nil)

	_, err := service.DeleteCategory(ctx, 5)

	assert.True(t, IsKind(err, KindNotFound))
}

// ==================== Product Read Tests ====================

func TestCatalogService_GetProduct_NotFound(t *testing.T) {
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	productRepo.On("GetWithCategory", ctx, int64(7)).Return(nil, repository.ErrProductNotFound)

	service := NewCatalogService(new(mocks.MockCategoryRepository), productRepo, nil)

	product, err := service.GetProduct(ctx, 7)

	assert.Nil(t, product)
	assert.True(t, IsKind(err, KindProductNotFound))
}

func TestCatalogService_ListProducts(t *testing.T) {
	ctx := context.Background()
	productRepo := new(mocks.MockProductRepository)
	filter := entity.ProductFilter{Query: "mug", Limit: 10}
	productRepo.On("List", ctx, filter).Return([]entity.Product{*newTestProduct(3)}, int64(11), nil)

	service := NewCatalogService(new(mocks.MockCategoryRepository), productRepo, nil)

	products, total, err := service.ListProducts(ctx, filter)

	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, int64(11), total)
}

// ==================== ParseID Tests ====================

func TestParseID(t *testing.T) {
	id, err := ParseID("id", " 7 ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = ParseID("id", "")
	assert.True(t, IsKind(err, KindMissingField))

	for _, raw := range []string{"abc", "0", "-3", "1.5"} {
		_, err = ParseID("category", raw)
		assert.True(t, IsKind(err, KindInvalidField), raw)
	}
}
