package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/pkg/blobstore"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ProductFlowTestSuite прогоняет жизненный цикл товара через HTTP
// на in-memory SQLite и локальном хранилище картинок
type ProductFlowTestSuite struct {
	suite.Suite
	env   *testEnv
	store *blobstore.LocalStore
	db    *gorm.DB
}

func TestProductFlowSuite(t *testing.T) {
	suite.Run(t, new(ProductFlowTestSuite))
}

func (s *ProductFlowTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	// одна in-memory база на все запросы
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(&entity.Category{}, &entity.Product{}, &entity.Order{}, &entity.OrderItem{}))
	s.db = db

	s.store, err = blobstore.NewLocalStore(blobstore.LocalConfig{Dir: s.T().TempDir()})
	s.Require().NoError(err)

	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)

	catalogService := service.NewCatalogService(categoryRepo, productRepo, nil)
	pipeline := service.NewProductPipeline(categoryRepo, productRepo, s.store, nil, 5*time.Second)
	orderService := service.NewOrderService(repository.NewOrderRepository(db))

	s.env = &testEnv{}
	s.env.router = SetupRoutes(
		NewCatalogHandler(catalogService, pipeline, 1<<20),
		NewOrderHandler(orderService),
		RouterOptions{
			RequestTimeout:  5 * time.Second,
			MaxUploadSize:   1 << 20,
			UploadDir:       s.store.Root(),
			UploadURLPrefix: s.store.URLPrefix(),
		},
	)
}

func (s *ProductFlowTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *ProductFlowTestSuite) createCategory(name string) int64 {
	w := s.env.doJSON(http.MethodPost, "/categories", fmt.Sprintf(`{"name":%q}`, name))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var category entity.Category
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &category))
	return category.ID
}

func (s *ProductFlowTestSuite) decodeProduct(body []byte) *entity.Product {
	var product entity.Product
	s.Require().NoError(json.Unmarshal(body, &product))
	return &product
}

// blobPath переводит публичный URL локального хранилища в путь на диске
func (s *ProductFlowTestSuite) blobPath(url string) string {
	key, ok := s.store.KeyFromURL(url)
	s.Require().True(ok, url)
	return filepath.Join(s.store.Root(), filepath.FromSlash(key))
}

func (s *ProductFlowTestSuite) storedBlobs() []blobstore.Object {
	objects, err := s.store.List(context.Background(), blobstore.ProductPrefix)
	s.Require().NoError(err)
	return objects
}

func pngPayload(seed byte) []byte {
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...)
	data[len(data)-1] = seed
	return data
}

// ===================== Product lifecycle =====================

func (s *ProductFlowTestSuite) TestProductImageLifecycle() {
	t := s.T()
	categoryID := s.createCategory("Kitchen")

	// create с загрузкой файла
	body, contentType := buildMultipart(t,
		multipartPart{name: "name", value: "Mug"},
		multipartPart{name: "description", value: "Ceramic mug"},
		multipartPart{name: "price", value: "15000"},
		multipartPart{name: "stock", value: "10"},
		multipartPart{name: "category", value: fmt.Sprint(categoryID)},
		multipartPart{name: "image", file: pngPayload(1), filename: "Mug.PNG", contentType: "image/png"},
	)
	w := s.env.do(http.MethodPost, "/products", contentType, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	created := s.decodeProduct(w.Body.Bytes())
	s.Equal(categoryID, created.CategoryID)
	s.Require().NotNil(created.Category)
	s.Equal("Kitchen", created.Category.Name)
	firstImage := created.ImageURL()
	s.True(strings.HasPrefix(firstImage, "/uploads/products/"), firstImage)
	s.True(strings.HasSuffix(firstImage, ".png"), firstImage)
	s.FileExists(s.blobPath(firstImage))

	// загруженный файл раздается статикой
	s.Equal(http.StatusOK, s.env.do(http.MethodGet, firstImage, "", nil).Code)

	// замена картинки: старый файл удаляется после записи
	body, contentType = buildMultipart(t,
		multipartPart{name: "id", value: fmt.Sprint(created.ID)},
		multipartPart{name: "image", file: pngPayload(2), filename: "new.png", contentType: "image/png"},
	)
	w = s.env.do(http.MethodPut, "/products", contentType, body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	replaced := s.decodeProduct(w.Body.Bytes())
	secondImage := replaced.ImageURL()
	s.NotEqual(firstImage, secondImage)
	s.NoFileExists(s.blobPath(firstImage))
	s.FileExists(s.blobPath(secondImage))
	s.Len(s.storedBlobs(), 1)

	// частичное обновление идемпотентно и не трогает картинку
	for i := 0; i < 2; i++ {
		w = s.env.doJSON(http.MethodPut, "/products", fmt.Sprintf(`{"id":%d,"stock":5}`, created.ID))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		partial := s.decodeProduct(w.Body.Bytes())
		s.Equal(int64(5), partial.Stock)
		s.Equal("Mug", partial.Name)
		s.Equal(15000.0, partial.Price)
		s.Equal(secondImage, partial.ImageURL())
	}
	s.FileExists(s.blobPath(secondImage))

	// пустая строка очищает картинку и удаляет файл
	w = s.env.doJSON(http.MethodPut, "/products", fmt.Sprintf(`{"id":"%d","image":""}`, created.ID))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Nil(s.decodeProduct(w.Body.Bytes()).Image)
	s.NoFileExists(s.blobPath(secondImage))
	s.Empty(s.storedBlobs())

	// удаление товара
	w = s.env.doJSON(http.MethodDelete, "/products", fmt.Sprintf(`{"id":%d}`, created.ID))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(http.StatusNotFound, s.env.do(http.MethodGet, fmt.Sprintf("/products/%d", created.ID), "", nil).Code)

	// категория без товаров удаляется
	w = s.env.doJSON(http.MethodDelete, "/categories", fmt.Sprintf(`{"id":%d}`, categoryID))
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *ProductFlowTestSuite) TestDeleteProductRemovesOwnedImage() {
	categoryID := s.createCategory("Garden")

	body, contentType := buildMultipart(s.T(),
		multipartPart{name: "name", value: "Pot"},
		multipartPart{name: "description", value: "Clay pot"},
		multipartPart{name: "price", value: "0"},
		multipartPart{name: "stock", value: "0"},
		multipartPart{name: "category", value: fmt.Sprint(categoryID)},
		multipartPart{name: "image", file: pngPayload(3), filename: "pot.png", contentType: "image/png"},
	)
	w := s.env.do(http.MethodPost, "/products", contentType, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	product := s.decodeProduct(w.Body.Bytes())

	// категорию с товаром удалить нельзя
	w = s.env.doJSON(http.MethodDelete, "/categories", fmt.Sprintf(`{"id":%d}`, categoryID))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.env.doJSON(http.MethodDelete, "/products", fmt.Sprintf(`{"id":%d}`, product.ID))
	s.Require().Equal(http.StatusOK, w.Code)
	s.NoFileExists(s.blobPath(product.ImageURL()))
}

func (s *ProductFlowTestSuite) TestCreateKeepsUploadWhenReloadFails() {
	categoryID := s.createCategory("Bath")

	// первый SELECT после INSERT товара падает
	var failReload atomic.Bool
	s.Require().NoError(s.db.Callback().Create().After("gorm:create").
		Register("test:arm_reload_failure", func(tx *gorm.DB) {
			if tx.Statement.Table == "products" {
				failReload.Store(true)
			}
		}))
	s.Require().NoError(s.db.Callback().Query().Before("gorm:query").
		Register("test:fail_reload", func(tx *gorm.DB) {
			if failReload.CompareAndSwap(true, false) {
				_ = tx.AddError(errors.New("connection reset"))
			}
		}))

	body, contentType := buildMultipart(s.T(),
		multipartPart{name: "name", value: "Towel"},
		multipartPart{name: "description", value: "Cotton towel"},
		multipartPart{name: "price", value: "900"},
		multipartPart{name: "stock", value: "3"},
		multipartPart{name: "category", value: fmt.Sprint(categoryID)},
		multipartPart{name: "image", file: pngPayload(6), filename: "towel.png", contentType: "image/png"},
	)
	w := s.env.do(http.MethodPost, "/products", contentType, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	product := s.decodeProduct(w.Body.Bytes())
	s.False(failReload.Load())

	var stored entity.Product
	s.Require().NoError(s.db.First(&stored, "id = ?", product.ID).Error)
	s.Equal(product.ImageURL(), stored.ImageURL())
	s.FileExists(s.blobPath(stored.ImageURL()))
}

func (s *ProductFlowTestSuite) TestSharedImageSurvivesOtherProductDelete() {
	categoryID := s.createCategory("Office")

	body, contentType := buildMultipart(s.T(),
		multipartPart{name: "name", value: "Lamp"},
		multipartPart{name: "description", value: "Desk lamp"},
		multipartPart{name: "price", value: "3000"},
		multipartPart{name: "stock", value: "2"},
		multipartPart{name: "category", value: fmt.Sprint(categoryID)},
		multipartPart{name: "image", file: pngPayload(5), filename: "lamp.png", contentType: "image/png"},
	)
	w := s.env.do(http.MethodPost, "/products", contentType, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	first := s.decodeProduct(w.Body.Bytes())

	// второй товар ссылается на ту же картинку
	w = s.env.doJSON(http.MethodPost, "/products", fmt.Sprintf(
		`{"name":"Lamp copy","description":"d","price":1,"stock":1,"category":%d,"image":%q}`,
		categoryID, first.ImageURL()))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	second := s.decodeProduct(w.Body.Bytes())

	w = s.env.doJSON(http.MethodDelete, "/products", fmt.Sprintf(`{"id":%d}`, second.ID))
	s.Require().Equal(http.StatusOK, w.Code)
	s.FileExists(s.blobPath(first.ImageURL()))

	// последний владелец удаляет объект
	w = s.env.doJSON(http.MethodDelete, "/products", fmt.Sprintf(`{"id":%d}`, first.ID))
	s.Require().Equal(http.StatusOK, w.Code)
	s.NoFileExists(s.blobPath(first.ImageURL()))
}

func (s *ProductFlowTestSuite) TestSearchTreatsWildcardsLiterally() {
	categoryID := s.createCategory("Sale")

	for _, name := range []string{"Mug 50% off", "Mug 500"} {
		w := s.env.doJSON(http.MethodPost, "/products", fmt.Sprintf(
			`{"name":%q,"description":"d","price":1,"stock":1,"category":%d,"image":"https://cdn.example.com/a.png"}`,
			name, categoryID))
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.env.do(http.MethodGet, "/products?q=50%25", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("1", w.Header().Get("X-Total-Count"))

	w = s.env.do(http.MethodGet, "/products?q=mug_5", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("0", w.Header().Get("X-Total-Count"))
}

func (s *ProductFlowTestSuite) TestCreateWithExternalURLAndUnknownCategory() {
	categoryID := s.createCategory("Kitchen")

	w := s.env.doJSON(http.MethodPost, "/products", fmt.Sprintf(
		`{"name":"Mug","description":"d","price":15000,"stock":10,"category":"%d","image":"https://cdn.example.com/a.png"}`,
		categoryID))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("https://cdn.example.com/a.png", s.decodeProduct(w.Body.Bytes()).ImageURL())

	// несуществующая категория: 400 и ни одного загруженного файла
	body, contentType := buildMultipart(s.T(),
		multipartPart{name: "name", value: "Mug"},
		multipartPart{name: "description", value: "d"},
		multipartPart{name: "price", value: "1"},
		multipartPart{name: "stock", value: "1"},
		multipartPart{name: "category", value: "999"},
		multipartPart{name: "image", file: pngPayload(4), filename: "a.png", contentType: "image/png"},
	)
	w = s.env.do(http.MethodPost, "/products", contentType, body)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.storedBlobs())

	// список: новые первыми, общее количество в заголовке
	w = s.env.do(http.MethodGet, "/products?q=MUG", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("1", w.Header().Get("X-Total-Count"))
}
