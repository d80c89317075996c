package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPage  = 1
	maxPageLimit = 100
)

// CatalogHandler обрабатывает HTTP запросы для каталога с использованием Gin
type CatalogHandler struct {
	catalogService service.CatalogServiceInterface
	products       service.ProductPipelineInterface
	validator      *validator.Validate
	maxUploadSize  int64
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(
	catalogService service.CatalogServiceInterface,
	products service.ProductPipelineInterface,
	maxUploadSize int64,
) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		products:       products,
		validator:      newValidator(),
		maxUploadSize:  maxUploadSize,
	}
}

// === PRODUCTS HANDLERS ===

// ListProducts обрабатывает GET /products
// Фильтры: q (поиск по имени и описанию), category; пагинация: page, limit
// Общее количество отдается в заголовке X-Total-Count
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	filter, err := parseProductFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	products, total, err := h.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, products)
}

// GetProduct обрабатывает GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := service.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct обрабатывает POST /products (JSON или multipart с файлом image)
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	form, err := parseProductForm(c, h.maxUploadSize)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct обрабатывает PUT /products, id передается в теле
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	form, err := parseProductForm(c, h.maxUploadSize)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /products с телом {"id": ...}
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := h.bindID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.ProductMessageResponse{
		Message: "product deleted",
		Product: product,
	})
}

// === CATEGORIES HANDLERS ===

// GetAllCategories обрабатывает GET /categories (с кешированием)
func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.catalogService.GetAllCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if categories == nil {
		categories = []entity.Category{}
	}

	c.JSON(http.StatusOK, categories)
}

// GetCategory обрабатывает GET /categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, err := service.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// CreateCategory обрабатывает POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if err := h.bind(c, &req); err != nil {
		respondError(c, err)
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// UpdateCategory обрабатывает PUT /categories с телом {"id", "name"}
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req entity.UpdateCategoryRequest
	if err := h.bind(c, &req); err != nil {
		respondError(c, err)
		return
	}

	id, err := service.ParseID("id", req.ID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /categories с телом {"id": ...}
// Категорию с товарами удалить нельзя
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, err := h.bindID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	category, err := h.catalogService.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.CategoryMessageResponse{
		Message:  "category deleted",
		Category: category,
	})
}

// === HELPERS ===

// bind читает JSON тело и проверяет его validator'ом
func (h *CatalogHandler) bind(c *gin.Context, dst interface{}) error {
	return bindJSON(c, h.validator, dst)
}

func (h *CatalogHandler) bindID(c *gin.Context) (int64, error) {
	var req entity.IDRequest
	if err := h.bind(c, &req); err != nil {
		return 0, err
	}
	return service.ParseID("id", req.ID.String())
}

func bindJSON(c *gin.Context, v *validator.Validate, dst interface{}) error {
	if ct := c.ContentType(); ct != "" && !strings.EqualFold(ct, contentTypeJSON) {
		return service.UnsupportedMediaType(ct)
	}
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		return bodyError(err)
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func parseProductFilter(c *gin.Context) (entity.ProductFilter, error) {
	filter := entity.ProductFilter{Query: c.Query("q")}

	if raw, ok := c.GetQuery("category"); ok && raw != "" {
		categoryID, err := service.ParseID("category", raw)
		if err != nil {
			return filter, err
		}
		filter.CategoryID = &categoryID
	}

	rawLimit, hasLimit := c.GetQuery("limit")
	if !hasLimit {
		return filter, nil
	}
	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit <= 0 || limit > maxPageLimit {
		return filter, service.InvalidField("limit", "must be between 1 and 100")
	}

	page := defaultPage
	if rawPage, ok := c.GetQuery("page"); ok {
		page, err = strconv.Atoi(rawPage)
		if err != nil || page <= 0 {
			return filter, service.InvalidField("page", "must be a positive integer")
		}
	}

	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	return filter, nil
}
