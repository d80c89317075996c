package entity

import (
	"encoding/json"
	"errors"
	"strings"
)

// NumberOrString принимает в JSON как число, так и строку ("3" и 3)
// и хранит исходный текст для последующей проверки
type NumberOrString string

func (n *NumberOrString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberOrString(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errors.New("expected number or string")
	}
	*n = NumberOrString(num.String())
	return nil
}

func (n NumberOrString) String() string {
	return string(n)
}

// === CATEGORIES ===

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type UpdateCategoryRequest struct {
	ID   NumberOrString `json:"id" validate:"required"`
	Name string         `json:"name" validate:"required,max=100"`
}

// IDRequest - тело DELETE запросов ({"id": ...})
type IDRequest struct {
	ID NumberOrString `json:"id" validate:"required"`
}

// === PRODUCTS ===

// ImageInputKind - что запрос хочет сделать с картинкой товара
type ImageInputKind int

const (
	// ImageAbsent - поле картинки не передано
	ImageAbsent ImageInputKind = iota
	// ImageFile - загружен файл
	ImageFile
	// ImageURL - передана готовая ссылка
	ImageURL
	// ImageCleared - передана пустая строка или null
	ImageCleared
)

func (k ImageInputKind) String() string {
	switch k {
	case ImageFile:
		return "file"
	case ImageURL:
		return "url"
	case ImageCleared:
		return "cleared"
	default:
		return "absent"
	}
}

// UploadedFile - файл из multipart запроса, прочитанный в память
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ImageInput struct {
	Kind ImageInputKind
	URL  string
	File *UploadedFile
}

// ProductForm - поля запроса создания/обновления товара после разбора тела
// Одинаково заполняется из JSON и multipart; nil означает "поле не передано"
type ProductForm struct {
	ID          *string
	Name        *string
	Description *string
	Price       *string
	Stock       *string
	Category    *string
	Image       ImageInput
}

// ProductChanges - проверенный набор полей товара
// Для обновления заполнены только переданные поля
type ProductChanges struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int64
	CategoryID  *int64
	Image       ImageInput
}

// Empty сообщает, что обновлять нечего
func (c *ProductChanges) Empty() bool {
	return c.Name == nil && c.Description == nil && c.Price == nil &&
		c.Stock == nil && c.CategoryID == nil && c.Image.Kind == ImageAbsent
}

// ProductPatch - частичное обновление строки товара
// ImageSet отличает "не менять" от "установить NULL" (ImageSet=true, Image=nil)
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int64
	CategoryID  *int64
	ImageSet    bool
	Image       *string
}

// ProductFilter - параметры списка товаров
type ProductFilter struct {
	Query      string
	CategoryID *int64
	Limit      int
	Offset     int
}

// === ORDERS ===

type OrderProductRequest struct {
	ID       int64 `json:"id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	UserID   int64                 `json:"userId" validate:"required,gt=0"`
	Products []OrderProductRequest `json:"products" validate:"required,min=1,dive"`
}

// === RESPONSES ===

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ProductMessageResponse struct {
	Message string   `json:"message"`
	Product *Product `json:"product"`
}

type CategoryMessageResponse struct {
	Message  string    `json:"message"`
	Category *Category `json:"category"`
}
