package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
)

type writeMode int

const (
	modeCreate writeMode = iota
	modeUpdate
)

// максимум для numeric(12,2)
var maxPrice = decimal.RequireFromString("9999999999.99")

// validateForm проверяет поля запроса до любых обращений к БД и хранилищу
// Для создания все поля обязательны, для обновления - только id
func validateForm(form *entity.ProductForm, mode writeMode, store ImageStore) (int64, *entity.ProductChanges, error) {
	var id int64
	if mode == modeUpdate {
		if form.ID == nil {
			return 0, nil, MissingField("id")
		}
		parsed, err := ParseID("id", *form.ID)
		if err != nil {
			return 0, nil, err
		}
		id = parsed
	}

	changes := &entity.ProductChanges{}
	var err error

	if changes.Name, err = textField("name", form.Name, mode); err != nil {
		return 0, nil, err
	}
	if changes.Description, err = textField("description", form.Description, mode); err != nil {
		return 0, nil, err
	}

	if form.Price != nil {
		price, err := parsePrice(*form.Price)
		if err != nil {
			return 0, nil, err
		}
		changes.Price = &price
	} else if mode == modeCreate {
		return 0, nil, MissingField("price")
	}

	if form.Stock != nil {
		stock, err := parseStock(*form.Stock)
		if err != nil {
			return 0, nil, err
		}
		changes.Stock = &stock
	} else if mode == modeCreate {
		return 0, nil, MissingField("stock")
	}

	if form.Category != nil {
		categoryID, err := ParseID("category", *form.Category)
		if err != nil {
			return 0, nil, err
		}
		changes.CategoryID = &categoryID
	} else if mode == modeCreate {
		return 0, nil, MissingField("category")
	}

	image, err := validateImage(form.Image, mode, store)
	if err != nil {
		return 0, nil, err
	}
	changes.Image = image

	return id, changes, nil
}

func textField(field string, raw *string, mode writeMode) (*string, error) {
	if raw == nil {
		if mode == modeCreate {
			return nil, MissingField(field)
		}
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, MissingField(field)
	}
	return &value, nil
}

// parsePrice принимает неотрицательное десятичное число
func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MissingField("price")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, InvalidField("price", fmt.Sprintf("%q is not a number", raw))
	}
	if price.IsNegative() {
		return 0, InvalidField("price", "must not be negative")
	}
	if price.GreaterThan(maxPrice) {
		return 0, InvalidField("price", "is too large")
	}
	return price.Round(2).InexactFloat64(), nil
}

func parseStock(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MissingField("stock")
	}
	stock, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, InvalidField("stock", fmt.Sprintf("%q is not an integer", raw))
	}
	if stock < 0 {
		return 0, InvalidField("stock", "must not be negative")
	}
	return stock, nil
}

// validateImage: при создании картинка обязательна (файл или ссылка),
// при обновлении отсутствие поля означает "не менять"
func validateImage(in entity.ImageInput, mode writeMode, store ImageStore) (entity.ImageInput, error) {
	switch in.Kind {
	case entity.ImageAbsent, entity.ImageCleared:
		if mode == modeCreate {
			return in, MissingField("image")
		}
		return in, nil

	case entity.ImageURL:
		ref := strings.TrimSpace(in.URL)
		if !isAcceptedImageURL(ref, store) {
			return in, InvalidField("image", "must be an http(s) URL or an uploaded file")
		}
		return entity.ImageInput{Kind: entity.ImageURL, URL: ref}, nil

	case entity.ImageFile:
		if in.File == nil || len(in.File.Data) == 0 {
			return in, InvalidField("image", "uploaded file is empty")
		}
		declared := strings.ToLower(strings.TrimSpace(in.File.ContentType))
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = strings.TrimSpace(declared[:i])
		}
		if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
			return in, InvalidField("image", fmt.Sprintf("content type %q is not an image", declared))
		}
		detected := mimetype.Detect(in.File.Data)
		if !strings.HasPrefix(detected.String(), "image/") {
			return in, InvalidField("image", fmt.Sprintf("file content %q is not an image", detected.String()))
		}

		file := *in.File
		file.ContentType = detected.String()
		return entity.ImageInput{Kind: entity.ImageFile, File: &file}, nil
	}

	return in, InvalidField("image", "unsupported image value")
}

// isAcceptedImageURL принимает абсолютные http(s) ссылки и ссылки самого хранилища (/uploads/...)
func isAcceptedImageURL(ref string, store ImageStore) bool {
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed, err := url.Parse(ref)
		return err == nil && parsed.Host != ""
	}
	return store != nil && store.Owns(ref)
}
