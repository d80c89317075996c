package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeMultipart = "multipart/form-data"

	imageField    = "image"
	imageURLField = "image_url"
)

// productJSON - тело JSON запроса товара
// Числа принимаются и строками, image разбирается отдельно: отсутствие, null/"" и ссылка различаются
type productJSON struct {
	ID          *entity.NumberOrString `json:"id"`
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Price       *entity.NumberOrString `json:"price"`
	Stock       *entity.NumberOrString `json:"stock"`
	Category    *entity.NumberOrString `json:"category"`
	Image       json.RawMessage        `json:"image"`
}

// parseProductForm разбирает тело POST/PUT /products в ProductForm
// Поддерживаются только application/json и multipart/form-data
func parseProductForm(c *gin.Context, maxUploadSize int64) (*entity.ProductForm, error) {
	contentType := c.ContentType()
	switch strings.ToLower(contentType) {
	case contentTypeJSON:
		return parseProductJSON(c.Request.Body)
	case contentTypeMultipart:
		return parseProductMultipart(c, maxUploadSize)
	default:
		return nil, service.UnsupportedMediaType(contentType)
	}
}

func parseProductJSON(body io.Reader) (*entity.ProductForm, error) {
	var req productJSON
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, bodyError(err)
	}

	form := &entity.ProductForm{
		ID:          numberField(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Price:       numberField(req.Price),
		Stock:       numberField(req.Stock),
		Category:    numberField(req.Category),
	}

	image, err := jsonImage(req.Image)
	if err != nil {
		return nil, err
	}
	form.Image = image
	return form, nil
}

func numberField(v *entity.NumberOrString) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func jsonImage(raw json.RawMessage) (entity.ImageInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return entity.ImageInput{Kind: entity.ImageAbsent}, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return entity.ImageInput{Kind: entity.ImageCleared}, nil
	}

	var ref string
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return entity.ImageInput{}, service.InvalidField(imageField, "must be a URL string or null")
	}
	return textImage(ref), nil
}

// textImage: пустая строка очищает картинку, иначе это ссылка
func textImage(ref string) entity.ImageInput {
	if strings.TrimSpace(ref) == "" {
		return entity.ImageInput{Kind: entity.ImageCleared}
	}
	return entity.ImageInput{Kind: entity.ImageURL, URL: ref}
}

func parseProductMultipart(c *gin.Context, maxUploadSize int64) (*entity.ProductForm, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, bodyError(err)
	}

	form := &entity.ProductForm{
		ID:          formValue(mf, "id"),
		Name:        formValue(mf, "name"),
		Description: formValue(mf, "description"),
		Price:       formValue(mf, "price"),
		Stock:       formValue(mf, "stock"),
		Category:    formValue(mf, "category"),
	}

	if files := mf.File[imageField]; len(files) > 0 && !isEmptyFilePart(files[0]) {
		file, err := readUpload(files[0], maxUploadSize)
		if err != nil {
			return nil, err
		}
		form.Image = entity.ImageInput{Kind: entity.ImageFile, File: file}
		return form, nil
	}

	for _, key := range []string{imageURLField, imageField} {
		if ref := formValue(mf, key); ref != nil {
			form.Image = textImage(*ref)
			return form, nil
		}
	}
	return form, nil
}

func formValue(mf *multipart.Form, key string) *string {
	values, ok := mf.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}

// isEmptyFilePart - браузер присылает пустую часть без имени, когда файл не выбран
func isEmptyFilePart(fh *multipart.FileHeader) bool {
	return fh.Filename == "" && fh.Size == 0
}

func readUpload(fh *multipart.FileHeader, maxUploadSize int64) (*entity.UploadedFile, error) {
	if maxUploadSize > 0 && fh.Size > maxUploadSize {
		return nil, service.InvalidField(imageField, fmt.Sprintf("file exceeds %d bytes", maxUploadSize))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, service.MalformedBody(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, service.MalformedBody(err)
	}

	return &entity.UploadedFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// bodyError: превышение лимита тела - ошибка поля image, остальное - битое тело
func bodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return service.InvalidField(imageField, fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
	}
	return service.MalformedBody(err)
}
