package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFor - единственное место, где вид ошибки превращается в HTTP статус
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case service.KindMissingField,
		service.KindInvalidField,
		service.KindCategoryNotFound,
		service.KindMalformedRequestBody,
		service.KindCategoryInUse:
		return http.StatusBadRequest
	case service.KindProductNotFound, service.KindNotFound:
		return http.StatusNotFound
	case service.KindUniqueConstraintViolation, service.KindInsufficientStock:
		return http.StatusConflict
	case service.KindImageStorage, service.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// respondError пишет конверт {"error", "details"?}
// details отдается только для ошибок хранилища, SQL и внутренние причины в ответ не попадают
func respondError(c *gin.Context, err error) {
	svcErr := service.AsError(err)
	status := statusFor(svcErr.Kind)

	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(svcErr.Err).
			Str("request_id", logger.RequestID(c)).
			Str("kind", svcErr.Kind.String()).
			Str("details", svcErr.Details).
			Msg(svcErr.Message)
	}
	_ = c.Error(err)

	resp := entity.ErrorResponse{Error: svcErr.Message}
	if svcErr.Kind == service.KindImageStorage {
		resp.Details = svcErr.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

// newValidator возвращает validator, который называет поля по json тегам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError переводит ошибку validator в таксономию сервиса
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		field := fieldPath(fieldError.Namespace())
		if fieldError.Tag() == "required" {
			return service.MissingField(field)
		}
		return service.InvalidField(field, "failed "+fieldError.Tag()+" check")
	}
	return service.MalformedBody(err)
}

// fieldPath отрезает имя корневой структуры: CreateOrderRequest.products[0].quantity -> products[0].quantity
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
