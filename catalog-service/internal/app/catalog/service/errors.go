package service

import (
	"errors"
	"fmt"
)

// ErrorKind - вид ошибки бизнес-логики; handler отображает его в HTTP статус
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnsupportedMediaType
	KindMissingField
	KindInvalidField
	KindCategoryNotFound
	KindProductNotFound
	KindUniqueConstraintViolation
	KindImageStorage
	KindMalformedRequestBody
	KindCategoryInUse
	KindInsufficientStock
	KindNotFound
)

var kindNames = map[ErrorKind]string{
	KindInternal:                  "InternalError",
	KindUnsupportedMediaType:      "UnsupportedMediaType",
	KindMissingField:              "MissingField",
	KindInvalidField:              "InvalidField",
	KindCategoryNotFound:          "CategoryNotFound",
	KindProductNotFound:           "ProductNotFound",
	KindUniqueConstraintViolation: "UniqueConstraintViolation",
	KindImageStorage:              "ImageStorageError",
	KindMalformedRequestBody:      "MalformedRequestBody",
	KindCategoryInUse:             "CategoryInUse",
	KindInsufficientStock:         "InsufficientStock",
	KindNotFound:                  "NotFound",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error - ошибка с видом из таксономии
// Message показывается клиенту, Details - только диагностика (для 5xx),
// Err - исходная причина, в ответ не попадает
type Error struct {
	Kind    ErrorKind
	Field   string
	ID      string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError достает *Error из цепочки; любая другая ошибка становится InternalError
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err)
}

// IsKind проверяет вид ошибки
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

func UnsupportedMediaType(contentType string) *Error {
	return &Error{
		Kind:    KindUnsupportedMediaType,
		Message: fmt.Sprintf("unsupported content type %q, use application/json or multipart/form-data", contentType),
	}
}

func MissingField(field string) *Error {
	return &Error{
		Kind:    KindMissingField,
		Field:   field,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func InvalidField(field, reason string) *Error {
	return &Error{
		Kind:    KindInvalidField,
		Field:   field,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

// CategoryNotFound - категория, на которую ссылается товар, не существует (400)
func CategoryNotFound(id int64) *Error {
	return &Error{
		Kind:    KindCategoryNotFound,
		Field:   "category",
		ID:      fmt.Sprint(id),
		Message: fmt.Sprintf("category with id %d does not exist", id),
	}
}

func ProductNotFound(id int64) *Error {
	return &Error{
		Kind:    KindProductNotFound,
		ID:      fmt.Sprint(id),
		Message: fmt.Sprintf("product with id %d not found", id),
	}
}

func UniqueViolation(message string, cause error) *Error {
	return &Error{
		Kind:    KindUniqueConstraintViolation,
		Message: message,
		Err:     cause,
	}
}

func ImageStorageError(message string, cause error) *Error {
	e := &Error{
		Kind:    KindImageStorage,
		Message: message,
		Err:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func MalformedBody(cause error) *Error {
	return &Error{
		Kind:    KindMalformedRequestBody,
		Message: "malformed request body",
		Err:     cause,
	}
}

func CategoryInUse(id, products int64) *Error {
	return &Error{
		Kind:    KindCategoryInUse,
		ID:      fmt.Sprint(id),
		Message: fmt.Sprintf("category %d is used by %d product(s) and cannot be deleted", id, products),
	}
}

func InsufficientStock(cause error) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: "insufficient stock",
		Err:     cause,
	}
}

// NotFound - запрошенный по адресу ресурс (категория, заказ) отсутствует
func NotFound(resource string, id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		ID:      fmt.Sprint(id),
		Message: fmt.Sprintf("%s with id %d not found", resource, id),
	}
}

func Internal(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     cause,
	}
}
