package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// multipartOverhead - запас на поля формы и границы частей поверх размера файла
const multipartOverhead = 1 << 20

// RequestTimeout ограничивает время обработки запроса
// Дедлайн передается через context в БД и хранилище
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// BodyLimit ограничивает размер тела запроса
// Чтение сверх лимита возвращает *http.MaxBytesError, который превращается в 400
func BodyLimit(maxUploadSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxUploadSize > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+multipartOverhead)
		}
		c.Next()
	}
}
