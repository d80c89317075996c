// Package blobstore хранит картинки товаров в объектном хранилище (S3)
// или на локальном диске под публичной директорией. Реализация выбирается
// конфигурацией при старте процесса, вызывающий код видит только Store.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const (
	BackendS3    = "s3"
	BackendLocal = "local"

	// ProductPrefix - логический префикс ключей картинок товаров
	ProductPrefix = "products/"

	defaultExtension = "png"
)

// ErrNotConfigured возвращается фабрикой, если для выбранного backend не заданы
// обязательные параметры (bucket/region или директория загрузок)
var ErrNotConfigured = errors.New("blob storage is not configured")

// Object описывает сохраненный объект (используется при сверке с БД)
type Object struct {
	Key          string
	URL          string
	Size         int64
	LastModified time.Time
}

// Store - общий интерфейс хранилищ картинок
type Store interface {
	// Backend возвращает имя реализации (s3 / local) для логов и метрик
	Backend() string
	// Put сохраняет объект под ключом key и возвращает публичный URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// DeleteByURL удаляет объект по его публичному URL. Чужие URL игнорируются,
	// ошибки удаления логируются и не возвращаются
	DeleteByURL(ctx context.Context, url string)
	// Owns сообщает, указывает ли URL внутрь этого хранилища
	Owns(url string) bool
	// KeyFromURL извлекает ключ объекта из URL этого хранилища
	KeyFromURL(url string) (string, bool)
	// List перечисляет объекты под префиксом
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete удаляет объект по ключу. Отсутствующий объект не является ошибкой
	Delete(ctx context.Context, key string) error
}

// Config - параметры выбора и настройки хранилища
type Config struct {
	Backend string
	S3      S3Config
	Local   LocalConfig
}

// New создает хранилище по конфигурации
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendS3:
		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendLocal:
		store, err := NewLocalStore(cfg.Local)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewKey генерирует уникальный ключ вида <prefix><uuid>.<ext>
// Расширение берется из исходного имени файла, при его отсутствии - png
func NewKey(prefix, originalName string) string {
	return prefix + uuid.NewString() + "." + extensionOf(originalName)
}

func extensionOf(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	if ext == "" || len(ext) > 10 {
		return defaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExtension
		}
	}
	return ext
}

// deleteByURL - общая best-effort логика удаления для всех реализаций
func deleteByURL(ctx context.Context, s Store, rawURL string) {
	key, ok := s.KeyFromURL(rawURL)
	if !ok {
		logger.Debug().
			Str("backend", s.Backend()).
			Str("url", rawURL).
			Msg("image url is not owned by blob store, skipping delete")
		metrics.RecordImageCleanup(s.Backend(), "skipped")
		return
	}

	if err := s.Delete(ctx, key); err != nil {
		logger.Warn().
			Err(err).
			Str("backend", s.Backend()).
			Str("key", key).
			Msg("failed to delete stale image, leaving it for reconciliation")
		metrics.RecordImageCleanup(s.Backend(), "failed")
		return
	}

	logger.Info().
		Str("backend", s.Backend()).
		Str("key", key).
		Msg("stale image deleted")
	metrics.RecordImageCleanup(s.Backend(), "deleted")
}
