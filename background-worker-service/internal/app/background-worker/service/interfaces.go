package service

import (
	"context"

	"storefront/background-worker-service/internal/app/background-worker/entity"
	"storefront/pkg/blobstore"
)

// BlobStore - часть blobstore.Store, нужная worker'у
type BlobStore interface {
	Backend() string
	Owns(url string) bool
	KeyFromURL(url string) (string, bool)
	List(ctx context.Context, prefix string) ([]blobstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// ReconcileServiceInterface определяет интерфейс сверки хранилища с БД
type ReconcileServiceInterface interface {
	// Reconcile удаляет объекты под products/, на которые не ссылается ни один товар
	Reconcile(ctx context.Context) (*entity.ReconcileReport, error)
	// LastReport возвращает итог последней завершенной сверки
	LastReport(ctx context.Context) (*entity.ReconcileReport, error)
}

// ImageCleanupServiceInterface определяет интерфейс обработки событий товаров
type ImageCleanupServiceInterface interface {
	// HandleProductEvent повторяет удаление stale_image из события
	HandleProductEvent(ctx context.Context, event *entity.ProductEvent) error
}
