package service

import (
	"context"
	"fmt"

	"storefront/background-worker-service/internal/app/background-worker/entity"
	"storefront/background-worker-service/internal/app/background-worker/repository"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// ImageCleanupService повторяет удаление картинок, от которых отказались товары
// Catalog Service удаляет их сам, событие закрывает случай, когда удаление не удалось
type ImageCleanupService struct {
	refs  repository.ImageReferenceRepository
	store BlobStore
}

// NewImageCleanupService создает сервис обработки событий товаров
func NewImageCleanupService(refs repository.ImageReferenceRepository, store BlobStore) *ImageCleanupService {
	return &ImageCleanupService{
		refs:  refs,
		store: store,
	}
}

// HandleProductEvent удаляет stale_image, если он лежит в нашем хранилище
// и на него больше не ссылается ни один товар. Повторная обработка безопасна
func (s *ImageCleanupService) HandleProductEvent(ctx context.Context, event *entity.ProductEvent) error {
	if event.StaleImage == "" {
		return nil
	}

	key, ok := s.store.KeyFromURL(event.StaleImage)
	if !ok {
		metrics.RecordImageCleanup(s.store.Backend(), "skipped")
		logger.Debug().
			Str("url", event.StaleImage).
			Int64("product_id", event.ProductID).
			Msg("Stale image is not owned by blob store, skipping")
		return nil
	}

	referenced, err := s.refs.IsReferenced(ctx, event.StaleImage)
	if err != nil {
		return err
	}
	if referenced {
		metrics.RecordImageCleanup(s.store.Backend(), "skipped")
		logger.Info().
			Str("url", event.StaleImage).
			Msg("Stale image is referenced by another product, keeping it")
		return nil
	}

	// отсутствующий объект не ошибка: Catalog Service обычно уже удалил его
	if err := s.store.Delete(ctx, key); err != nil {
		metrics.RecordImageCleanup(s.store.Backend(), "failed")
		return fmt.Errorf("failed to delete stale image %s: %w", key, err)
	}

	metrics.RecordImageCleanup(s.store.Backend(), "deleted")
	metrics.JanitorBlobsRemoved.WithLabelValues("event").Inc()
	logger.Info().
		Str("key", key).
		Str("event_type", event.EventType).
		Int64("product_id", event.ProductID).
		Msg("Stale image removed")

	return nil
}
