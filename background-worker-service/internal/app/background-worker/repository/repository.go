package repository

import (
	"context"
	"errors"
	"time"

	"storefront/background-worker-service/internal/app/background-worker/entity"
)

var (
	// ErrReportNotFound - сверка еще ни разу не завершалась
	ErrReportNotFound = errors.New("reconcile report not found")
)

// ImageReferenceRepository - чтение ссылок на картинки из таблицы products каталога
type ImageReferenceRepository interface {
	// ListImageURLs возвращает все непустые ссылки на картинки
	ListImageURLs(ctx context.Context) ([]string, error)

	// IsReferenced проверяет, ссылается ли на URL хотя бы один товар
	IsReferenced(ctx context.Context, imageURL string) (bool, error)
}

// JanitorStateRepository - состояние сверки в Redis
type JanitorStateRepository interface {
	// AcquireLock пытается взять блокировку сверки (SET NX с TTL)
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock снимает блокировку, только если ее держит owner
	ReleaseLock(ctx context.Context, owner string) error

	// SaveReport сохраняет отчет последней сверки
	SaveReport(ctx context.Context, report *entity.ReconcileReport) error

	// LastReport возвращает отчет последней сверки или ErrReportNotFound
	LastReport(ctx context.Context) (*entity.ReconcileReport, error)
}
