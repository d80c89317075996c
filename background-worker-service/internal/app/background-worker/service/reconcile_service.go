package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/background-worker-service/internal/app/background-worker/entity"
	"storefront/background-worker-service/internal/app/background-worker/repository"
	"storefront/pkg/blobstore"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// ErrReconcileInProgress - сверку уже выполняет другая реплика
var ErrReconcileInProgress = errors.New("reconcile is already running")

// ReconcileService находит и удаляет картинки, оставшиеся без товара:
// загрузки после неудачной записи в БД и старые картинки, чье удаление не удалось
type ReconcileService struct {
	refs        repository.ImageReferenceRepository
	state       repository.JanitorStateRepository
	store       BlobStore
	gracePeriod time.Duration
	lockTTL     time.Duration
	now         func() time.Time
}

// NewReconcileService создает сервис сверки
func NewReconcileService(
	refs repository.ImageReferenceRepository,
	state repository.JanitorStateRepository,
	store BlobStore,
	gracePeriod time.Duration,
	lockTTL time.Duration,
) *ReconcileService {
	return &ReconcileService{
		refs:        refs,
		state:       state,
		store:       store,
		gracePeriod: gracePeriod,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
}

// Reconcile выполняет один проход сверки
// Объекты моложе gracePeriod не удаляются: их загрузка может быть еще не закоммичена
func (s *ReconcileService) Reconcile(ctx context.Context) (*entity.ReconcileReport, error) {
	runID := uuid.NewString()

	acquired, err := s.state.AcquireLock(ctx, runID, s.lockTTL)
	if err != nil {
		metrics.JanitorRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	if !acquired {
		metrics.JanitorRuns.WithLabelValues("skipped").Inc()
		logger.Info().Msg("Reconcile is running on another replica, skipping")
		return nil, ErrReconcileInProgress
	}
	defer func() {
		// блокировку снимаем даже при отмене ctx
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.state.ReleaseLock(releaseCtx, runID); err != nil {
			logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to release reconcile lock")
		}
	}()

	report := &entity.ReconcileReport{
		RunID:     runID,
		Backend:   s.store.Backend(),
		StartedAt: s.now().UTC(),
	}

	err = s.sweep(ctx, report)
	report.FinishedAt = s.now().UTC()
	if err != nil {
		report.Error = err.Error()
		metrics.JanitorRuns.WithLabelValues("failed").Inc()
	} else {
		metrics.JanitorRuns.WithLabelValues("success").Inc()
	}

	if saveErr := s.state.SaveReport(context.WithoutCancel(ctx), report); saveErr != nil {
		logger.Warn().Err(saveErr).Str("run_id", runID).Msg("Failed to save reconcile report")
	}

	logger.Info().
		Str("run_id", runID).
		Str("backend", report.Backend).
		Int("scanned", report.Scanned).
		Int("referenced", report.Referenced).
		Int("too_young", report.TooYoung).
		Int("removed", report.Removed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("Reconcile finished")

	return report, err
}

// sweep сначала перечисляет объекты, затем читает ссылки:
// товар, закоммиченный между двумя запросами, уже виден в ссылках
func (s *ReconcileService) sweep(ctx context.Context, report *entity.ReconcileReport) error {
	objects, err := s.store.List(ctx, blobstore.ProductPrefix)
	if err != nil {
		return fmt.Errorf("failed to list blobs: %w", err)
	}
	report.Scanned = len(objects)

	urls, err := s.refs.ListImageURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load image references: %w", err)
	}

	referenced := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if key, ok := s.store.KeyFromURL(u); ok {
			referenced[key] = struct{}{}
		}
	}

	cutoff := report.StartedAt.Add(-s.gracePeriod)
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, ok := referenced[obj.Key]; ok {
			report.Referenced++
			continue
		}
		if obj.LastModified.After(cutoff) {
			report.TooYoung++
			continue
		}

		if err := s.store.Delete(ctx, obj.Key); err != nil {
			report.Failed++
			metrics.RecordImageCleanup(report.Backend, "failed")
			logger.Warn().Err(err).Str("key", obj.Key).Msg("Failed to delete unreferenced blob")
			continue
		}

		report.Removed++
		metrics.RecordImageCleanup(report.Backend, "deleted")
		metrics.JanitorBlobsRemoved.WithLabelValues("reconcile").Inc()
		logger.Info().
			Str("key", obj.Key).
			Time("last_modified", obj.LastModified).
			Msg("Unreferenced blob removed")
	}

	return nil
}

// LastReport возвращает отчет последней сверки
func (s *ReconcileService) LastReport(ctx context.Context) (*entity.ReconcileReport, error) {
	return s.state.LastReport(ctx)
}
