package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/background-worker-service/internal/app/background-worker/entity"
)

// releaseLockScript удаляет блокировку только своего владельца
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// janitorStateRepository реализует JanitorStateRepository поверх Redis
type janitorStateRepository struct {
	client *redis.Client
}

// NewJanitorStateRepository создает репозиторий состояния сверки
func NewJanitorStateRepository(client *redis.Client) JanitorStateRepository {
	return &janitorStateRepository{client: client}
}

// AcquireLock берет блокировку через SET NX, чтобы сверку выполняла одна реплика
func (r *janitorStateRepository) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, entity.RedisKeyReconcileLock, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire reconcile lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock снимает блокировку. Чужая или истекшая блокировка не трогается
func (r *janitorStateRepository) ReleaseLock(ctx context.Context, owner string) error {
	if err := releaseLockScript.Run(ctx, r.client, []string{entity.RedisKeyReconcileLock}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release reconcile lock: %w", err)
	}
	return nil
}

// SaveReport сохраняет отчет без TTL: он нужен healthcheck'у до следующего прохода
func (r *janitorStateRepository) SaveReport(ctx context.Context, report *entity.ReconcileReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal reconcile report: %w", err)
	}

	if err := r.client.Set(ctx, entity.RedisKeyReconcileReport, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save reconcile report: %w", err)
	}
	return nil
}

// LastReport возвращает отчет последней сверки
func (r *janitorStateRepository) LastReport(ctx context.Context) (*entity.ReconcileReport, error) {
	data, err := r.client.Get(ctx, entity.RedisKeyReconcileReport).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get reconcile report: %w", err)
	}

	var report entity.ReconcileReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconcile report: %w", err)
	}
	return &report, nil
}
