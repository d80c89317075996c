package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storefront/background-worker-service/internal/app/background-worker/entity"
	"storefront/background-worker-service/internal/app/background-worker/repository"
	"storefront/background-worker-service/internal/app/background-worker/service"
	"storefront/pkg/logger"
)

type HealthCheckHandler struct {
	db           *gorm.DB
	redisClient  *redis.Client
	reconcileSvc service.ReconcileServiceInterface
}

func NewHealthCheckHandler(
	db *gorm.DB,
	redisClient *redis.Client,
	reconcileSvc service.ReconcileServiceInterface,
) *HealthCheckHandler {
	return &HealthCheckHandler{
		db:           db,
		redisClient:  redisClient,
		reconcileSvc: reconcileSvc,
	}
}

type HealthResponse struct {
	Status        string                  `json:"status"`
	Checks        map[string]string       `json:"checks"`
	LastReconcile *entity.ReconcileReport `json:"last_reconcile,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

func (h *HealthCheckHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	overallStatus := "healthy"

	if err := h.checkDatabase(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	if err := h.checkRedis(ctx); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		checks["redis"] = "healthy"
	}

	// неудачная сверка не делает сервис нездоровым
	report, err := h.reconcileSvc.LastReport(ctx)
	switch {
	case errors.Is(err, repository.ErrReportNotFound):
		checks["reconcile"] = "pending"
	case err != nil:
		checks["reconcile"] = "warning: " + err.Error()
	case report.Error != "":
		checks["reconcile"] = "warning: " + report.Error
	default:
		checks["reconcile"] = "healthy"
	}

	response := HealthResponse{
		Status:        overallStatus,
		Checks:        checks,
		LastReconcile: report,
		Timestamp:     time.Now(),
	}

	status := http.StatusOK
	if overallStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthCheckHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.checkDatabase(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	if err := h.checkRedis(ctx); err != nil {
		http.Error(w, "redis not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *HealthCheckHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}

// Reconcile запускает внеочередной проход сверки (POST /reconcile)
func (h *HealthCheckHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcileSvc.Reconcile(r.Context())
	switch {
	case errors.Is(err, service.ErrReconcileInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		logger.Error().Err(err).Msg("Manual reconcile failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "report": report})
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (h *HealthCheckHandler) checkDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthCheckHandler) checkRedis(ctx context.Context) error {
	return h.redisClient.Ping(ctx).Err()
}

func (h *HealthCheckHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /health/readiness", h.Readiness)
	mux.HandleFunc("GET /health/liveness", h.Liveness)
	mux.HandleFunc("POST /reconcile", h.Reconcile)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
