package entity

import "time"

const (
	EventTypeProductCreated = "PRODUCT_CREATED"
	EventTypeProductUpdated = "PRODUCT_UPDATED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
)

// ProductEvent - событие из топика product_events
// Worker'у нужна только ссылка, от которой товар отказался
type ProductEvent struct {
	EventType  string    `json:"event_type"`
	ProductID  int64     `json:"product_id"`
	Image      string    `json:"image,omitempty"`
	StaleImage string    `json:"stale_image,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReconcileReport - итог одного прохода сверки хранилища с БД
type ReconcileReport struct {
	RunID      string    `json:"run_id"`
	Backend    string    `json:"backend"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int       `json:"scanned"`    // объектов под products/
	Referenced int       `json:"referenced"` // из них есть в БД
	TooYoung   int       `json:"too_young"`  // не тронуты из-за grace period
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// Duration - длительность прохода
func (r *ReconcileReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

const (
	RedisKeyReconcileLock   = "janitor:reconcile:lock"
	RedisKeyReconcileReport = "janitor:reconcile:last_report"
)
