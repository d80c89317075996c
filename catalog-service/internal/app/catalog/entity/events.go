package entity

import "time"

// Типы событий топика product_events
const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
)

// ProductEvent представляет событие изменения продукта для Kafka
// StaleImage - ссылка, которую товар перестал использовать; consumer повторяет ее удаление
type ProductEvent struct {
	EventType  string    `json:"event_type"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Stock      int64     `json:"stock"`
	CategoryID int64     `json:"category_id"`
	Image      string    `json:"image,omitempty"`
	StaleImage string    `json:"stale_image,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewProductEvent собирает событие из сохраненного товара
func NewProductEvent(eventType string, product *Product, staleImage string) ProductEvent {
	return ProductEvent{
		EventType:  eventType,
		ProductID:  product.ID,
		Name:       product.Name,
		Price:      product.Price,
		Stock:      product.Stock,
		CategoryID: product.CategoryID,
		Image:      product.ImageURL(),
		StaleImage: staleImage,
		Timestamp:  time.Now().UTC(),
	}
}
