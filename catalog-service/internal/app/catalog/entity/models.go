package entity

import (
	"time"
)

// Category представляет категорию товаров
type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (Category) TableName() string {
	return "categories"
}

// Product представляет товар в каталоге
// Image - публичный URL картинки в blob store (https://... или /uploads/...), либо nil
type Product struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Price       float64   `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock       int64     `json:"stock" gorm:"not null"`
	Image       *string   `json:"image" gorm:"type:text"`
	CategoryID  int64     `json:"categoryId" gorm:"not null;index"`
	Category    *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (Product) TableName() string {
	return "products"
}

// HasImage сообщает, ссылается ли товар на картинку
func (p *Product) HasImage() bool {
	return p.Image != nil && *p.Image != ""
}

// ImageURL возвращает ссылку на картинку или пустую строку
func (p *Product) ImageURL() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

// Order - заказ покупателя. Total считается по ценам из БД на момент оформления
type Order struct {
	ID         int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int64       `json:"userId" gorm:"not null;index"`
	Total      float64     `json:"total" gorm:"type:numeric(14,2);not null"`
	OrderItems []OrderItem `json:"orderItems" gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time   `json:"createdAt" gorm:"autoCreateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem - позиция заказа, Price фиксирует цену единицы товара
type OrderItem struct {
	ID        int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   int64   `json:"orderId" gorm:"not null;index"`
	ProductID int64   `json:"productId" gorm:"not null;index"`
	Quantity  int64   `json:"quantity" gorm:"not null"`
	Price     float64 `json:"price" gorm:"type:numeric(12,2);not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
