package model

import "time"

// 注文明細。作成時点のスナップショットで、後から再計算しない。
type OrderItem struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64     `gorm:"not null;index" json:"order_id"`
	ProductID       int64     `gorm:"not null;index" json:"product_id"`
	ProductName     string    `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU      string    `gorm:"type:varchar(100);not null" json:"product_sku"`
	UnitPriceCents  int64     `gorm:"not null" json:"unit_price_cents"`
	Quantity        int64     `gorm:"not null" json:"quantity"`
	TotalPriceCents int64     `gorm:"not null" json:"total_price_cents"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
