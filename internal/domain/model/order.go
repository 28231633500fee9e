package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// 終端ステータスからは一切遷移できない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// 注文。作成後に変わるのはstatusと配送メタデータだけ。
// 金額・住所は作成時点のスナップショットで固定。
type Order struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber  string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"order_number"`
	UserID       *int64      `gorm:"index" json:"user_id"` // ゲスト注文はnull
	ContactEmail string      `gorm:"type:varchar(120)" json:"contact_email"`
	Status       OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	SubtotalCents int64  `gorm:"not null" json:"subtotal_cents"`
	TaxCents      int64  `gorm:"not null;default:0" json:"tax_cents"`
	ShippingCents int64  `gorm:"not null;default:0" json:"shipping_cents"`
	DiscountCents int64  `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents    int64  `gorm:"not null" json:"total_cents"`
	Currency      string `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	ShippingAddress JSONMap `gorm:"type:jsonb" json:"shipping_address"`
	BillingAddress  JSONMap `gorm:"type:jsonb" json:"billing_address"`

	TrackingNumber string     `gorm:"type:varchar(100)" json:"tracking_number"`
	ShippedAt      *time.Time `json:"shipped_at"`
	DeliveredAt    *time.Time `json:"delivered_at"`

	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
