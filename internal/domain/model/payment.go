package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// 決済。注文と1:1。amountは注文総額で作成時に固定。
type Payment struct {
	ID              int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64         `gorm:"not null;uniqueIndex" json:"order_id"`
	Method          string        `gorm:"type:varchar(50);not null" json:"method"`
	Status          PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AmountCents     int64         `gorm:"not null" json:"amount_cents"`
	Currency        string        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	GatewayResponse JSONMap       `gorm:"type:jsonb" json:"gateway_response"`
	CreatedAt       time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
