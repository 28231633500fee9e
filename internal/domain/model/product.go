package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU               string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name              LocalizedText  `gorm:"type:jsonb;not null" json:"name"`
	Description       LocalizedText  `gorm:"type:jsonb" json:"description"`
	PriceCents        int64          `gorm:"not null" json:"price_cents"`
	Stock             int64          `gorm:"not null" json:"stock"`
	LowStockThreshold int64          `gorm:"not null;default:10" json:"low_stock_threshold"`
	IsActive          bool           `gorm:"not null;default:false" json:"is_active"`
	CategoryID        *int64         `gorm:"index" json:"category_id"`
	CreatedAt         time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p Product) IsInStock() bool {
	return p.Stock > 0
}

func (p Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}
