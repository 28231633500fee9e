package model

import "time"

// カテゴリ。名前・説明は LocalizedText（JSONカラム）に統一。
type Category struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        LocalizedText `gorm:"type:jsonb;not null" json:"name"`
	Description LocalizedText `gorm:"type:jsonb" json:"description"`
	Slug        string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	IsActive    bool          `gorm:"not null;default:true" json:"is_active"`
	SortOrder   int           `gorm:"not null;default:0" json:"sort_order"`
	ParentID    *int64        `gorm:"index" json:"parent_id"`
	CreatedAt   time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
