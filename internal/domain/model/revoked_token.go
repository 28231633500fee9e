package model

import "time"

// ログアウト済みアクセストークン（jti単位）。
// プロセス内セットではなくDBに置くので、再起動・複数ワーカーでも失効が効く。
// expires_at を過ぎた行は掃除してよい（トークン自体が期限切れ）。
type RevokedToken struct {
	JTI       string    `gorm:"type:uuid;primaryKey" json:"jti"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
