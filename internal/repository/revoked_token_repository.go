package repository

import (
	"app/internal/domain/model"
	"context"
	"time"
)

// アクセストークン失効ストア（jti単位）
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, t model.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	//期限切れ行の掃除
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
