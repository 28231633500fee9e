package repository

import (
	"app/internal/domain/model"
	"context"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, t model.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	//使用済みマーク（ローテーション）
	MarkUsed(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUserID(ctx context.Context, userID int64) error
}
