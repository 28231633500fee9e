package repository

import (
	"context"

	"app/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	//ステータスとゲートウェイ応答・支払い方法をまとめて更新
	Update(ctx context.Context, p model.Payment) error
}
