package repository

import (
	"context"
	"time"

	"app/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevokedTokenGormRepository struct {
	db *gorm.DB
}

func NewRevokedTokenGormRepository(db *gorm.DB) *RevokedTokenGormRepository {
	return &RevokedTokenGormRepository{db: db}
}

// 失効登録。二重ログアウトは上書きで吸収。
func (r *RevokedTokenGormRepository) Revoke(ctx context.Context, t model.RevokedToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&t).Error
}

func (r *RevokedTokenGormRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// 期限切れ行の掃除。トークン自体が失効済みなので残す意味が無い。
func (r *RevokedTokenGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.RevokedToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
