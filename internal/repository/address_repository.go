package repository

import (
	"app/internal/domain/model"
	"context"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (model.Address, error)

	//ユーザーが持つ住所一覧（デフォルト優先）
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	FindByID(ctx context.Context, addressID int64) (model.Address, error)

	//ユーザーのデフォルト住所（無ければErrNotFound）
	FindDefaultByUserID(ctx context.Context, userID int64) (model.Address, error)

	Update(ctx context.Context, address model.Address) error

	//削除。デフォルト住所を消した場合は別の住所をデフォルトに昇格させる。
	Delete(ctx context.Context, addressID int64) error

	IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error)

	//デフォルト住所の切り替え
	SetDefault(ctx context.Context, userID, addressID int64) error

	//ユーザーの住所数
	CountByUserID(ctx context.Context, userID int64) (int64, error)
}
