package repository

import (
	"app/internal/domain/model"
	"context"
)

type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Update(ctx context.Context, u model.User) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	TouchLastLogin(ctx context.Context, userID int64) error
}
