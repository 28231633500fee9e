package repository

import (
	"app/internal/domain/model"
	"context"
)

type CategoryRepository interface {
	ListActive(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
}
