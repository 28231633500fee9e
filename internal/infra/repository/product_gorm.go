package repository

import (
	"context"
	"errors"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開一覧（activeのみ）。検索はSKUと名前JSONのテキスト表現に対して行う。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	base := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = TRUE")

	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + s + "%"
		base = base.Where("sku ILIKE ? OR name::text ILIKE ?", like, like)
	}
	if q.MinPrice != nil {
		base = base.Where("price_cents >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		base = base.Where("price_cents <= ?", *q.MaxPrice)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	order := "id desc"
	switch q.Sort {
	case "price_asc":
		order = "price_cents asc"
	case "price_desc":
		order = "price_cents desc"
	case "oldest":
		order = "id asc"
	}

	var items []model.Product
	offset := (q.Page - 1) * q.Limit
	if err := base.Order(order).Limit(q.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Product{}, 0, err
	}
	return items, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) FindActiveByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = TRUE", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", p.ID).
		Select("sku", "name", "description", "price_cents", "low_stock_threshold", "is_active", "category_id").
		Updates(p)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// thresholdがnilなら各商品のlow_stock_thresholdと比較
func (r *ProductGormRepository) ListLowStock(ctx context.Context, threshold *int64) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = TRUE")
	if threshold != nil {
		q = q.Where("stock <= ?", *threshold)
	} else {
		q = q.Where("stock <= low_stock_threshold")
	}

	var items []model.Product
	if err := q.Order("stock asc").Find(&items).Error; err != nil {
		return []model.Product{}, err
	}
	return items, nil
}
