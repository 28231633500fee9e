package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

// usecase層のエラーはHTTPステータスを持って上がってくる
type HTTPError struct {
	Status  int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) HTTPError {
	return HTTPError{Status: status, Message: message}
}

func AsHTTPError(err error) (HTTPError, bool) {
	he, ok := err.(HTTPError)
	return he, ok
}

type ProductUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	tx         repo.TransactionManager
	auditLogs  repo.AuditLogRepository
	cfg        config.Config
}

func NewProductUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	tx repo.TransactionManager,
	auditLogs repo.AuditLogRepository,
	cfg config.Config,
) *ProductUsecase {
	return &ProductUsecase{
		products:   products,
		categories: categories,
		tx:         tx,
		auditLogs:  auditLogs,
		cfg:        cfg,
	}
}

type ProductListInput struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
	Lang     string
}

// 公開カタログ用。名前・説明はlangで解決済みの文字列。
type PublicProductOutput struct {
	ID          int64  `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	InStock     bool   `json:"in_stock"`
	CategoryID  *int64 `json:"category_id"`
}

type ProductPageOutput struct {
	Items []PublicProductOutput `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// 管理者用。翻訳マップと在庫数をそのまま返す。
type AdminProductOutput struct {
	ID                int64               `json:"id"`
	SKU               string              `json:"sku"`
	Name              model.LocalizedText `json:"name"`
	Description       model.LocalizedText `json:"description"`
	PriceCents        int64               `json:"price_cents"`
	Stock             int64               `json:"stock"`
	LowStockThreshold int64               `json:"low_stock_threshold"`
	IsActive          bool                `json:"is_active"`
	CategoryID        *int64              `json:"category_id"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (u *ProductUsecase) lang(l string) string {
	if strings.TrimSpace(l) == "" {
		return u.cfg.DefaultLang
	}
	return l
}

func (u *ProductUsecase) ListPublic(ctx context.Context, in ProductListInput) (ProductPageOutput, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductPageOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must not exceed max_price")
	}

	products, total, err := u.products.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        in.Q,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductPageOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	lang := u.lang(in.Lang)
	items := make([]PublicProductOutput, 0, len(products))
	for _, p := range products {
		items = append(items, toPublicProduct(p, lang))
	}

	return ProductPageOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *ProductUsecase) GetPublic(ctx context.Context, id int64, lang string) (PublicProductOutput, error) {
	if id <= 0 {
		return PublicProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.products.FindActiveByID(ctx, id)
	if err == repo.ErrNotFound {
		return PublicProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return PublicProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toPublicProduct(p, u.lang(lang)), nil
}

type CategoryOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	SortOrder   int    `json:"sort_order"`
	ParentID    *int64 `json:"parent_id"`
}

func (u *ProductUsecase) ListCategories(ctx context.Context, lang string) ([]CategoryOutput, error) {
	categories, err := u.categories.ListActive(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	l := u.lang(lang)
	outs := make([]CategoryOutput, 0, len(categories))
	for _, c := range categories {
		outs = append(outs, CategoryOutput{
			ID:          c.ID,
			Name:        c.Name.Get(l),
			Description: c.Description.Get(l),
			Slug:        c.Slug,
			SortOrder:   c.SortOrder,
			ParentID:    c.ParentID,
		})
	}
	return outs, nil
}

type CategoryUpsertInput struct {
	Name        model.LocalizedText
	Description model.LocalizedText
	Slug        string
	IsActive    *bool
	SortOrder   *int
	ParentID    *int64
}

func (u *ProductUsecase) CreateCategory(ctx context.Context, in CategoryUpsertInput) (model.Category, error) {
	if len(in.Name) == 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "slug is required")
	}

	c := model.Category{
		Name:        in.Name,
		Description: in.Description,
		Slug:        strings.ToLower(strings.TrimSpace(in.Slug)),
		IsActive:    true,
		ParentID:    in.ParentID,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}

	created, err := u.categories.Create(ctx, c)
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

func (u *ProductUsecase) UpdateCategory(ctx context.Context, id int64, in CategoryUpsertInput) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	c, err := u.categories.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "category not found")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if len(in.Name) > 0 {
		c.Name = in.Name
	}
	if len(in.Description) > 0 {
		c.Description = in.Description
	}
	if strings.TrimSpace(in.Slug) != "" {
		c.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.ParentID != nil {
		c.ParentID = in.ParentID
	}

	if err := u.categories.Update(ctx, c); err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c, nil
}

type ProductCreateInput struct {
	SKU               string
	Name              model.LocalizedText
	Description       model.LocalizedText
	PriceCents        int64
	Stock             int64
	LowStockThreshold *int64
	IsActive          *bool
	CategoryID        *int64
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, in ProductCreateInput) (AdminProductOutput, error) {
	if strings.TrimSpace(in.SKU) == "" {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "sku is required")
	}
	if len(in.Name) == 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.PriceCents < 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "price_cents must not be negative")
	}
	if in.Stock < 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "stock must not be negative")
	}
	if in.CategoryID != nil {
		if _, err := u.categories.FindByID(ctx, *in.CategoryID); err == repo.ErrNotFound {
			return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "category not found")
		} else if err != nil {
			return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	p := model.Product{
		SKU:         strings.TrimSpace(in.SKU),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	} else {
		p.LowStockThreshold = 10
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	created, err := u.products.Create(ctx, p)
	if err != nil {
		return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toAdminProduct(created), nil
}

type ProductUpdateInput struct {
	Name              model.LocalizedText
	Description       model.LocalizedText
	PriceCents        *int64
	LowStockThreshold *int64
	IsActive          *bool
	CategoryID        *int64
}

// 部分更新。在庫はここでは触らない（SetStockを使う）。
func (u *ProductUsecase) UpdateProduct(ctx context.Context, id int64, in ProductUpdateInput) (AdminProductOutput, error) {
	if id <= 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.products.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return AdminProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if len(in.Name) > 0 {
		p.Name = in.Name
	}
	if len(in.Description) > 0 {
		p.Description = in.Description
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "price_cents must not be negative")
		}
		p.PriceCents = *in.PriceCents
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.CategoryID != nil {
		if _, err := u.categories.FindByID(ctx, *in.CategoryID); err == repo.ErrNotFound {
			return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "category not found")
		} else if err != nil {
			return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		p.CategoryID = in.CategoryID
	}

	if err := u.products.Update(ctx, p); err != nil {
		return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toAdminProduct(p), nil
}

func (u *ProductUsecase) GetAdmin(ctx context.Context, id int64) (AdminProductOutput, error) {
	if id <= 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.products.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return AdminProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return AdminProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toAdminProduct(p), nil
}

// 論理削除。既存注文のスナップショットはそのまま残る。
func (u *ProductUsecase) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.products.FindByID(ctx, id); err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	} else if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.products.SoftDelete(ctx, id); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

type SetStockInput struct {
	NewStock int64
	Reason   string
}

// 在庫の絶対値設定。調整履歴と監査ログを必ず残す。
func (u *ProductUsecase) SetStock(ctx context.Context, adminUserID, productID int64, in SetStockInput) (AdminProductOutput, error) {
	if productID <= 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.NewStock < 0 {
		return AdminProductOutput{}, NewHTTPError(http.StatusBadRequest, "stock must not be negative")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "manual adjustment"
	}

	var before, after model.Product

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		before = p

		if err := r.Inventory().SetStock(ctx, productID, in.NewStock); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: adminUserID,
			Delta:       in.NewStock - p.Stock,
			Reason:      reason,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after = p
		after.Stock = in.NewStock
		return nil
	})

	if err != nil {
		return AdminProductOutput{}, err
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionUpdateStock, model.AuditResourceProduct, productID,
		map[string]any{"stock": before.Stock},
		map[string]any{"stock": after.Stock, "reason": reason},
	)

	return toAdminProduct(after), nil
}

func (u *ProductUsecase) ListLowStock(ctx context.Context, threshold *int64) ([]AdminProductOutput, error) {
	if threshold != nil && *threshold < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "threshold must not be negative")
	}

	products, err := u.products.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]AdminProductOutput, 0, len(products))
	for _, p := range products {
		outs = append(outs, toAdminProduct(p))
	}
	return outs, nil
}

// 監査ログの書き込み失敗で操作自体は失敗させない
func (u *ProductUsecase) writeAudit(ctx context.Context, actorID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before, after map[string]any) {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	_ = u.auditLogs.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
}

func toPublicProduct(p model.Product, lang string) PublicProductOutput {
	return PublicProductOutput{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name.Get(lang),
		Description: p.Description.Get(lang),
		PriceCents:  p.PriceCents,
		InStock:     p.IsInStock(),
		CategoryID:  p.CategoryID,
	}
}

func toAdminProduct(p model.Product) AdminProductOutput {
	return AdminProductOutput{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		PriceCents:        p.PriceCents,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		IsActive:          p.IsActive,
		CategoryID:        p.CategoryID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
