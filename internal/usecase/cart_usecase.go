package usecase

import (
	"context"
	"fmt"
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CartUsecase struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	cfg       config.Config
}

func NewCartUsecase(
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	cfg config.Config,
) *CartUsecase {
	return &CartUsecase{carts: carts, cartItems: cartItems, products: products, cfg: cfg}
}

type CartItemOutput struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	Quantity          int64  `json:"quantity"`
	UnitPriceSnapshot int64  `json:"unit_price_snapshot"`
	CurrentPriceCents int64  `json:"current_price_cents"`
	LineTotalCents    int64  `json:"line_total_cents"`
	Available         bool   `json:"available"`
}

type CartOutput struct {
	CartID        int64            `json:"cart_id"`
	Items         []CartItemOutput `json:"items"`
	ItemCount     int64            `json:"item_count"`
	SubtotalCents int64            `json:"subtotal_cents"`
}

type CartIssue struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

type CartValidationOutput struct {
	Valid  bool        `json:"valid"`
	Issues []CartIssue `json:"issues"`
}

// カート取得。無ければ空のACTIVEカートを作る。
// 小計は現在価格ベース（注文確定時と同じ値になる）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartOutput(ctx, cart.ID)
}

type AddItemInput struct {
	ProductID int64
	Quantity  int64
}

func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddItemInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	if in.Quantity <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}

	//非公開・削除済み商品は追加不可
	prod, err := u.products.FindActiveByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//既存明細とのマージ後の数量で在庫チェック
	existing, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	var current int64 = 0
	for _, ci := range existing {
		if ci.ProductID == in.ProductID {
			current = ci.Quantity
			break
		}
	}
	if current+in.Quantity > prod.Stock {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
				prod.Name.Get(u.cfg.DefaultLang), current+in.Quantity, prod.Stock))
	}

	if err := u.cartItems.UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity, prod.PriceCents); err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartOutput(ctx, cart.ID)
}

func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, userID, cartItemID, quantity int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if quantity < 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must not be negative")
	}

	item, err := u.findOwnedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartOutput{}, err
	}

	//数量0は削除扱い
	if quantity == 0 {
		if err := u.cartItems.DeleteByID(ctx, item.ID); err != nil {
			return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.buildCartOutput(ctx, item.CartID)
	}

	prod, err := u.products.FindActiveByID(ctx, item.ProductID)
	if err == repo.ErrNotFound {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product is no longer available")
	}
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if quantity > prod.Stock {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
				prod.Name.Get(u.cfg.DefaultLang), quantity, prod.Stock))
	}

	if err := u.cartItems.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartOutput(ctx, item.CartID)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, userID, cartItemID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	item, err := u.findOwnedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartOutput{}, err
	}

	if err := u.cartItems.DeleteByID(ctx, item.ID); err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartOutput(ctx, item.CartID)
}

func (u *CartUsecase) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.carts.Clear(ctx, cart.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// ヘッダーのバッジ用。カートが無ければ0。
func (u *CartUsecase) Count(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var count int64 = 0
	for _, it := range items {
		count += it.Quantity
	}
	return count, nil
}

// チェックアウト前の事前検証。問題点を列挙するだけで、カートは変更しない。
func (u *CartUsecase) Validate(ctx context.Context, userID int64) (CartValidationOutput, error) {
	if userID <= 0 {
		return CartValidationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	out := CartValidationOutput{Valid: true, Issues: []CartIssue{}}

	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return out, nil
	}
	if err != nil {
		return CartValidationOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartValidationOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, it := range items {
		prod, err := u.products.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			out.Issues = append(out.Issues, CartIssue{
				ProductID: it.ProductID,
				Reason:    "product no longer exists",
			})
			continue
		}
		if err != nil {
			return CartValidationOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		name := prod.Name.Get(u.cfg.DefaultLang)
		if !prod.IsActive {
			out.Issues = append(out.Issues, CartIssue{
				ProductID:   it.ProductID,
				ProductName: name,
				Reason:      "product is no longer available",
			})
			continue
		}
		if prod.Stock < it.Quantity {
			out.Issues = append(out.Issues, CartIssue{
				ProductID:   it.ProductID,
				ProductName: name,
				Reason:      fmt.Sprintf("insufficient stock: requested %d, available %d", it.Quantity, prod.Stock),
			})
		}
	}

	out.Valid = len(out.Issues) == 0
	return out, nil
}

func (u *CartUsecase) findOwnedItem(ctx context.Context, userID, cartItemID int64) (model.CartItem, error) {
	if cartItemID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.cartItems.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		//他人の明細は存在しない扱い
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	item, err := u.cartItems.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}
	if err != nil {
		return model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

func (u *CartUsecase) buildCartOutput(ctx context.Context, cartID int64) (CartOutput, error) {
	items, err := u.cartItems.ListByCartID(ctx, cartID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartOutput{CartID: cartID, Items: make([]CartItemOutput, 0, len(items))}
	for _, it := range items {
		io := CartItemOutput{
			ID:                it.ID,
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			UnitPriceSnapshot: it.UnitPriceSnapshot,
		}

		prod, err := u.products.FindByID(ctx, it.ProductID)
		if err == nil {
			io.ProductName = prod.Name.Get(u.cfg.DefaultLang)
			io.CurrentPriceCents = prod.PriceCents
			io.Available = prod.IsActive && prod.Stock >= it.Quantity
			io.LineTotalCents = prod.PriceCents * it.Quantity
		} else if err != repo.ErrNotFound {
			return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.Items = append(out.Items, io)
		out.ItemCount += it.Quantity
		out.SubtotalCents += io.LineTotalCents
	}

	return out, nil
}
