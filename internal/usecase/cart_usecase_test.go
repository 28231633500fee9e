package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

func newCartUsecase(carts *CartRepoMock, cartItems *CartItemRepoMock, products *ProductRepoMock) *usecase.CartUsecase {
	return usecase.NewCartUsecase(carts, cartItems, products, testConfig())
}

func TestCartUsecase_GetCart_CreatesCartLazily(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1, Status: model.CartStatusActive}, nil)

	cartItems := new(CartItemRepoMock)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	uc := newCartUsecase(carts, cartItems, new(ProductRepoMock))

	out, err := uc.GetCart(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), out.CartID)
	assert.Equal(t, 0, len(out.Items))
	assert.Equal(t, int64(0), out.SubtotalCents)

	carts.AssertExpectations(t)
}

func TestCartUsecase_AddItem_InactiveProduct_NotFound(t *testing.T) {
	products := new(ProductRepoMock)
	products.On("FindActiveByID", mock.Anything, int64(7)).Return(model.Product{}, repo.ErrNotFound)

	uc := newCartUsecase(new(CartRepoMock), new(CartItemRepoMock), products)

	_, err := uc.AddItem(context.Background(), 1, usecase.AddItemInput{ProductID: 7, Quantity: 1})
	assertErrContains(t, err, "product not found")
}

func TestCartUsecase_AddItem_MergedQuantityExceedsStock(t *testing.T) {
	ctx := context.Background()

	products := new(ProductRepoMock)
	products.On("FindActiveByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: model.LocalizedText{"en": "Widget"}, PriceCents: 5000, IsActive: true, Stock: 5,
	}, nil)

	carts := new(CartRepoMock)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)

	//既に4個入っている。+2は在庫5を超える
	cartItems := new(CartItemRepoMock)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 4},
	}, nil)

	uc := newCartUsecase(carts, cartItems, products)

	_, err := uc.AddItem(ctx, 1, usecase.AddItemInput{ProductID: 7, Quantity: 2})
	assertErrContains(t, err, "insufficient stock for Widget: requested 6, available 5")

	cartItems.AssertNotCalled(t, "UpsertByCartAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_AddItem_Success_SnapshotsPrice(t *testing.T) {
	ctx := context.Background()

	products := new(ProductRepoMock)
	products.On("FindActiveByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: model.LocalizedText{"en": "Widget"}, PriceCents: 5000, IsActive: true, Stock: 10,
	}, nil)
	products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: model.LocalizedText{"en": "Widget"}, PriceCents: 5000, IsActive: true, Stock: 10,
	}, nil)

	carts := new(CartRepoMock)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)

	cartItems := new(CartItemRepoMock)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil).Once()
	cartItems.On("UpsertByCartAndProduct", mock.Anything, int64(10), int64(7), int64(2), int64(5000)).Return(nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 2, UnitPriceSnapshot: 5000},
	}, nil)

	uc := newCartUsecase(carts, cartItems, products)

	out, err := uc.AddItem(ctx, 1, usecase.AddItemInput{ProductID: 7, Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), out.ItemCount)
	assert.Equal(t, int64(10000), out.SubtotalCents)

	cartItems.AssertExpectations(t)
}

func TestCartUsecase_UpdateItemQuantity_ZeroRemoves(t *testing.T) {
	ctx := context.Background()

	cartItems := new(CartItemRepoMock)
	cartItems.On("IsOwnedByUser", mock.Anything, int64(3), int64(1)).Return(true, nil)
	cartItems.On("FindByID", mock.Anything, int64(3)).Return(model.CartItem{ID: 3, CartID: 10, ProductID: 7, Quantity: 2}, nil)
	cartItems.On("DeleteByID", mock.Anything, int64(3)).Return(nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	uc := newCartUsecase(new(CartRepoMock), cartItems, new(ProductRepoMock))

	out, err := uc.UpdateItemQuantity(ctx, 1, 3, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))

	cartItems.AssertExpectations(t)
}

func TestCartUsecase_UpdateItemQuantity_OtherUsersItem_NotFound(t *testing.T) {
	cartItems := new(CartItemRepoMock)
	cartItems.On("IsOwnedByUser", mock.Anything, int64(3), int64(1)).Return(false, nil)

	uc := newCartUsecase(new(CartRepoMock), cartItems, new(ProductRepoMock))

	_, err := uc.UpdateItemQuantity(context.Background(), 1, 3, 2)
	assertErrContains(t, err, "cart item not found")
}

func TestCartUsecase_Count_NoCart_ReturnsZero(t *testing.T) {
	carts := new(CartRepoMock)
	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	uc := newCartUsecase(carts, new(CartItemRepoMock), new(ProductRepoMock))

	count, err := uc.Count(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCartUsecase_Validate_ReportsAllIssues(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)

	cartItems := new(CartItemRepoMock)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 5},
		{ID: 2, CartID: 10, ProductID: 8, Quantity: 1},
		{ID: 3, CartID: 10, ProductID: 9, Quantity: 1},
	}, nil)

	products := new(ProductRepoMock)
	products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: model.LocalizedText{"en": "Widget"}, IsActive: true, Stock: 3,
	}, nil)
	products.On("FindByID", mock.Anything, int64(8)).Return(model.Product{
		ID: 8, Name: model.LocalizedText{"en": "Gadget"}, IsActive: false, Stock: 10,
	}, nil)
	products.On("FindByID", mock.Anything, int64(9)).Return(model.Product{
		ID: 9, Name: model.LocalizedText{"en": "Doohickey"}, IsActive: true, Stock: 10,
	}, nil)

	uc := newCartUsecase(carts, cartItems, products)

	out, err := uc.Validate(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, 2, len(out.Issues))
}

func TestCartUsecase_Clear_NoCart_NoOp(t *testing.T) {
	carts := new(CartRepoMock)
	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	uc := newCartUsecase(carts, new(CartItemRepoMock), new(ProductRepoMock))

	assert.NoError(t, uc.Clear(context.Background(), 1))
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}
