package e2e

import (
	"context"
	"net/http"
	"testing"
)

// 登録→住所→カート→注文→決済→キャンセルの一連の流れ。
// 商品ID 1の在庫があるシードデータが前提。
func TestShopFlow_OrderLifecycle(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	pair := registerAndLogin(t, c, ctx)
	token := pair.AccessToken

	//住所登録
	resp, body := c.doJSON(ctx, t, http.MethodPost, "/addresses", token, mustMarshal(t, map[string]any{
		"first_name":  "Taro",
		"last_name":   "Yamada",
		"line1":       "1-2-3",
		"city":        "Shibuya",
		"state":       "Tokyo",
		"postal_code": "150-0001",
		"country":     "JP",
	}))
	requireStatus(t, resp, http.StatusCreated, body)

	var addr AddressResponse
	mustUnmarshal(t, body, &addr)

	//最初の住所は自動でデフォルトになる
	if !addr.IsDefault {
		t.Fatalf("first address should be default: body=%s", string(body))
	}

	//カートに追加
	resp, body = c.doJSON(ctx, t, http.MethodPost, "/cart/items", token, mustMarshal(t, map[string]any{
		"product_id": 1,
		"quantity":   1,
	}))
	requireStatus(t, resp, http.StatusOK, body)

	var cart CartResponse
	mustUnmarshal(t, body, &cart)
	if cart.ItemCount != 1 {
		t.Fatalf("item_count=%d want 1", cart.ItemCount)
	}

	//注文確定
	resp, body = c.doJSON(ctx, t, http.MethodPost, "/orders", token, mustMarshal(t, map[string]any{
		"shipping_address_id": addr.ID,
	}))
	requireStatus(t, resp, http.StatusCreated, body)

	var order OrderResponse
	mustUnmarshal(t, body, &order)
	if order.Status != "PENDING" {
		t.Fatalf("status=%s want PENDING", order.Status)
	}
	if order.TotalCents != order.SubtotalCents+order.TaxCents+order.ShippingCents {
		t.Fatalf("total mismatch: %+v", order)
	}

	//確定後はカートが空になっている
	resp, body = c.doJSON(ctx, t, http.MethodGet, "/cart", token, nil)
	requireStatus(t, resp, http.StatusOK, body)
	mustUnmarshal(t, body, &cart)
	if cart.ItemCount != 0 {
		t.Fatalf("cart not cleared: item_count=%d", cart.ItemCount)
	}

	//決済（シミュレーション）
	resp, body = c.doJSON(ctx, t, http.MethodPost, "/orders/"+toStr(order.ID)+"/payment", token, mustMarshal(t, map[string]string{
		"payment_method": "credit_card",
	}))
	requireStatus(t, resp, http.StatusOK, body)
	mustUnmarshal(t, body, &order)
	if order.Status != "PAID" {
		t.Fatalf("status=%s want PAID", order.Status)
	}

	//キャンセル（PAIDは可）
	resp, body = c.doJSON(ctx, t, http.MethodPost, "/orders/"+toStr(order.ID)+"/cancel", token, nil)
	requireStatus(t, resp, http.StatusOK, body)
	mustUnmarshal(t, body, &order)
	if order.Status != "CANCELED" {
		t.Fatalf("status=%s want CANCELED", order.Status)
	}
}

func TestShopFlow_PublicCatalogNeedsNoAuth(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	resp, body := c.doJSON(ctx, t, http.MethodGet, "/products?page=1&limit=5", "", nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = c.doJSON(ctx, t, http.MethodGet, "/healthz", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
}

func TestShopFlow_CartRequiresAuth(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	resp, body := c.doJSON(ctx, t, http.MethodGet, "/cart", "", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}

// デフォルト住所を削除したら残りの住所がデフォルトに昇格する
func TestShopFlow_AddressDefaultReassignedOnDelete(t *testing.T) {
	c := NewTestClient(t)
	ctx := context.Background()

	pair := registerAndLogin(t, c, ctx)
	token := pair.AccessToken

	first := createAddress(t, c, ctx, token, "1-2-3")
	if !first.IsDefault {
		t.Fatalf("first address should be default")
	}

	second := createAddress(t, c, ctx, token, "4-5-6")
	if second.IsDefault {
		t.Fatalf("second address should not be default")
	}

	//デフォルトを削除
	resp, body := c.doJSON(ctx, t, http.MethodDelete, "/addresses/"+toStr(first.ID), token, nil)
	requireStatus(t, resp, http.StatusNoContent, body)

	//残った住所がデフォルトになっている
	resp, body = c.doJSON(ctx, t, http.MethodGet, "/addresses/default", token, nil)
	requireStatus(t, resp, http.StatusOK, body)

	var promoted AddressResponse
	mustUnmarshal(t, body, &promoted)
	if promoted.ID != second.ID {
		t.Fatalf("default should move to the surviving address: got id=%d want id=%d", promoted.ID, second.ID)
	}
	if !promoted.IsDefault {
		t.Fatalf("surviving address should be default: body=%s", string(body))
	}
}

func createAddress(t *testing.T, c *TestClient, ctx context.Context, token, line1 string) AddressResponse {
	t.Helper()

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/addresses", token, mustMarshal(t, map[string]any{
		"first_name":  "Taro",
		"last_name":   "Yamada",
		"line1":       line1,
		"city":        "Shibuya",
		"state":       "Tokyo",
		"postal_code": "150-0001",
		"country":     "JP",
	}))
	requireStatus(t, resp, http.StatusCreated, body)

	var addr AddressResponse
	mustUnmarshal(t, body, &addr)
	return addr
}
