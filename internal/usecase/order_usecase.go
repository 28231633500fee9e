package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/infra/events"
	repo "app/internal/repository"
)

// 注文番号の採番（ORD-XXXXXXXX）
type OrderNumberGenerator interface {
	Next() string
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	numberGen OrderNumberGenerator
	publisher events.OrderEventPublisher
	cfg       config.Config
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	numberGen OrderNumberGenerator,
	publisher events.OrderEventPublisher,
	cfg config.Config,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		addresses: addresses,
		numberGen: numberGen,
		publisher: publisher,
		cfg:       cfg,
	}
}

type PlaceOrderInput struct {
	ShippingAddressID int64
	BillingAddressID  *int64
	Notes             string
	PaymentMethod     string
}

type GuestOrderItemInput struct {
	ProductID int64
	Quantity  int64
}

type PlaceGuestOrderInput struct {
	Items           []GuestOrderItemInput
	ShippingAddress model.JSONMap
	BillingAddress  model.JSONMap
	ContactEmail    string
	Notes           string
	PaymentMethod   string
}

type OrderItemOutput struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	ProductSKU      string `json:"product_sku"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	Quantity        int64  `json:"quantity"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type PaymentOutput struct {
	ID          int64  `json:"id"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	OrderNumber     string            `json:"order_number"`
	UserID          *int64            `json:"user_id"`
	Status          string            `json:"status"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	TaxCents        int64             `json:"tax_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	TotalCents      int64             `json:"total_cents"`
	Currency        string            `json:"currency"`
	ShippingAddress model.JSONMap     `json:"shipping_address,omitempty"`
	BillingAddress  model.JSONMap     `json:"billing_address,omitempty"`
	TrackingNumber  string            `json:"tracking_number,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Payment         *PaymentOutput    `json:"payment,omitempty"`
	Items           []OrderItemOutput `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	ShippedAt       *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
}

type GuestOrderOutput struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	TotalCents  int64  `json:"total_cents"`
}

// クーポンは未実装。常に0を返すスタブ。
func (u *OrderUsecase) discountFor(subtotal int64) int64 {
	return 0
}

// カートから注文を作る。
// 検証（空カート→非公開商品→在庫）を全部通してから書き込みを始め、
// 書き込みは1トランザクション。途中で失敗したら何も残らない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ShippingAddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_address_id is required")
	}

	//住所の存在＋所有チェック（他人の住所は存在しない扱い）
	shipAddr, err := u.findOwnedAddress(ctx, userID, in.ShippingAddressID)
	if err != nil {
		return OrderOutput{}, err
	}

	//billing未指定ならshippingを使う
	billAddr := shipAddr
	if in.BillingAddressID != nil {
		billAddr, err = u.findOwnedAddress(ctx, userID, *in.BillingAddressID)
		if err != nil {
			return OrderOutput{}, err
		}
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "pending"
	}

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		lines := make([]orderLine, 0, len(cartItems))
		for _, ci := range cartItems {
			lines = append(lines, orderLine{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}

		order, items, err := u.buildAndPersistOrder(ctx, r, lines, orderParams{
			UserID:          &userID,
			ShippingAddress: shipAddr.Snapshot(),
			BillingAddress:  billAddr.Snapshot(),
			Notes:           in.Notes,
			PaymentMethod:   method,
		})
		if err != nil {
			return err
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		payment, err := r.Payments().FindByOrderID(ctx, order.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(order, items, &payment)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.publisher.Publish(ctx, events.OrderEvent{
		Type:        "order.created",
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		Status:      out.Status,
		TotalCents:  out.TotalCents,
		OccurredAt:  time.Now(),
	})

	return out, nil
}

// ゲスト注文。カートの代わりにリクエストの明細リスト、住所はインラインJSON。
// 在庫チェック→スナップショット→減算→決済作成の流れは会員注文と同じ。
func (u *OrderUsecase) PlaceGuestOrder(ctx context.Context, in PlaceGuestOrderInput) (GuestOrderOutput, error) {
	if len(in.Items) == 0 {
		return GuestOrderOutput{}, NewHTTPError(http.StatusBadRequest, "items are required")
	}
	email := strings.TrimSpace(in.ContactEmail)
	if email == "" || !strings.Contains(email, "@") {
		return GuestOrderOutput{}, NewHTTPError(http.StatusBadRequest, "contact_email is required")
	}
	if len(in.ShippingAddress) == 0 {
		return GuestOrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_address is required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return GuestOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid item")
		}
	}

	billing := in.BillingAddress
	if len(billing) == 0 {
		billing = in.ShippingAddress
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "pending"
	}

	lines := make([]orderLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, orderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	var out GuestOrderOutput
	var created model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, _, err := u.buildAndPersistOrder(ctx, r, lines, orderParams{
			UserID:          nil,
			ContactEmail:    email,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  billing,
			Notes:           in.Notes,
			PaymentMethod:   method,
		})
		if err != nil {
			return err
		}

		created = order
		out = GuestOrderOutput{
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			TotalCents:  order.TotalCents,
		}
		return nil
	})

	if err != nil {
		return GuestOrderOutput{}, err
	}

	u.publisher.Publish(ctx, events.OrderEvent{
		Type:        "order.created",
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Status:      string(created.Status),
		TotalCents:  created.TotalCents,
		OccurredAt:  time.Now(),
	})

	return out, nil
}

type orderLine struct {
	ProductID int64
	Quantity  int64
}

type orderParams struct {
	UserID          *int64
	ContactEmail    string
	ShippingAddress model.JSONMap
	BillingAddress  model.JSONMap
	Notes           string
	PaymentMethod   string
}

// 検証→スナップショット→減算→注文/明細/決済作成。トランザクション内で呼ぶこと。
func (u *OrderUsecase) buildAndPersistOrder(
	ctx context.Context,
	r repo.TxRepos,
	lines []orderLine,
	p orderParams,
) (model.Order, []model.OrderItem, error) {
	//フェーズ1: 書き込み前に全明細を検証してスナップショットを作る
	items := make([]model.OrderItem, 0, len(lines))
	var subtotal int64 = 0

	for _, line := range lines {
		prod, err := r.Products().FindByID(ctx, line.ProductID)
		if err == repo.ErrNotFound {
			return model.Order{}, nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("product %d is no longer available", line.ProductID))
		}
		if err != nil {
			return model.Order{}, nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !prod.IsActive {
			return model.Order{}, nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("product %s is no longer available", prod.Name.Get(u.cfg.DefaultLang)))
		}
		if prod.Stock < line.Quantity {
			return model.Order{}, nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("insufficient stock for %s: requested %d, available %d (short by %d)",
					prod.Name.Get(u.cfg.DefaultLang), line.Quantity, prod.Stock, line.Quantity-prod.Stock))
		}

		//スナップショットは注文時点の現在価格で作る（カート追加時の価格ではない）
		lineTotal := prod.PriceCents * line.Quantity
		items = append(items, model.OrderItem{
			ProductID:       prod.ID,
			ProductName:     prod.Name.Get(u.cfg.DefaultLang),
			ProductSKU:      prod.SKU,
			UnitPriceCents:  prod.PriceCents,
			Quantity:        line.Quantity,
			TotalPriceCents: lineTotal,
			CreatedAt:       time.Now(),
		})
		subtotal += lineTotal
	}

	//フェーズ2: 条件付き減算。同時注文に負けたらここでfalseになり全体がロールバックされる
	for i, line := range lines {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return model.Order{}, nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return model.Order{}, nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("insufficient stock for %s: requested %d", items[i].ProductName, line.Quantity))
		}
	}

	tax := subtotal * u.cfg.TaxRateBP / 10000
	shipping := u.cfg.ShippingFeeCents
	discount := u.discountFor(subtotal)
	total := subtotal + tax + shipping - discount

	now := time.Now()
	order := model.Order{
		OrderNumber:     u.numberGen.Next(),
		UserID:          p.UserID,
		ContactEmail:    p.ContactEmail,
		Status:          model.OrderStatusPending,
		SubtotalCents:   subtotal,
		TaxCents:        tax,
		ShippingCents:   shipping,
		DiscountCents:   discount,
		TotalCents:      total,
		Currency:        u.cfg.Currency,
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		Notes:           p.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return model.Order{}, nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	order.ID = orderID

	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return model.Order{}, nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for i := range items {
		items[i].OrderID = orderID
	}

	//決済レコードは注文と同時に作る（1:1、金額は注文総額で固定）
	_, err = r.Payments().Create(ctx, model.Payment{
		OrderID:     orderID,
		Method:      p.PaymentMethod,
		Status:      model.PaymentStatusPending,
		AmountCents: total,
		Currency:    u.cfg.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Order{}, nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return order, items, nil
}

type ProcessPaymentInput struct {
	PaymentMethod string
}

// 決済処理（シミュレーション）。PENDINGの注文だけ受け付ける。
func (u *OrderUsecase) ProcessPayment(ctx context.Context, userID int64, orderID int64, in ProcessPaymentInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment_method is required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusBadRequest, "order cannot be paid")
		}

		payment, err := r.Payments().FindByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//外部ゲートウェイは呼ばない。応答の形だけ記録する。
		now := time.Now()
		payment.Method = method
		payment.Status = model.PaymentStatusCompleted
		payment.GatewayResponse = model.JSONMap{
			"transaction_id": fmt.Sprintf("sim_%s_%d", o.OrderNumber, now.Unix()),
			"processed_at":   now.UTC().Format(time.RFC3339),
			"method":         method,
		}
		if err := r.Payments().Update(ctx, payment); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusPaid); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.Status = model.OrderStatusPaid

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items, &payment)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.publisher.Publish(ctx, events.OrderEvent{
		Type:        "order.paid",
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		Status:      out.Status,
		TotalCents:  out.TotalCents,
		OccurredAt:  time.Now(),
	})

	return out, nil
}

// 注文キャンセル。PENDING/PAIDのみ。
// 在庫を明細数量ぶん戻し、決済がCOMPLETEDならREFUNDEDにする。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusPaid {
			return NewHTTPError(http.StatusBadRequest, "order cannot be canceled")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫戻し
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		payment, err := r.Payments().FindByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if payment.Status == model.PaymentStatusCompleted {
			payment.Status = model.PaymentStatusRefunded
			if err := r.Payments().Update(ctx, payment); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCanceled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.Status = model.OrderStatusCanceled

		out = toOrderOutput(o, items, &payment)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.publisher.Publish(ctx, events.OrderEvent{
		Type:        "order.canceled",
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		Status:      out.Status,
		TotalCents:  out.TotalCents,
		OccurredAt:  time.Now(),
	})

	return out, nil
}

// 注文番号で取得（本人のみ）
func (u *OrderUsecase) GetByOrderNumber(ctx context.Context, userID int64, orderNumber string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderNumber) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order number")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderNumber(ctx, orderNumber)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		//他人の注文は存在しない扱い
		if o.UserID == nil || *o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		payment, err := r.Payments().FindByOrderID(ctx, o.ID)
		if err != nil && err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		var pp *model.Payment
		if err == nil {
			pp = &payment
		}
		out = toOrderOutput(o, items, pp)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items, nil))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) findOwnedAddress(ctx context.Context, userID, addressID int64) (model.Address, error) {
	addr, err := u.addresses.FindByID(ctx, addressID)
	if err == repo.ErrNotFound {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	return addr, nil
}

func (u *OrderUsecase) findOwnedOrder(ctx context.Context, r repo.TxRepos, userID, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID == nil || *o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	return o, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, payment *model.Payment) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			ProductSKU:      it.ProductSKU,
			UnitPriceCents:  it.UnitPriceCents,
			Quantity:        it.Quantity,
			TotalPriceCents: it.TotalPriceCents,
		})
	}

	out := OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		SubtotalCents:   o.SubtotalCents,
		TaxCents:        o.TaxCents,
		ShippingCents:   o.ShippingCents,
		DiscountCents:   o.DiscountCents,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		Items:           outItems,
		CreatedAt:       o.CreatedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
	}

	if payment != nil {
		out.Payment = &PaymentOutput{
			ID:          payment.ID,
			Method:      payment.Method,
			Status:      string(payment.Status),
			AmountCents: payment.AmountCents,
		}
	}

	return out
}
