package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/events"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditLogs repo.AuditLogRepository
	publisher events.OrderEventPublisher
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	auditLogs repo.AuditLogRepository,
	publisher events.OrderEventPublisher,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditLogs: auditLogs, publisher: publisher}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type AdminOrderPageOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

var validOrderStatuses = map[model.OrderStatus]bool{
	model.OrderStatusPending:   true,
	model.OrderStatusPaid:      true,
	model.OrderStatusShipped:   true,
	model.OrderStatusDelivered: true,
	model.OrderStatusCanceled:  true,
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (AdminOrderPageOutput, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}

	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status != "" && !validOrderStatuses[model.OrderStatus(status)] {
		return AdminOrderPageOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}

	var out AdminOrderPageOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, repo.AdminOrderListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: status,
			UserID: in.UserID,
			From:   in.From,
			To:     in.To,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			orderItems, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			items = append(items, toOrderOutput(o, orderItems, nil))
		}

		out = AdminOrderPageOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})

	if err != nil {
		return AdminOrderPageOutput{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
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

type AdminUpdateStatusInput struct {
	Status         string
	TrackingNumber string
}

// 管理者によるステータス上書き。通常の遷移順に縛られないが、
// 終端（DELIVERED/CANCELED）からは動かせない。
// CANCELEDへは在庫戻し＋返金、SHIPPED/DELIVEREDはタイムスタンプを刻む。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, adminUserID, orderID int64, in AdminUpdateStatusInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	target := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !validOrderStatuses[target] {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	var prev model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusBadRequest, "order is in a terminal status")
		}
		prev = o.Status

		if target == o.Status {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(o, items, nil)
			return nil
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()

		switch target {
		case model.OrderStatusCanceled:
			//在庫戻し＋完了済み決済の返金
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			payment, err := r.Payments().FindByOrderID(ctx, o.ID)
			if err != nil && err != repo.ErrNotFound {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err == nil && payment.Status == model.PaymentStatusCompleted {
				payment.Status = model.PaymentStatusRefunded
				if err := r.Payments().Update(ctx, payment); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

		case model.OrderStatusShipped:
			o.ShippedAt = &now
			if tn := strings.TrimSpace(in.TrackingNumber); tn != "" {
				o.TrackingNumber = tn
			}

		case model.OrderStatusDelivered:
			o.DeliveredAt = &now
			//SHIPPEDを飛ばした場合でもshipped_atは埋める
			if o.ShippedAt == nil {
				o.ShippedAt = &now
			}
			if tn := strings.TrimSpace(in.TrackingNumber); tn != "" {
				o.TrackingNumber = tn
			}
		}

		if target == model.OrderStatusShipped || target == model.OrderStatusDelivered {
			if err := r.Orders().UpdateShipment(ctx, o); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, target); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.Status = target

		out = toOrderOutput(o, items, nil)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if prev != target {
		beforeJSON, _ := json.Marshal(map[string]any{"status": string(prev)})
		afterJSON, _ := json.Marshal(map[string]any{"status": string(target)})
		_ = u.auditLogs.Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		})

		u.publisher.Publish(ctx, events.OrderEvent{
			Type:        "order.status_changed",
			OrderID:     out.ID,
			OrderNumber: out.OrderNumber,
			Status:      out.Status,
			TotalCents:  out.TotalCents,
			OccurredAt:  time.Now(),
		})
	}

	return out, nil
}
