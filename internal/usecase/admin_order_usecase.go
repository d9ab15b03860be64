package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"store/internal/domain/model"
	repo "store/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
	orderUC   *OrderUsecase
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	users repo.UserRepository,
	auditRepo repo.AuditLogRepository,
	orderUC *OrderUsecase,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, users: users, auditRepo: auditRepo, orderUC: orderUC}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderOutput struct {
	OrderOutput
	Customer *CustomerOutput `json:"customer,omitempty"`
}

// 全ユーザーの注文一覧（顧客情報つき）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]AdminOrderOutput, error) {
	if f.Page < 1 {
		return []AdminOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []AdminOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []AdminOrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]AdminOrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			out, err := u.orderUC.buildOrderOutput(ctx, o, items)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			a := AdminOrderOutput{OrderOutput: out}
			if user, err := u.users.FindByID(ctx, o.UserID); err == nil {
				a.Customer = &CustomerOutput{
					ID:        user.ID,
					Email:     user.Email,
					FirstName: user.FirstName,
					LastName:  user.LastName,
				}
			}
			outs = append(outs, a)
		}
		return nil
	})

	if err != nil {
		return []AdminOrderOutput{}, err
	}
	return outs, nil
}

// ステータス更新。cancelled/completedは終端。
// cancelledへ落とすときだけ在庫を戻す（pending/processingから）。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}
		// 終端ガード
		if o.Status == model.OrderStatusCancelled {
			return NewHTTPError(http.StatusBadRequest, "cannot change cancelled order")
		}
		if o.Status == model.OrderStatusCompleted {
			return NewHTTPError(http.StatusBadRequest, "cannot change completed order")
		}

		//cancelledに落とすときだけ在庫戻し
		if newStatus == model.OrderStatusCancelled {
			if o.Status == model.OrderStatusPending || o.Status == model.OrderStatusProcessing {
				items, err := r.OrderItems().ListByOrderID(ctx, orderID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}

				for _, it := range items {
					if err := r.Inventory().IncreaseStock(ctx, it.ProductVariantID, it.Quantity); err != nil {
						return NewHTTPError(http.StatusInternalServerError, "db error")
					}
				}
			}
		}

		beforeStatus := string(o.Status)
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "order not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
