package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopapi/internal/apperror"
	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	audit repo.AuditLogRepository
}

func NewAdminOrderUsecase(tx repo.TransactionManager, audit repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, audit: audit}
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, actor ActingUser, f repo.OrderListFilter) ([]OrderOutput, error) {
	if !actor.Privileged() {
		return []OrderOutput{}, apperror.NewAuthorization("admin only")
	}
	if f.Page < 1 {
		return []OrderOutput{}, apperror.NewValidation("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, apperror.NewValidation("invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return []OrderOutput{}, apperror.NewValidation("invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().List(ctx, f)
		if err != nil {
			return apperror.NewInternal("list orders", err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return apperror.NewInternal("load order items", err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// UpdateStatusは注文ステータスを更新する。
// 対象は pending/processing/shipped/delivered のみ。キャンセルは専用操作で行う。
// 前方のステータスを飛ばす指定は許している（例: pending→delivered）。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor ActingUser, orderID int64, status string) error {
	if !actor.Privileged() {
		return apperror.NewAuthorization("admin only")
	}
	if orderID <= 0 {
		return apperror.NewValidation("invalid order id")
	}

	status = strings.TrimSpace(status)
	if status == "" {
		return apperror.NewValidation("status is required")
	}
	target := model.OrderStatus(status)
	if !target.Valid() {
		return apperror.NewValidation("invalid status")
	}
	if target == model.OrderStatusCancelled {
		return apperror.NewValidation("use the cancel operation to cancel an order")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		// すでに同じなら何もしない（200）
		if o.Status == target {
			return nil
		}
		// 終端ガード
		if o.Status == model.OrderStatusCancelled {
			return apperror.NewConflict("cannot change a cancelled order")
		}
		if o.Status == model.OrderStatusDelivered {
			return apperror.NewConflict("cannot change a delivered order")
		}

		now := time.Now()
		fields := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		//該当の遷移で1回だけタイムスタンプを押す
		if target == model.OrderStatusDelivered && o.DeliveredAt == nil {
			fields["delivered_at"] = now
		}
		if target == model.OrderStatusProcessing && o.PaidAt == nil {
			fields["paid_at"] = now
		}

		if err := r.Orders().UpdateFields(ctx, orderID, fields); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
			}
			return apperror.NewInternal("update order", err)
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + string(o.Status) + `"}`
		afterJSON := `{"status":"` + string(target) + `"}`
		if err := u.audit.Create(ctx, model.AuditLog{
			ActorUserID:  actor.ID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return apperror.NewInternal("write audit log", err)
		}

		return nil
	})
}

// ProcessRefundは配送済みまたはキャンセル済みの注文に返金を1回だけ記録する。
func (u *AdminOrderUsecase) ProcessRefund(ctx context.Context, actor ActingUser, orderID int64, amount int64, reason string) (RefundOutput, error) {
	if !actor.Privileged() {
		return RefundOutput{}, apperror.NewAuthorization("admin only")
	}
	if orderID <= 0 {
		return RefundOutput{}, apperror.NewValidation("invalid order id")
	}
	if amount <= 0 {
		return RefundOutput{}, apperror.NewValidation("amount is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RefundOutput{}, apperror.NewValidation("reason is required")
	}

	var out RefundOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		//返金できるのは終端状態の注文だけ
		if o.Status != model.OrderStatusDelivered && o.Status != model.OrderStatusCancelled {
			return apperror.NewConflict("refunds are only allowed for delivered or cancelled orders")
		}
		if amount > o.TotalPrice {
			return apperror.NewValidation("refund amount exceeds order total")
		}
		//処理済みの返金は上書きしない
		if o.RefundStatus == model.RefundStatusProcessed {
			return apperror.NewConflict("refund already processed")
		}

		now := time.Now()
		err = r.Orders().UpdateFields(ctx, orderID, map[string]any{
			"refund_status":       model.RefundStatusProcessed,
			"refund_amount":       amount,
			"refund_reason":       reason,
			"refund_processed_by": actor.ID,
			"refund_processed_at": now,
			"updated_at":          now,
		})
		if err != nil {
			return apperror.NewInternal("update order", err)
		}

		beforeJSON := `{"refundStatus":"` + string(o.RefundStatus) + `"}`
		afterJSON := `{"refundStatus":"processed","amount":` + strconv.FormatInt(amount, 10) + `}`
		if err := u.audit.Create(ctx, model.AuditLog{
			ActorUserID:  actor.ID,
			Action:       model.AuditActionProcessRefund,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return apperror.NewInternal("write audit log", err)
		}

		out = RefundOutput{
			Amount:      amount,
			Reason:      reason,
			ProcessedBy: actor.ID,
			ProcessedAt: now,
		}
		return nil
	})

	if err != nil {
		return RefundOutput{}, err
	}
	return out, nil
}

// AddNoteは注文にメモを追記する。メモの編集・削除はできない。
func (u *AdminOrderUsecase) AddNote(ctx context.Context, actor ActingUser, orderID int64, text string) (NoteOutput, error) {
	if !actor.Privileged() {
		return NoteOutput{}, apperror.NewAuthorization("admin only")
	}
	if orderID <= 0 {
		return NoteOutput{}, apperror.NewValidation("invalid order id")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NoteOutput{}, apperror.NewValidation("note text is required")
	}

	var out NoteOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		now := time.Now()
		note, err := r.OrderNotes().Create(ctx, model.OrderNote{
			OrderID:      o.ID,
			Text:         text,
			AuthorUserID: actor.ID,
			CreatedAt:    now,
		})
		if err != nil {
			return apperror.NewInternal("create note", err)
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]any{"updated_at": now}); err != nil {
			return apperror.NewInternal("update order", err)
		}

		if err := u.audit.Create(ctx, model.AuditLog{
			ActorUserID:  actor.ID,
			Action:       model.AuditActionAddOrderNote,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			AfterJSON:    `{"noteId":` + strconv.FormatInt(note.ID, 10) + `}`,
			CreatedAt:    now,
		}); err != nil {
			return apperror.NewInternal("write audit log", err)
		}

		out = NoteOutput{
			Text:         note.Text,
			AuthorUserID: note.AuthorUserID,
			CreatedAt:    note.CreatedAt,
		}
		return nil
	})

	if err != nil {
		return NoteOutput{}, err
	}
	return out, nil
}
