package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopapi/internal/apperror"
	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

// 操作を実行している本人。認可判断はこの情報だけで行う。
type ActingUser struct {
	ID   int64
	Role model.Role
}

func (u ActingUser) Privileged() bool {
	return u.Role == model.RoleAdmin
}

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type CreateOrderItemInput struct {
	ProductID int64
	Quantity  int64
}

type CreateOrderInput struct {
	Items           []CreateOrderItemInput
	ShippingAddress model.Address
	BillingAddress  *model.Address
	PaymentMethod   string
	ShippingPrice   int64
	TaxPrice        int64
	Discount        int64

	//未指定なら「明細小計＋送料＋税」で計算する
	TotalPrice *int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

type RefundOutput struct {
	Amount      int64     `json:"amount"`
	Reason      string    `json:"reason"`
	ProcessedBy int64     `json:"processedBy"`
	ProcessedAt time.Time `json:"processedAt"`
}

type NoteOutput struct {
	Text         string    `json:"text"`
	AuthorUserID int64     `json:"authorUserId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	Status          string            `json:"status"`
	RefundStatus    string            `json:"refundStatus"`
	PaymentMethod   string            `json:"paymentMethod"`
	TotalPrice      int64             `json:"totalPrice"`
	TaxPrice        int64             `json:"taxPrice"`
	ShippingPrice   int64             `json:"shippingPrice"`
	Discount        int64             `json:"discount"`
	ShippingAddress model.Address     `json:"shippingAddress"`
	BillingAddress  *model.Address    `json:"billingAddress,omitempty"`
	Refund          *RefundOutput     `json:"refund,omitempty"`
	Notes           []NoteOutput      `json:"notes,omitempty"`
	PaidAt          *time.Time        `json:"paidAt"`
	DeliveredAt     *time.Time        `json:"deliveredAt"`
	CancelledAt     *time.Time        `json:"cancelledAt"`
	CreatedAt       time.Time         `json:"createdAt"`
	Items           []OrderItemOutput `json:"items"`
}

// Createは明細の検証・在庫確保・注文作成を1トランザクションで行う。
// 途中のどの失敗でもロールバックされ、確保済みの在庫が残ることはない。
func (u *OrderUsecase) Create(ctx context.Context, actor ActingUser, in CreateOrderInput) (OrderOutput, error) {
	if len(in.Items) == 0 {
		return OrderOutput{}, apperror.NewValidation("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, apperror.NewValidation("invalid product id")
		}
		if it.Quantity < 1 {
			return OrderOutput{}, apperror.NewValidation("quantity must be at least 1")
		}
	}
	method := model.PaymentMethod(in.PaymentMethod)
	if !method.Valid() {
		return OrderOutput{}, apperror.NewValidation("invalid payment method")
	}
	if in.ShippingAddress.IsZero() {
		return OrderOutput{}, apperror.NewValidation("shipping address is required")
	}
	if in.ShippingPrice < 0 || in.TaxPrice < 0 || in.Discount < 0 {
		return OrderOutput{}, apperror.NewValidation("amounts must not be negative")
	}
	if in.TotalPrice != nil && *in.TotalPrice < 0 {
		return OrderOutput{}, apperror.NewValidation("total price must not be negative")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var itemTotal int64

		//入力順に商品を引いて在庫を確保する
		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return apperror.NewNotFound(fmt.Sprintf("product %d not found", it.ProductID))
			}
			if err != nil {
				return apperror.NewInternal("load product", err)
			}
			//販売停止中の商品は存在しない扱い
			if !p.IsActive {
				return apperror.NewNotFound(fmt.Sprintf("product %d not found", it.ProductID))
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return apperror.NewInternal("reserve stock", err)
			}
			if !ok {
				return apperror.NewConflict(fmt.Sprintf(
					"insufficient stock for product %d: requested %d, available %d",
					it.ProductID, it.Quantity, p.Stock))
			}

			//商品名と単価はこの時点のスナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            it.Quantity,
			})
			itemTotal += p.Price * it.Quantity
		}

		total := itemTotal + in.ShippingPrice + in.TaxPrice
		if in.TotalPrice != nil {
			total = *in.TotalPrice
		}

		var billing model.Address
		if in.BillingAddress != nil {
			billing = *in.BillingAddress
		}

		now := time.Now()
		order := model.Order{
			UserID:          actor.ID,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			TaxPrice:        in.TaxPrice,
			ShippingPrice:   in.ShippingPrice,
			Discount:        in.Discount,
			PaymentMethod:   method,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  billing,
			RefundStatus:    model.RefundStatusNone,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return apperror.NewInternal("create order", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return apperror.NewInternal("create order items", err)
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancelは注文をキャンセルして在庫を戻す。
// 発送済み・配送済み・キャンセル済みの注文は対象外。
func (u *OrderUsecase) Cancel(ctx context.Context, actor ActingUser, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperror.NewValidation("invalid order id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		if o.UserID != actor.ID && !actor.Privileged() {
			return apperror.NewAuthorization("not allowed to cancel this order")
		}

		switch o.Status {
		case model.OrderStatusShipped:
			return apperror.NewConflict("cannot cancel a shipped order")
		case model.OrderStatusDelivered:
			return apperror.NewConflict("cannot cancel a delivered order")
		case model.OrderStatusCancelled:
			return apperror.NewConflict("order is already cancelled")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperror.NewInternal("load order items", err)
		}

		//在庫戻し。商品がもう存在しないなら戻し先がないので飛ばす。
		for _, it := range items {
			err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return apperror.NewInternal("restore stock", err)
			}
		}

		now := time.Now()
		err = r.Orders().UpdateFields(ctx, orderID, map[string]any{
			"status":       model.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return apperror.NewInternal("update order", err)
		}

		o.Status = model.OrderStatusCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMine(ctx context.Context, actor ActingUser) ([]OrderOutput, error) {
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, actor.ID)
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

func (u *OrderUsecase) GetDetail(ctx context.Context, actor ActingUser, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperror.NewValidation("invalid order id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		if o.UserID != actor.ID && !actor.Privileged() {
			return apperror.NewAuthorization("not allowed to view this order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperror.NewInternal("load order items", err)
		}
		notes, err := r.OrderNotes().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperror.NewInternal("load order notes", err)
		}

		out = toOrderOutput(o, items)
		out.Notes = toNoteOutputs(notes)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.UnitPriceSnapshot * it.Quantity,
		})
	}

	out := OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		RefundStatus:    string(o.RefundStatus),
		PaymentMethod:   string(o.PaymentMethod),
		TotalPrice:      o.TotalPrice,
		TaxPrice:        o.TaxPrice,
		ShippingPrice:   o.ShippingPrice,
		Discount:        o.Discount,
		ShippingAddress: o.ShippingAddress,
		PaidAt:          o.PaidAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}

	if !o.BillingAddress.IsZero() {
		billing := o.BillingAddress
		out.BillingAddress = &billing
	}
	if o.RefundProcessedAt != nil {
		out.Refund = &RefundOutput{
			Amount:      o.RefundAmount,
			Reason:      o.RefundReason,
			ProcessedBy: o.RefundProcessedBy,
			ProcessedAt: *o.RefundProcessedAt,
		}
	}

	return out
}

func toNoteOutputs(notes []model.OrderNote) []NoteOutput {
	outs := make([]NoteOutput, 0, len(notes))
	for _, n := range notes {
		outs = append(outs, NoteOutput{
			Text:         n.Text,
			AuthorUserID: n.AuthorUserID,
			CreatedAt:    n.CreatedAt,
		})
	}
	return outs
}
