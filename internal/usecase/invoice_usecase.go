package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopapi/internal/apperror"
	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
)

// 注文から請求書ビューを導出する。読み取りのみで何も永続化しない。
type InvoiceUsecase struct {
	tx repo.TransactionManager
}

func NewInvoiceUsecase(tx repo.TransactionManager) *InvoiceUsecase {
	return &InvoiceUsecase{tx: tx}
}

type InvoiceLineOutput struct {
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	LineTotal   int64  `json:"lineTotal"`
}

type InvoiceOutput struct {
	InvoiceNumber   string              `json:"invoiceNumber"`
	OrderID         int64               `json:"orderId"`
	IssuedAt        time.Time           `json:"issuedAt"`
	OrderedAt       time.Time           `json:"orderedAt"`
	BuyerName       string              `json:"buyerName"`
	BuyerEmail      string              `json:"buyerEmail"`
	ShippingAddress model.Address       `json:"shippingAddress"`
	BillingAddress  *model.Address      `json:"billingAddress,omitempty"`
	PaymentMethod   string              `json:"paymentMethod"`
	Status          string              `json:"status"`
	Lines           []InvoiceLineOutput `json:"lines"`
	ShippingPrice   int64               `json:"shippingPrice"`
	TaxPrice        int64               `json:"taxPrice"`
	Discount        int64               `json:"discount"`
	TotalPrice      int64               `json:"totalPrice"`
}

func (u *InvoiceUsecase) Generate(ctx context.Context, actor ActingUser, orderID int64) (InvoiceOutput, error) {
	if orderID <= 0 {
		return InvoiceOutput{}, apperror.NewValidation("invalid order id")
	}

	var out InvoiceOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("order %d not found", orderID))
		}
		if err != nil {
			return apperror.NewInternal("load order", err)
		}

		if o.UserID != actor.ID && !actor.Privileged() {
			return apperror.NewAuthorization("not allowed to view this invoice")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return apperror.NewInternal("load order items", err)
		}

		buyer, err := r.Users().FindByID(ctx, o.UserID)
		if err != nil {
			//注文があるのに購入者がいないのはデータ不整合
			return apperror.NewInternal("load buyer", err)
		}

		lines := make([]InvoiceLineOutput, 0, len(items))
		for _, it := range items {
			lines = append(lines, InvoiceLineOutput{
				ProductName: it.ProductNameSnapshot,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPriceSnapshot,
				LineTotal:   it.UnitPriceSnapshot * it.Quantity,
			})
		}

		out = InvoiceOutput{
			InvoiceNumber:   uuid.NewString(),
			OrderID:         o.ID,
			IssuedAt:        time.Now(),
			OrderedAt:       o.CreatedAt,
			BuyerName:       buyer.Name,
			BuyerEmail:      buyer.Email,
			ShippingAddress: o.ShippingAddress,
			PaymentMethod:   string(o.PaymentMethod),
			Status:          string(o.Status),
			Lines:           lines,
			ShippingPrice:   o.ShippingPrice,
			TaxPrice:        o.TaxPrice,
			Discount:        o.Discount,
			TotalPrice:      o.TotalPrice,
		}
		if !o.BillingAddress.IsZero() {
			billing := o.BillingAddress
			out.BillingAddress = &billing
		}
		return nil
	})

	if err != nil {
		return InvoiceOutput{}, err
	}
	return out, nil
}
