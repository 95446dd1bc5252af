package repository

import (
	"context"
	"errors"

	"shopapi/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 管理者用の注文一覧の絞り込み条件
type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//フィールド単位の部分更新（ステータス遷移・返金記録など）
	UpdateFields(ctx context.Context, orderID int64, fields map[string]any) error
}
