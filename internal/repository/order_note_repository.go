package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

// メモは追記のみ。更新・削除のメソッドは持たせない。
type OrderNoteRepository interface {
	Create(ctx context.Context, note model.OrderNote) (model.OrderNote, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderNote, error)
}
