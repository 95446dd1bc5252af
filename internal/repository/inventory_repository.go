package repository

import "context"

// 在庫の増減。read-modify-writeではなく条件付きの1文更新で行う約束。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル時）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error
}
