package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

// 商品カタログの読み取り。CRUDは別システムの責務。
type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (model.Product, error)
}
