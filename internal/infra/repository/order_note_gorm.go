package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"gorm.io/gorm"
)

type OrderNoteGormRepository struct {
	db *gorm.DB
}

func NewOrderNoteGormRepository(db *gorm.DB) *OrderNoteGormRepository {
	return &OrderNoteGormRepository{db: db}
}

func (r *OrderNoteGormRepository) Create(ctx context.Context, note model.OrderNote) (model.OrderNote, error) {
	if err := r.db.WithContext(ctx).Create(&note).Error; err != nil {
		return model.OrderNote{}, err
	}
	return note, nil
}

func (r *OrderNoteGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderNote, error) {
	var notes []model.OrderNote
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&notes).Error
	if err != nil {
		return []model.OrderNote{}, err
	}
	return notes, nil
}
