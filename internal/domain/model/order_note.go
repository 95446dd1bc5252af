package model

import "time"

// 注文への管理メモ。追記のみで編集・削除はしない。
type OrderNote struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64     `gorm:"not null;index" json:"orderId"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	AuthorUserID int64     `gorm:"not null" json:"authorUserId"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}
