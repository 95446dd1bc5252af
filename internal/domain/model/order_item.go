package model

import "time"

// 商品名・単価は注文時点のスナップショット。
// カタログ側が後から変わっても過去の注文金額は動かさない。
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"orderId"`
	ProductID           int64     `gorm:"not null;index" json:"productId"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"productNameSnapshot"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"unitPriceSnapshot"`
	Quantity            int64     `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}
