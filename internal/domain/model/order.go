package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 注文ステータスとして有効な値かどうか
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 配送済み・キャンセル済みはこれ以上動かせない
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type RefundStatus string

const (
	RefundStatusNone       RefundStatus = "none"
	RefundStatusRequested  RefundStatus = "requested"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusProcessed  RefundStatus = "processed"
	RefundStatusRejected   RefundStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodPaypal         PaymentMethod = "paypal"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPaypal,
		PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// 住所（注文時のスナップショット）
type Address struct {
	Street     string `gorm:"type:varchar(255)" json:"street"`
	City       string `gorm:"type:varchar(100)" json:"city"`
	State      string `gorm:"type:varchar(100)" json:"state"`
	PostalCode string `gorm:"type:varchar(20)" json:"postalCode"`
	Country    string `gorm:"type:varchar(100)" json:"country"`
}

// 請求先住所が未設定かどうかの判定に使う
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == ""
}

type Order struct {
	ID     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64       `gorm:"not null;index" json:"userId"`
	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//金額は最小通貨単位のint64で持つ
	TotalPrice    int64 `gorm:"not null" json:"totalPrice"`
	TaxPrice      int64 `gorm:"not null" json:"taxPrice"`
	ShippingPrice int64 `gorm:"not null" json:"shippingPrice"`
	Discount      int64 `gorm:"not null" json:"discount"`

	PaymentMethod   PaymentMethod `gorm:"type:varchar(30);not null" json:"paymentMethod"`
	ShippingAddress Address       `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	BillingAddress  Address       `gorm:"embedded;embeddedPrefix:billing_" json:"billingAddress"`

	//返金は1注文につき1回だけ記録する
	RefundStatus      RefundStatus `gorm:"type:varchar(20);not null" json:"refundStatus"`
	RefundAmount      int64        `gorm:"not null;default:0" json:"refundAmount"`
	RefundReason      string       `gorm:"type:varchar(255)" json:"refundReason"`
	RefundProcessedBy int64        `json:"refundProcessedBy"`
	RefundProcessedAt *time.Time   `json:"refundProcessedAt"`

	//対応する遷移が起きたときに1回だけ設定する
	PaidAt      *time.Time `json:"paidAt"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	CancelledAt *time.Time `json:"cancelledAt"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
