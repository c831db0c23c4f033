package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusDelivering,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodVNPay PaymentMethod = "vnpay"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodVNPay
}

// 注文ヘッダ
// 配送先は作成時点のスナップショット。ステータス遷移以外では更新しない。
type Order struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code       string      `gorm:"type:char(26);not null;uniqueIndex" json:"code"`
	CustomerID int64       `gorm:"not null;index;uniqueIndex:uq_orders_customer_idem" json:"customer_id"`
	EmployeeID *int64      `gorm:"index" json:"employee_id"`
	Status     OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	ShippingSnapshot `gorm:"embedded"`

	Note          string        `gorm:"type:text" json:"note"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_fee"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null;check:chk_orders_total,total >= 0" json:"total"`

	//注文レベル割引（クーポン）
	DiscountID *int64 `json:"discount_id,omitempty"`

	//二重送信防止キー（任意）。同じ顧客内で一意。
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:uq_orders_customer_idem" json:"-"`

	OrderedAt   time.Time      `gorm:"not null;index" json:"ordered_at"`
	ApprovedAt  *time.Time     `json:"approved_at"`
	CanceledAt  *time.Time     `json:"canceled_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
