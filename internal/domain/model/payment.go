package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusCanceled PaymentStatus = "canceled"
)

// 支払い。注文と1対1。
type Payment struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;uniqueIndex" json:"order_id"`
	Method    PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Status    PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	TxnRef    string          `gorm:"type:uuid;not null;uniqueIndex" json:"txn_ref"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
