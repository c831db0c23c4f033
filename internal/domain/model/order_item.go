package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細
// price_at_time は注文時点の価格。作成後は変更しない。
type OrderItem struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index" json:"order_id"`
	BookID        int64           `gorm:"not null;index" json:"book_id"`
	TitleSnapshot string          `gorm:"type:varchar(255);not null" json:"title"`
	Quantity      int64           `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	PriceAtTime   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_time"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_value"`
	DiscountID    *int64          `json:"discount_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 明細の小計（割引前）
func (it OrderItem) LineTotal() decimal.Decimal {
	return it.PriceAtTime.Mul(decimal.NewFromInt(it.Quantity))
}
