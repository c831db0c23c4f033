package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// 割引の適用先
type DiscountTargetType string

const (
	DiscountTargetBook  DiscountTargetType = "book"
	DiscountTargetOrder DiscountTargetType = "order"
)

func (t DiscountTargetType) Valid() bool {
	return t == DiscountTargetBook || t == DiscountTargetOrder
}

// 割引。name は大文字小文字を区別して一意（論理削除済みを含む）。
type Discount struct {
	ID                int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string             `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description       string             `gorm:"type:text" json:"description"`
	DiscountType      DiscountType       `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	TargetType        DiscountTargetType `gorm:"type:varchar(20);not null;index" json:"target_type"`
	StartDate         time.Time          `gorm:"not null" json:"start_date"`
	EndDate           time.Time          `gorm:"not null" json:"end_date"`
	MinPurchaseAmount decimal.Decimal    `gorm:"type:numeric(12,2);not null;default:0" json:"min_purchase_amount"`
	MaxDiscountAmount *decimal.Decimal   `gorm:"type:numeric(12,2)" json:"max_discount_amount"`
	IsActive          bool               `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`

	Targets []DiscountTarget `gorm:"foreignKey:DiscountID" json:"targets,omitempty"`
}

type DiscountTarget struct {
	ID         int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	DiscountID int64              `gorm:"not null;uniqueIndex:uq_discount_targets" json:"discount_id"`
	TargetID   int64              `gorm:"not null;uniqueIndex:uq_discount_targets;index" json:"target_id"`
	TargetType DiscountTargetType `gorm:"type:varchar(20);not null" json:"target_type"`
}

// InWindow は at が期間内かどうか（両端を含む）
func (d Discount) InWindow(at time.Time) bool {
	return !at.Before(d.StartDate) && !at.After(d.EndDate)
}

// AmountFor は購入額に対する割引額を返す。
// 百分率は上限で、定額は購入額で切り詰める。小数2桁に丸める。
func (d Discount) AmountFor(purchase decimal.Decimal) decimal.Decimal {
	if purchase.Sign() <= 0 {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.DiscountType {
	case DiscountTypePercentage:
		amount = purchase.Mul(d.DiscountValue).Div(decimal.NewFromInt(100))
		if d.MaxDiscountAmount != nil && amount.GreaterThan(*d.MaxDiscountAmount) {
			amount = *d.MaxDiscountAmount
		}
	case DiscountTypeFixed:
		amount = decimal.Min(d.DiscountValue, purchase)
	}
	if amount.Sign() < 0 {
		return decimal.Zero
	}
	return amount.Round(2)
}
