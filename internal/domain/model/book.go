package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 書籍（カタログ）
// available_count / sold_count は AdjustStock 以外から書き換えない。
type Book struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Author         string          `gorm:"type:varchar(255)" json:"author"`
	ISBN           string          `gorm:"type:varchar(20);uniqueIndex" json:"isbn"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	AvailableCount int64           `gorm:"not null;default:0;check:chk_books_available_count,available_count >= 0" json:"available_count"`
	SoldCount      int64           `gorm:"not null;default:0;check:chk_books_sold_count,sold_count >= 0" json:"sold_count"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 在庫カウンタの増減量。
// 販売確定は {-q, +q}、入荷は {+q, 0}、販売取消は {+q, -q}。
type StockDelta struct {
	Available int64
	Sold      int64
}

func SaleDelta(qty int64) StockDelta {
	return StockDelta{Available: -qty, Sold: qty}
}

func ReplenishDelta(qty int64) StockDelta {
	return StockDelta{Available: qty}
}

func RevertSaleDelta(qty int64) StockDelta {
	return StockDelta{Available: qty, Sold: -qty}
}
