package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 仕入先（最小限）
type Supplier struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 入荷伝票。明細ごとに AdjustStock で在庫を増やす。
type StockImport struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SupplierID int64             `gorm:"not null;index" json:"supplier_id"`
	EmployeeID int64             `gorm:"not null;index" json:"employee_id"`
	Note       string            `gorm:"type:text" json:"note"`
	TotalCost  decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"total_cost"`
	ImportedAt time.Time         `gorm:"not null;index" json:"imported_at"`
	Items      []StockImportItem `gorm:"foreignKey:StockImportID" json:"items"`
}

type StockImportItem struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StockImportID int64           `gorm:"not null;index" json:"stock_import_id"`
	BookID        int64           `gorm:"not null;index" json:"book_id"`
	Quantity      int64           `gorm:"not null;check:chk_stock_import_items_quantity,quantity > 0" json:"quantity"`
	ImportPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"import_price"`
}
