package db

import (
	"bookstore/internal/domain/model"

	"gorm.io/gorm"
)

// テーブル一覧。CHECK制約とユニーク制約はモデルのタグから作られる。
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Address{},
		&model.Book{},
		&model.CartItem{},
		&model.Discount{},
		&model.DiscountTarget{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Supplier{},
		&model.StockImport{},
		&model.StockImportItem{},
		&model.AuditLog{},
	}
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}
