package repository

import (
	"context"

	"bookstore/internal/infra/db"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	db *gorm.DB
}

// 呼ばれるたびに tx を持った repo を作る
func (r *txReposGorm) Orders() repo.OrderRepository         { return NewOrderGormRepository(r.db) }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return NewOrderItemGormRepository(r.db) }
func (r *txReposGorm) CartItems() repo.CartItemRepository   { return NewCartItemGormRepository(r.db) }
func (r *txReposGorm) Books() repo.BookRepository           { return NewBookGormRepository(r.db) }
func (r *txReposGorm) Discounts() repo.DiscountRepository   { return NewDiscountGormRepository(r.db) }
func (r *txReposGorm) Addresses() repo.AddressRepository    { return NewAddressGormRepository(r.db) }
func (r *txReposGorm) Payments() repo.PaymentRepository     { return NewPaymentGormRepository(r.db) }
func (r *txReposGorm) Suppliers() repo.SupplierRepository   { return NewSupplierGormRepository(r.db) }
func (r *txReposGorm) StockImports() repo.StockImportRepository {
	return NewStockImportGormRepository(r.db)
}
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return NewAuditLogGormRepository(r.db) }
func (r *txReposGorm) Users() repo.UserRepository         { return NewUserGormRepository(r.db) }

//直列化失敗・デッドロック時の最大試行回数
const maxTxAttempts = 3

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// WithinTx は fn を1トランザクションで実行する。
// 再試行できるエラーなら fn ごとやり直す（fn は冪等であること）。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			//repoはtxを持ったDBで作り直す
			return fn(&txReposGorm{db: tx})
		})
		if err == nil || !db.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// Tx外で使う repo 一式
func NewRepos(db *gorm.DB) repo.Repos {
	t := &txReposGorm{db: db}
	return repo.Repos{
		Books:        t.Books(),
		CartItems:    t.CartItems(),
		Orders:       t.Orders(),
		OrderItems:   t.OrderItems(),
		Discounts:    t.Discounts(),
		Addresses:    t.Addresses(),
		Payments:     t.Payments(),
		Suppliers:    t.Suppliers(),
		StockImports: t.StockImports(),
		AuditLogs:    t.AuditLogs(),
		Users:        t.Users(),
	}
}
