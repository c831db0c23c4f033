package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	CartItems() CartItemRepository
	Books() BookRepository
	Discounts() DiscountRepository
	Addresses() AddressRepository
	Payments() PaymentRepository
	Suppliers() SupplierRepository
	StockImports() StockImportRepository
	AuditLogs() AuditLogRepository
	Users() UserRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fn が error を返したら全てロールバックされる。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

// Tx外で使う repo 一式（読み取りや単発の更新用）
type Repos struct {
	Books        BookRepository
	CartItems    CartItemRepository
	Orders       OrderRepository
	OrderItems   OrderItemRepository
	Discounts    DiscountRepository
	Addresses    AddressRepository
	Payments     PaymentRepository
	Suppliers    SupplierRepository
	StockImports StockImportRepository
	AuditLogs    AuditLogRepository
	Users        UserRepository
}
