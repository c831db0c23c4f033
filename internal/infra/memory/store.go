// Package memory はリポジトリ一式のインメモリ実装。
// WithinTx は状態を複製して作業し、fn が nil を返した時だけ差し替える。
package memory

import (
	"context"
	"sync"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

// ユニーク制約違反に相当
var ErrConstraint = repository.ErrDuplicate

type cartKey struct {
	userID int64
	bookID int64
}

type state struct {
	seq map[string]int64

	users            map[int64]model.User
	addresses        map[int64]model.Address
	books            map[int64]model.Book
	cartItems        map[cartKey]model.CartItem
	orders           map[int64]model.Order
	orderItems       map[int64]model.OrderItem
	payments         map[int64]model.Payment
	discounts        map[int64]model.Discount
	discountTargets  map[int64]model.DiscountTarget
	suppliers        map[int64]model.Supplier
	stockImports     map[int64]model.StockImport
	stockImportItems map[int64]model.StockImportItem
	auditLogs        map[int64]model.AuditLog
}

func newState() *state {
	return &state{
		seq:              map[string]int64{},
		users:            map[int64]model.User{},
		addresses:        map[int64]model.Address{},
		books:            map[int64]model.Book{},
		cartItems:        map[cartKey]model.CartItem{},
		orders:           map[int64]model.Order{},
		orderItems:       map[int64]model.OrderItem{},
		payments:         map[int64]model.Payment{},
		discounts:        map[int64]model.Discount{},
		discountTargets:  map[int64]model.DiscountTarget{},
		suppliers:        map[int64]model.Supplier{},
		stockImports:     map[int64]model.StockImport{},
		stockImportItems: map[int64]model.StockImportItem{},
		auditLogs:        map[int64]model.AuditLog{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// 値は構造体のコピー。ポインタ項目は差し替えでしか更新しないので共有で問題ない。
func (s *state) clone() *state {
	return &state{
		seq:              cloneMap(s.seq),
		users:            cloneMap(s.users),
		addresses:        cloneMap(s.addresses),
		books:            cloneMap(s.books),
		cartItems:        cloneMap(s.cartItems),
		orders:           cloneMap(s.orders),
		orderItems:       cloneMap(s.orderItems),
		payments:         cloneMap(s.payments),
		discounts:        cloneMap(s.discounts),
		discountTargets:  cloneMap(s.discountTargets),
		suppliers:        cloneMap(s.suppliers),
		stockImports:     cloneMap(s.stockImports),
		stockImportItems: cloneMap(s.stockImportItems),
		auditLogs:        cloneMap(s.auditLogs),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// トランザクションは直列に実行する
func (s *Store) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txRepos{v: &view{s: s, tx: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Tx外の repo 一式。1操作ごとにロックを取る。
func (s *Store) Repos() repository.Repos {
	r := &txRepos{v: &view{s: s}}
	return repository.Repos{
		Books:        r.Books(),
		CartItems:    r.CartItems(),
		Orders:       r.Orders(),
		OrderItems:   r.OrderItems(),
		Discounts:    r.Discounts(),
		Addresses:    r.Addresses(),
		Payments:     r.Payments(),
		Suppliers:    r.Suppliers(),
		StockImports: r.StockImports(),
		AuditLogs:    r.AuditLogs(),
		Users:        r.Users(),
	}
}

type view struct {
	s  *Store
	tx *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

type txRepos struct {
	v *view
}

func (r *txRepos) Orders() repository.OrderRepository             { return &orderRepo{r.v} }
func (r *txRepos) OrderItems() repository.OrderItemRepository     { return &orderItemRepo{r.v} }
func (r *txRepos) CartItems() repository.CartItemRepository       { return &cartItemRepo{r.v} }
func (r *txRepos) Books() repository.BookRepository               { return &bookRepo{r.v} }
func (r *txRepos) Discounts() repository.DiscountRepository       { return &discountRepo{r.v} }
func (r *txRepos) Addresses() repository.AddressRepository        { return &addressRepo{r.v} }
func (r *txRepos) Payments() repository.PaymentRepository         { return &paymentRepo{r.v} }
func (r *txRepos) Suppliers() repository.SupplierRepository       { return &supplierRepo{r.v} }
func (r *txRepos) StockImports() repository.StockImportRepository { return &stockImportRepo{r.v} }
func (r *txRepos) AuditLogs() repository.AuditLogRepository       { return &auditLogRepo{r.v} }
func (r *txRepos) Users() repository.UserRepository               { return &userRepo{r.v} }

func stampNow(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func paginate[T any](list []T, page, limit int) []T {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		return list
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
