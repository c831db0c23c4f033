package usecase

import (
	"io"
	"testing"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/infra/memory"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// =====================
// テスト用の部品
// =====================

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (g *seqIDs) OrderCode(t time.Time) string {
	g.n++
	return t.Format("20060102") + "-" + string(rune('A'+g.n))
}

func (g *seqIDs) TxnRef() string {
	g.n++
	return "txn-" + string(rune('A'+g.n))
}

func discardLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var (
	adminActor    = model.Actor{UserID: 1, Role: model.RoleAdmin}
	employeeActor = model.Actor{UserID: 2, Role: model.RoleEmployee}
	customerActor = model.Actor{UserID: 3, Role: model.RoleCustomer}
	otherCustomer = model.Actor{UserID: 4, Role: model.RoleCustomer}
)

// testEnv はインメモリストア上に usecase 一式を組み立てる。
type testEnv struct {
	store    *memory.Store
	clock    *fixedClock
	resolver *DiscountResolver
	orders   *OrderUsecase
	admin    *AdminOrderUsecase
	address  model.Address
}

func newTestEnv(t *testing.T, settings OrderSettings) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.SeedDemo()
	store.PutUser(model.User{ID: 4, Email: "other@example.com", Role: model.RoleCustomer, IsActive: true})

	clock := &fixedClock{t: testNow}
	resolver := NewDiscountResolver()
	orders := NewOrderUsecase(store, resolver, clock, &seqIDs{}, discardLogger(), settings)

	addr := store.PutAddress(model.Address{
		UserID: customerActor.UserID, Name: "Taro", Phone: "090", City: "Tokyo",
		District: "Shibuya", Ward: "Jingumae", Line: "1-1-1", IsDefault: true,
	})

	return &testEnv{
		store:    store,
		clock:    clock,
		resolver: resolver,
		orders:   orders,
		admin:    NewAdminOrderUsecase(store, orders),
		address:  addr,
	}
}

func (e *testEnv) putBook(title, price string, available int64) model.Book {
	return e.store.PutBook(model.Book{
		Title:          title,
		Price:          dec(price),
		AvailableCount: available,
		IsActive:       true,
	})
}

func (e *testEnv) book(t *testing.T, id int64) model.Book {
	t.Helper()
	b, ok := e.store.Book(id)
	if !ok {
		t.Fatalf("book %d not found", id)
	}
	return b
}

// カートに入れて注文まで
func (e *testEnv) placeOrder(t *testing.T, items map[int64]int64) OrderOutput {
	t.Helper()
	for bookID, qty := range items {
		e.store.PutCartItem(customerActor.UserID, bookID, qty)
	}
	out, err := e.orders.PlaceOrder(t.Context(), customerActor.UserID, PlaceOrderInput{AddressID: e.address.ID})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	return out
}

func window(d model.Discount) model.Discount {
	d.StartDate = testNow.Add(-24 * time.Hour)
	d.EndDate = testNow.Add(24 * time.Hour)
	d.IsActive = true
	return d
}
