package usecase

import (
	"context"
	"testing"

	"bookstore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockImportUsecase(env *testEnv) *StockImportUsecase {
	return NewStockImportUsecase(env.store, env.store.Repos(), env.clock, discardLogger())
}

func TestStockImport_IncreasesAvailable(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("X", "100", 2)
	y := env.putBook("Y", "100", 0)
	uc := newStockImportUsecase(env)

	imp, err := uc.Import(context.Background(), employeeActor, StockImportInput{
		SupplierID: 1,
		Note:       " first ",
		Items: []StockImportItemInput{
			{BookID: y.ID, Quantity: 4, ImportPrice: dec("50")},
			{BookID: x.ID, Quantity: 3, ImportPrice: dec("60")},
			{BookID: y.ID, Quantity: 1, ImportPrice: dec("50")},
		},
	})
	require.NoError(t, err)

	assert.NotZero(t, imp.ID)
	assert.Equal(t, "first", imp.Note)
	assert.Equal(t, employeeActor.UserID, imp.EmployeeID)
	require.Len(t, imp.Items, 2)
	assert.Equal(t, x.ID, imp.Items[0].BookID)
	assert.Equal(t, int64(5), imp.Items[1].Quantity)
	assert.True(t, dec("430").Equal(imp.TotalCost))

	assert.Equal(t, int64(5), env.book(t, x.ID).AvailableCount)
	assert.Equal(t, int64(5), env.book(t, y.ID).AvailableCount)
	assert.Equal(t, int64(0), env.book(t, y.ID).SoldCount)
	assert.Equal(t, 1, env.store.CountAuditLogs())

	got, err := uc.Get(context.Background(), employeeActor, imp.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	list, err := uc.List(context.Background(), adminActor, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

// 途中で失敗したら在庫も伝票も残らない
func TestStockImport_UnknownBook_RollsBack(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("X", "100", 2)
	uc := newStockImportUsecase(env)

	_, err := uc.Import(context.Background(), employeeActor, StockImportInput{
		SupplierID: 1,
		Items: []StockImportItemInput{
			{BookID: x.ID, Quantity: 3, ImportPrice: dec("60")},
			{BookID: 999, Quantity: 1, ImportPrice: dec("60")},
		},
	})

	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "book", nfe.Resource)
	assert.Equal(t, int64(2), env.book(t, x.ID).AvailableCount)

	list, err := uc.List(context.Background(), adminActor, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)
	assert.Equal(t, 0, env.store.CountAuditLogs())
}

func TestStockImport_Validation(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("X", "100", 2)
	uc := newStockImportUsecase(env)

	_, err := uc.Import(context.Background(), customerActor, StockImportInput{SupplierID: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	tests := []struct {
		name string
		in   StockImportInput
		msg  string
	}{
		{name: "no items", in: StockImportInput{SupplierID: 1}, msg: "items required"},
		{name: "zero quantity", in: StockImportInput{SupplierID: 1, Items: []StockImportItemInput{{BookID: x.ID, Quantity: 0}}}, msg: "quantity must be > 0"},
		{name: "negative price", in: StockImportInput{SupplierID: 1, Items: []StockImportItemInput{{BookID: x.ID, Quantity: 1, ImportPrice: dec("-1")}}}, msg: "import_price must be >= 0"},
		{name: "conflicting price", in: StockImportInput{SupplierID: 1, Items: []StockImportItemInput{
			{BookID: x.ID, Quantity: 1, ImportPrice: dec("1")},
			{BookID: x.ID, Quantity: 1, ImportPrice: dec("2")},
		}}, msg: "conflicting import_price for the same book"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Import(context.Background(), employeeActor, tt.in)
			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tt.msg, he.Message)
		})
	}

	_, err = uc.Import(context.Background(), employeeActor, StockImportInput{
		SupplierID: 42,
		Items:      []StockImportItemInput{{BookID: x.ID, Quantity: 1}},
	})
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "supplier", nfe.Resource)
}

func TestStockImport_Suppliers(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	uc := newStockImportUsecase(env)

	s, err := uc.CreateSupplier(context.Background(), employeeActor, " Acme ", "03-0000")
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.Name)

	list, err := uc.ListSuppliers(context.Background(), employeeActor)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = uc.CreateSupplier(context.Background(), employeeActor, "", "")
	_, ok := AsHTTPError(err)
	assert.True(t, ok)

	_, err = uc.ListSuppliers(context.Background(), customerActor)
	assert.ErrorIs(t, err, ErrForbidden)
}

// 入荷した分だけ承認できる
func TestStockImport_ThenApprove(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("X", "100", 0)
	order := env.placeOrder(t, map[int64]int64{x.ID: 3})

	_, err := env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Shortfall)

	_, err = newStockImportUsecase(env).Import(context.Background(), employeeActor, StockImportInput{
		SupplierID: 1,
		Items:      []StockImportItemInput{{BookID: x.ID, Quantity: 3, ImportPrice: dec("10")}},
	})
	require.NoError(t, err)

	_, err = env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)
	require.NoError(t, err)
	b := env.book(t, x.ID)
	assert.Equal(t, int64(0), b.AvailableCount)
	assert.Equal(t, int64(3), b.SoldCount)
}
