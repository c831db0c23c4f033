package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// =====================
// PlaceOrder
// =====================

func TestPlaceOrder_SingleLine_TotalsAndClearsCart(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100000", 10)

	out := env.placeOrder(t, map[int64]int64{x.ID: 2})

	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.True(t, dec("200000").Equal(out.Subtotal))
	assert.True(t, dec("200000").Equal(out.Total))
	assert.True(t, out.Discount.IsZero())
	assert.Equal(t, 0, env.store.CountCartItems(customerActor.UserID))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Book X", out.Items[0].Title)
	assert.Equal(t, string(model.PaymentStatusPending), out.PaymentStatus)
	assert.Equal(t, "Taro", out.ShippingName)

	//注文時点では在庫は動かない
	b := env.book(t, x.ID)
	assert.Equal(t, int64(10), b.AvailableCount)
	assert.Equal(t, int64(0), b.SoldCount)
}

func TestPlaceOrder_ShippingFeeAdded(t *testing.T) {
	env := newTestEnv(t, OrderSettings{ShippingFee: dec("30000")})
	x := env.putBook("Book X", "100000", 10)

	out := env.placeOrder(t, map[int64]int64{x.ID: 1})

	assert.True(t, dec("30000").Equal(out.ShippingFee))
	assert.True(t, dec("130000").Equal(out.Total))
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})

	_, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID})

	var ece *EmptyCartError
	require.ErrorAs(t, err, &ece)
	assert.Equal(t, customerActor.UserID, ece.UserID)
	assert.Equal(t, 0, env.store.CountOrders())
}

func TestPlaceOrder_OtherUsersAddress_NotFound(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	env.store.PutCartItem(otherCustomer.UserID, x.ID, 1)

	_, err := env.orders.PlaceOrder(context.Background(), otherCustomer.UserID, PlaceOrderInput{AddressID: env.address.ID})

	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "address", nfe.Resource)
	assert.Equal(t, 1, env.store.CountCartItems(otherCustomer.UserID))
}

func TestPlaceOrder_InactiveBook_NotFound(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.store.PutBook(model.Book{Title: "hidden", Price: dec("100"), AvailableCount: 5, IsActive: false})
	env.store.PutCartItem(customerActor.UserID, x.ID, 1)

	_, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID})

	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "book", nfe.Resource)
	assert.Equal(t, 1, env.store.CountCartItems(customerActor.UserID))
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})

	_, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: 0})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)

	_, err = env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID, PaymentMethod: "bitcoin"})
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid payment_method", he.Message)
}

// 同じキーは同じ注文を返す
func TestPlaceOrder_IdempotencyKey_Replays(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	env.store.PutCartItem(customerActor.UserID, x.ID, 1)

	in := PlaceOrderInput{AddressID: env.address.ID, IdempotencyKey: "key-1"}
	first, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, in)
	require.NoError(t, err)

	//カートは空だがエラーにならない
	second, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, 1, env.store.CountOrders())
}

type fixedTxnRefIDs struct {
	seqIDs
}

func (g *fixedTxnRefIDs) TxnRef() string { return "same-ref" }

// 途中（支払い作成）で失敗したら注文もカートも元のまま
func TestPlaceOrder_FailureRollsBackEverything(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	env.orders = NewOrderUsecase(env.store, env.resolver, env.clock, &fixedTxnRefIDs{}, discardLogger(), OrderSettings{})
	x := env.putBook("Book X", "100", 10)

	env.placeOrder(t, map[int64]int64{x.ID: 1})
	require.Equal(t, 1, env.store.CountOrders())

	env.store.PutCartItem(customerActor.UserID, x.ID, 3)
	_, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID})

	require.Error(t, err)
	assert.Equal(t, 1, env.store.CountOrders())
	assert.Equal(t, 1, env.store.CountCartItems(customerActor.UserID))
}

func TestPlaceOrder_BookDiscountPerLine(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	y := env.putBook("Book Y", "50", 10)
	env.store.PutDiscount(window(model.Discount{
		Name:          "x-10",
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: dec("10"),
		TargetType:    model.DiscountTargetBook,
		Targets:       []model.DiscountTarget{{TargetID: x.ID, TargetType: model.DiscountTargetBook}},
	}))

	out := env.placeOrder(t, map[int64]int64{x.ID: 2, y.ID: 1})

	require.Len(t, out.Items, 2)
	assert.Equal(t, x.ID, out.Items[0].BookID)
	assert.True(t, dec("20").Equal(out.Items[0].Discount))
	assert.NotNil(t, out.Items[0].DiscountID)
	assert.True(t, out.Items[1].Discount.IsZero())
	assert.True(t, dec("250").Equal(out.Subtotal))
	assert.True(t, dec("20").Equal(out.Discount))
	assert.True(t, dec("230").Equal(out.Total))
}

// 最低購入額を満たせば上限で切り詰める
func TestPlaceOrder_OrderDiscountClampedToMax(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "500000", 10)
	capAt := dec("100000")
	env.store.PutDiscount(window(model.Discount{
		Name:              "half",
		DiscountType:      model.DiscountTypePercentage,
		DiscountValue:     dec("50"),
		TargetType:        model.DiscountTargetOrder,
		MinPurchaseAmount: dec("500000"),
		MaxDiscountAmount: &capAt,
	}))

	out := env.placeOrder(t, map[int64]int64{x.ID: 2})

	assert.True(t, dec("1000000").Equal(out.Subtotal))
	assert.True(t, dec("100000").Equal(out.Discount))
	assert.True(t, dec("900000").Equal(out.Total))
	assert.NotNil(t, out.DiscountID)
}

func TestPlaceOrder_TotalNeverNegative(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	env.store.PutDiscount(window(model.Discount{
		Name:          "book-all",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("1000"),
		TargetType:    model.DiscountTargetBook,
		Targets:       []model.DiscountTarget{{TargetID: x.ID, TargetType: model.DiscountTargetBook}},
	}))

	out := env.placeOrder(t, map[int64]int64{x.ID: 1})

	//書籍割引は明細額で止まり、合計は0
	assert.True(t, dec("100").Equal(out.Discount))
	assert.True(t, out.Total.IsZero())
}

func TestPlaceOrder_CouponErrors(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)

	expired := window(model.Discount{Name: "OLD", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetOrder})
	expired.EndDate = testNow.Add(-time.Hour)
	env.store.PutDiscount(expired)

	future := window(model.Discount{Name: "SOON", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetOrder})
	future.StartDate = testNow.Add(time.Hour)
	env.store.PutDiscount(future)

	inactive := window(model.Discount{Name: "OFF", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetOrder})
	inactive.IsActive = false
	env.store.PutDiscount(inactive)

	env.store.PutDiscount(window(model.Discount{Name: "BIG", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetOrder, MinPurchaseAmount: dec("1000")}))
	env.store.PutDiscount(window(model.Discount{Name: "BOOKONLY", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetBook}))

	tests := []struct {
		coupon string
		reason string
	}{
		{coupon: "NOPE", reason: "not found"},
		{coupon: "OLD", reason: "expired"},
		{coupon: "SOON", reason: "not started"},
		{coupon: "OFF", reason: "inactive"},
		{coupon: "BIG", reason: "minimum purchase amount is 1000.00"},
		{coupon: "BOOKONLY", reason: "not an order discount"},
	}

	for _, tt := range tests {
		t.Run(tt.coupon, func(t *testing.T) {
			env.store.PutCartItem(customerActor.UserID, x.ID, 1)
			_, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID, Coupon: tt.coupon})

			var dve *DiscountValidationError
			require.ErrorAs(t, err, &dve)
			assert.Equal(t, "coupon", dve.Field)
			assert.Equal(t, tt.reason, dve.Reason)
			assert.Equal(t, 0, env.store.CountOrders())
		})
	}
}

func TestPlaceOrder_ValidCoupon(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	env.store.PutDiscount(window(model.Discount{Name: "TEN", DiscountType: model.DiscountTypeFixed, DiscountValue: dec("10"), TargetType: model.DiscountTargetOrder}))
	env.store.PutCartItem(customerActor.UserID, x.ID, 1)

	out, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{AddressID: env.address.ID, Coupon: " TEN "})

	require.NoError(t, err)
	assert.True(t, dec("90").Equal(out.Total))
}

// =====================
// Transition
// =====================

func TestTransition_Approve_CommitsStock(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	y := env.putBook("Book Y", "100", 4)
	order := env.placeOrder(t, map[int64]int64{x.ID: 3, y.ID: 4})

	out, err := env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusApproved), out.Status)
	require.NotNil(t, out.ApprovedAt)
	require.NotNil(t, out.EmployeeID)
	assert.Equal(t, employeeActor.UserID, *out.EmployeeID)

	bx, by := env.book(t, x.ID), env.book(t, y.ID)
	assert.Equal(t, int64(7), bx.AvailableCount)
	assert.Equal(t, int64(3), bx.SoldCount)
	assert.Equal(t, int64(0), by.AvailableCount)
	assert.Equal(t, int64(4), by.SoldCount)
	assert.Equal(t, 1, env.store.CountAuditLogs())
}

// 在庫不足なら何も変わらない
func TestTransition_Approve_InsufficientStock(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	y := env.putBook("Book Y", "100", 3)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1, y.ID: 5})

	_, err := env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, y.ID, ise.BookID)
	assert.Equal(t, int64(5), ise.Requested)
	assert.Equal(t, int64(3), ise.Available)
	assert.Equal(t, int64(2), ise.Shortfall)

	o, _ := env.store.Order(order.ID)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	//先に処理された X も巻き戻る
	assert.Equal(t, int64(10), env.book(t, x.ID).AvailableCount)
	assert.Equal(t, int64(0), env.book(t, x.ID).SoldCount)
	assert.Equal(t, int64(3), env.book(t, y.ID).AvailableCount)
	assert.Equal(t, 0, env.store.CountAuditLogs())
}

func TestTransition_SkippingStates_Invalid(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1})

	_, err := env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusDelivering)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, model.OrderStatusPending, ite.From)
	assert.Equal(t, model.OrderStatusDelivering, ite.To)
	o, _ := env.store.Order(order.ID)
	assert.Equal(t, model.OrderStatusPending, o.Status)
}

func TestTransition_CancelPending_NoStockEffect(t *testing.T) {
	env := newTestEnv(t, OrderSettings{RestoreStockOnCancel: true})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 2})

	out, err := env.orders.CancelMyOrder(context.Background(), customerActor, order.ID)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusCanceled), out.Status)
	assert.NotNil(t, out.CanceledAt)
	assert.Equal(t, string(model.PaymentStatusCanceled), out.PaymentStatus)
	b := env.book(t, x.ID)
	assert.Equal(t, int64(10), b.AvailableCount)
	assert.Equal(t, int64(0), b.SoldCount)
}

func TestTransition_FullLifecycle_CODPaidOnCompletion(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1})

	steps := []model.OrderStatus{
		model.OrderStatusApproved, model.OrderStatusDelivering,
		model.OrderStatusDelivered, model.OrderStatusCompleted,
	}
	var out OrderOutput
	var err error
	for _, to := range steps {
		out, err = env.orders.Transition(context.Background(), employeeActor, order.ID, to)
		require.NoError(t, err, to)
	}

	assert.Equal(t, string(model.OrderStatusCompleted), out.Status)
	assert.NotNil(t, out.DeliveredAt)
	assert.NotNil(t, out.CompletedAt)
	assert.Equal(t, string(model.PaymentStatusPaid), out.PaymentStatus)

	//終端からはどこにも行けない
	_, err = env.orders.Transition(context.Background(), adminActor, order.ID, model.OrderStatusCanceled)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
}

func TestTransition_CancelApproved_RestoreFlag(t *testing.T) {
	tests := []struct {
		name          string
		restore       bool
		wantAvailable int64
		wantSold      int64
	}{
		{name: "kept sold", restore: false, wantAvailable: 8, wantSold: 2},
		{name: "restored", restore: true, wantAvailable: 10, wantSold: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, OrderSettings{RestoreStockOnCancel: tt.restore})
			x := env.putBook("Book X", "100", 10)
			order := env.placeOrder(t, map[int64]int64{x.ID: 2})

			_, err := env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)
			require.NoError(t, err)
			_, err = env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusCanceled)
			require.NoError(t, err)

			b := env.book(t, x.ID)
			assert.Equal(t, tt.wantAvailable, b.AvailableCount)
			assert.Equal(t, tt.wantSold, b.SoldCount)
		})
	}
}

func TestTransition_Permissions(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1})

	//顧客は自分の注文でも承認できない
	_, err := env.orders.Transition(context.Background(), customerActor, order.ID, model.OrderStatusApproved)
	assert.ErrorIs(t, err, ErrForbidden)

	//他人の注文は存在しない扱い
	_, err = env.orders.CancelMyOrder(context.Background(), otherCustomer, order.ID)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)

	//従業員でも「自分の注文キャンセル」経路では見えない
	_, err = env.orders.CancelMyOrder(context.Background(), employeeActor, order.ID)
	assert.ErrorAs(t, err, &nfe)

	_, err = env.orders.Transition(context.Background(), employeeActor, order.ID, model.OrderStatusApproved)
	require.NoError(t, err)

	//承認後のキャンセルは顧客には不可
	_, err = env.orders.CancelMyOrder(context.Background(), customerActor, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

// 同じ書籍への同時承認で在庫がマイナスにならない
func TestTransition_ConcurrentApprovals_NeverOversell(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 5)

	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, env.placeOrder(t, map[int64]int64{x.ID: 2}).ID)
	}

	results := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			_, results[i] = env.orders.Transition(context.Background(), employeeActor, id, model.OrderStatusApproved)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	approved := 0
	for _, err := range results {
		if err == nil {
			approved++
			continue
		}
		var ise *InsufficientStockError
		assert.True(t, errors.As(err, &ise), err)
	}

	b := env.book(t, x.ID)
	assert.Equal(t, 2, approved)
	assert.Equal(t, int64(1), b.AvailableCount)
	assert.Equal(t, int64(4), b.SoldCount)
	assert.Equal(t, int64(5), b.AvailableCount+b.SoldCount)
}

// =====================
// 一覧・詳細
// =====================

func TestListAndDetail_OwnOrdersOnly(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1})

	list, err := env.orders.ListMyOrders(context.Background(), customerActor.UserID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)
	assert.Len(t, list.Items[0].Items, 1)

	list, err = env.orders.ListMyOrders(context.Background(), otherCustomer.UserID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)

	_, err = env.orders.GetMyOrderDetail(context.Background(), otherCustomer.UserID, order.ID)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)

	detail, err := env.orders.GetMyOrderDetail(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Code, detail.Code)
}

func TestAdminOrderUsecase(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	x := env.putBook("Book X", "100", 10)
	order := env.placeOrder(t, map[int64]int64{x.ID: 1})

	_, err := env.admin.List(context.Background(), customerActor, repoFilter(""))
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := env.admin.List(context.Background(), employeeActor, repoFilter("PENDING"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	got, err := env.admin.Get(context.Background(), employeeActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.admin.UpdateStatus(context.Background(), employeeActor, order.ID, AdminUpdateOrderStatusInput{Status: "shipped"})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)

	out, err := env.admin.UpdateStatus(context.Background(), employeeActor, order.ID, AdminUpdateOrderStatusInput{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", out.Status)
}

func repoFilter(status string) repo.AdminOrderListFilter {
	return repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: status}
}
