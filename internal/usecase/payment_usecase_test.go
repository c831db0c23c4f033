package usecase

import (
	"context"
	"errors"
	"testing"

	"bookstore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) QueryStatus(ctx context.Context, txnRef string) (model.PaymentStatus, error) {
	args := m.Called(ctx, txnRef)
	return args.Get(0).(model.PaymentStatus), args.Error(1)
}

func placeVNPayOrder(t *testing.T, env *testEnv) OrderOutput {
	t.Helper()
	x := env.putBook("X", "100", 5)
	env.store.PutCartItem(customerActor.UserID, x.ID, 1)
	out, err := env.orders.PlaceOrder(context.Background(), customerActor.UserID, PlaceOrderInput{
		AddressID:     env.address.ID,
		PaymentMethod: "vnpay",
	})
	require.NoError(t, err)
	return out
}

func TestPaymentUsecase_RefreshStatus_Paid(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	order := placeVNPayOrder(t, env)

	gw := new(MockGateway)
	gw.On("QueryStatus", mock.Anything, mock.AnythingOfType("string")).Return(model.PaymentStatusPaid, nil).Once()
	uc := NewPaymentUsecase(env.store.Repos(), map[model.PaymentMethod]PaymentGateway{model.PaymentMethodVNPay: gw}, discardLogger())

	out, err := uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "paid", out.Status)
	assert.Equal(t, "100.00", out.Amount)

	//確定後はゲートウェイに聞かない
	out, err = uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, "paid", out.Status)
	gw.AssertExpectations(t)
}

func TestPaymentUsecase_RefreshStatus_StillPendingOrNoGateway(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	order := placeVNPayOrder(t, env)

	gw := new(MockGateway)
	gw.On("QueryStatus", mock.Anything, mock.Anything).Return(model.PaymentStatusPending, nil)

	uc := NewPaymentUsecase(env.store.Repos(), map[model.PaymentMethod]PaymentGateway{model.PaymentMethodVNPay: gw}, discardLogger())
	out, err := uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, "pending", out.Status)

	uc = NewPaymentUsecase(env.store.Repos(), map[model.PaymentMethod]PaymentGateway{}, discardLogger())
	out, err = uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", out.Status)
}

func TestPaymentUsecase_RefreshStatus_Errors(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	order := placeVNPayOrder(t, env)

	gw := new(MockGateway)
	gw.On("QueryStatus", mock.Anything, mock.Anything).Return(model.PaymentStatus(""), errors.New("timeout"))
	uc := NewPaymentUsecase(env.store.Repos(), map[model.PaymentMethod]PaymentGateway{model.PaymentMethodVNPay: gw}, discardLogger())

	_, err := uc.RefreshStatus(context.Background(), otherCustomer.UserID, order.ID)
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "order", nfe.Resource)

	_, err = uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	p, err := env.store.Repos().Payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
}

// キャンセル済みの注文は支払いも canceled のまま
func TestPaymentUsecase_RefreshStatus_CanceledOrder(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	order := placeVNPayOrder(t, env)
	_, err := env.orders.CancelMyOrder(context.Background(), customerActor, order.ID)
	require.NoError(t, err)

	gw := new(MockGateway)
	uc := NewPaymentUsecase(env.store.Repos(), map[model.PaymentMethod]PaymentGateway{model.PaymentMethodVNPay: gw}, discardLogger())

	out, err := uc.RefreshStatus(context.Background(), customerActor.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", out.Status)
	gw.AssertNotCalled(t, "QueryStatus", mock.Anything, mock.Anything)
}
