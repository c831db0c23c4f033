package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/handler"
	"bookstore/internal/infra/memory"
	"bookstore/internal/infra/payment"
	"bookstore/internal/server"
	"bookstore/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testApp struct {
	e       *echo.Echo
	store   *memory.Store
	address model.Address
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memory.NewStore()
	store.SeedDemo()
	addr := store.PutAddress(model.Address{
		UserID: 3, Name: "Taro", Phone: "090", City: "Tokyo",
		District: "Shibuya", Ward: "Jingumae", Line: "1-1-1", IsDefault: true,
	})

	logger := log.New("test")
	logger.SetOutput(io.Discard)

	e := server.New(server.Deps{
		Config: config.Config{JWTSecret: testSecret},
		Tx:     store,
		Repos:  store.Repos(),
		Logger: logger,
		Gateways: map[model.PaymentMethod]usecase.PaymentGateway{
			model.PaymentMethodCOD: payment.CODGateway{},
		},
	})
	return &testApp{e: e, store: store, address: addr}
}

func mustMakeJWT(t *testing.T, sub int64, role model.Role, tv int) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "role": string(role), "tv": tv, "exp": 9999999999}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func (a *testApp) doJSON(t *testing.T, method, path, bearer string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body=%s", rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

func (a *testApp) putBook(price string, available int64) model.Book {
	return a.store.PutBook(model.Book{
		Title:          "Book",
		Price:          decimal.RequireFromString(price),
		AvailableCount: available,
		IsActive:       true,
	})
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.doJSON(t, http.MethodGet, "/health", "", nil)

	requireStatus(t, rec, http.StatusOK)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestOrderLifecycle_OverHTTP(t *testing.T) {
	app := newTestApp(t)
	book := app.putBook("100000", 5)
	customer := mustMakeJWT(t, 3, model.RoleCustomer, 0)
	staff := mustMakeJWT(t, 2, model.RoleEmployee, 0)

	rec := app.doJSON(t, http.MethodPost, "/cart", customer, handler.AddCartRequest{BookID: book.ID, Quantity: 2})
	requireStatus(t, rec, http.StatusOK)

	rec = app.doJSON(t, http.MethodPost, "/orders", customer, handler.OrderCreateRequest{AddressID: app.address.ID}, "X-Idempotency-Key", "k-1")
	requireStatus(t, rec, http.StatusCreated)
	order := decode[usecase.OrderOutput](t, rec)
	assert.Equal(t, "PENDING", order.Status)
	assert.True(t, decimal.NewFromInt(200000).Equal(order.Total))

	//同じキーの再送は同じ注文
	rec = app.doJSON(t, http.MethodPost, "/orders", customer, handler.OrderCreateRequest{AddressID: app.address.ID}, "X-Idempotency-Key", "k-1")
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, order.ID, decode[usecase.OrderOutput](t, rec).ID)

	statusPath := "/admin/orders/" + strconv.FormatInt(order.ID, 10) + "/status"

	rec = app.doJSON(t, http.MethodPut, statusPath, customer, handler.OrderStatusUpdateRequest{Status: "APPROVED"})
	requireStatus(t, rec, http.StatusForbidden)

	rec = app.doJSON(t, http.MethodPut, statusPath, staff, handler.OrderStatusUpdateRequest{Status: "DELIVERED"})
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	rec = app.doJSON(t, http.MethodPut, statusPath, staff, handler.OrderStatusUpdateRequest{Status: "APPROVED"})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "APPROVED", decode[usecase.OrderOutput](t, rec).Status)

	b, _ := app.store.Book(book.ID)
	assert.Equal(t, int64(3), b.AvailableCount)
	assert.Equal(t, int64(2), b.SoldCount)

	//承認後は顧客からキャンセルできない
	rec = app.doJSON(t, http.MethodPost, "/orders/"+strconv.FormatInt(order.ID, 10)+"/cancel", customer, nil)
	requireStatus(t, rec, http.StatusForbidden)

	rec = app.doJSON(t, http.MethodGet, "/orders", customer, nil)
	requireStatus(t, rec, http.StatusOK)
	list := decode[usecase.OrderListOutput](t, rec)
	assert.Equal(t, int64(1), list.Total)
}

func TestApprove_InsufficientStock_Returns409(t *testing.T) {
	app := newTestApp(t)
	book := app.putBook("100", 3)
	customer := mustMakeJWT(t, 3, model.RoleCustomer, 0)
	admin := mustMakeJWT(t, 1, model.RoleAdmin, 0)

	//カートは在庫を超えて入れられないので直接入れる
	app.store.PutCartItem(3, book.ID, 5)
	rec := app.doJSON(t, http.MethodPost, "/orders", customer, handler.OrderCreateRequest{AddressID: app.address.ID})
	requireStatus(t, rec, http.StatusCreated)
	order := decode[usecase.OrderOutput](t, rec)

	rec = app.doJSON(t, http.MethodPut, "/admin/orders/"+strconv.FormatInt(order.ID, 10)+"/status", admin, handler.OrderStatusUpdateRequest{Status: "APPROVED"})
	requireStatus(t, rec, http.StatusConflict)

	body := decode[handler.InsufficientStockResponse](t, rec)
	assert.Equal(t, book.ID, body.BookID)
	assert.Equal(t, int64(2), body.Shortfall)

	o, _ := app.store.Order(order.ID)
	assert.Equal(t, model.OrderStatusPending, o.Status)
}

func TestPlaceOrder_EmptyCart_Returns400(t *testing.T) {
	app := newTestApp(t)
	customer := mustMakeJWT(t, 3, model.RoleCustomer, 0)

	rec := app.doJSON(t, http.MethodPost, "/orders", customer, handler.OrderCreateRequest{AddressID: app.address.ID})

	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "cart is empty", decode[handler.ErrorResponse](t, rec).Error)
}

func TestForceLogout_InvalidatesOldToken(t *testing.T) {
	app := newTestApp(t)
	customer := mustMakeJWT(t, 3, model.RoleCustomer, 0)
	admin := mustMakeJWT(t, 1, model.RoleAdmin, 0)

	requireStatus(t, app.doJSON(t, http.MethodGet, "/orders", customer, nil), http.StatusOK)

	rec := app.doJSON(t, http.MethodPost, "/admin/users/3/force-logout", admin, nil)
	requireStatus(t, rec, http.StatusOK)

	requireStatus(t, app.doJSON(t, http.MethodGet, "/orders", customer, nil), http.StatusUnauthorized)
	requireStatus(t, app.doJSON(t, http.MethodGet, "/orders", mustMakeJWT(t, 3, model.RoleCustomer, 1), nil), http.StatusOK)

	rec = app.doJSON(t, http.MethodGet, "/admin/audit-logs?action=FORCE_LOGOUT", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(3), logs[0].ResourceID)
}

func TestDiscountValidation_Returns422WithField(t *testing.T) {
	app := newTestApp(t)
	admin := mustMakeJWT(t, 1, model.RoleAdmin, 0)

	rec := app.doJSON(t, http.MethodPost, "/admin/discounts", admin, handler.DiscountRequest{
		Name:          "broken",
		DiscountType:  "percentage",
		DiscountValue: decimal.NewFromInt(10),
		TargetType:    "book",
		StartDate:     "2024-01-01",
		EndDate:       "2024-12-31",
	})

	requireStatus(t, rec, http.StatusUnprocessableEntity)
	assert.Equal(t, "targets", decode[handler.ErrorResponse](t, rec).Field)
}

func TestAuth_Rejections(t *testing.T) {
	app := newTestApp(t)

	requireStatus(t, app.doJSON(t, http.MethodGet, "/cart", "", nil), http.StatusUnauthorized)
	requireStatus(t, app.doJSON(t, http.MethodGet, "/cart", "garbage", nil), http.StatusUnauthorized)

	//社員は割引を管理できない
	staff := mustMakeJWT(t, 2, model.RoleEmployee, 0)
	requireStatus(t, app.doJSON(t, http.MethodGet, "/admin/discounts", staff, nil), http.StatusForbidden)

	//トークンの role より DB の role が優先
	forged := mustMakeJWT(t, 3, model.RoleAdmin, 0)
	requireStatus(t, app.doJSON(t, http.MethodGet, "/admin/discounts", forged, nil), http.StatusForbidden)
}

func TestStockImport_OverHTTP(t *testing.T) {
	app := newTestApp(t)
	book := app.putBook("100", 0)
	staff := mustMakeJWT(t, 2, model.RoleEmployee, 0)

	body := map[string]interface{}{
		"supplier_id": 1,
		"items": []map[string]interface{}{
			{"book_id": book.ID, "quantity": 7, "import_price": "55.5"},
		},
	}
	rec := app.doJSON(t, http.MethodPost, "/admin/stock-imports", staff, body)
	requireStatus(t, rec, http.StatusCreated)

	b, _ := app.store.Book(book.ID)
	assert.Equal(t, int64(7), b.AvailableCount)

	rec = app.doJSON(t, http.MethodGet, "/books/"+strconv.FormatInt(book.ID, 10), "", nil)
	requireStatus(t, rec, http.StatusOK)
}
