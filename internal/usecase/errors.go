package usecase

import (
	"errors"
	"fmt"

	"bookstore/internal/domain/model"
)

// 入力エラーなど、ステータスをそのまま返したいもの
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 権限不足（403）
var ErrForbidden = errors.New("forbidden")

// カートが空のまま注文しようとした
type EmptyCartError struct {
	UserID int64
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("cart of user %d is empty", e.UserID)
}

// 遷移表に無いステータス変更
type InvalidTransitionError struct {
	OrderID int64
	From    model.OrderStatus
	To      model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// 在庫不足。Shortfall = Requested - Available
type InsufficientStockError struct {
	BookID    int64
	Requested int64
	Available int64
	Shortfall int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: requested %d, available %d", e.BookID, e.Requested, e.Available)
}

// 割引の検証エラー。Field は入力項目名（coupon, name, targets など）
type DiscountValidationError struct {
	Field  string
	Reason string
}

func (e *DiscountValidationError) Error() string {
	return fmt.Sprintf("discount %s: %s", e.Field, e.Reason)
}

// 他人のデータも「存在しない扱い」でこれを返す
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func notFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}
