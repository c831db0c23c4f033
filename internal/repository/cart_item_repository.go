package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

// カート明細は (user_id, book_id) で特定する。
type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一書籍は数量を加算
	Upsert(ctx context.Context, userID int64, bookID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, userID int64, bookID int64, qty int64) error
	Delete(ctx context.Context, userID int64, bookID int64) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
}
