package model

import "time"

// カートの明細
// (user_id, book_id) で一意。価格はここでは持たず、注文確定時にスナップショットする。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_cart_items_user_book" json:"user_id"`
	BookID    int64     `gorm:"not null;uniqueIndex:uq_cart_items_user_book;index" json:"book_id"`
	Quantity  int64     `gorm:"not null;check:chk_cart_items_quantity,quantity > 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
