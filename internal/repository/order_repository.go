package repository

import (
	"context"
	"time"

	"bookstore/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//行ロック付き（SELECT ... FOR UPDATE）。Tx内で使う。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// UpdateStatusFrom は status が from のままの時だけ遷移後の内容を書き込む。
	// 他で先に更新されていたら false。
	UpdateStatusFrom(ctx context.Context, order model.Order, from model.OrderStatus) (bool, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
