package repository

import (
	"context"
	"time"

	"bookstore/internal/domain/model"
)

type DiscountListQuery struct {
	Page       int
	Limit      int
	TargetType model.DiscountTargetType
	ActiveOnly bool
}

// 適用候補の検索条件
type DiscountCandidateQuery struct {
	TargetType model.DiscountTargetType
	//book の時だけ使う
	TargetID int64
	At       time.Time
}

type DiscountRepository interface {
	//targets 付きで返す
	FindByID(ctx context.Context, id int64) (model.Discount, error)
	//論理削除済みも含めて名前で探す
	FindByNameUnscoped(ctx context.Context, name string) (model.Discount, error)

	Create(ctx context.Context, d *model.Discount) error
	// Save は targets 以外の列を書き込み、deleted_at を外す（復元を兼ねる）。
	Save(ctx context.Context, d model.Discount) error
	ReplaceTargets(ctx context.Context, discountID int64, targets []model.DiscountTarget) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, q DiscountListQuery) ([]model.Discount, int64, error)

	// ListCandidates は有効・期間内・未削除で対象が一致するものを
	// created_at, id の昇順で返す。最低購入額はここでは見ない。
	ListCandidates(ctx context.Context, q DiscountCandidateQuery) ([]model.Discount, error)
}
