package repository

import (
	"context"
	"errors"

	"bookstore/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// ユニーク制約に当たった
var ErrDuplicate = errors.New("duplicate")

// 一覧検索
type BookListQuery struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 書籍の永続化と在庫カウンタの更新を約束。
type BookRepository interface {
	ListPublic(ctx context.Context, q BookListQuery) ([]model.Book, int64, error)
	FindByID(ctx context.Context, id int64) (model.Book, error)
	//論理削除済みは含まない。見つからないIDは結果から抜ける。
	FindByIDs(ctx context.Context, ids []int64) ([]model.Book, error)

	Create(ctx context.Context, b model.Book) (model.Book, error)
	//在庫カウンタは更新しない
	Update(ctx context.Context, b model.Book) error
	SoftDelete(ctx context.Context, id int64) error

	// AdjustStock は条件付きUPDATE1回でカウンタを増減する。
	// 結果が負になる場合（または行が無い場合）は false を返し、何も変えない。
	AdjustStock(ctx context.Context, bookID int64, delta model.StockDelta) (bool, error)
}
