package repository

import (
	"context"
	"errors"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/infra/db"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一書籍は数量加算。(user_id, book_id) のユニーク制約に ON CONFLICT で乗る。
func (r *CartItemGormRepository) Upsert(ctx context.Context, userID int64, bookID int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		UserID:    userID,
		BookID:    bookID,
		Quantity:  addQty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
	// 存在しない本
	if db.IsForeignKeyViolation(err) {
		return repo.ErrNotFound
	}
	return err
}

// 明細の数量を更新
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, userID int64, bookID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartItemGormRepository) Delete(ctx context.Context, userID int64, bookID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&model.CartItem{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 注文確定後にカートを空にする
func (r *CartItemGormRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}
