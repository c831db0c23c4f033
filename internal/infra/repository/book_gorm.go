package repository

import (
	"context"
	"errors"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type BookGormRepository struct {
	db *gorm.DB
}

// DI
func NewBookGormRepository(db *gorm.DB) *BookGormRepository {
	return &BookGormRepository{db: db}
}

// 公開書籍のみを、検索/価格帯/ソート/ページング付きで返す。
func (r *BookGormRepository) ListPublic(ctx context.Context, q repo.BookListQuery) ([]model.Book, int64, error) {
	var books []model.Book
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Book{})

	// 公開（is_active=true）かつ、削除されていないものだけ
	tx = tx.Where("is_active = ?", true)

	// q はタイトルと著者を対象
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("title ILIKE ? OR author ILIKE ?", like, like)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Book{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	case "best_selling":
		tx = tx.Order("sold_count desc").Order("id asc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Offset(offset).Limit(q.Limit).Find(&books).Error; err != nil {
		return []model.Book{}, 0, err
	}

	return books, total, nil
}

// IDで書籍を取得
func (r *BookGormRepository) FindByID(ctx context.Context, id int64) (model.Book, error) {
	var b model.Book
	err := r.db.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Book{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (r *BookGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}
	var books []model.Book
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&books).Error; err != nil {
		return []model.Book{}, err
	}
	return books, nil
}

// 書籍の作成（在庫は入荷で増やす）
func (r *BookGormRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Book{}, err
	}
	return b, nil
}

// 書籍の更新。available_count / sold_count は触らない。
func (r *BookGormRepository) Update(ctx context.Context, b model.Book) error {
	res := r.db.WithContext(ctx).Model(&model.Book{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"title":       b.Title,
		"author":      b.Author,
		"isbn":        b.ISBN,
		"description": b.Description,
		"price":       b.Price,
		"is_active":   b.IsActive,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 書籍削除
func (r *BookGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 条件付きUPDATEで在庫を増減する。
// 削除済みの書籍でも、確定済み注文の在庫計算は続けるので Unscoped。
func (r *BookGormRepository) AdjustStock(ctx context.Context, bookID int64, d model.StockDelta) (bool, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Book{}).
		Where("id = ? AND available_count + ? >= 0 AND sold_count + ? >= 0", bookID, d.Available, d.Sold).
		Updates(map[string]interface{}{
			"available_count": gorm.Expr("available_count + ?", d.Available),
			"sold_count":      gorm.Expr("sold_count + ?", d.Sold),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}
