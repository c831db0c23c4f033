package repository

import (
	"context"
	"errors"

	"bookstore/internal/domain/model"
	"bookstore/internal/infra/db"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type discountGormRepository struct {
	db *gorm.DB
}

func NewDiscountGormRepository(db *gorm.DB) repo.DiscountRepository {
	return &discountGormRepository{db: db}
}

func (r *discountGormRepository) FindByID(ctx context.Context, id int64) (model.Discount, error) {
	var d model.Discount
	err := r.db.WithContext(ctx).Preload("Targets").First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Discount{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Discount{}, err
	}
	return d, nil
}

// 論理削除済みも対象（名前の再利用＝復元のため）
func (r *discountGormRepository) FindByNameUnscoped(ctx context.Context, name string) (model.Discount, error) {
	var d model.Discount
	err := r.db.WithContext(ctx).
		Unscoped().
		Preload("Targets").
		Where("name = ?", name).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Discount{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Discount{}, err
	}
	return d, nil
}

// targets も一緒に作られる
func (r *discountGormRepository) Create(ctx context.Context, d *model.Discount) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *discountGormRepository) Save(ctx context.Context, d model.Discount) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Discount{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"name":                d.Name,
			"description":         d.Description,
			"discount_type":       d.DiscountType,
			"discount_value":      d.DiscountValue,
			"target_type":         d.TargetType,
			"start_date":          d.StartDate,
			"end_date":            d.EndDate,
			"min_purchase_amount": d.MinPurchaseAmount,
			"max_discount_amount": d.MaxDiscountAmount,
			"is_active":           d.IsActive,
			"deleted_at":          nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 対象を全て入れ替える
func (r *discountGormRepository) ReplaceTargets(ctx context.Context, discountID int64, targets []model.DiscountTarget) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("discount_id = ?", discountID).Delete(&model.DiscountTarget{}).Error; err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}
	for i := range targets {
		targets[i].ID = 0
		targets[i].DiscountID = discountID
	}
	return db.Create(&targets).Error
}

func (r *discountGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Discount{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *discountGormRepository) List(ctx context.Context, q repo.DiscountListQuery) ([]model.Discount, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}

	tx := r.db.WithContext(ctx).Model(&model.Discount{})
	if q.TargetType != "" {
		tx = tx.Where("target_type = ?", q.TargetType)
	}
	if q.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Discount{}, 0, err
	}

	var list []model.Discount
	offset := (q.Page - 1) * q.Limit
	if err := tx.Preload("Targets").Order("id desc").Limit(q.Limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.Discount{}, 0, err
	}
	return list, total, nil
}

// 有効・期間内・未削除。古い順（同額のときは先に作られた方を使う）。
func (r *discountGormRepository) ListCandidates(ctx context.Context, q repo.DiscountCandidateQuery) ([]model.Discount, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Discount{}).
		Where("discounts.is_active = ?", true).
		Where("discounts.start_date <= ? AND discounts.end_date >= ?", q.At, q.At).
		Where("discounts.target_type = ?", q.TargetType)

	if q.TargetType == model.DiscountTargetBook {
		tx = tx.Where(
			"EXISTS (SELECT 1 FROM discount_targets dt WHERE dt.discount_id = discounts.id AND dt.target_type = ? AND dt.target_id = ?)",
			model.DiscountTargetBook, q.TargetID,
		)
	}

	var list []model.Discount
	if err := tx.Order("discounts.created_at asc").Order("discounts.id asc").Find(&list).Error; err != nil {
		return []model.Discount{}, err
	}
	return list, nil
}
