package repository

import (
	"context"
	"errors"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type SupplierGormRepository struct {
	db *gorm.DB
}

func NewSupplierGormRepository(db *gorm.DB) *SupplierGormRepository {
	return &SupplierGormRepository{db: db}
}

func (r *SupplierGormRepository) Create(ctx context.Context, s model.Supplier) (model.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Supplier{}, err
	}
	return s, nil
}

func (r *SupplierGormRepository) FindByID(ctx context.Context, id int64) (model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Supplier{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Supplier{}, err
	}
	return s, nil
}

func (r *SupplierGormRepository) List(ctx context.Context) ([]model.Supplier, error) {
	var list []model.Supplier
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return []model.Supplier{}, err
	}
	return list, nil
}

type StockImportGormRepository struct {
	db *gorm.DB
}

func NewStockImportGormRepository(db *gorm.DB) *StockImportGormRepository {
	return &StockImportGormRepository{db: db}
}

// 明細（Items）も一緒に作られる
func (r *StockImportGormRepository) Create(ctx context.Context, imp *model.StockImport) error {
	return r.db.WithContext(ctx).Create(imp).Error
}

func (r *StockImportGormRepository) FindByID(ctx context.Context, id int64) (model.StockImport, error) {
	var imp model.StockImport
	err := r.db.WithContext(ctx).Preload("Items").First(&imp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StockImport{}, repo.ErrNotFound
	}
	if err != nil {
		return model.StockImport{}, err
	}
	return imp, nil
}

func (r *StockImportGormRepository) List(ctx context.Context, page int, limit int) ([]model.StockImport, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.StockImport{}).Count(&total).Error; err != nil {
		return []model.StockImport{}, 0, err
	}

	var list []model.StockImport
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return []model.StockImport{}, 0, err
	}
	return list, total, nil
}
