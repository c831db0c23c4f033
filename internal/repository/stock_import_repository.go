package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type SupplierRepository interface {
	Create(ctx context.Context, s model.Supplier) (model.Supplier, error)
	FindByID(ctx context.Context, id int64) (model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
}

type StockImportRepository interface {
	//明細ごと作成する
	Create(ctx context.Context, imp *model.StockImport) error
	FindByID(ctx context.Context, id int64) (model.StockImport, error)
	List(ctx context.Context, page int, limit int) ([]model.StockImport, int64, error)
}
