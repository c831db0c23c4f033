package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

type StockImportUsecase struct {
	tx     repo.TransactionManager
	repos  repo.Repos
	clock  Clock
	logger *log.Logger
}

func NewStockImportUsecase(tx repo.TransactionManager, repos repo.Repos, clock Clock, logger *log.Logger) *StockImportUsecase {
	return &StockImportUsecase{tx: tx, repos: repos, clock: clock, logger: logger}
}

type StockImportItemInput struct {
	BookID      int64
	Quantity    int64
	ImportPrice decimal.Decimal
}

type StockImportInput struct {
	SupplierID int64
	Note       string
	Items      []StockImportItemInput
}

type StockImportListOutput struct {
	Items []model.StockImport `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// Import は入荷伝票を作り、明細ごとに在庫を増やす（1トランザクション）。
func (u *StockImportUsecase) Import(ctx context.Context, actor model.Actor, in StockImportInput) (model.StockImport, error) {
	if !actor.Can(model.PermStockImport) {
		return model.StockImport{}, ErrForbidden
	}
	if in.SupplierID <= 0 {
		return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "invalid supplier_id")
	}
	if len(in.Items) == 0 {
		return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "items required")
	}

	//同じ書籍の行はまとめる
	merged := map[int64]*model.StockImportItem{}
	for _, it := range in.Items {
		if it.BookID <= 0 {
			return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "invalid book_id")
		}
		if it.Quantity <= 0 {
			return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
		}
		if it.ImportPrice.IsNegative() {
			return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "import_price must be >= 0")
		}
		if m, ok := merged[it.BookID]; ok {
			if !m.ImportPrice.Equal(it.ImportPrice) {
				return model.StockImport{}, NewHTTPError(http.StatusBadRequest, "conflicting import_price for the same book")
			}
			m.Quantity += it.Quantity
			continue
		}
		merged[it.BookID] = &model.StockImportItem{BookID: it.BookID, Quantity: it.Quantity, ImportPrice: it.ImportPrice}
	}

	items := make([]model.StockImportItem, 0, len(merged))
	total := decimal.Zero
	for _, m := range merged {
		items = append(items, *m)
		total = total.Add(m.ImportPrice.Mul(decimal.NewFromInt(m.Quantity)))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].BookID < items[j].BookID })

	now := u.clock.Now()
	imp := model.StockImport{
		SupplierID: in.SupplierID,
		EmployeeID: actor.UserID,
		Note:       strings.TrimSpace(in.Note),
		TotalCost:  total,
		ImportedAt: now,
		Items:      items,
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Suppliers().FindByID(ctx, in.SupplierID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("supplier", in.SupplierID)
			}
			return fmt.Errorf("find supplier: %w", err)
		}

		for _, it := range items {
			if _, err := r.Books().FindByID(ctx, it.BookID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return notFound("book", it.BookID)
				}
				return fmt.Errorf("find book: %w", err)
			}
		}

		if err := r.StockImports().Create(ctx, &imp); err != nil {
			return fmt.Errorf("create stock import: %w", err)
		}

		//書籍ID昇順で在庫を増やす
		for _, it := range items {
			ok, err := r.Books().AdjustStock(ctx, it.BookID, model.ReplenishDelta(it.Quantity))
			if err != nil {
				return fmt.Errorf("adjust stock of book %d: %w", it.BookID, err)
			}
			if !ok {
				return notFound("book", it.BookID)
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionImportStock,
			ResourceType: model.AuditResourceStockImport,
			ResourceID:   imp.ID,
			BeforeJSON:   "{}",
			AfterJSON:    auditJSON(imp),
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("create audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.StockImport{}, err
	}

	u.logger.Infoj(log.JSON{
		"event":       "stock_imported",
		"import_id":   imp.ID,
		"supplier_id": imp.SupplierID,
		"items":       len(imp.Items),
		"actor_id":    actor.UserID,
	})
	return imp, nil
}

func (u *StockImportUsecase) Get(ctx context.Context, actor model.Actor, id int64) (model.StockImport, error) {
	if !actor.Can(model.PermStockImport) {
		return model.StockImport{}, ErrForbidden
	}
	imp, err := u.repos.StockImports.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.StockImport{}, notFound("stock import", id)
	}
	if err != nil {
		return model.StockImport{}, fmt.Errorf("find stock import: %w", err)
	}
	return imp, nil
}

func (u *StockImportUsecase) List(ctx context.Context, actor model.Actor, page, limit int) (StockImportListOutput, error) {
	if !actor.Can(model.PermStockImport) {
		return StockImportListOutput{}, ErrForbidden
	}
	if page < 1 {
		return StockImportListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return StockImportListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	items, total, err := u.repos.StockImports.List(ctx, page, limit)
	if err != nil {
		return StockImportListOutput{}, fmt.Errorf("list stock imports: %w", err)
	}
	return StockImportListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 仕入先は最小限（入荷伝票の参照先として）
func (u *StockImportUsecase) CreateSupplier(ctx context.Context, actor model.Actor, name, phone string) (model.Supplier, error) {
	if !actor.Can(model.PermStockImport) {
		return model.Supplier{}, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Supplier{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	s, err := u.repos.Suppliers.Create(ctx, model.Supplier{Name: name, Phone: strings.TrimSpace(phone)})
	if err != nil {
		return model.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return s, nil
}

func (u *StockImportUsecase) ListSuppliers(ctx context.Context, actor model.Actor) ([]model.Supplier, error) {
	if !actor.Can(model.PermStockImport) {
		return nil, ErrForbidden
	}
	list, err := u.repos.Suppliers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return list, nil
}
