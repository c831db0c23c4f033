package memory

import (
	"context"
	"sort"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

type addressRepo struct{ v *view }

func (r *addressRepo) Create(ctx context.Context, a model.Address) (model.Address, error) {
	err := r.v.do(func(st *state) error {
		a.ID = st.next("addresses")
		stampNow(&a.CreatedAt)
		a.UpdatedAt = a.CreatedAt
		st.addresses[a.ID] = a
		return nil
	})
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

func (r *addressRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	out := []model.Address{}
	err := r.v.do(func(st *state) error {
		for _, a := range st.addresses {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *addressRepo) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	err := r.v.do(func(st *state) error {
		found, ok := st.addresses[addressID]
		if !ok {
			return repository.ErrNotFound
		}
		a = found
		return nil
	})
	return a, err
}

func (r *addressRepo) SetDefault(ctx context.Context, userID, addressID int64) error {
	return r.v.do(func(st *state) error {
		target, ok := st.addresses[addressID]
		if !ok || target.UserID != userID {
			return repository.ErrNotFound
		}
		for id, a := range st.addresses {
			if a.UserID == userID && a.IsDefault {
				a.IsDefault = false
				st.addresses[id] = a
			}
		}
		target.IsDefault = true
		st.addresses[addressID] = target
		return nil
	})
}

type paymentRepo struct{ v *view }

func (r *paymentRepo) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	err := r.v.do(func(st *state) error {
		for _, other := range st.payments {
			if other.OrderID == p.OrderID || other.TxnRef == p.TxnRef {
				return ErrConstraint
			}
		}
		p.ID = st.next("payments")
		stampNow(&p.CreatedAt)
		p.UpdatedAt = p.CreatedAt
		st.payments[p.ID] = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	var p model.Payment
	err := r.v.do(func(st *state) error {
		for _, found := range st.payments {
			if found.OrderID == orderID {
				p = found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return p, err
}

func (r *paymentRepo) UpdateStatusFrom(ctx context.Context, orderID int64, from, to model.PaymentStatus) (bool, error) {
	updated := false
	err := r.v.do(func(st *state) error {
		for id, p := range st.payments {
			if p.OrderID == orderID && p.Status == from {
				p.Status = to
				st.payments[id] = p
				updated = true
			}
		}
		return nil
	})
	return updated, err
}

type supplierRepo struct{ v *view }

func (r *supplierRepo) Create(ctx context.Context, s model.Supplier) (model.Supplier, error) {
	err := r.v.do(func(st *state) error {
		for _, other := range st.suppliers {
			if other.Name == s.Name {
				return ErrConstraint
			}
		}
		s.ID = st.next("suppliers")
		stampNow(&s.CreatedAt)
		st.suppliers[s.ID] = s
		return nil
	})
	if err != nil {
		return model.Supplier{}, err
	}
	return s, nil
}

func (r *supplierRepo) FindByID(ctx context.Context, id int64) (model.Supplier, error) {
	var s model.Supplier
	err := r.v.do(func(st *state) error {
		found, ok := st.suppliers[id]
		if !ok {
			return repository.ErrNotFound
		}
		s = found
		return nil
	})
	return s, err
}

func (r *supplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	out := []model.Supplier{}
	err := r.v.do(func(st *state) error {
		for _, s := range st.suppliers {
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type stockImportRepo struct{ v *view }

func (r *stockImportRepo) Create(ctx context.Context, imp *model.StockImport) error {
	return r.v.do(func(st *state) error {
		imp.ID = st.next("stock_imports")
		stampNow(&imp.ImportedAt)
		for i := range imp.Items {
			imp.Items[i].ID = st.next("stock_import_items")
			imp.Items[i].StockImportID = imp.ID
			st.stockImportItems[imp.Items[i].ID] = imp.Items[i]
		}
		row := *imp
		row.Items = nil
		st.stockImports[imp.ID] = row
		return nil
	})
}

func (st *state) withItems(imp model.StockImport) model.StockImport {
	imp.Items = []model.StockImportItem{}
	for _, it := range st.stockImportItems {
		if it.StockImportID == imp.ID {
			imp.Items = append(imp.Items, it)
		}
	}
	sort.Slice(imp.Items, func(i, j int) bool { return imp.Items[i].ID < imp.Items[j].ID })
	return imp
}

func (r *stockImportRepo) FindByID(ctx context.Context, id int64) (model.StockImport, error) {
	var imp model.StockImport
	err := r.v.do(func(st *state) error {
		found, ok := st.stockImports[id]
		if !ok {
			return repository.ErrNotFound
		}
		imp = st.withItems(found)
		return nil
	})
	return imp, err
}

func (r *stockImportRepo) List(ctx context.Context, page int, limit int) ([]model.StockImport, int64, error) {
	var out []model.StockImport
	err := r.v.do(func(st *state) error {
		for _, imp := range st.stockImports {
			out = append(out, st.withItems(imp))
		}
		return nil
	})
	if err != nil {
		return []model.StockImport{}, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, page, limit), total, nil
}

type auditLogRepo struct{ v *view }

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	return r.v.do(func(st *state) error {
		log.ID = st.next("audit_logs")
		stampNow(&log.CreatedAt)
		st.auditLogs[log.ID] = log
		return nil
	})
}

func (r *auditLogRepo) List(ctx context.Context, f repository.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := r.v.do(func(st *state) error {
		for _, l := range st.auditLogs {
			if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
				continue
			}
			if f.Action != nil && l.Action != *f.Action {
				continue
			}
			if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
				continue
			}
			if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
				continue
			}
			if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
				continue
			}
			if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	//新しい順
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

type userRepo struct{ v *view }

func (r *userRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	var u model.User
	err := r.v.do(func(st *state) error {
		found, ok := st.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		u = found
		return nil
	})
	return u, err
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, userID int64) error {
	return r.v.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		u.TokenVersion++
		st.users[userID] = u
		return nil
	})
}
