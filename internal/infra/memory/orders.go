package memory

import (
	"context"
	"sort"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

type orderRepo struct{ v *view }

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.v.do(func(st *state) error {
		found, ok := st.orders[orderID]
		if !ok || found.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		o = found
		return nil
	})
	return o, err
}

// Tx は直列なのでロックは不要
func (r *orderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	uid := userID
	return r.ListAdmin(ctx, repository.AdminOrderListFilter{Page: page, Limit: limit, UserID: &uid})
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.Code == order.Code {
				return ErrConstraint
			}
			if order.IdempotencyKey != nil && o.IdempotencyKey != nil &&
				o.CustomerID == order.CustomerID && *o.IdempotencyKey == *order.IdempotencyKey {
				return ErrConstraint
			}
		}
		order.ID = st.next("orders")
		stampNow(&order.OrderedAt)
		stampNow(&order.UpdatedAt)
		st.orders[order.ID] = order
		return nil
	})
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *orderRepo) UpdateStatusFrom(ctx context.Context, o model.Order, from model.OrderStatus) (bool, error) {
	updated := false
	err := r.v.do(func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok || cur.DeletedAt.Valid || cur.Status != from {
			return nil
		}
		cur.Status = o.Status
		cur.EmployeeID = o.EmployeeID
		cur.ApprovedAt = o.ApprovedAt
		cur.CanceledAt = o.CanceledAt
		cur.DeliveredAt = o.DeliveredAt
		cur.CompletedAt = o.CompletedAt
		cur.UpdatedAt = o.UpdatedAt
		st.orders[o.ID] = cur
		updated = true
		return nil
	})
	return updated, err
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var found model.Order
	ok := false
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.CustomerID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
				found, ok = o, true
				return nil
			}
		}
		return nil
	})
	return found, ok, err
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repository.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	var out []model.Order
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.DeletedAt.Valid {
				continue
			}
			if f.Status != "" && string(o.Status) != f.Status {
				continue
			}
			if f.UserID != nil && o.CustomerID != *f.UserID {
				continue
			}
			if f.From != nil && o.OrderedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && o.OrderedAt.After(*f.To) {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	if err != nil {
		return []model.Order{}, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Page, f.Limit), total, nil
}

type orderItemRepo struct{ v *view }

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return r.v.do(func(st *state) error {
		for i := range items {
			items[i].OrderID = orderID
			items[i].ID = st.next("order_items")
			stampNow(&items[i].CreatedAt)
			st.orderItems[items[i].ID] = items[i]
		}
		return nil
	})
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	err := r.v.do(func(st *state) error {
		for _, it := range st.orderItems {
			if it.OrderID == orderID {
				out = append(out, it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookID != out[j].BookID {
			return out[i].BookID < out[j].BookID
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
