package memory

import (
	"context"
	"sort"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

type discountRepo struct{ v *view }

func (st *state) insertDiscount(d *model.Discount) {
	if d.ID == 0 {
		d.ID = st.next("discounts")
	}
	stampNow(&d.CreatedAt)
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	for i := range d.Targets {
		d.Targets[i].ID = st.next("discount_targets")
		d.Targets[i].DiscountID = d.ID
		st.discountTargets[d.Targets[i].ID] = d.Targets[i]
	}
	row := *d
	row.Targets = nil
	st.discounts[d.ID] = row
}

func (st *state) withTargets(d model.Discount) model.Discount {
	d.Targets = []model.DiscountTarget{}
	for _, t := range st.discountTargets {
		if t.DiscountID == d.ID {
			d.Targets = append(d.Targets, t)
		}
	}
	sort.Slice(d.Targets, func(i, j int) bool { return d.Targets[i].ID < d.Targets[j].ID })
	return d
}

func (r *discountRepo) FindByID(ctx context.Context, id int64) (model.Discount, error) {
	var d model.Discount
	err := r.v.do(func(st *state) error {
		found, ok := st.discounts[id]
		if !ok || found.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		d = st.withTargets(found)
		return nil
	})
	return d, err
}

func (r *discountRepo) FindByNameUnscoped(ctx context.Context, name string) (model.Discount, error) {
	var d model.Discount
	err := r.v.do(func(st *state) error {
		for _, found := range st.discounts {
			if found.Name == name {
				d = st.withTargets(found)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return d, err
}

func (r *discountRepo) Create(ctx context.Context, d *model.Discount) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.discounts {
			if other.Name == d.Name {
				return ErrConstraint
			}
		}
		st.insertDiscount(d)
		return nil
	})
}

func (r *discountRepo) Save(ctx context.Context, d model.Discount) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.discounts[d.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for _, other := range st.discounts {
			if other.ID != d.ID && other.Name == d.Name {
				return ErrConstraint
			}
		}
		d.Targets = nil
		d.CreatedAt = cur.CreatedAt
		d.UpdatedAt = time.Now()
		d.DeletedAt = cur.DeletedAt
		d.DeletedAt.Valid = false
		st.discounts[d.ID] = d
		return nil
	})
}

func (r *discountRepo) ReplaceTargets(ctx context.Context, discountID int64, targets []model.DiscountTarget) error {
	return r.v.do(func(st *state) error {
		for id, t := range st.discountTargets {
			if t.DiscountID == discountID {
				delete(st.discountTargets, id)
			}
		}
		for _, t := range targets {
			t.ID = st.next("discount_targets")
			t.DiscountID = discountID
			st.discountTargets[t.ID] = t
		}
		return nil
	})
}

func (r *discountRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.discounts[id]
		if !ok || cur.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		cur.DeletedAt.Time = time.Now()
		cur.DeletedAt.Valid = true
		st.discounts[id] = cur
		return nil
	})
}

func (r *discountRepo) List(ctx context.Context, q repository.DiscountListQuery) ([]model.Discount, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	var out []model.Discount
	err := r.v.do(func(st *state) error {
		for _, d := range st.discounts {
			if d.DeletedAt.Valid {
				continue
			}
			if q.TargetType != "" && d.TargetType != q.TargetType {
				continue
			}
			if q.ActiveOnly && !d.IsActive {
				continue
			}
			out = append(out, st.withTargets(d))
		}
		return nil
	})
	if err != nil {
		return []model.Discount{}, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, q.Page, q.Limit), total, nil
}

func (r *discountRepo) ListCandidates(ctx context.Context, q repository.DiscountCandidateQuery) ([]model.Discount, error) {
	out := []model.Discount{}
	err := r.v.do(func(st *state) error {
		for _, d := range st.discounts {
			if d.DeletedAt.Valid || !d.IsActive || d.TargetType != q.TargetType || !d.InWindow(q.At) {
				continue
			}
			if q.TargetType == model.DiscountTargetBook && !st.targets(d.ID, q.TargetID) {
				continue
			}
			out = append(out, d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (st *state) targets(discountID, bookID int64) bool {
	for _, t := range st.discountTargets {
		if t.DiscountID == discountID && t.TargetType == model.DiscountTargetBook && t.TargetID == bookID {
			return true
		}
	}
	return false
}
