package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

type bookRepo struct{ v *view }

func (r *bookRepo) ListPublic(ctx context.Context, q repository.BookListQuery) ([]model.Book, int64, error) {
	var out []model.Book
	err := r.v.do(func(st *state) error {
		needle := strings.ToLower(strings.TrimSpace(q.Q))
		for _, b := range st.books {
			if b.DeletedAt.Valid || !b.IsActive {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(b.Title), needle) &&
				!strings.Contains(strings.ToLower(b.Author), needle) {
				continue
			}
			if q.MinPrice != nil && b.Price.LessThan(*q.MinPrice) {
				continue
			}
			if q.MaxPrice != nil && b.Price.GreaterThan(*q.MaxPrice) {
				continue
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return []model.Book{}, 0, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case "price_asc":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
			return a.ID < b.ID
		case "price_desc":
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
			return a.ID > b.ID
		case "best_selling":
			if a.SoldCount != b.SoldCount {
				return a.SoldCount > b.SoldCount
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	total := int64(len(out))
	return paginate(out, q.Page, q.Limit), total, nil
}

func (r *bookRepo) FindByID(ctx context.Context, id int64) (model.Book, error) {
	var b model.Book
	err := r.v.do(func(st *state) error {
		found, ok := st.books[id]
		if !ok || found.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		b = found
		return nil
	})
	return b, err
}

func (r *bookRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.Book, error) {
	out := []model.Book{}
	err := r.v.do(func(st *state) error {
		for _, id := range ids {
			if b, ok := st.books[id]; ok && !b.DeletedAt.Valid {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *bookRepo) Create(ctx context.Context, b model.Book) (model.Book, error) {
	err := r.v.do(func(st *state) error {
		if b.ISBN != "" {
			for _, other := range st.books {
				if other.ISBN == b.ISBN {
					return ErrConstraint
				}
			}
		}
		b.ID = st.next("books")
		stampNow(&b.CreatedAt)
		b.UpdatedAt = b.CreatedAt
		st.books[b.ID] = b
		return nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (r *bookRepo) Update(ctx context.Context, b model.Book) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.books[b.ID]
		if !ok || cur.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		cur.Title = b.Title
		cur.Author = b.Author
		cur.ISBN = b.ISBN
		cur.Description = b.Description
		cur.Price = b.Price
		cur.IsActive = b.IsActive
		cur.UpdatedAt = time.Now()
		st.books[b.ID] = cur
		return nil
	})
}

func (r *bookRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.books[id]
		if !ok || cur.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		cur.DeletedAt.Time = time.Now()
		cur.DeletedAt.Valid = true
		st.books[id] = cur
		return nil
	})
}

// 条件を満たす時だけ書き換える（削除済みでも対象）
func (r *bookRepo) AdjustStock(ctx context.Context, bookID int64, d model.StockDelta) (bool, error) {
	applied := false
	err := r.v.do(func(st *state) error {
		cur, ok := st.books[bookID]
		if !ok {
			return nil
		}
		if cur.AvailableCount+d.Available < 0 || cur.SoldCount+d.Sold < 0 {
			return nil
		}
		cur.AvailableCount += d.Available
		cur.SoldCount += d.Sold
		cur.UpdatedAt = time.Now()
		st.books[bookID] = cur
		applied = true
		return nil
	})
	return applied, err
}
