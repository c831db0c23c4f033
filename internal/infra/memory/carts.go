package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
)

type cartItemRepo struct{ v *view }

func (r *cartItemRepo) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	err := r.v.do(func(st *state) error {
		for k, it := range st.cartItems {
			if k.userID == userID {
				out = append(out, it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *cartItemRepo) Upsert(ctx context.Context, userID int64, bookID int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	return r.v.do(func(st *state) error {
		now := time.Now()
		k := cartKey{userID, bookID}
		it, ok := st.cartItems[k]
		if !ok {
			it = model.CartItem{ID: st.next("cart_items"), UserID: userID, BookID: bookID, CreatedAt: now}
		}
		it.Quantity += addQty
		it.UpdatedAt = now
		st.cartItems[k] = it
		return nil
	})
}

func (r *cartItemRepo) UpdateQuantity(ctx context.Context, userID int64, bookID int64, qty int64) error {
	return r.v.do(func(st *state) error {
		k := cartKey{userID, bookID}
		it, ok := st.cartItems[k]
		if !ok {
			return repository.ErrNotFound
		}
		it.Quantity = qty
		it.UpdatedAt = time.Now()
		st.cartItems[k] = it
		return nil
	})
}

func (r *cartItemRepo) Delete(ctx context.Context, userID int64, bookID int64) error {
	return r.v.do(func(st *state) error {
		k := cartKey{userID, bookID}
		if _, ok := st.cartItems[k]; !ok {
			return repository.ErrNotFound
		}
		delete(st.cartItems, k)
		return nil
	})
}

func (r *cartItemRepo) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return r.v.do(func(st *state) error {
		for k := range st.cartItems {
			if k.userID == userID {
				delete(st.cartItems, k)
			}
		}
		return nil
	})
}
