package memory

import (
	"time"

	"bookstore/internal/domain/model"
)

// テストと STORAGE=memory 用の投入口。ID が0なら採番する。

func (s *Store) PutUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.st.next("users")
	} else if u.ID > s.st.seq["users"] {
		s.st.seq["users"] = u.ID
	}
	if u.Role == "" {
		u.Role = model.RoleCustomer
	}
	stampNow(&u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	s.st.users[u.ID] = u
	return u
}

func (s *Store) PutBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.st.next("books")
	} else if b.ID > s.st.seq["books"] {
		s.st.seq["books"] = b.ID
	}
	stampNow(&b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	s.st.books[b.ID] = b
	return b
}

func (s *Store) PutAddress(a model.Address) model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.st.next("addresses")
	} else if a.ID > s.st.seq["addresses"] {
		s.st.seq["addresses"] = a.ID
	}
	stampNow(&a.CreatedAt)
	a.UpdatedAt = a.CreatedAt
	s.st.addresses[a.ID] = a
	return a
}

func (s *Store) PutSupplier(sp model.Supplier) model.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.ID == 0 {
		sp.ID = s.st.next("suppliers")
	}
	stampNow(&sp.CreatedAt)
	s.st.suppliers[sp.ID] = sp
	return sp
}

// targets は d.Targets から取る
func (s *Store) PutDiscount(d model.Discount) model.Discount {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.insertDiscount(&d)
	return d
}

func (s *Store) PutCartItem(userID, bookID, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	k := cartKey{userID, bookID}
	it, ok := s.st.cartItems[k]
	if !ok {
		it = model.CartItem{ID: s.st.next("cart_items"), UserID: userID, BookID: bookID, CreatedAt: now}
	}
	it.Quantity += qty
	it.UpdatedAt = now
	s.st.cartItems[k] = it
}

// 参照用のスナップショット取得（テスト向け）

func (s *Store) Book(id int64) (model.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.books[id]
	return b, ok
}

func (s *Store) Order(id int64) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return o, ok
}

func (s *Store) CountOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) CountCartItems(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.st.cartItems {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func (s *Store) CountAuditLogs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.auditLogs)
}

// SeedDemo は STORAGE=memory で起動した時の初期データ。
func (s *Store) SeedDemo() {
	s.PutUser(model.User{ID: 1, Email: "admin@example.com", Name: "admin", Role: model.RoleAdmin, IsActive: true})
	s.PutUser(model.User{ID: 2, Email: "staff@example.com", Name: "staff", Role: model.RoleEmployee, IsActive: true})
	s.PutUser(model.User{ID: 3, Email: "customer@example.com", Name: "customer", Role: model.RoleCustomer, IsActive: true})
	s.PutSupplier(model.Supplier{Name: "Default Supplier"})
}
