package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// 価格は持たず、表示のたびに現在の書籍価格で計算します。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	bookRepo     repo.BookRepository
}

func NewCartUsecase(cartItemRepo repo.CartItemRepository, bookRepo repo.BookRepository) *CartUsecase {
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		bookRepo:     bookRepo,
	}
}

type CartItemResponse struct {
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Available int64           `json:"available_count"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type AddCartInput struct {
	BookID   int64
	Quantity int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// AddToCart はカートに追加（同一書籍は数量加算）。
// 在庫は承認時に確定するので、ここでは現在の在庫を超えないかだけ見る。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.BookID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid book_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	b, err := u.findActiveBook(ctx, in.BookID)
	if err != nil {
		return CartResponse{}, err
	}

	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, fmt.Errorf("list cart items: %w", err)
	}
	var existingQty int64
	for _, it := range items {
		if it.BookID == in.BookID {
			existingQty = it.Quantity
			break
		}
	}
	if existingQty+in.Quantity > b.AvailableCount {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if err := u.cartItemRepo.Upsert(ctx, userID, in.BookID, in.Quantity); err != nil {
		return CartResponse{}, fmt.Errorf("upsert cart item: %w", err)
	}

	return u.buildCartResponse(ctx, userID)
}

// 数量変更
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, bookID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if bookID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid book_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	b, err := u.findActiveBook(ctx, bookID)
	if err != nil {
		return CartResponse{}, err
	}
	if in.Quantity > b.AvailableCount {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, userID, bookID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFound("cart item", bookID)
		}
		return CartResponse{}, fmt.Errorf("update cart item: %w", err)
	}

	return u.buildCartResponse(ctx, userID)
}

// 明細削除
func (u *CartUsecase) RemoveCartItem(ctx context.Context, userID int64, bookID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if bookID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid book_id")
	}

	if err := u.cartItemRepo.Delete(ctx, userID, bookID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFound("cart item", bookID)
		}
		return CartResponse{}, fmt.Errorf("delete cart item: %w", err)
	}

	return u.buildCartResponse(ctx, userID)
}

func (u *CartUsecase) findActiveBook(ctx context.Context, bookID int64) (model.Book, error) {
	b, err := u.bookRepo.FindByID(ctx, bookID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !b.IsActive) {
		return model.Book{}, notFound("book", bookID)
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("find book: %w", err)
	}
	return b, nil
}

// 明細をまとめて CartResponse を作る。削除・非公開になった書籍は表示しない。
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, fmt.Errorf("list cart items: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BookID)
	}
	books, err := u.bookRepo.FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, fmt.Errorf("find books: %w", err)
	}
	byID := make(map[int64]model.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items)), Subtotal: decimal.Zero}
	for _, it := range items {
		b, ok := byID[it.BookID]
		if !ok || !b.IsActive {
			continue
		}
		resp.Items = append(resp.Items, CartItemResponse{
			BookID:    b.ID,
			Title:     b.Title,
			Price:     b.Price,
			Quantity:  it.Quantity,
			Available: b.AvailableCount,
		})
		resp.Subtotal = resp.Subtotal.Add(b.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return resp, nil
}
