package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

type BookUsecase struct {
	bookRepo     repo.BookRepository
	discountRepo repo.DiscountRepository
	resolver     *DiscountResolver
	clock        Clock
}

// DI
func NewBookUsecase(bookRepo repo.BookRepository, discountRepo repo.DiscountRepository, resolver *DiscountResolver, clock Clock) *BookUsecase {
	return &BookUsecase{
		bookRepo:     bookRepo,
		discountRepo: discountRepo,
		resolver:     resolver,
		clock:        clock,
	}
}

// GET /booksの入力DTO
type ListBooksInput struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type BookListOutput struct {
	Items []model.Book `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// 詳細は1冊分の割引を適用した価格も返す
type BookDetailOutput struct {
	model.Book
	Discount       *AppliedDiscount `json:"discount,omitempty"`
	DiscountedUnit decimal.Decimal  `json:"discounted_price"`
}

type AppliedDiscount struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func (u *BookUsecase) ListBooks(ctx context.Context, in ListBooksInput) (BookListOutput, error) {
	if in.Page < 1 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "best_selling":
	default:
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.bookRepo.ListPublic(ctx, repo.BookListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return BookListOutput{}, fmt.Errorf("list books: %w", err)
	}

	return BookListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *BookUsecase) GetBook(ctx context.Context, bookID int64) (BookDetailOutput, error) {
	if bookID <= 0 {
		return BookDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	b, err := u.bookRepo.FindByID(ctx, bookID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !b.IsActive) {
		return BookDetailOutput{}, notFound("book", bookID)
	}
	if err != nil {
		return BookDetailOutput{}, fmt.Errorf("find book: %w", err)
	}

	out := BookDetailOutput{Book: b, DiscountedUnit: b.Price}
	rd, err := u.resolver.Resolve(ctx, u.discountRepo, DiscountQuery{
		TargetType:     model.DiscountTargetBook,
		TargetID:       b.ID,
		PurchaseAmount: b.Price,
		At:             u.clock.Now(),
	})
	if err != nil {
		return BookDetailOutput{}, err
	}
	if rd != nil {
		out.Discount = &AppliedDiscount{ID: rd.Discount.ID, Name: rd.Discount.Name, Amount: rd.Amount}
		out.DiscountedUnit = b.Price.Sub(rd.Amount)
	}
	return out, nil
}

// 在庫は入荷（stock import）でしか増やさないので、ここでは受け取らない
type AdminBookInput struct {
	Title       string
	Author      string
	ISBN        string
	Description string
	Price       decimal.Decimal
	IsActive    bool
}

func validateBookInput(in AdminBookInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return NewHTTPError(http.StatusBadRequest, "title required")
	}
	if len(strings.TrimSpace(in.ISBN)) > 20 {
		return NewHTTPError(http.StatusBadRequest, "isbn too long")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	return nil
}

func (u *BookUsecase) AdminCreateBook(ctx context.Context, actor model.Actor, in AdminBookInput) (model.Book, error) {
	if !actor.Can(model.PermBookManage) {
		return model.Book{}, ErrForbidden
	}
	if err := validateBookInput(in); err != nil {
		return model.Book{}, err
	}

	b, err := u.bookRepo.Create(ctx, model.Book{
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		ISBN:        strings.TrimSpace(in.ISBN),
		Description: in.Description,
		Price:       in.Price.Round(2),
		IsActive:    in.IsActive,
	})
	if err != nil {
		return model.Book{}, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

func (u *BookUsecase) AdminUpdateBook(ctx context.Context, actor model.Actor, bookID int64, in AdminBookInput) error {
	if !actor.Can(model.PermBookManage) {
		return ErrForbidden
	}
	if bookID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid book id")
	}
	if err := validateBookInput(in); err != nil {
		return err
	}

	err := u.bookRepo.Update(ctx, model.Book{
		ID:          bookID,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		ISBN:        strings.TrimSpace(in.ISBN),
		Description: in.Description,
		Price:       in.Price.Round(2),
		IsActive:    in.IsActive,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("book", bookID)
	}
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (u *BookUsecase) AdminDeleteBook(ctx context.Context, actor model.Actor, bookID int64) error {
	if !actor.Can(model.PermBookManage) {
		return ErrForbidden
	}
	if bookID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	err := u.bookRepo.SoftDelete(ctx, bookID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("book", bookID)
	}
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}
