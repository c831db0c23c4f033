package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

type DiscountQuery struct {
	TargetType model.DiscountTargetType
	//book の時だけ
	TargetID       int64
	PurchaseAmount decimal.Decimal
	At             time.Time
}

type ResolvedDiscount struct {
	Discount model.Discount
	Amount   decimal.Decimal
}

// DiscountResolver は適用できる割引を探して金額を決める。
// 状態は持たないので Tx 内外どちらの repo でも使える。
type DiscountResolver struct{}

func NewDiscountResolver() *DiscountResolver {
	return &DiscountResolver{}
}

// Resolve は一番割引額が大きいものを返す。同額なら先に作られた方。
// 該当なしは nil, nil。
func (dr *DiscountResolver) Resolve(ctx context.Context, discounts repo.DiscountRepository, q DiscountQuery) (*ResolvedDiscount, error) {
	candidates, err := discounts.ListCandidates(ctx, repo.DiscountCandidateQuery{
		TargetType: q.TargetType,
		TargetID:   q.TargetID,
		At:         q.At,
	})
	if err != nil {
		return nil, fmt.Errorf("list discount candidates: %w", err)
	}

	var best *ResolvedDiscount
	//候補は created_at, id 昇順。厳密に大きい時だけ入れ替える。
	for _, d := range candidates {
		if q.PurchaseAmount.LessThan(d.MinPurchaseAmount) {
			continue
		}
		amount := d.AmountFor(q.PurchaseAmount)
		if amount.Sign() <= 0 {
			continue
		}
		if best == nil || amount.GreaterThan(best.Amount) {
			best = &ResolvedDiscount{Discount: d, Amount: amount}
		}
	}
	return best, nil
}

// ResolveCoupon は名前で指定された注文割引を検証する。
// 使えない場合は理由付きの DiscountValidationError。
func (dr *DiscountResolver) ResolveCoupon(ctx context.Context, discounts repo.DiscountRepository, name string, purchase decimal.Decimal, at time.Time) (*ResolvedDiscount, error) {
	d, err := discounts.FindByNameUnscoped(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &DiscountValidationError{Field: "coupon", Reason: "not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	switch {
	case d.DeletedAt.Valid:
		return nil, &DiscountValidationError{Field: "coupon", Reason: "not found"}
	case d.TargetType != model.DiscountTargetOrder:
		return nil, &DiscountValidationError{Field: "coupon", Reason: "not an order discount"}
	case !d.IsActive:
		return nil, &DiscountValidationError{Field: "coupon", Reason: "inactive"}
	case at.Before(d.StartDate):
		return nil, &DiscountValidationError{Field: "coupon", Reason: "not started"}
	case at.After(d.EndDate):
		return nil, &DiscountValidationError{Field: "coupon", Reason: "expired"}
	case purchase.LessThan(d.MinPurchaseAmount):
		return nil, &DiscountValidationError{
			Field:  "coupon",
			Reason: fmt.Sprintf("minimum purchase amount is %s", d.MinPurchaseAmount.StringFixed(2)),
		}
	}

	return &ResolvedDiscount{Discount: d, Amount: d.AmountFor(purchase)}, nil
}
