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

type DiscountUsecase struct {
	tx        repo.TransactionManager
	discounts repo.DiscountRepository
	clock     Clock
	logger    *log.Logger
}

func NewDiscountUsecase(tx repo.TransactionManager, discounts repo.DiscountRepository, clock Clock, logger *log.Logger) *DiscountUsecase {
	return &DiscountUsecase{tx: tx, discounts: discounts, clock: clock, logger: logger}
}

type DiscountInput struct {
	Name              string
	Description       string
	DiscountType      string
	DiscountValue     decimal.Decimal
	TargetType        string
	StartDate         string
	EndDate           string
	MinPurchaseAmount decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	//未指定なら有効
	IsActive  *bool
	TargetIDs []int64
}

type DiscountListOutput struct {
	Items []model.Discount `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// Create は名前で upsert する。論理削除済みの同名があれば復元して上書き。
func (u *DiscountUsecase) Create(ctx context.Context, actor model.Actor, in DiscountInput) (model.Discount, error) {
	if !actor.Can(model.PermDiscountManage) {
		return model.Discount{}, ErrForbidden
	}
	d, targetIDs, err := buildDiscount(in)
	if err != nil {
		return model.Discount{}, err
	}

	var out model.Discount
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := checkTargets(ctx, r.Books(), targetIDs); err != nil {
			return err
		}

		existing, err := r.Discounts().FindByNameUnscoped(ctx, d.Name)
		switch {
		case err == nil && !existing.DeletedAt.Valid:
			return &DiscountValidationError{Field: "name", Reason: "already exists"}
		case err == nil:
			//復元
			d.ID = existing.ID
			if err := r.Discounts().Save(ctx, d); err != nil {
				return fmt.Errorf("restore discount: %w", err)
			}
			if err := r.Discounts().ReplaceTargets(ctx, d.ID, toTargets(targetIDs)); err != nil {
				return fmt.Errorf("replace discount targets: %w", err)
			}
		case errors.Is(err, repo.ErrNotFound):
			d.Targets = toTargets(targetIDs)
			if err := r.Discounts().Create(ctx, &d); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return &DiscountValidationError{Field: "name", Reason: "already exists"}
				}
				return fmt.Errorf("create discount: %w", err)
			}
		default:
			return fmt.Errorf("find discount by name: %w", err)
		}

		out, err = r.Discounts().FindByID(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("reload discount: %w", err)
		}

		before := "{}"
		if existing.ID != 0 {
			before = auditJSON(existing)
		}
		return u.audit(ctx, r, actor, model.AuditActionUpsertDiscount, d.ID, before, auditJSON(out))
	})
	if err != nil {
		return model.Discount{}, err
	}

	u.logger.Infoj(log.JSON{"event": "discount_saved", "discount_id": out.ID, "name": out.Name, "actor_id": actor.UserID})
	return out, nil
}

func (u *DiscountUsecase) Update(ctx context.Context, actor model.Actor, id int64, in DiscountInput) (model.Discount, error) {
	if !actor.Can(model.PermDiscountManage) {
		return model.Discount{}, ErrForbidden
	}
	if id <= 0 {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, targetIDs, err := buildDiscount(in)
	if err != nil {
		return model.Discount{}, err
	}
	d.ID = id

	var out model.Discount
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Discounts().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("discount", id)
		}
		if err != nil {
			return fmt.Errorf("find discount: %w", err)
		}

		if d.Name != before.Name {
			other, err := r.Discounts().FindByNameUnscoped(ctx, d.Name)
			if err == nil && other.ID != id {
				return &DiscountValidationError{Field: "name", Reason: "already exists"}
			}
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("find discount by name: %w", err)
			}
		}
		if err := checkTargets(ctx, r.Books(), targetIDs); err != nil {
			return err
		}

		if err := r.Discounts().Save(ctx, d); err != nil {
			return fmt.Errorf("update discount: %w", err)
		}
		if err := r.Discounts().ReplaceTargets(ctx, id, toTargets(targetIDs)); err != nil {
			return fmt.Errorf("replace discount targets: %w", err)
		}

		out, err = r.Discounts().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload discount: %w", err)
		}
		return u.audit(ctx, r, actor, model.AuditActionUpsertDiscount, id, auditJSON(before), auditJSON(out))
	})
	if err != nil {
		return model.Discount{}, err
	}
	return out, nil
}

// 論理削除。同じ名前で作り直すと復元される。
func (u *DiscountUsecase) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.Can(model.PermDiscountManage) {
		return ErrForbidden
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Discounts().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("discount", id)
		}
		if err != nil {
			return fmt.Errorf("find discount: %w", err)
		}
		if err := r.Discounts().SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("delete discount: %w", err)
		}
		return u.audit(ctx, r, actor, model.AuditActionDeleteDiscount, id, auditJSON(before), "{}")
	})
}

func (u *DiscountUsecase) Get(ctx context.Context, id int64) (model.Discount, error) {
	if id <= 0 {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := u.discounts.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Discount{}, notFound("discount", id)
	}
	if err != nil {
		return model.Discount{}, fmt.Errorf("find discount: %w", err)
	}
	return d, nil
}

func (u *DiscountUsecase) List(ctx context.Context, q repo.DiscountListQuery) (DiscountListOutput, error) {
	if q.Page < 1 {
		return DiscountListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if q.Limit < 1 || q.Limit > 100 {
		return DiscountListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if q.TargetType != "" && !q.TargetType.Valid() {
		return DiscountListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid target_type")
	}

	items, total, err := u.discounts.List(ctx, q)
	if err != nil {
		return DiscountListOutput{}, fmt.Errorf("list discounts: %w", err)
	}
	return DiscountListOutput{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (u *DiscountUsecase) audit(ctx context.Context, r repo.TxRepos, actor model.Actor, action model.AuditAction, id int64, before, after string) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       action,
		ResourceType: model.AuditResourceDiscount,
		ResourceID:   id,
		BeforeJSON:   before,
		AfterJSON:    after,
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// 入力チェックとモデルへの変換。対象書籍の存在確認は Tx 内で行う。
func buildDiscount(in DiscountInput) (model.Discount, []int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Discount{}, nil, &DiscountValidationError{Field: "name", Reason: "required"}
	}
	if len(name) > 100 {
		return model.Discount{}, nil, &DiscountValidationError{Field: "name", Reason: "too long"}
	}

	dt := model.DiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType)))
	if !dt.Valid() {
		return model.Discount{}, nil, &DiscountValidationError{Field: "discount_type", Reason: "must be percentage or fixed"}
	}
	if in.DiscountValue.IsNegative() {
		return model.Discount{}, nil, &DiscountValidationError{Field: "discount_value", Reason: "must be >= 0"}
	}
	if dt == model.DiscountTypePercentage && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return model.Discount{}, nil, &DiscountValidationError{Field: "discount_value", Reason: "must be <= 100 for percentage"}
	}

	tt := model.DiscountTargetType(strings.ToLower(strings.TrimSpace(in.TargetType)))
	if !tt.Valid() {
		return model.Discount{}, nil, &DiscountValidationError{Field: "target_type", Reason: "must be book or order"}
	}

	start, err := parseDateTime(in.StartDate)
	if err != nil {
		return model.Discount{}, nil, &DiscountValidationError{Field: "start_date", Reason: "must be RFC3339"}
	}
	end, err := parseDateTime(in.EndDate)
	if err != nil {
		return model.Discount{}, nil, &DiscountValidationError{Field: "end_date", Reason: "must be RFC3339"}
	}
	if !end.After(start) {
		return model.Discount{}, nil, &DiscountValidationError{Field: "end_date", Reason: "must be after start_date"}
	}

	if in.MinPurchaseAmount.IsNegative() {
		return model.Discount{}, nil, &DiscountValidationError{Field: "min_purchase_amount", Reason: "must be >= 0"}
	}
	if in.MaxDiscountAmount != nil && in.MaxDiscountAmount.IsNegative() {
		return model.Discount{}, nil, &DiscountValidationError{Field: "max_discount_amount", Reason: "must be >= 0"}
	}

	ids := uniqueIDs(in.TargetIDs)
	switch tt {
	case model.DiscountTargetBook:
		if len(ids) == 0 {
			return model.Discount{}, nil, &DiscountValidationError{Field: "targets", Reason: "book discount requires at least one target"}
		}
	case model.DiscountTargetOrder:
		if len(ids) > 0 {
			return model.Discount{}, nil, &DiscountValidationError{Field: "targets", Reason: "order discount must not have targets"}
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return model.Discount{
		Name:              name,
		Description:       in.Description,
		DiscountType:      dt,
		DiscountValue:     in.DiscountValue,
		TargetType:        tt,
		StartDate:         start,
		EndDate:           end,
		MinPurchaseAmount: in.MinPurchaseAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		IsActive:          active,
	}, ids, nil
}

func checkTargets(ctx context.Context, books repo.BookRepository, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := books.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find target books: %w", err)
	}
	exists := make(map[int64]bool, len(found))
	for _, b := range found {
		exists[b.ID] = true
	}
	for _, id := range ids {
		if !exists[id] {
			return &DiscountValidationError{Field: "targets", Reason: fmt.Sprintf("book %d does not exist", id)}
		}
	}
	return nil
}

func toTargets(ids []int64) []model.DiscountTarget {
	out := make([]model.DiscountTarget, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.DiscountTarget{TargetID: id, TargetType: model.DiscountTargetBook})
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
