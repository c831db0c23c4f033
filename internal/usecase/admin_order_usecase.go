package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders *OrderUsecase
}

func NewAdminOrderUsecase(tx repo.TransactionManager, orders *OrderUsecase) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧（従業員・管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, actor model.Actor, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if !actor.Can(model.PermOrderListAll) {
		return OrderListOutput{}, ErrForbidden
	}
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	out := OrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			oo, err := loadOrderOutput(ctx, r, o)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, oo)
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	if !actor.Can(model.PermOrderListAll) {
		return OrderOutput{}, ErrForbidden
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order", orderID)
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		out, err = loadOrderOutput(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ステータス更新。判定と在庫の扱いは OrderUsecase.Transition に任せる。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor model.Actor, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	status := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !status.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	return u.orders.Transition(ctx, actor, orderID, status)
}
