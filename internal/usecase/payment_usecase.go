package usecase

import (
	"context"
	"errors"
	"fmt"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/labstack/gommon/log"
)

// 外部の決済ゲートウェイに支払い状態を問い合わせる
type PaymentGateway interface {
	QueryStatus(ctx context.Context, txnRef string) (model.PaymentStatus, error)
}

type PaymentUsecase struct {
	repos    repo.Repos
	gateways map[model.PaymentMethod]PaymentGateway
	logger   *log.Logger
}

func NewPaymentUsecase(repos repo.Repos, gateways map[model.PaymentMethod]PaymentGateway, logger *log.Logger) *PaymentUsecase {
	return &PaymentUsecase{repos: repos, gateways: gateways, logger: logger}
}

type PaymentOutput struct {
	OrderID int64  `json:"order_id"`
	Method  string `json:"method"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	TxnRef  string `json:"txn_ref"`
	Changed bool   `json:"changed"`
}

// RefreshStatus はゲートウェイの結果で pending の支払いを更新する。
// 問い合わせはトランザクションの外で行い、更新は pending からの条件付き。
func (u *PaymentUsecase) RefreshStatus(ctx context.Context, userID int64, orderID int64) (PaymentOutput, error) {
	o, err := u.repos.Orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o.CustomerID != userID) {
		return PaymentOutput{}, notFound("order", orderID)
	}
	if err != nil {
		return PaymentOutput{}, fmt.Errorf("find order: %w", err)
	}

	p, err := u.repos.Payments.FindByOrderID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentOutput{}, notFound("payment", orderID)
	}
	if err != nil {
		return PaymentOutput{}, fmt.Errorf("find payment: %w", err)
	}

	out := toPaymentOutput(p)
	if p.Status != model.PaymentStatusPending {
		return out, nil
	}

	gw, ok := u.gateways[p.Method]
	if !ok {
		return out, nil
	}
	status, err := gw.QueryStatus(ctx, p.TxnRef)
	if err != nil {
		return PaymentOutput{}, fmt.Errorf("query payment gateway: %w", err)
	}
	if status == model.PaymentStatusPending {
		return out, nil
	}

	changed, err := u.repos.Payments.UpdateStatusFrom(ctx, orderID, model.PaymentStatusPending, status)
	if err != nil {
		return PaymentOutput{}, fmt.Errorf("update payment status: %w", err)
	}
	if changed {
		out.Status = string(status)
		out.Changed = true
		u.logger.Infoj(log.JSON{
			"event":    "payment_status_changed",
			"order_id": orderID,
			"txn_ref":  p.TxnRef,
			"status":   status,
		})
		return out, nil
	}

	//他で先に更新された
	latest, err := u.repos.Payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return PaymentOutput{}, fmt.Errorf("find payment: %w", err)
	}
	return toPaymentOutput(latest), nil
}

func toPaymentOutput(p model.Payment) PaymentOutput {
	return PaymentOutput{
		OrderID: p.OrderID,
		Method:  string(p.Method),
		Status:  string(p.Status),
		Amount:  p.Amount.StringFixed(2),
		TxnRef:  p.TxnRef,
	}
}
