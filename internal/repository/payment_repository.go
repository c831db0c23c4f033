package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	// from の時だけ to に変える。変わらなければ false。
	UpdateStatusFrom(ctx context.Context, orderID int64, from, to model.PaymentStatus) (bool, error)
}
