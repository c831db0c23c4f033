package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
)

type AddressDTO struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	Line      string `json:"line"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type AddressCreateRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	Line      string `json:"line"`
	IsDefault bool   `json:"is_default"`
}

type AddressUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	clock     Clock
}

func NewAddressUsecase(tx repo.TransactionManager, addresses repo.AddressRepository, clock Clock) *AddressUsecase {
	return &AddressUsecase{tx: tx, addresses: addresses, clock: clock}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressCreateRequest) (AddressDTO, error) {
	a := model.Address{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		City:     strings.TrimSpace(req.City),
		District: strings.TrimSpace(req.District),
		Ward:     strings.TrimSpace(req.Ward),
		Line:     strings.TrimSpace(req.Line),
	}

	//入力チェック
	if a.Name == "" || a.Phone == "" || a.City == "" || a.District == "" || a.Ward == "" || a.Line == "" {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "name, phone, city, district, ward and line are required")
	}
	if len(a.Phone) > 30 {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "phone too long")
	}

	now := u.clock.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	var created model.Address
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("list addresses: %w", err)
		}

		created, err = r.Addresses().Create(ctx, a)
		if err != nil {
			return fmt.Errorf("create address: %w", err)
		}

		//最初の住所は自動でデフォルト
		if req.IsDefault || len(existing) == 0 {
			if err := r.Addresses().SetDefault(ctx, userID, created.ID); err != nil {
				return fmt.Errorf("set default address: %w", err)
			}
			created.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}

	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid address id")
	}

	//他人の住所は存在しない扱い
	err := u.addresses.SetDefault(ctx, userID, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("address", addressID)
	}
	if err != nil {
		return fmt.Errorf("set default address: %w", err)
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	return AddressDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Phone:     a.Phone,
		City:      a.City,
		District:  a.District,
		Ward:      a.Ward,
		Line:      a.Line,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}
