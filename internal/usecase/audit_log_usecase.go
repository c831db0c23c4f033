package usecase

import (
	"context"
	"fmt"
	"net/http"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
)

type AuditLogUsecase struct {
	auditLogs repo.AuditLogRepository
}

func NewAuditLogUsecase(auditLogs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditLogs: auditLogs}
}

func (u *AuditLogUsecase) List(ctx context.Context, actor model.Actor, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	if !actor.Can(model.PermAuditRead) {
		return nil, ErrForbidden
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.Limit < 0 || filter.Limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if filter.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, NewHTTPError(http.StatusBadRequest, "created_from must be before created_to")
	}

	list, err := u.auditLogs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return list, nil
}
