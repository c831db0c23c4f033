package usecase

import (
	"context"
	"errors"
	"fmt"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/labstack/gommon/log"
)

type UserUsecase struct {
	tx     repo.TransactionManager
	clock  Clock
	logger *log.Logger
}

func NewUserUsecase(tx repo.TransactionManager, clock Clock, logger *log.Logger) *UserUsecase {
	return &UserUsecase{tx: tx, clock: clock, logger: logger}
}

// ForceLogout は token_version を上げ、発行済みのアクセストークンを無効にする。
func (u *UserUsecase) ForceLogout(ctx context.Context, actor model.Actor, userID int64) error {
	if !actor.Can(model.PermUserManage) {
		return ErrForbidden
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("user", userID)
		}
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}

		if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
			return fmt.Errorf("increment token version: %w", err)
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionForceLogout,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   auditJSON(map[string]int{"token_version": before.TokenVersion}),
			AfterJSON:    auditJSON(map[string]int{"token_version": before.TokenVersion + 1}),
			CreatedAt:    u.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	u.logger.Infoj(log.JSON{
		"event":    "force_logout",
		"user_id":  userID,
		"actor_id": actor.UserID,
	})
	return nil
}
