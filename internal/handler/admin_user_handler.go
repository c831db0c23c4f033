package handler

import (
	"net/http"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 強制ログアウトと監査ログ閲覧（管理者）
type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	users    *usecase.UserUsecase
	audits   *usecase.AuditLogUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, users *usecase.UserUsecase, audits *usecase.AuditLogUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, users: users, audits: audits}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(h.cfg.JWTSecret),
		middleware.TokenVersionGuard(h.userRepo),
	)

	admin.POST("/users/:id/force-logout", h.ForceLogout, middleware.RequirePermission(model.PermUserManage))
	admin.GET("/audit-logs", h.ListAuditLogs, middleware.RequirePermission(model.PermAuditRead))
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	if err := h.users.ForceLogout(c.Request().Context(), actor, userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}

func (h *AdminUserHandler) ListAuditLogs(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var f repository.AuditLogFilter
	var ok2 bool
	if f.ActorUserID, ok2 = queryInt64Ptr(c, "actor_user_id"); !ok2 {
		return badRequest(c, "invalid actor_user_id")
	}
	if f.ResourceID, ok2 = queryInt64Ptr(c, "resource_id"); !ok2 {
		return badRequest(c, "invalid resource_id")
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("created_from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid created_from")
		}
		f.CreatedFrom = &tm
	}
	if v := c.QueryParam("created_to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid created_to")
		}
		f.CreatedTo = &tm
	}
	if f.Limit, ok2 = queryInt(c, "limit", 50); !ok2 {
		return badRequest(c, "invalid limit")
	}
	if f.Offset, ok2 = queryInt(c, "offset", 0); !ok2 {
		return badRequest(c, "invalid offset")
	}

	list, err := h.audits.List(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
