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

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// 従業員・管理者向け。遷移ごとの権限はusecase側で見る。
func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin/orders")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.RequirePermission(model.PermOrderListAll))

	admin.GET("", h.list)
	admin.GET("/:id", h.detail)
	admin.PUT("/:id/status", h.updateStatus)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	userID, ok := queryInt64Ptr(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		toPtr = &tm
	}

	out, err := h.uc.List(c.Request().Context(), actor, repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), actor, orderID, usecase.AdminUpdateOrderStatusInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
