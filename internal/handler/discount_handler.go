package handler

import (
	"net/http"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /admin/discounts
type DiscountHandler struct {
	uc *usecase.DiscountUsecase
}

func NewDiscountHandler(uc *usecase.DiscountUsecase) *DiscountHandler {
	return &DiscountHandler{uc: uc}
}

type DiscountRequest struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	TargetType        string           `json:"target_type"`
	StartDate         string           `json:"start_date"`
	EndDate           string           `json:"end_date"`
	MinPurchaseAmount decimal.Decimal  `json:"min_purchase_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	IsActive          *bool            `json:"is_active"`
	TargetIDs         []int64          `json:"target_ids"`
}

func (h *DiscountHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin/discounts")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.RequirePermission(model.PermDiscountManage))

	admin.GET("", h.list)
	admin.GET("/:id", h.detail)
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *DiscountHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), repository.DiscountListQuery{
		Page:       page,
		Limit:      limit,
		TargetType: model.DiscountTargetType(c.QueryParam("target_type")),
		ActiveOnly: c.QueryParam("active") == "true",
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DiscountHandler) detail(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	d, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DiscountHandler) create(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	d, err := h.uc.Create(c.Request().Context(), actor, toDiscountInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DiscountHandler) update(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	d, err := h.uc.Update(c.Request().Context(), actor, id, toDiscountInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DiscountHandler) delete(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toDiscountInput(req DiscountRequest) usecase.DiscountInput {
	return usecase.DiscountInput{
		Name:              req.Name,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		TargetType:        req.TargetType,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		IsActive:          req.IsActive,
		TargetIDs:         req.TargetIDs,
	}
}
