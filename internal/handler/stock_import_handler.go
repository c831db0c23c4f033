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

// 入荷と仕入先（従業員・管理者）
type StockImportHandler struct {
	uc *usecase.StockImportUsecase
}

func NewStockImportHandler(uc *usecase.StockImportUsecase) *StockImportHandler {
	return &StockImportHandler{uc: uc}
}

type StockImportRequest struct {
	SupplierID int64  `json:"supplier_id"`
	Note       string `json:"note"`
	Items      []struct {
		BookID      int64           `json:"book_id"`
		Quantity    int64           `json:"quantity"`
		ImportPrice decimal.Decimal `json:"import_price"`
	} `json:"items"`
}

type SupplierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *StockImportHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.RequirePermission(model.PermStockImport))

	admin.POST("/stock-imports", h.importStock)
	admin.GET("/stock-imports", h.list)
	admin.GET("/stock-imports/:id", h.detail)
	admin.POST("/suppliers", h.createSupplier)
	admin.GET("/suppliers", h.listSuppliers)
}

func (h *StockImportHandler) importStock(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req StockImportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	in := usecase.StockImportInput{SupplierID: req.SupplierID, Note: req.Note}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.StockImportItemInput{
			BookID:      it.BookID,
			Quantity:    it.Quantity,
			ImportPrice: it.ImportPrice,
		})
	}

	imp, err := h.uc.Import(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, imp)
}

func (h *StockImportHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), actor, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StockImportHandler) detail(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	imp, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, imp)
}

func (h *StockImportHandler) createSupplier(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	s, err := h.uc.CreateSupplier(c.Request().Context(), actor, req.Name, req.Phone)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *StockImportHandler) listSuppliers(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := h.uc.ListSuppliers(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
