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

// /books の公開APIと /admin/books
type BookHandler struct {
	uc *usecase.BookUsecase
}

// DI
func NewBookHandler(uc *usecase.BookUsecase) *BookHandler {
	return &BookHandler{uc: uc}
}

type BookRequest struct {
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	ISBN        string          `json:"isbn"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"is_active"`
}

func (h *BookHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/books", h.list)
	e.GET("/books/:id", h.detail)

	admin := e.Group("/admin/books")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.RequirePermission(model.PermBookManage))

	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *BookHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	var minPrice, maxPrice *decimal.Decimal
	if v := c.QueryParam("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "invalid min_price")
		}
		minPrice = &d
	}
	if v := c.QueryParam("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "invalid max_price")
		}
		maxPrice = &d
	}

	out, err := h.uc.ListBooks(c.Request().Context(), usecase.ListBooksInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BookHandler) detail(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetBook(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BookHandler) create(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	b, err := h.uc.AdminCreateBook(c.Request().Context(), actor, toBookInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookHandler) update(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.AdminUpdateBook(c.Request().Context(), actor, id, toBookInput(req)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *BookHandler) delete(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.AdminDeleteBook(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toBookInput(req BookRequest) usecase.AdminBookInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return usecase.AdminBookInput{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
		Price:       req.Price,
		IsActive:    active,
	}
}
