package handler

import (
	"errors"
	"net/http"
	"strconv"

	"bookstore/internal/domain/model"
	"bookstore/internal/middleware"
	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// 在庫不足は不足分も返す
type InsufficientStockResponse struct {
	Error     string `json:"error"`
	BookID    int64  `json:"book_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	Shortfall int64  `json:"shortfall"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var (
		nfe *usecase.NotFoundError
		ece *usecase.EmptyCartError
		ite *usecase.InvalidTransitionError
		dve *usecase.DiscountValidationError
		ise *usecase.InsufficientStockError
	)
	switch {
	case errors.As(err, &nfe):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: nfe.Error()})
	case errors.As(err, &ece):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart is empty"})
	case errors.As(err, &ite):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: ite.Error()})
	case errors.As(err, &dve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: dve.Reason, Field: dve.Field})
	case errors.As(err, &ise):
		return c.JSON(http.StatusConflict, InsufficientStockResponse{
			Error:     "insufficient stock",
			BookID:    ise.BookID,
			Requested: ise.Requested,
			Available: ise.Available,
			Shortfall: ise.Shortfall,
		})
	case errors.Is(err, usecase.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	c.Logger().Errorj(log.JSON{
		"event":  "request_failed",
		"method": c.Request().Method,
		"path":   c.Path(),
		"error":  err.Error(),
	})
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getActorFromContext(c echo.Context) (model.Actor, bool) {
	return middleware.ActorFromContext(c)
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	actor, ok := middleware.ActorFromContext(c)
	return actor.UserID, ok
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// パスパラメータのIDを取り出す
func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// クエリの整数。未指定ならdef
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func queryInt64Ptr(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}
