package middleware

import (
	"net/http"

	"bookstore/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextのactorが権限を持っているか確認します。
func RequirePermission(p model.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !actor.Can(p) {
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			}
			return next(c)
		}
	}
}
