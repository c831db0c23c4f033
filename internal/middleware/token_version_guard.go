package middleware

import (
	"net/http"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// ロールはDB側を正とし、actorを上書きする。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserRoleKey, user.Role)
			c.Set(CtxActorKey, model.Actor{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}
