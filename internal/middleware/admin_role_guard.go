package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"app/internal/domain/model"
)

// AdminRoleGuardはAuthJWTの後段に置く。ADMIN以外は403。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Role(c) != string(model.RoleAdmin) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "admin only"})
			}
			return next(c)
		}
	}
}
