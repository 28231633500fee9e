package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	repo "app/internal/repository"
)

// echo contextに入れるキー
const (
	ContextUserIDKey   = "user_id"
	ContextRoleKey     = "role"
	ContextJTIKey      = "jti"
	ContextTokenExpKey = "token_exp"
)

// AuthJWTはAuthorization: Bearerのアクセストークンを検証して
// user_id / role / jti をcontextに積む。
// ログアウト済みのjtiは失効ストアで弾く。
func AuthJWT(secret string, revoked repo.RevokedTokenRepository) echo.MiddlewareFunc {
	secretBytes := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secretBytes, nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			sub, ok := claims["sub"].(float64)
			if !ok || sub <= 0 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			role, _ := claims["role"].(string)
			jti, _ := claims["jti"].(string)

			if jti != "" {
				isRevoked, err := revoked.IsRevoked(c.Request().Context(), jti)
				if err != nil {
					return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
				}
				if isRevoked {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token revoked"})
				}
			}

			c.Set(ContextUserIDKey, int64(sub))
			c.Set(ContextRoleKey, role)
			c.Set(ContextJTIKey, jti)
			if exp, ok := claims["exp"].(float64); ok {
				c.Set(ContextTokenExpKey, time.Unix(int64(exp), 0))
			}

			return next(c)
		}
	}
}

// UserID はAuthJWT通過後のcontextからuser_idを取り出す
func UserID(c echo.Context) int64 {
	v, _ := c.Get(ContextUserIDKey).(int64)
	return v
}

func Role(c echo.Context) string {
	v, _ := c.Get(ContextRoleKey).(string)
	return v
}

func JTI(c echo.Context) string {
	v, _ := c.Get(ContextJTIKey).(string)
	return v
}

func TokenExpiry(c echo.Context) time.Time {
	v, _ := c.Get(ContextTokenExpKey).(time.Time)
	return v
}
