package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-nearby-events/internal/config"
)

// MetricsBasicAuth は /metrics エンドポイント用の Basic 認証ミドルウェア。
// ユーザーとパスワードの両方が設定されていない場合は認証をスキップする（ローカル開発用）
func MetricsBasicAuth(cfg config.MetricsConfig) echo.MiddlewareFunc {
	if !cfg.IsEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	expectedUser := []byte(cfg.User)
	expectedPass := []byte(cfg.Password)
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "metrics",
		Validator: func(username, password string, c echo.Context) (bool, error) {
			userMatch := subtle.ConstantTimeCompare([]byte(username), expectedUser) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(password), expectedPass) == 1
			return userMatch && passMatch, nil
		},
	})
}
