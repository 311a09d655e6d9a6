package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを設定する
func SetupMiddleware(e *echo.Echo, m *metrics.Metrics) {
	e.Use(RequestIDMiddleware())

	// RequestLogger がエラーレスポンスを確定させるため、その外側で計測する
	e.Use(PrometheusMiddleware(m))

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestID,
			HeaderUserID,
		},
	}))
}
