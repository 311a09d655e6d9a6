// Package router は HTTP ルーティングを組み立てる
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-nearby-events/internal/api"
	"github.com/sanosuguru/go-nearby-events/internal/api/handler"
	"github.com/sanosuguru/go-nearby-events/internal/api/middleware"
	"github.com/sanosuguru/go-nearby-events/internal/config"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// Services はハンドラーが依存するユースケース
type Services struct {
	Events     handler.EventServiceInterface
	Attendance handler.AttendanceServiceInterface
	Search     handler.SearchServiceInterface
}

// Options はルーティングの設定
type Options struct {
	// Verifier が nil の場合は X-User-ID ヘッダーで呼び出し元を識別する
	Verifier        *middleware.TokenVerifier
	Metrics         *metrics.Metrics
	MetricsAuth     config.MetricsConfig
	HealthChecks    map[string]handler.Checker
	StreamHeartbeat time.Duration
}

// New は共通ミドルウェアと全ルートを設定した Echo を返す
func New(services Services, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, opts.Metrics)

	Register(e, services, opts)
	return e
}

// Register はルートを登録する
func Register(e *echo.Echo, services Services, opts Options) {
	eventHandler := handler.NewEventHandler(services.Events)
	attendanceHandler := handler.NewAttendanceHandler(services.Attendance)
	searchHandler := handler.NewSearchHandler(services.Search)
	userHandler := handler.NewUserHandler(services.Events)
	streamHandler := handler.NewStreamHandler(services.Events, opts.Metrics, opts.StreamHeartbeat)
	healthHandler := handler.NewHealthHandler(opts.HealthChecks)

	e.GET("/health", healthHandler.Check)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(opts.MetricsAuth))
	}

	v1 := e.Group("/api/v1", middleware.Authenticate(opts.Verifier))
	auth := middleware.RequireUser()

	v1.GET("/events/nearby", searchHandler.Nearby)
	v1.GET("/events/search", searchHandler.Search)
	v1.GET("/events/category/:category", searchHandler.ByCategory)

	v1.POST("/events", eventHandler.Create, auth)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.PUT("/events/:id", eventHandler.Update, auth)
	v1.PATCH("/events/:id/status", eventHandler.UpdateStatus, auth)
	v1.DELETE("/events/:id", eventHandler.Delete, auth)

	v1.GET("/events/:id/attendees", attendanceHandler.List)
	v1.POST("/events/:id/attendees", attendanceHandler.Join, auth)
	v1.DELETE("/events/:id/attendees", attendanceHandler.Leave, auth)

	v1.GET("/users/:id/events/created", userHandler.CreatedEvents)
	v1.GET("/users/:id/events/joined", userHandler.JoinedEvents)
	v1.GET("/me/events/stream", streamHandler.MyEvents, auth)
}
