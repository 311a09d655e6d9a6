package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusCode はドメインエラーを HTTP ステータスに変換する
func StatusCode(err error) int {
	switch {
	case errors.Is(err, event.ErrCallerUnknown):
		return http.StatusUnauthorized
	case errors.Is(err, event.ErrUnauthorizedEventAccess):
		return http.StatusForbidden
	case errors.Is(err, event.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, event.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, event.ErrAlreadyAttendingEvent),
		errors.Is(err, event.ErrNotAttendingEvent),
		errors.Is(err, event.ErrEventFull):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// NewHTTPError はユースケースのエラーを echo.HTTPError に変換する。
// 5xx の場合は内部エラーの内容をレスポンスに含めない
func NewHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		return echo.NewHTTPError(code, "内部サーバーエラー").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := NewHTTPError(err)
	code := he.Code
	message, ok := he.Message.(string)
	if !ok {
		message = http.StatusText(code)
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			logger.Error("エラーレスポンス送信失敗", zap.Error(err))
		}
		return
	}

	// JSONレスポンスを返す
	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
