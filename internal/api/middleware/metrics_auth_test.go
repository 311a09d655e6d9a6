package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-nearby-events/internal/config"
)

func metricsHandler(c echo.Context) error {
	return c.String(http.StatusOK, "metrics")
}

func TestMetricsBasicAuth_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MetricsConfig
	}{
		{name: "両方なし", cfg: config.MetricsConfig{}},
		{name: "ユーザーのみ", cfg: config.MetricsConfig{User: "user"}},
		{name: "パスワードのみ", cfg: config.MetricsConfig{Password: "pass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := MetricsBasicAuth(tt.cfg)(metricsHandler)(c)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "metrics", rec.Body.String())
		})
	}
}

func TestMetricsBasicAuth_Enabled(t *testing.T) {
	cfg := config.MetricsConfig{User: "testuser", Password: "testpass"}

	tests := []struct {
		name         string
		credentials  string
		expectedCode int
	}{
		{name: "正しい認証情報", credentials: "testuser:testpass", expectedCode: http.StatusOK},
		{name: "間違った認証情報", credentials: "wronguser:wrongpass", expectedCode: http.StatusUnauthorized},
		{name: "パスワード違い", credentials: "testuser:nope", expectedCode: http.StatusUnauthorized},
		{name: "ヘッダーなし", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/metrics", metricsHandler, MetricsBasicAuth(cfg))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.credentials != "" {
				req.Header.Set(echo.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(tt.credentials)))
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
		})
	}
}
