package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sanosuguru/go-nearby-events/internal/api/caller"
	"github.com/sanosuguru/go-nearby-events/internal/api/middleware"
	"github.com/sanosuguru/go-nearby-events/internal/api/router"
	"github.com/sanosuguru/go-nearby-events/internal/application"
	"github.com/sanosuguru/go-nearby-events/internal/config"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/catalog"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/eventrepo"
	"github.com/sanosuguru/go-nearby-events/internal/infrastructure/memory"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/metrics"
)

// catalogFixture は外部カタログのレスポンス（渋谷のライブ1件）
const catalogFixture = `{
  "_embedded": {
    "events": [
      {
        "id": "G5v0Z9",
        "name": "渋谷ライブ",
        "url": "https://catalog.example/e/G5v0Z9",
        "dates": {"start": {"dateTime": "2099-12-01T10:00:00Z"}, "status": {"code": "onsale"}},
        "priceRanges": [{"min": 5000, "currency": "JPY"}],
        "classifications": [{"segment": {"name": "Music"}}],
        "_embedded": {"venues": [{
          "name": "Shibuya O-East",
          "location": {"latitude": "35.6580", "longitude": "139.6950"}
        }]}
      }
    ]
  }
}`

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

// NewTestServer はインメモリストアと偽の外部カタログでサーバーを組み立てる
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogFixture))
	}))
	t.Cleanup(catalogServer.Close)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	source := catalog.New(config.CatalogConfig{BaseURL: catalogServer.URL + "/", APIKey: "e2e", Timeout: time.Second})
	repo := eventrepo.NewCachedRepository(
		eventrepo.NewCompositeRepository(source, memory.NewUserEventStore(), m),
		eventrepo.NewMemoryCache(),
		m,
	)

	e := router.New(router.Services{
		Events:     application.NewEventService(repo, caller.Identity{}, caller.CurrentLocation{}, nil),
		Attendance: application.NewAttendanceService(repo, caller.Identity{}, nil, m),
		Search:     application.NewSearchService(repo),
	}, router.Options{Metrics: m})

	return &TestServer{Echo: e}
}

// Request はHTTPリクエストを実行する。userID が空でなければ X-User-ID を付与する
func (s *TestServer) Request(method, path string, body any, userID string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v (%s)", err, rec.Body.String())
	}
	return v
}
