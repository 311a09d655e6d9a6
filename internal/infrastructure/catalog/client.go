package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/config"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/geo"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// IDPrefix はカタログ由来イベントのIDに付与する接頭辞。ユーザー作成イベントのUUIDと衝突しない
const IDPrefix = "ext-"

const (
	searchPath   = "/discovery/v2/events.json"
	pageSize     = 100
	maxBodyBytes = 4 << 20
)

var (
	ErrTimeout     = errors.New("カタログAPIがタイムアウトしました")
	ErrUnavailable = errors.New("カタログAPIを利用できません")
)

// Client は外部イベントカタログ（Discovery API 形式）のクライアント
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

var _ event.CatalogSource = (*Client)(nil)

// NewClient はカタログクライアントを作成する
func NewClient(cfg config.CatalogConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		// タイムアウトはリクエスト毎に context で制御する
		http: &http.Client{Timeout: 0},
	}
}

// SearchNearby は指定地点周辺のイベントを検索する
func (c *Client) SearchNearby(ctx context.Context, lat, lon, radiusKm float64) ([]*event.Event, error) {
	return c.search(ctx, geo.Point{Lat: lat, Lon: lon}, radiusKm, "")
}

// SearchByCategory はカテゴリで絞り込んで検索する。
// カタログに対応する分類がないカテゴリは周辺検索の結果を変換後のカテゴリで絞り込む
func (c *Client) SearchByCategory(ctx context.Context, lat, lon, radiusKm float64, category event.Category) ([]*event.Event, error) {
	events, err := c.search(ctx, geo.Point{Lat: lat, Lon: lon}, radiusKm, classificationFor(category))
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, e := range events {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, center geo.Point, radiusKm float64, classification string) ([]*event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("latlong", strconv.FormatFloat(center.Lat, 'f', 6, 64)+","+strconv.FormatFloat(center.Lon, 'f', 6, 64))
	q.Set("radius", strconv.Itoa(int(math.Ceil(radiusKm))))
	q.Set("unit", "km")
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("sort", "date,asc")
	if classification != "" {
		q.Set("classificationName", classification)
	}
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("カタログリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		mapped := mapError(err)
		logger.Warn("カタログAPI呼び出しに失敗しました",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, mapped
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		logger.Warn("カタログAPIがエラーを返しました",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("カタログレスポンスの解析に失敗しました: %w", mapError(err))
	}

	events := make([]*event.Event, 0, len(body.Embedded.Events))
	for _, raw := range body.Embedded.Events {
		e, ok := raw.toEntity()
		if !ok {
			continue
		}
		// 会場座標が分かるものは半径外を除外する
		if e.HasCoordinates() && center.DistanceTo(*e.Location.Coordinates) > radiusKm {
			continue
		}
		events = append(events, e)
	}

	logger.Debug("カタログAPIから取得しました",
		zap.Int("count", len(events)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return events, nil
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// classificationFor はカテゴリに対応するカタログの分類名を返す
func classificationFor(c event.Category) string {
	switch c {
	case event.CategoryMusic:
		return "Music"
	case event.CategorySports:
		return "Sports"
	case event.CategoryArts:
		return "Arts & Theatre"
	}
	return ""
}
