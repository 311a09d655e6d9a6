package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-nearby-events/internal/api/caller"
	"github.com/sanosuguru/go-nearby-events/internal/pkg/logger"
)

// HeaderUserID は JWT 未設定時（ローカル開発用）に呼び出し元を指定するヘッダー
const HeaderUserID = "X-User-ID"

var (
	ErrTokenInvalid = errors.New("トークンが不正です")
	ErrTokenExpired = errors.New("トークンの有効期限が切れています")
)

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenVerifier は HS256 で署名されたアクセストークンを検証する
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify はトークンを検証してユーザーIDを返す。uid がなければ sub を使う
func (v *TokenVerifier) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrTokenInvalid
	}
	return userID, nil
}

// Authenticate は Authorization ヘッダーから呼び出し元を解決し、リクエストの context に設定する。
// ヘッダーがない場合は匿名のまま通す。verifier が nil の場合は X-User-ID ヘッダーを信頼する
func Authenticate(verifier *TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var userID string
			if verifier == nil {
				userID = strings.TrimSpace(req.Header.Get(HeaderUserID))
			} else if header := req.Header.Get(echo.HeaderAuthorization); header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || strings.TrimSpace(token) == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, ErrTokenInvalid.Error())
				}
				id, err := verifier.Verify(strings.TrimSpace(token))
				if err != nil {
					logger.Debug("トークン検証に失敗しました", zap.Error(err))
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				}
				userID = id
			}

			if userID != "" {
				c.SetRequest(req.WithContext(caller.WithUserID(req.Context(), userID)))
			}
			return next(c)
		}
	}
}

// RequireUser は呼び出し元が解決できないリクエストを 401 で拒否する
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := caller.UserID(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "ログインが必要です")
			}
			return next(c)
		}
	}
}
