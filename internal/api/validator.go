package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator はEcho用のカスタムバリデーター。
// エラーメッセージには構造体のフィールド名ではなく JSON のキー名を使う
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行し、最初の違反を 400 として返す
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, describe(verrs[0])).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "リクエストの内容が不正です").SetInternal(err)
}

// describe はバリデーション違反を利用者向けの文言にする
func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	// 先頭の構造体名は除く
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s は必須です", field)
	case "max":
		return fmt.Sprintf("%s は %s 以下である必要があります", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s は %s 以上である必要があります", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s は %s 以下である必要があります", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s は %s 文字である必要があります", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s はURL形式である必要があります", field)
	}
	return fmt.Sprintf("%s が不正です（%s）", field, fe.Tag())
}
