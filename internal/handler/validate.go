package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidator はgo-playground/validatorのラッパー。
// エラーメッセージにはGoのフィールド名ではなくjson/queryタグの名前を使う。
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &requestValidator{validate: v}
}

// Struct は構造体を検証し、最初の違反を人が読める理由文字列として返す。
func (v *requestValidator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}
	return errors.New(fieldErrorMessage(validationErrors[0]))
}

// fieldErrorMessage はタグごとの検証エラーメッセージを返す。
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以上で指定してください", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%sは%s以上を指定してください", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以内で指定してください", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%sは%s以下を指定してください", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%sは %s のいずれかを指定してください", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fmt.Sprintf("%sはUUID形式で指定してください", fe.Field())
	default:
		return fmt.Sprintf("%sが不正です（%s）", fe.Field(), fe.Tag())
	}
}
