package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"

	"github.com/hitoshi/secondbrain/internal/model"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 1 << 20

// カスタムバリデーションタグ
const (
	notBlankTag = "notblank"
	isoDateTag  = "isodate"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// エラーメッセージはスペイン語で返す
	locale := es.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("es")
	_ = es_translations.RegisterDefaultTranslations(validate, translator)

	// エラーにはGoのフィールド名ではなくJSONタグ名を使う
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, isoDateTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomErr)
	}
}

func translateCustomErr(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " no puede estar vacío"
	case isoDateTag:
		return fe.Field() + " debe tener el formato AAAA-MM-DD"
	default:
		return fe.Field() + " no es válido"
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

// isoDateValidation は日付（YYYY-MM-DD）またはRFC 3339の日時を受け付ける。
func isoDateValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// decodeJSON はリクエストボディをdstに読み込み、バリデーションを行う。
// 失敗した場合はinvalid-argumentの*model.APIErrorを返す。
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationError("El cuerpo de la solicitud está vacío")
		}
		return model.NewValidationError("El cuerpo de la solicitud no es un JSON válido")
	}
	return validateStruct(dst)
}

// validateStruct はvalidateタグに従って検証する。
// 最初のフィールドエラーを翻訳済みメッセージとして返す。
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return model.NewValidationError(verrs[0].Translate(translator))
	}
	return model.NewValidationError(err.Error())
}
