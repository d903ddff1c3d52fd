// Package errtrans はエラーコードをユーザー向けのスペイン語メッセージに変換する。
//
// サービス層はメッセージを持たない *model.APIError（コードのみ）を返し、
// ハンドラー層がTranslateで表示用メッセージ・カテゴリ・対処方法を補完する。
// APIError以外のエラー（ドライバーエラー、context、ネットワーク）はClassifyで
// データアクセス系のコードに分類される。
package errtrans

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/secondbrain/internal/model"
)

// GenericMessage は翻訳テーブルにないコードに使用する既定メッセージ。
const GenericMessage = "Ocurrió un error inesperado. Intenta de nuevo"

var messages = map[string]string{
	// 認証系
	model.ErrCodeUserNotFound:              "No existe una cuenta con este correo electrónico",
	model.ErrCodeWrongPassword:             "Contraseña incorrecta",
	model.ErrCodeEmailAlreadyInUse:         "Este correo electrónico ya está registrado",
	model.ErrCodeWeakPassword:              "La contraseña debe tener al menos 6 caracteres",
	model.ErrCodeInvalidEmail:              "El correo electrónico no es válido",
	model.ErrCodeTooManyRequests:           "Demasiados intentos fallidos. Intenta más tarde",
	model.ErrCodeUserDisabled:              "Esta cuenta ha sido deshabilitada",
	model.ErrCodeOperationNotAllowed:       "Esta operación no está permitida",
	model.ErrCodeNetworkRequestFailed:      "Error de conexión. Verifica tu internet",
	model.ErrCodePopupClosedByUser:         "Inicio de sesión cancelado",
	model.ErrCodePopupBlocked:              "El popup fue bloqueado. Permite popups para este sitio",
	model.ErrCodeCancelledPopupRequest:     "Solicitud de popup cancelada",
	model.ErrCodeAccountExistsWithOtherCrd: "Ya existe una cuenta con este email usando otro método de inicio de sesión",
	model.ErrCodeInvalidCredential:         "Correo electrónico o contraseña incorrectos",
	model.ErrCodeUnauthorizedDomain:        "Este dominio no está autorizado para iniciar sesión",
	model.ErrCodeInvalidActionCode:         "El enlace no es válido o ya fue utilizado",
	model.ErrCodeExpiredActionCode:         "El enlace ha caducado. Solicita uno nuevo",

	// データアクセス系
	model.ErrCodePermissionDenied:   "No tienes permisos para realizar esta acción",
	model.ErrCodeUnavailable:        "Servicio no disponible. Intenta más tarde",
	model.ErrCodeDeadlineExceeded:   "La operación tardó demasiado. Intenta de nuevo",
	model.ErrCodeResourceExhausted:  "Se han agotado los recursos. Intenta más tarde",
	model.ErrCodeFailedPrecondition: "La operación no se puede completar en este momento",
	model.ErrCodeAborted:            "La operación fue cancelada",
	model.ErrCodeOutOfRange:         "Los datos están fuera del rango permitido",
	model.ErrCodeUnimplemented:      "Esta función no está implementada",
	model.ErrCodeInternal:           "Error interno del servidor",
	model.ErrCodeDataLoss:           "Se perdió información durante la operación",
	model.ErrCodeUnauthenticated:    "Debes iniciar sesión para realizar esta acción",
	model.ErrCodeNotFound:           "No se encontró el registro solicitado",
	model.ErrCodeInvalidArgument:    "Los datos enviados no son válidos",
}

var actions = map[string]string{
	model.ErrCodeTooManyRequests:      "Espera unos minutos antes de volver a intentarlo.",
	model.ErrCodeNetworkRequestFailed: "Comprueba tu conexión y vuelve a intentarlo.",
	model.ErrCodeUnauthenticated:      "Inicia sesión de nuevo.",
	model.ErrCodeExpiredActionCode:    "Solicita un nuevo enlace de restablecimiento.",
	model.ErrCodeUnavailable:          "Intenta de nuevo más tarde.",
	model.ErrCodeDeadlineExceeded:     "Intenta de nuevo.",
	model.ErrCodeFailedPrecondition:   "Espera a que terminen de cargarse tus datos.",
	model.ErrCodeInvalidArgument:      "Revisa los datos introducidos.",
}

// Message はコードに対応する表示用メッセージを返す。
// 未知のコードはGenericMessageになる。
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return GenericMessage
}

// Classify はエラーをコードに分類する。
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrCodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return model.ErrCodeAborted
	case errors.Is(err, sql.ErrNoRows):
		return model.ErrCodeNotFound
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return model.ErrCodeUnavailable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return model.ErrCodeDeadlineExceeded
		}
		return model.ErrCodeUnavailable
	}

	return model.ErrCodeInternal
}

// classifySQLState はPostgreSQLのSQLSTATEをコードに対応付ける。
func classifySQLState(state string) string {
	switch {
	case state == "42501":
		return model.ErrCodePermissionDenied
	case state == "40001", state == "40P01":
		return model.ErrCodeAborted
	case state == "57014":
		return model.ErrCodeDeadlineExceeded
	case strings.HasPrefix(state, "53"):
		return model.ErrCodeResourceExhausted
	case strings.HasPrefix(state, "08"), strings.HasPrefix(state, "57P0"):
		return model.ErrCodeUnavailable
	case strings.HasPrefix(state, "22"):
		return model.ErrCodeOutOfRange
	case state == "23505":
		return model.ErrCodeAborted
	case strings.HasPrefix(state, "XX"):
		return model.ErrCodeDataLoss
	default:
		return model.ErrCodeInternal
	}
}

// Category はコードのカテゴリを返す。
func Category(code string) string {
	switch {
	case strings.HasPrefix(code, "auth/"):
		return model.CategoryAuth
	case code == model.ErrCodeInvalidArgument, code == model.ErrCodeOutOfRange:
		return model.CategoryValidation
	case code == model.ErrCodeInternal, code == model.ErrCodeUnimplemented, code == model.ErrCodeDataLoss:
		return model.CategorySystem
	default:
		return model.CategoryData
	}
}

// Translate はエラーを表示用のAPIErrorに変換する。
// 元のAPIErrorは変更せず、空のフィールドのみ補完したコピーを返す。
// nilの場合はnilを返す。
func Translate(err error) *model.APIError {
	if err == nil {
		return nil
	}

	var out model.APIError
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		out = *apiErr
	} else {
		out.Code = Classify(err)
	}

	if out.Message == "" {
		out.Message = Message(out.Code)
	}
	if out.Category == "" {
		out.Category = Category(out.Code)
	}
	if out.Action == "" {
		out.Action = actions[out.Code]
	}
	return &out
}

// HTTPStatus はAPIErrorのコードからHTTPステータスコードを返す。
func HTTPStatus(apiErr *model.APIError) int {
	if apiErr == nil {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case model.ErrCodeWrongPassword, model.ErrCodeInvalidCredential, model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailAlreadyInUse, model.ErrCodeAccountExistsWithOtherCrd,
		model.ErrCodeFailedPrecondition, model.ErrCodeAborted:
		return http.StatusConflict
	case model.ErrCodeWeakPassword, model.ErrCodeInvalidEmail, model.ErrCodeInvalidArgument,
		model.ErrCodeOutOfRange, model.ErrCodeInvalidActionCode, model.ErrCodeExpiredActionCode,
		model.ErrCodePopupClosedByUser, model.ErrCodePopupBlocked, model.ErrCodeCancelledPopupRequest:
		return http.StatusBadRequest
	case model.ErrCodeTooManyRequests, model.ErrCodeResourceExhausted:
		return http.StatusTooManyRequests
	case model.ErrCodeUserDisabled, model.ErrCodeOperationNotAllowed,
		model.ErrCodeUnauthorizedDomain, model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeNetworkRequestFailed:
		return http.StatusBadGateway
	case model.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case model.ErrCodeUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
