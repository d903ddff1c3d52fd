// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Messageが空の場合、ハンドラー層でエラーコードから表示用メッセージを補完する。
type APIError struct {
	Code     string // エラーコード（例: auth/weak-password, permission-denied）
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, data, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryData       = "data"
	CategoryValidation = "validation"
	CategorySystem     = "system"
)

// 認証系エラーコード
const (
	ErrCodeUserNotFound              = "auth/user-not-found"
	ErrCodeWrongPassword             = "auth/wrong-password"
	ErrCodeInvalidCredential         = "auth/invalid-credential"
	ErrCodeEmailAlreadyInUse         = "auth/email-already-in-use"
	ErrCodeWeakPassword              = "auth/weak-password"
	ErrCodeInvalidEmail              = "auth/invalid-email"
	ErrCodeTooManyRequests           = "auth/too-many-requests"
	ErrCodeUserDisabled              = "auth/user-disabled"
	ErrCodeOperationNotAllowed       = "auth/operation-not-allowed"
	ErrCodeNetworkRequestFailed      = "auth/network-request-failed"
	ErrCodePopupClosedByUser         = "auth/popup-closed-by-user"
	ErrCodePopupBlocked              = "auth/popup-blocked"
	ErrCodeCancelledPopupRequest     = "auth/cancelled-popup-request"
	ErrCodeAccountExistsWithOtherCrd = "auth/account-exists-with-different-credential"
	ErrCodeUnauthorizedDomain        = "auth/unauthorized-domain"
	ErrCodeInvalidActionCode         = "auth/invalid-action-code"
	ErrCodeExpiredActionCode         = "auth/expired-action-code"
)

// データアクセス系エラーコード
const (
	ErrCodePermissionDenied   = "permission-denied"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeDeadlineExceeded   = "deadline-exceeded"
	ErrCodeResourceExhausted  = "resource-exhausted"
	ErrCodeFailedPrecondition = "failed-precondition"
	ErrCodeAborted            = "aborted"
	ErrCodeOutOfRange         = "out-of-range"
	ErrCodeUnimplemented      = "unimplemented"
	ErrCodeInternal           = "internal"
	ErrCodeDataLoss           = "data-loss"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeNotFound           = "not-found"
	ErrCodeInvalidArgument    = "invalid-argument"
)

// NewAuthError は認証系エラーを生成する。
// メッセージはハンドラー層で翻訳テーブルから補完される。
func NewAuthError(code string) *APIError {
	return &APIError{
		Code:     code,
		Category: CategoryAuth,
	}
}

// NewDataError はデータアクセス系エラーを生成する。
func NewDataError(code string) *APIError {
	return &APIError{
		Code:     code,
		Category: CategoryData,
	}
}

// NewValidationError は入力検証エラーを生成する。
// messageには具体的な検証失敗内容を指定する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  message,
		Category: CategoryValidation,
	}
}

// NewNotFoundError は指定コレクションのレコードが見つからない場合のエラーを生成する。
func NewNotFoundError(collection, id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("No se encontró el registro solicitado (%s: %s)", collection, id),
		Category: CategoryData,
	}
}
