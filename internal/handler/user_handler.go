package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/secondbrain/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Rename は表示名を変更する。
	Rename(ctx context.Context, userID, name string) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// メモ、タスク、イベント、試験計画、学習記録、セッション、ユーザーを削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。configは退会時のCookie削除に使用する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

type renameRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// Rename は表示名を変更する。
// PATCH /api/users/me
func (h *UserHandler) Rename(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Rename(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Withdraw はユーザーの退会処理を実行し、セッションCookieを削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	clearSessionCookie(w, h.config)
	w.WriteHeader(http.StatusNoContent)
}
