package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secondbrain/internal/middleware"
	"github.com/hitoshi/secondbrain/internal/model"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層のエラーを統一エラーフォーマットで返す。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

// requireSession はセッションミドルウェアが注入したセッションIDとユーザーIDを返す。
// 取得できない場合は401を書き込みfalseを返す。
func requireSession(w http.ResponseWriter, r *http.Request) (sessionID, userID string, ok bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewDataError(model.ErrCodeUnauthenticated))
		return "", "", false
	}
	sessionID, err = middleware.SessionIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewDataError(model.ErrCodeUnauthenticated))
		return "", "", false
	}
	return sessionID, userID, true
}

// emptyPatchError は更新項目のないPATCHリクエストに返すエラー。
func emptyPatchError() error {
	return model.NewValidationError("No hay cambios para guardar")
}
