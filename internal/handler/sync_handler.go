package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/secondbrain/internal/datasync"
)

// SyncRegistry はセッションごとの同期コンテキストを管理するインターフェース。
// datasync.Registryが実装する。
type SyncRegistry interface {
	Open(sessionID, userID string) *datasync.Context
	Get(sessionID string) (*datasync.Context, bool)
	Acquire(ctx context.Context, sessionID, userID string) (*datasync.Context, error)
	Reload(sessionID, userID string) *datasync.Context
	Close(sessionID string)
	CloseUser(userID string) int
}

// acquireSync はリクエストのセッションに対応するミラーをready状態で返す。
// セッション復元後でミラーが存在しない場合はここで読み込みを開始する。
func acquireSync(w http.ResponseWriter, r *http.Request, syncs SyncRegistry) (*datasync.Context, bool) {
	sessionID, userID, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}
	sc, err := syncs.Acquire(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return sc, true
}

// syncStatusResponse は同期状態のAPIレスポンス。
type syncStatusResponse struct {
	Status    string         `json:"status"`
	IsLoading bool           `json:"is_loading"`
	Counts    map[string]int `json:"counts"`
}

func toSyncStatusResponse(sc *datasync.Context) syncStatusResponse {
	snap := sc.Snapshot()
	return syncStatusResponse{
		Status:    string(snap.Status),
		IsLoading: sc.IsLoading(),
		Counts: map[string]int{
			"notes":  len(snap.Notes),
			"tasks":  len(snap.Tasks),
			"events": len(snap.Events),
			"exams":  len(snap.Exams),
		},
	}
}

// SyncHandler はミラーの状態確認と再読み込みのHTTPハンドラー。
type SyncHandler struct {
	syncs SyncRegistry
}

// NewSyncHandler はSyncHandlerを生成する。
func NewSyncHandler(syncs SyncRegistry) *SyncHandler {
	return &SyncHandler{syncs: syncs}
}

// Status はミラーの状態を待機せずに返す。
// GET /api/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := requireSession(w, r)
	if !ok {
		return
	}
	sc := h.syncs.Open(sessionID, userID)
	writeJSON(w, http.StatusOK, toSyncStatusResponse(sc))
}

// Reload はミラーをリモートストアから読み込み直す。読み込み中の場合は何もしない。
// POST /api/sync/reload
func (h *SyncHandler) Reload(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := requireSession(w, r)
	if !ok {
		return
	}
	sc := h.syncs.Reload(sessionID, userID)
	writeJSON(w, http.StatusAccepted, toSyncStatusResponse(sc))
}
