package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/study"
)

// StudyServiceInterface は学習タイマーハンドラーが必要とするサービスインターフェース。
type StudyServiceInterface interface {
	RecordSession(ctx context.Context, userID string, kind model.StudyKind, minutes int) (*model.StudySession, error)
	Summarize(ctx context.Context, userID string) (*study.Summary, error)
}

// StudyHandler はポモドーロ記録のHTTPハンドラー。
type StudyHandler struct {
	service StudyServiceInterface
}

// NewStudyHandler はStudyHandlerを生成する。
func NewStudyHandler(service StudyServiceInterface) *StudyHandler {
	return &StudyHandler{service: service}
}

type recordStudyRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=work break"`
	Minutes int    `json:"minutes" validate:"min=0"`
}

type studySessionResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Minutes     int       `json:"minutes"`
	CompletedAt time.Time `json:"completed_at"`
}

type studySummaryResponse struct {
	WorkMinutes         int `json:"work_minutes"`
	BreakMinutes        int `json:"break_minutes"`
	DefaultWorkMinutes  int `json:"default_work_minutes"`
	DefaultBreakMinutes int `json:"default_break_minutes"`
}

// RecordSession は完了したポモドーロ区間を記録する。minutes省略時は既定の長さ。
// POST /api/study/sessions
func (h *StudyHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req recordStudyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	recorded, err := h.service.RecordSession(r.Context(), userID, model.StudyKind(req.Kind), req.Minutes)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, studySessionResponse{
		ID:          recorded.ID,
		Kind:        string(recorded.Kind),
		Minutes:     recorded.Minutes,
		CompletedAt: recorded.CompletedAt,
	})
}

// Summary は作業・休憩の合計分数と既定の区間長を返す。
// GET /api/study/summary
func (h *StudyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requireSession(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summarize(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, studySummaryResponse{
		WorkMinutes:         summary.WorkMinutes,
		BreakMinutes:        summary.BreakMinutes,
		DefaultWorkMinutes:  study.DefaultWorkMinutes,
		DefaultBreakMinutes: study.DefaultBreakMinutes,
	})
}
