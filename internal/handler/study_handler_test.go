package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/study"
)

type mockStudyService struct {
	recordSessionFn func(ctx context.Context, userID string, kind model.StudyKind, minutes int) (*model.StudySession, error)
	summarizeFn     func(ctx context.Context, userID string) (*study.Summary, error)
}

func (m *mockStudyService) RecordSession(ctx context.Context, userID string, kind model.StudyKind, minutes int) (*model.StudySession, error) {
	if m.recordSessionFn != nil {
		return m.recordSessionFn(ctx, userID, kind, minutes)
	}
	return &model.StudySession{UserID: userID, Kind: kind, Minutes: minutes}, nil
}

func (m *mockStudyService) Summarize(ctx context.Context, userID string) (*study.Summary, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, userID)
	}
	return &study.Summary{}, nil
}

var _ StudyServiceInterface = (*study.Service)(nil)

func TestStudyHandler_RecordSession(t *testing.T) {
	var gotKind model.StudyKind
	var gotMinutes int
	h := NewStudyHandler(&mockStudyService{
		recordSessionFn: func(ctx context.Context, userID string, kind model.StudyKind, minutes int) (*model.StudySession, error) {
			gotKind, gotMinutes = kind, minutes
			return &model.StudySession{
				ID: "s-1", UserID: userID, Kind: kind, Minutes: study.DefaultWorkMinutes,
				CompletedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.RecordSession(w, withSession(jsonRequest(t, http.MethodPost, "/api/study/sessions", map[string]any{"kind": "work"})))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotKind != model.StudyKindWork || gotMinutes != 0 {
		t.Errorf("RecordSession(kind=%q, minutes=%d), want work and 0", gotKind, gotMinutes)
	}
	body := decodeBody[studySessionResponse](t, w)
	if body.Minutes != study.DefaultWorkMinutes {
		t.Errorf("minutes = %d, want %d", body.Minutes, study.DefaultWorkMinutes)
	}
}

func TestStudyHandler_RecordSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing kind", map[string]any{"minutes": 25}},
		{"unknown kind", map[string]any{"kind": "nap"}},
		{"negative minutes", map[string]any{"kind": "work", "minutes": -5}},
	}
	h := NewStudyHandler(&mockStudyService{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.RecordSession(w, withSession(jsonRequest(t, http.MethodPost, "/api/study/sessions", tt.body)))
			assertAPIError(t, w, http.StatusBadRequest, model.ErrCodeInvalidArgument)
		})
	}
}

func TestStudyHandler_Summary(t *testing.T) {
	h := NewStudyHandler(&mockStudyService{
		summarizeFn: func(ctx context.Context, userID string) (*study.Summary, error) {
			return &study.Summary{WorkMinutes: 100, BreakMinutes: 20}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Summary(w, withSession(httptest.NewRequest(http.MethodGet, "/api/study/summary", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody[studySummaryResponse](t, w)
	if body.WorkMinutes != 100 || body.BreakMinutes != 20 {
		t.Errorf("unexpected summary: %+v", body)
	}
	if body.DefaultWorkMinutes != 25 || body.DefaultBreakMinutes != 5 {
		t.Errorf("defaults = %d/%d, want 25/5", body.DefaultWorkMinutes, body.DefaultBreakMinutes)
	}
}
