package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/secondbrain/internal/model"
)

func createTestNote(t *testing.T, h *NoteHandler, body any) noteResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.Create(w, withSession(jsonRequest(t, http.MethodPost, "/api/notes", body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	return decodeBody[noteResponse](t, w)
}

func TestNoteHandler_CreateAndList(t *testing.T) {
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)

	first := createTestNote(t, h, map[string]any{
		"title":   "<b>Repaso</b> de álgebra",
		"content": "Capítulo 3 <script>alert(1)</script>",
		"tags":    []string{"mate", " mate ", "<i></i>", "&lt;script&gt;x&lt;/script&gt;", "examen"},
	})
	if first.ID == "" {
		t.Fatal("created note should have an id")
	}
	if first.Title != "Repaso de álgebra" {
		t.Errorf("title = %q, markup should be stripped", first.Title)
	}
	if first.Content != "Capítulo 3" {
		t.Errorf("content = %q, script should be removed", first.Content)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "mate" || first.Tags[1] != "examen" {
		t.Errorf("tags = %v, want [mate examen]", first.Tags)
	}

	second := createTestNote(t, h, map[string]any{"title": "Lectura"})
	if second.Tags == nil {
		t.Error("tags should be an empty array, not null")
	}

	w := httptest.NewRecorder()
	h.List(w, withSession(httptest.NewRequest(http.MethodGet, "/api/notes", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("List status = %d, want %d", w.Code, http.StatusOK)
	}
	notes := decodeBody[[]noteResponse](t, w)
	if len(notes) != 2 {
		t.Fatalf("len(notes) = %d, want 2", len(notes))
	}
	if notes[0].ID != second.ID || notes[1].ID != first.ID {
		t.Error("notes should be listed newest first")
	}
}

func TestNoteHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"empty body", ""},
		{"invalid json", "{"},
		{"missing title", map[string]any{"content": "x"}},
		{"blank title", map[string]any{"title": "   "}},
		{"markup only title", map[string]any{"title": "<b></b>"}},
		{"too many tags", map[string]any{"title": "t", "tags": make([]string, 21)}},
	}
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, withSession(jsonRequest(t, http.MethodPost, "/api/notes", tt.body)))
			assertAPIError(t, w, http.StatusBadRequest, model.ErrCodeInvalidArgument)
		})
	}
}

func TestNoteHandler_Update(t *testing.T) {
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)
	created := createTestNote(t, h, map[string]any{"title": "Borrador", "content": "texto"})

	req := jsonRequest(t, http.MethodPatch, "/api/notes/"+created.ID, map[string]any{"title": "Final"})
	req = withChiURLParam(withSession(req), "id", created.ID)
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	updated := decodeBody[noteResponse](t, w)
	if updated.Title != "Final" || updated.Content != "texto" {
		t.Errorf("unexpected note after update: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("created_at should not change on update")
	}
}

func TestNoteHandler_Update_Errors(t *testing.T) {
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)

	t.Run("empty patch", func(t *testing.T) {
		req := withChiURLParam(withSession(jsonRequest(t, http.MethodPatch, "/api/notes/x", map[string]any{})), "id", "x")
		w := httptest.NewRecorder()
		h.Update(w, req)
		assertAPIError(t, w, http.StatusBadRequest, model.ErrCodeInvalidArgument)
	})

	t.Run("unknown id", func(t *testing.T) {
		req := withChiURLParam(withSession(jsonRequest(t, http.MethodPatch, "/api/notes/missing", map[string]any{"title": "x"})), "id", "missing")
		w := httptest.NewRecorder()
		h.Update(w, req)
		assertAPIError(t, w, http.StatusNotFound, model.ErrCodeNotFound)
	})
}

func TestNoteHandler_Delete(t *testing.T) {
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)
	created := createTestNote(t, h, map[string]any{"title": "Temporal"})

	req := withChiURLParam(withSession(httptest.NewRequest(http.MethodDelete, "/api/notes/"+created.ID, nil)), "id", created.ID)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// 2回目は存在しない
	w = httptest.NewRecorder()
	h.Delete(w, req)
	assertAPIError(t, w, http.StatusNotFound, model.ErrCodeNotFound)

	w = httptest.NewRecorder()
	h.List(w, withSession(httptest.NewRequest(http.MethodGet, "/api/notes", nil)))
	if notes := decodeBody[[]noteResponse](t, w); len(notes) != 0 {
		t.Errorf("len(notes) = %d, want 0", len(notes))
	}
}

func TestNoteHandler_NoSession_ReturnsUnauthorized(t *testing.T) {
	h := NewNoteHandler(newTestRegistry(t), testSanitizer)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	assertAPIError(t, w, http.StatusUnauthorized, model.ErrCodeUnauthenticated)
}
