package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/secondbrain/internal/model"
)

func createTestExam(t *testing.T, h *ExamHandler, body any) examResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.Create(w, withSession(jsonRequest(t, http.MethodPost, "/api/exams", body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	return decodeBody[examResponse](t, w)
}

func TestExamHandler_Create(t *testing.T) {
	h := NewExamHandler(newTestRegistry(t), testSanitizer)

	exam := createTestExam(t, h, map[string]any{
		"subject":     "Cálculo",
		"date":        "2025-06-20",
		"goal":        "Aprobar con 8",
		"reality":     "Voy atrasado en integrales",
		"options":     []string{"Tutorías", "", "Ejercicios diarios"},
		"way_forward": "2 horas diarias",
	})
	if exam.Priority != string(model.ExamPriorityMedium) {
		t.Errorf("priority = %q, want default %q", exam.Priority, model.ExamPriorityMedium)
	}
	if exam.Completed {
		t.Error("new exam should not be completed")
	}
	if len(exam.Options) != 2 {
		t.Errorf("options = %v, empty entries should be dropped", exam.Options)
	}
}

func TestExamHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing subject", map[string]any{"date": "2025-06-20"}},
		{"missing date", map[string]any{"subject": "Física"}},
		{"unknown priority", map[string]any{"subject": "Física", "date": "2025-06-20", "priority": "urgente"}},
	}
	h := NewExamHandler(newTestRegistry(t), testSanitizer)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, withSession(jsonRequest(t, http.MethodPost, "/api/exams", tt.body)))
			assertAPIError(t, w, http.StatusBadRequest, model.ErrCodeInvalidArgument)
		})
	}
}

func TestExamHandler_ToggleAndUpdate(t *testing.T) {
	h := NewExamHandler(newTestRegistry(t), testSanitizer)
	exam := createTestExam(t, h, map[string]any{"subject": "Química", "date": "2025-06-25", "priority": "alta"})

	req := withChiURLParam(withSession(httptest.NewRequest(http.MethodPost, "/api/exams/"+exam.ID+"/toggle", nil)), "id", exam.ID)
	w := httptest.NewRecorder()
	h.Toggle(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Toggle status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	if toggled := decodeBody[examResponse](t, w); !toggled.Completed {
		t.Error("toggle should complete the exam")
	}

	req = jsonRequest(t, http.MethodPatch, "/api/exams/"+exam.ID, map[string]any{"priority": "baja", "options": []string{"Repasar apuntes"}})
	req = withChiURLParam(withSession(req), "id", exam.ID)
	w = httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Update status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	updated := decodeBody[examResponse](t, w)
	if updated.Priority != "baja" || len(updated.Options) != 1 || !updated.Completed {
		t.Errorf("unexpected exam after update: %+v", updated)
	}
}
