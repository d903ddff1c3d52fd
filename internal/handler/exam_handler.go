package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/security"
)

// ExamHandler は試験計画（GROW法）のHTTPハンドラー。
type ExamHandler struct {
	syncs     SyncRegistry
	sanitizer security.Sanitizer
}

// NewExamHandler はExamHandlerを生成する。
func NewExamHandler(syncs SyncRegistry, sanitizer security.Sanitizer) *ExamHandler {
	return &ExamHandler{syncs: syncs, sanitizer: sanitizer}
}

type createExamRequest struct {
	Subject    string   `json:"subject" validate:"notblank,max=200"`
	Date       string   `json:"date" validate:"required,isodate"`
	Goal       string   `json:"goal" validate:"max=5000"`
	Reality    string   `json:"reality" validate:"max=5000"`
	Options    []string `json:"options" validate:"max=20,dive,max=500"`
	WayForward string   `json:"way_forward" validate:"max=5000"`
	Priority   string   `json:"priority" validate:"omitempty,oneof=alta media baja"`
}

type updateExamRequest struct {
	Subject    *string   `json:"subject" validate:"omitempty,notblank,max=200"`
	Date       *string   `json:"date" validate:"omitempty,isodate"`
	Goal       *string   `json:"goal" validate:"omitempty,max=5000"`
	Reality    *string   `json:"reality" validate:"omitempty,max=5000"`
	Options    *[]string `json:"options" validate:"omitempty,max=20,dive,max=500"`
	WayForward *string   `json:"way_forward" validate:"omitempty,max=5000"`
	Completed  *bool     `json:"completed"`
	Priority   *string   `json:"priority" validate:"omitempty,oneof=alta media baja"`
}

type examResponse struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Date       string    `json:"date"`
	Goal       string    `json:"goal"`
	Reality    string    `json:"reality"`
	Options    []string  `json:"options"`
	WayForward string    `json:"way_forward"`
	Completed  bool      `json:"completed"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toExamResponse(e model.Exam) examResponse {
	options := e.Options
	if options == nil {
		options = []string{}
	}
	return examResponse{
		ID:         e.ID,
		Subject:    e.Subject,
		Date:       e.Date,
		Goal:       e.Goal,
		Reality:    e.Reality,
		Options:    options,
		WayForward: e.WayForward,
		Completed:  e.Completed,
		Priority:   string(e.Priority),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// List は試験計画一覧を日付の昇順で返す。
// GET /api/exams
func (h *ExamHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	exams := sc.Exams()
	resp := make([]examResponse, len(exams))
	for i, e := range exams {
		resp[i] = toExamResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は試験計画を作成する。優先度が空の場合は"media"になる。
// POST /api/exams
func (h *ExamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	exam := model.Exam{
		Subject:    h.sanitizer.Sanitize(req.Subject),
		Date:       req.Date,
		Goal:       h.sanitizer.Sanitize(req.Goal),
		Reality:    h.sanitizer.Sanitize(req.Reality),
		Options:    h.sanitizer.SanitizeAll(req.Options),
		WayForward: h.sanitizer.Sanitize(req.WayForward),
		Priority:   model.ExamPriority(req.Priority),
	}
	if exam.Priority == "" {
		exam.Priority = model.ExamPriorityMedium
	}
	if exam.Subject == "" {
		handleServiceError(w, model.NewValidationError("La materia es obligatoria"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	created, err := sc.AddExam(r.Context(), exam)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExamResponse(*created))
}

// Update は試験計画を部分更新する。
// PATCH /api/exams/{id}
func (h *ExamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateExamRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	patch := model.ExamPatch{
		Subject:    sanitizePtr(h.sanitizer, req.Subject),
		Date:       req.Date,
		Goal:       sanitizePtr(h.sanitizer, req.Goal),
		Reality:    sanitizePtr(h.sanitizer, req.Reality),
		WayForward: sanitizePtr(h.sanitizer, req.WayForward),
		Completed:  req.Completed,
	}
	if req.Options != nil {
		options := h.sanitizer.SanitizeAll(*req.Options)
		patch.Options = &options
	}
	if req.Priority != nil {
		priority := model.ExamPriority(*req.Priority)
		patch.Priority = &priority
	}
	if patch.IsEmpty() {
		handleServiceError(w, emptyPatchError())
		return
	}
	if patch.Subject != nil && *patch.Subject == "" {
		handleServiceError(w, model.NewValidationError("La materia es obligatoria"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	updated, err := sc.UpdateExam(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExamResponse(*updated))
}

// Toggle は試験計画の完了状態を反転する。
// POST /api/exams/{id}/toggle
func (h *ExamHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	toggled, err := sc.ToggleExam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExamResponse(*toggled))
}

// Delete は試験計画を削除する。
// DELETE /api/exams/{id}
func (h *ExamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	if err := sc.DeleteExam(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
