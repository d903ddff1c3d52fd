package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/security"
)

// TaskHandler はタスクのHTTPハンドラー。
type TaskHandler struct {
	syncs     SyncRegistry
	sanitizer security.Sanitizer
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(syncs SyncRegistry, sanitizer security.Sanitizer) *TaskHandler {
	return &TaskHandler{syncs: syncs, sanitizer: sanitizer}
}

type createTaskRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	DueDate     string `json:"due_date" validate:"max=100"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Completed   *bool   `json:"completed"`
	DueDate     *string `json:"due_date" validate:"omitempty,max=100"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	DueDate     string    `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// List はタスク一覧を作成日時の降順で返す。
// GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	tasks := sc.Tasks()
	resp := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はタスクを作成する。期限が空の場合は"Sin fecha"になる。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	task := model.Task{
		Title:       h.sanitizer.Sanitize(req.Title),
		Description: h.sanitizer.Sanitize(req.Description),
		DueDate:     h.sanitizer.Sanitize(req.DueDate),
	}
	if task.Title == "" {
		handleServiceError(w, model.NewValidationError("El título es obligatorio"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	created, err := sc.AddTask(r.Context(), task)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(*created))
}

// Update はタスクを部分更新する。
// PATCH /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	patch := model.TaskPatch{
		Title:       sanitizePtr(h.sanitizer, req.Title),
		Description: sanitizePtr(h.sanitizer, req.Description),
		Completed:   req.Completed,
		DueDate:     sanitizePtr(h.sanitizer, req.DueDate),
	}
	if patch.IsEmpty() {
		handleServiceError(w, emptyPatchError())
		return
	}
	if patch.Title != nil && *patch.Title == "" {
		handleServiceError(w, model.NewValidationError("El título es obligatorio"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	updated, err := sc.UpdateTask(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*updated))
}

// Toggle はタスクの完了状態を反転する。
// POST /api/tasks/{id}/toggle
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	toggled, err := sc.ToggleTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*toggled))
}

// Delete はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	if err := sc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
