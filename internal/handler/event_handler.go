package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/security"
)

// EventHandler はカレンダーイベントのHTTPハンドラー。
type EventHandler struct {
	syncs     SyncRegistry
	sanitizer security.Sanitizer
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(syncs SyncRegistry, sanitizer security.Sanitizer) *EventHandler {
	return &EventHandler{syncs: syncs, sanitizer: sanitizer}
}

type createEventRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Date        string `json:"date" validate:"required,isodate"`
	Type        string `json:"type" validate:"omitempty,oneof=tarea entrega proyecto otro"`
	Color       string `json:"color" validate:"max=32"`
}

type updateEventRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Date        *string `json:"date" validate:"omitempty,isodate"`
	Type        *string `json:"type" validate:"omitempty,oneof=tarea entrega proyecto otro"`
	Color       *string `json:"color" validate:"omitempty,max=32"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEventResponse(e model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Type:        string(e.Type),
		Color:       e.Color,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// List はイベント一覧を日付の昇順で返す。
// GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	events := sc.Events()
	resp := make([]eventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はイベントを作成する。種別が空の場合は"otro"になる。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	event := model.Event{
		Title:       h.sanitizer.Sanitize(req.Title),
		Description: h.sanitizer.Sanitize(req.Description),
		Date:        req.Date,
		Type:        model.EventType(req.Type),
		Color:       h.sanitizer.Sanitize(req.Color),
	}
	if event.Type == "" {
		event.Type = model.EventTypeOther
	}
	if event.Title == "" {
		handleServiceError(w, model.NewValidationError("El título es obligatorio"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	created, err := sc.AddEvent(r.Context(), event)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(*created))
}

// Update はイベントを部分更新する。
// PATCH /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	patch := model.EventPatch{
		Title:       sanitizePtr(h.sanitizer, req.Title),
		Description: sanitizePtr(h.sanitizer, req.Description),
		Date:        req.Date,
		Color:       sanitizePtr(h.sanitizer, req.Color),
	}
	if req.Type != nil {
		typ := model.EventType(*req.Type)
		patch.Type = &typ
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
	updated, err := sc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*updated))
}

// Delete はイベントを削除する。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	if err := sc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
