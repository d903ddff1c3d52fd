package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/security"
)

// NoteHandler はメモのHTTPハンドラー。
// 読み取りはミラーから返し、変更はミラー経由でリモートストアに書き込む。
type NoteHandler struct {
	syncs     SyncRegistry
	sanitizer security.Sanitizer
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(syncs SyncRegistry, sanitizer security.Sanitizer) *NoteHandler {
	return &NoteHandler{syncs: syncs, sanitizer: sanitizer}
}

type createNoteRequest struct {
	Title   string   `json:"title" validate:"notblank,max=200"`
	Content string   `json:"content" validate:"max=20000"`
	Tags    []string `json:"tags" validate:"max=20,dive,max=50"`
}

type updateNoteRequest struct {
	Title   *string   `json:"title" validate:"omitempty,notblank,max=200"`
	Content *string   `json:"content" validate:"omitempty,max=20000"`
	Tags    *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type noteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNoteResponse(n model.Note) noteResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// List はメモ一覧を作成日時の降順で返す。
// GET /api/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	notes := sc.Notes()
	resp := make([]noteResponse, len(notes))
	for i, n := range notes {
		resp[i] = toNoteResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はメモを作成する。
// POST /api/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	note := model.Note{
		Title:   h.sanitizer.Sanitize(req.Title),
		Content: h.sanitizer.Sanitize(req.Content),
		Tags:    h.sanitizer.SanitizeAll(req.Tags),
	}
	if note.Title == "" {
		handleServiceError(w, model.NewValidationError("El título es obligatorio"))
		return
	}

	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	created, err := sc.AddNote(r.Context(), note)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(*created))
}

// Update はメモを部分更新する。
// PATCH /api/notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	patch := model.NotePatch{
		Title:   sanitizePtr(h.sanitizer, req.Title),
		Content: sanitizePtr(h.sanitizer, req.Content),
	}
	if req.Tags != nil {
		tags := h.sanitizer.SanitizeAll(*req.Tags)
		patch.Tags = &tags
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
	updated, err := sc.UpdateNote(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(*updated))
}

// Delete はメモを削除する。
// DELETE /api/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	if err := sc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sanitizePtr はnilでない場合のみサニタイズした値へのポインタを返す。
func sanitizePtr(s security.Sanitizer, v *string) *string {
	if v == nil {
		return nil
	}
	out := s.Sanitize(*v)
	return &out
}
